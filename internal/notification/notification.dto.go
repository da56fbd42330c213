package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func IsValidPlatform(p string) bool {
	switch p {
	case "ios", "android", "web":
		return true
	}
	return false
}
