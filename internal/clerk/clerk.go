package clerk

import (
	"encoding/json"
	"strings"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

type ClerkWebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type ClerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type ClerkUserData struct {
	ID              string              `json:"id"`
	Username        string              `json:"username"`
	FirstName       string              `json:"first_name"`
	LastName        string              `json:"last_name"`
	ImageURL        string              `json:"image_url"`
	ProfileImageURL string              `json:"profile_image_url"`
	EmailAddresses  []ClerkEmailAddress `json:"email_addresses"`
	UnsafeMetadata  map[string]any      `json:"unsafe_metadata"`
}

type ClerkDeletedData struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DisplayName picks the name shown on the leaderboard: an explicit
// display_name chosen at sign-up, then the username, then the full name.
func (u *ClerkUserData) DisplayName() *string {
	if v, ok := u.UnsafeMetadata["display_name"].(string); ok {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	if u.Username != "" {
		name := u.Username
		return &name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return &full
	}
	return nil
}
