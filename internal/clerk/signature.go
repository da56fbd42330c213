package clerk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Clerk signs webhooks with Svix: base64(HMAC-SHA256(secret, id.timestamp.body)).
const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"

	timestampTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders   = errors.New("missing webhook signature headers")
	ErrInvalidTimestamp = errors.New("webhook timestamp outside tolerance")
	ErrInvalidSignature = errors.New("webhook signature mismatch")
)

// VerifySignature checks body against the Svix headers. secret is the
// dashboard value, with or without its "whsec_" prefix.
func VerifySignature(secret string, header http.Header, body []byte, now time.Time) error {
	id := header.Get(headerID)
	timestamp := header.Get(headerTimestamp)
	signatures := header.Get(headerSignature)
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > timestampTolerance || sent.Sub(now) > timestampTolerance {
		return ErrInvalidTimestamp
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return err
	}
	expected := Sign(key, id, timestamp, body)

	// The header may carry several space-separated "v1,<sig>" entries during key rotation.
	for _, entry := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign returns the base64 signature for the given message parts.
func Sign(key []byte, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func decodeSecret(secret string) ([]byte, error) {
	raw := strings.TrimPrefix(secret, "whsec_")
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("webhook secret is not valid base64")
	}
	return key, nil
}
