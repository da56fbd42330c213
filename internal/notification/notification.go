package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeLevelUp      NotificationType = "level_up"
	TypeBossDefeated NotificationType = "boss_defeated"
)

type Event struct {
	UserID string           `json:"user_id"`
	Type   NotificationType `json:"type"`
	Title  string           `json:"title"`
	Body   string           `json:"body"`
	Data   map[string]any   `json:"data"`
}

type DeviceToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
