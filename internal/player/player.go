package player

import (
	"time"

	"github.com/google/uuid"
)

type Attribute string

const (
	AttributeStrength     Attribute = "strength"
	AttributeIntelligence Attribute = "intelligence"
	AttributeCharisma     Attribute = "charisma"
	AttributeVitality     Attribute = "vitality"
)

type Attributes struct {
	Strength     int `json:"strength" db:"strength"`
	Intelligence int `json:"intelligence" db:"intelligence"`
	Charisma     int `json:"charisma" db:"charisma"`
	Vitality     int `json:"vitality" db:"vitality"`
}

// Delta returns an Attributes value with a single point in attr.
func Delta(attr Attribute) Attributes {
	var d Attributes
	switch attr {
	case AttributeStrength:
		d.Strength = 1
	case AttributeIntelligence:
		d.Intelligence = 1
	case AttributeCharisma:
		d.Charisma = 1
	case AttributeVitality:
		d.Vitality = 1
	}
	return d
}

type Stats struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	DisplayName *string    `json:"display_name,omitempty" db:"display_name"`
	XP          int        `json:"xp" db:"xp"`
	Gold        int        `json:"gold" db:"gold"`
	Level       int        `json:"level" db:"level"`
	Attributes  Attributes `json:"attributes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type Progress struct {
	Level           int     `json:"level"`
	XPProgress      int     `json:"xp_progress"`
	XPForNextLevel  int     `json:"xp_for_next_level"`
	ProgressPercent float64 `json:"progress_percent"`
}

type Profile struct {
	Stats    *Stats   `json:"stats"`
	Progress Progress `json:"progress"`
}

type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name"`
}

// Seed values for a freshly created player.
const (
	SeedXP        = 0
	SeedGold      = 0
	SeedAttribute = 1
)
