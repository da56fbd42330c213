package quest

import (
	"time"

	"github.com/google/uuid"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyLegendary Difficulty = "legendary"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyLegendary:
		return true
	}
	return false
}

// IsBoss reports whether the difficulty is the boss tier.
func (d Difficulty) IsBoss() bool {
	return d == DifficultyLegendary
}

type Category string

const (
	CategoryFitness  Category = "fitness"
	CategoryCareer   Category = "career"
	CategorySocial   Category = "social"
	CategoryLearning Category = "learning"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryFitness, CategoryCareer, CategorySocial, CategoryLearning:
		return true
	}
	return false
}

type Quest struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	Category    Category   `json:"category" db:"category"`
	Completed   bool       `json:"completed" db:"completed"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type QuestLog struct {
	Active    []*Quest `json:"active"`
	Completed []*Quest `json:"completed"`
}

type CreateQuestRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    Category   `json:"category"`
}
