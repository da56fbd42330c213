package progression

import (
	"darkQuestsAPI/internal/player"
	"darkQuestsAPI/internal/quest"
)

type Reward struct {
	XP   int `json:"xp"`
	Gold int `json:"gold"`
}

var difficultyRewards = map[quest.Difficulty]Reward{
	quest.DifficultyEasy:      {XP: 10, Gold: 5},
	quest.DifficultyMedium:    {XP: 25, Gold: 15},
	quest.DifficultyHard:      {XP: 50, Gold: 40},
	quest.DifficultyLegendary: {XP: 100, Gold: 80},
}

var categoryAttributes = map[quest.Category]player.Attribute{
	quest.CategoryFitness:  player.AttributeStrength,
	quest.CategoryCareer:   player.AttributeIntelligence,
	quest.CategorySocial:   player.AttributeCharisma,
	quest.CategoryLearning: player.AttributeVitality,
}

func RewardFor(d quest.Difficulty) (Reward, bool) {
	r, ok := difficultyRewards[d]
	return r, ok
}

func AttributeFor(c quest.Category) (player.Attribute, bool) {
	a, ok := categoryAttributes[c]
	return a, ok
}
