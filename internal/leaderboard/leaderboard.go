package leaderboard

type LeaderboardEntry struct {
	UserID        string  `json:"user_id" db:"user_id"`
	DisplayName   string  `json:"display_name" db:"display_name"`
	XP            int     `json:"xp" db:"xp"`
	Gold          int     `json:"gold" db:"gold"`
	Level         int     `json:"level"`
	Rank          int     `json:"rank"`
	EquippedTitle *string `json:"equipped_title,omitempty" db:"equipped_title"`
}

type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}
