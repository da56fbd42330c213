package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"darkQuestsAPI/internal/player"
	"darkQuestsAPI/internal/progression"
	"darkQuestsAPI/internal/quest"
)

// QuestEventSink receives the outcome of every committed quest completion.
type QuestEventSink interface {
	QuestCompleted(userID string, outcome *CompletionOutcome)
}

// CompletionOutcome describes what completing a quest did to the player.
// AlreadyCompleted outcomes carry a zero reward and no stats.
type CompletionOutcome struct {
	QuestID          uuid.UUID          `json:"quest_id"`
	Difficulty       quest.Difficulty   `json:"difficulty"`
	Reward           progression.Reward `json:"reward"`
	Attribute        player.Attribute   `json:"attribute,omitempty"`
	LeveledUp        bool               `json:"leveled_up"`
	OldLevel         int                `json:"old_level"`
	NewLevel         int                `json:"new_level"`
	BossDefeated     bool               `json:"boss_defeated"`
	AlreadyCompleted bool               `json:"already_completed"`
	Stats            *player.Stats      `json:"stats,omitempty"`
}

const questColumns = `id, user_id, title, description, difficulty, category, completed, created_at, completed_at`

type QuestService struct {
	db     DB
	events QuestEventSink
	now    func() time.Time
}

func NewQuestService(db DB, events QuestEventSink) *QuestService {
	return &QuestService{db: db, events: events, now: time.Now}
}

func scanQuest(row pgx.Row) (*quest.Quest, error) {
	q := &quest.Quest{}
	err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.Title,
		&q.Description,
		&q.Difficulty,
		&q.Category,
		&q.Completed,
		&q.CreatedAt,
		&q.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestService) AddQuest(ctx context.Context, userID string, req *quest.CreateQuestRequest) (*quest.Quest, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationErr("title is required")
	}
	if !req.Difficulty.IsValid() {
		return nil, validationErr("unknown difficulty %q", req.Difficulty)
	}
	if !req.Category.IsValid() {
		return nil, validationErr("unknown category %q", req.Category)
	}

	var description *string
	if req.Description != nil {
		if d := strings.TrimSpace(*req.Description); d != "" {
			description = &d
		}
	}

	q := &quest.Quest{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Difficulty:  req.Difficulty,
		Category:    req.Category,
		Completed:   false,
		CreatedAt:   s.now().UTC(),
	}

	query := `
	INSERT INTO quests (id, user_id, title, description, difficulty, category, completed, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`
	_, err := s.db.Exec(ctx, query,
		q.ID,
		q.UserID,
		q.Title,
		q.Description,
		string(q.Difficulty),
		string(q.Category),
		q.CreatedAt,
	)
	if err != nil {
		return nil, wrapPlayerWrite("insert quest", err)
	}

	return q, nil
}

// ListQuests splits the player's quests into active and completed, newest first.
func (s *QuestService) ListQuests(ctx context.Context, userID string) (*quest.QuestLog, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, persistErr("list quests", err)
	}
	defer rows.Close()

	questLog := &quest.QuestLog{
		Active:    make([]*quest.Quest, 0),
		Completed: make([]*quest.Quest, 0),
	}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, persistErr("scan quest", err)
		}
		if q.Completed {
			questLog.Completed = append(questLog.Completed, q)
		} else {
			questLog.Active = append(questLog.Active, q)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list quests", err)
	}

	return questLog, nil
}

// DeleteQuest is idempotent: deleting a missing quest succeeds.
func (s *QuestService) DeleteQuest(ctx context.Context, userID string, questID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM quests WHERE id = $1 AND user_id = $2`, questID, userID)
	if err != nil {
		return persistErr("delete quest", err)
	}
	return nil
}

// CompleteQuest marks the quest completed and applies its reward in one
// transaction. The completed flag is claimed with a conditional update, so
// concurrent calls for the same quest grant the reward exactly once.
func (s *QuestService) CompleteQuest(ctx context.Context, userID string, questID uuid.UUID) (*CompletionOutcome, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var (
		difficulty quest.Difficulty
		category   quest.Category
	)
	err = tx.QueryRow(ctx, `
	UPDATE quests
	SET completed = TRUE, completed_at = NOW()
	WHERE id = $1 AND user_id = $2 AND completed = FALSE
	RETURNING difficulty, category
	`, questID, userID).Scan(&difficulty, &category)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.alreadyCompleted(ctx, tx, userID, questID)
	}
	if err != nil {
		return nil, persistErr("claim quest", err)
	}

	reward, ok := progression.RewardFor(difficulty)
	if !ok {
		return nil, fmt.Errorf("quest %s has unknown difficulty %q", questID, difficulty)
	}
	attr, ok := progression.AttributeFor(category)
	if !ok {
		return nil, fmt.Errorf("quest %s has unknown category %q", questID, category)
	}
	delta := player.Delta(attr)

	stats, err := scanPlayer(tx.QueryRow(ctx, `
	UPDATE player_stats
	SET xp = xp + $2,
		gold = gold + $3,
		level = (xp + $2) / 100 + 1,
		strength = strength + $4,
		intelligence = intelligence + $5,
		charisma = charisma + $6,
		vitality = vitality + $7,
		updated_at = NOW()
	WHERE user_id = $1
	RETURNING `+playerColumns,
		userID,
		reward.XP,
		reward.Gold,
		delta.Strength,
		delta.Intelligence,
		delta.Charisma,
		delta.Vitality,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, persistErr("apply quest reward", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit quest completion", err)
	}

	oldLevel := progression.Level(stats.XP - reward.XP)
	outcome := &CompletionOutcome{
		QuestID:      questID,
		Difficulty:   difficulty,
		Reward:       reward,
		Attribute:    attr,
		OldLevel:     oldLevel,
		NewLevel:     stats.Level,
		LeveledUp:    stats.Level > oldLevel,
		BossDefeated: difficulty.IsBoss(),
		Stats:        stats,
	}

	questsCompletedTotal.WithLabelValues(string(difficulty)).Inc()
	if outcome.LeveledUp {
		levelUpsTotal.Inc()
		log.Printf("Player %s reached level %d", userID, outcome.NewLevel)
	}
	if s.events != nil {
		s.events.QuestCompleted(userID, outcome)
	}

	return outcome, nil
}

func (s *QuestService) alreadyCompleted(ctx context.Context, tx pgx.Tx, userID string, questID uuid.UUID) (*CompletionOutcome, error) {
	var difficulty quest.Difficulty
	err := tx.QueryRow(ctx,
		`SELECT difficulty FROM quests WHERE id = $1 AND user_id = $2`,
		questID, userID,
	).Scan(&difficulty)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestNotFound
	}
	if err != nil {
		return nil, persistErr("load quest", err)
	}

	return &CompletionOutcome{
		QuestID:          questID,
		Difficulty:       difficulty,
		AlreadyCompleted: true,
	}, nil
}
