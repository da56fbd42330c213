package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"darkQuestsAPI/internal/notification"
)

type NotificationService struct {
	db         DB
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db DB, workers, queueSize int) *NotificationService {
	s := &NotificationService{db: db}
	s.dispatcher = NewNotificationDispatcher(s, workers, queueSize)
	return s
}

func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

// RegisterDevice stores a push token for the player. A token that moves to
// another account is reassigned.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) (*notification.DeviceToken, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, validationErr("token is required")
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if !notification.IsValidPlatform(platform) {
		return nil, validationErr("unknown platform %q", req.Platform)
	}

	query := `
	INSERT INTO device_tokens (id, user_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (token) DO UPDATE
	SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	RETURNING id, user_id, token, platform, created_at
	`

	var device notification.DeviceToken
	err := s.db.QueryRow(ctx, query, uuid.New(), userID, token, platform).Scan(
		&device.ID,
		&device.UserID,
		&device.Token,
		&device.Platform,
		&device.CreatedAt,
	)
	if err != nil {
		return nil, wrapPlayerWrite("register device", err)
	}
	return &device, nil
}

func (s *NotificationService) GetDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, token, platform, created_at FROM device_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, persistErr("list device tokens", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, persistErr("scan device token", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list device tokens", err)
	}
	return tokens, nil
}

// QuestCompleted turns a completion outcome into push events.
func (s *NotificationService) QuestCompleted(userID string, outcome *CompletionOutcome) {
	for _, event := range eventsFor(userID, outcome) {
		s.dispatcher.Dispatch(event)
	}
}

func eventsFor(userID string, outcome *CompletionOutcome) []*notification.Event {
	if outcome == nil || outcome.AlreadyCompleted {
		return nil
	}

	var events []*notification.Event
	if outcome.BossDefeated {
		events = append(events, &notification.Event{
			UserID: userID,
			Type:   notification.TypeBossDefeated,
			Title:  "Boss slain",
			Body:   fmt.Sprintf("A legendary foe has fallen. +%d XP, +%d souls.", outcome.Reward.XP, outcome.Reward.Gold),
			Data: map[string]any{
				"quest_id": outcome.QuestID.String(),
				"xp":       outcome.Reward.XP,
				"gold":     outcome.Reward.Gold,
			},
		})
	}
	if outcome.LeveledUp {
		events = append(events, &notification.Event{
			UserID: userID,
			Type:   notification.TypeLevelUp,
			Title:  "Level up",
			Body:   fmt.Sprintf("You have risen to level %d.", outcome.NewLevel),
			Data: map[string]any{
				"old_level": outcome.OldLevel,
				"new_level": outcome.NewLevel,
			},
		})
	}
	return events
}
