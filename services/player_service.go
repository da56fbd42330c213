package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"darkQuestsAPI/internal/player"
	"darkQuestsAPI/internal/progression"
)

const maxDisplayNameLength = 40

const playerColumns = `id, user_id, display_name, xp, gold, level, strength, intelligence, charisma, vitality, created_at, updated_at`

type PlayerService struct {
	db DB
}

func NewPlayerService(db DB) *PlayerService {
	return &PlayerService{db: db}
}

// scanPlayer re-derives Level from XP; the stored level column is only a cache.
func scanPlayer(row pgx.Row) (*player.Stats, error) {
	stats := &player.Stats{}
	err := row.Scan(
		&stats.ID,
		&stats.UserID,
		&stats.DisplayName,
		&stats.XP,
		&stats.Gold,
		&stats.Level,
		&stats.Attributes.Strength,
		&stats.Attributes.Intelligence,
		&stats.Attributes.Charisma,
		&stats.Attributes.Vitality,
		&stats.CreatedAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	stats.Level = progression.Level(stats.XP)
	return stats, nil
}

// CreatePlayer seeds a stats row. Creating an existing player is a no-op.
func (s *PlayerService) CreatePlayer(ctx context.Context, userID string, displayName *string) (*player.Stats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validationErr("user id is required")
	}

	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO player_stats (id, user_id, display_name, xp, gold, level, strength, intelligence, charisma, vitality, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7, $7, NOW(), NOW())
	ON CONFLICT (user_id) DO NOTHING
	`
	_, err = s.db.Exec(ctx, query,
		uuid.New(),
		userID,
		name,
		player.SeedXP,
		player.SeedGold,
		progression.Level(player.SeedXP),
		player.SeedAttribute,
	)
	if err != nil {
		return nil, persistErr("create player", err)
	}

	return s.GetPlayer(ctx, userID)
}

func (s *PlayerService) GetPlayer(ctx context.Context, userID string) (*player.Stats, error) {
	query := `SELECT ` + playerColumns + ` FROM player_stats WHERE user_id = $1`

	stats, err := scanPlayer(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, persistErr("get player", err)
	}
	return stats, nil
}

// EnsurePlayer returns the player's stats, creating them on first access.
func (s *PlayerService) EnsurePlayer(ctx context.Context, userID string) (*player.Stats, error) {
	stats, err := s.GetPlayer(ctx, userID)
	if errors.Is(err, ErrPlayerNotFound) {
		return s.CreatePlayer(ctx, userID, nil)
	}
	return stats, err
}

func (s *PlayerService) GetProfile(ctx context.Context, userID string) (*player.Profile, error) {
	stats, err := s.EnsurePlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &player.Profile{
		Stats:    stats,
		Progress: progression.Progress(stats.XP),
	}, nil
}

func (s *PlayerService) UpdateDisplayName(ctx context.Context, userID string, displayName string) (*player.Stats, error) {
	name, err := normalizeDisplayName(&displayName)
	if err != nil {
		return nil, err
	}
	if name == nil {
		return nil, validationErr("display name is required")
	}

	query := `
	UPDATE player_stats
	SET display_name = $2, updated_at = NOW()
	WHERE user_id = $1
	RETURNING ` + playerColumns

	stats, err := scanPlayer(s.db.QueryRow(ctx, query, userID, *name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, persistErr("update display name", err)
	}
	return stats, nil
}

// DeletePlayer removes the stats row; quests, inventory, roles and device
// tokens go with it through ON DELETE CASCADE.
func (s *PlayerService) DeletePlayer(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM player_stats WHERE user_id = $1`, userID); err != nil {
		return persistErr("delete player", err)
	}
	return nil
}

func (s *PlayerService) HasRole(ctx context.Context, userID string, role string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		userID, role,
	).Scan(&ok)
	if err != nil {
		return false, persistErr("check role", err)
	}
	return ok, nil
}

func normalizeDisplayName(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxDisplayNameLength {
		return nil, validationErr("display name must be at most %d characters", maxDisplayNameLength)
	}
	return &trimmed, nil
}

// isForeignKeyViolation reports a missing player_stats parent row.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func wrapPlayerWrite(op string, err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrPlayerNotFound)
	}
	return persistErr(op, err)
}
