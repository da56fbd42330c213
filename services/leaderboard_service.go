package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"darkQuestsAPI/internal/cache"
	"darkQuestsAPI/internal/leaderboard"
	"darkQuestsAPI/internal/progression"
)

const leaderboardCacheKey = "leaderboard:top"

// topSnapshot is what gets cached: the ranked top entries and the player count.
type topSnapshot struct {
	Entries    []*leaderboard.LeaderboardEntry `json:"entries"`
	TotalUsers int                             `json:"total_users"`
}

type LeaderboardService struct {
	db    DB
	cache cache.Cache
	ttl   time.Duration
	size  int

	// generation is bumped by Invalidate. A refill that started under an
	// older generation returns its rows but does not cache them.
	mu         sync.Mutex
	generation uint64
}

func NewLeaderboardService(db DB, c cache.Cache, ttl time.Duration, size int) *LeaderboardService {
	return &LeaderboardService{db: db, cache: c, ttl: ttl, size: size}
}

func fallbackDisplayName(rank int) string {
	return fmt.Sprintf("Undead #%d", rank)
}

func (s *LeaderboardService) cacheKey() string {
	return fmt.Sprintf("%s:%d", leaderboardCacheKey, s.size)
}

// Top returns the highest-XP players. Ties share a rank.
func (s *LeaderboardService) Top(ctx context.Context) (*leaderboard.Leaderboard, error) {
	snapshot, err := s.top(ctx)
	if err != nil {
		return nil, err
	}
	return &leaderboard.Leaderboard{
		Entries:    snapshot.Entries,
		TotalUsers: snapshot.TotalUsers,
	}, nil
}

// GetLeaderboard returns the top entries plus the caller's own position.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, userID string) (*leaderboard.Leaderboard, error) {
	snapshot, err := s.top(ctx)
	if err != nil {
		return nil, err
	}

	result := &leaderboard.Leaderboard{
		Entries:    snapshot.Entries,
		TotalUsers: snapshot.TotalUsers,
	}

	for _, entry := range snapshot.Entries {
		if entry.UserID == userID {
			result.UserPosition = entry
			return result, nil
		}
	}

	position, err := s.position(ctx, userID)
	if err != nil && !errors.Is(err, ErrPlayerNotFound) {
		return nil, err
	}
	result.UserPosition = position
	return result, nil
}

// Invalidate drops the cached snapshot so the next read hits the database.
func (s *LeaderboardService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.cache.Delete(ctx, s.cacheKey())
}

func (s *LeaderboardService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// storeSnapshot caches raw unless an invalidation happened since gen was read.
func (s *LeaderboardService) storeSnapshot(ctx context.Context, gen uint64, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(), raw, s.ttl); err != nil {
		log.Printf("Leaderboard cache write failed: %v", err)
	}
}

func (s *LeaderboardService) top(ctx context.Context) (*topSnapshot, error) {
	key := s.cacheKey()
	gen := s.currentGeneration()

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var snapshot topSnapshot
		decodeErr := json.Unmarshal(raw, &snapshot)
		if decodeErr == nil {
			return &snapshot, nil
		}
		log.Printf("Discarding unreadable leaderboard cache entry: %v", decodeErr)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("Leaderboard cache read failed: %v", err)
	}

	snapshot, err := s.queryTop(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(snapshot); err == nil {
		s.storeSnapshot(ctx, gen, raw)
	}

	return snapshot, nil
}

func (s *LeaderboardService) queryTop(ctx context.Context) (*topSnapshot, error) {
	query := `
	SELECT
		ps.user_id,
		ps.display_name,
		ps.xp,
		ps.gold,
		RANK() OVER (ORDER BY ps.xp DESC) AS rank,
		COUNT(*) OVER () AS total_users,
		t.name AS equipped_title
	FROM player_stats ps
	LEFT JOIN user_inventory ui
		ON ui.user_id = ps.user_id AND ui.equipped AND ui.item_type = 'title'
	LEFT JOIN store_items t ON t.id = ui.item_id
	ORDER BY ps.xp DESC, ps.created_at ASC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, s.size)
	if err != nil {
		return nil, persistErr("query leaderboard", err)
	}
	defer rows.Close()

	snapshot := &topSnapshot{Entries: make([]*leaderboard.LeaderboardEntry, 0, s.size)}
	for rows.Next() {
		var (
			entry       leaderboard.LeaderboardEntry
			displayName *string
		)
		err := rows.Scan(
			&entry.UserID,
			&displayName,
			&entry.XP,
			&entry.Gold,
			&entry.Rank,
			&snapshot.TotalUsers,
			&entry.EquippedTitle,
		)
		if err != nil {
			return nil, persistErr("scan leaderboard entry", err)
		}
		finishEntry(&entry, displayName)
		snapshot.Entries = append(snapshot.Entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("query leaderboard", err)
	}

	return snapshot, nil
}

func (s *LeaderboardService) position(ctx context.Context, userID string) (*leaderboard.LeaderboardEntry, error) {
	query := `
	SELECT
		ps.user_id,
		ps.display_name,
		ps.xp,
		ps.gold,
		(SELECT COUNT(*) FROM player_stats o WHERE o.xp > ps.xp) + 1 AS rank,
		t.name AS equipped_title
	FROM player_stats ps
	LEFT JOIN user_inventory ui
		ON ui.user_id = ps.user_id AND ui.equipped AND ui.item_type = 'title'
	LEFT JOIN store_items t ON t.id = ui.item_id
	WHERE ps.user_id = $1
	`

	var (
		entry       leaderboard.LeaderboardEntry
		displayName *string
	)
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&entry.UserID,
		&displayName,
		&entry.XP,
		&entry.Gold,
		&entry.Rank,
		&entry.EquippedTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, persistErr("query leaderboard position", err)
	}
	finishEntry(&entry, displayName)
	return &entry, nil
}

func finishEntry(entry *leaderboard.LeaderboardEntry, displayName *string) {
	entry.Level = progression.Level(entry.XP)
	if displayName != nil && *displayName != "" {
		entry.DisplayName = *displayName
	} else {
		entry.DisplayName = fallbackDisplayName(entry.Rank)
	}
}
