package services

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"darkQuestsAPI/internal/database"
)

const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// StatsListener holds a dedicated connection LISTENing on the player stats
// channel. Every notification invalidates the cached leaderboard and asks the
// hub to broadcast a fresh one.
type StatsListener struct {
	pool        *pgxpool.Pool
	leaderboard *LeaderboardService
	hub         *LeaderboardHub
}

func NewStatsListener(pool *pgxpool.Pool, leaderboard *LeaderboardService, hub *LeaderboardHub) *StatsListener {
	return &StatsListener{pool: pool, leaderboard: leaderboard, hub: hub}
}

// Run reconnects with exponential backoff until ctx is cancelled.
func (l *StatsListener) Run(ctx context.Context) {
	backoff := listenRetryMin
	for {
		started := time.Now()
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > listenRetryMax {
			backoff = listenRetryMin
		}
		log.Printf("Stats listener disconnected: %v (retrying in %s)", err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > listenRetryMax {
			backoff = listenRetryMax
		}
	}
}

func (l *StatsListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+database.StatsChannel); err != nil {
		return err
	}
	log.Printf("Listening for changes on %s", database.StatsChannel)

	// Anything may have changed while we were disconnected.
	l.StatsChanged(ctx)

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			return err
		}
		l.StatsChanged(ctx)
	}
}

// StatsChanged drops the cached leaderboard and schedules a broadcast.
func (l *StatsListener) StatsChanged(ctx context.Context) {
	if err := l.leaderboard.Invalidate(ctx); err != nil {
		log.Printf("Failed to invalidate leaderboard cache: %v", err)
	}
	if l.hub != nil {
		l.hub.Refresh()
	}
}
