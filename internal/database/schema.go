package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// StatsChannel is the NOTIFY channel fired on every player_stats write.
const StatsChannel = "player_stats_changes"

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS player_stats (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		display_name TEXT,
		xp INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
		gold INTEGER NOT NULL DEFAULT 0 CHECK (gold >= 0),
		level INTEGER NOT NULL DEFAULT 1,
		strength INTEGER NOT NULL DEFAULT 1 CHECK (strength >= 0),
		intelligence INTEGER NOT NULL DEFAULT 1 CHECK (intelligence >= 0),
		charisma INTEGER NOT NULL DEFAULT 1 CHECK (charisma >= 0),
		vitality INTEGER NOT NULL DEFAULT 1 CHECK (vitality >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_player_stats_xp ON player_stats (xp DESC)`,
	`CREATE TABLE IF NOT EXISTS quests (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES player_stats(user_id) ON DELETE CASCADE,
		title TEXT NOT NULL CHECK (length(btrim(title)) > 0),
		description TEXT,
		difficulty TEXT NOT NULL CHECK (difficulty IN ('easy', 'medium', 'hard', 'legendary')),
		category TEXT NOT NULL CHECK (category IN ('fitness', 'career', 'social', 'learning')),
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quests_user ON quests (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS store_items (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL CHECK (type IN ('icon', 'title', 'cosmetic', 'banner')),
		price INTEGER NOT NULL CHECK (price >= 0),
		image_url TEXT,
		rarity TEXT NOT NULL CHECK (rarity IN ('common', 'rare', 'legendary')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_inventory (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES player_stats(user_id) ON DELETE CASCADE,
		item_id UUID NOT NULL REFERENCES store_items(id) ON DELETE CASCADE,
		item_type TEXT NOT NULL,
		purchased_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		equipped BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (user_id, item_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_user_inventory_equipped_type
		ON user_inventory (user_id, item_type) WHERE equipped`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT NOT NULL REFERENCES player_stats(user_id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		UNIQUE (user_id, role)
	)`,
	`CREATE TABLE IF NOT EXISTS device_tokens (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES player_stats(user_id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		platform TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE OR REPLACE FUNCTION notify_player_stats_change() RETURNS trigger AS $$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('` + StatsChannel + `', OLD.user_id);
			RETURN OLD;
		END IF;
		PERFORM pg_notify('` + StatsChannel + `', NEW.user_id);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS player_stats_notify ON player_stats`,
	`CREATE TRIGGER player_stats_notify
		AFTER INSERT OR UPDATE OR DELETE ON player_stats
		FOR EACH ROW EXECUTE FUNCTION notify_player_stats_change()`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
