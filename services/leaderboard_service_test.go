package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darkQuestsAPI/internal/cache"
)

var topColumnNames = []string{"user_id", "display_name", "xp", "gold", "rank", "total_users", "equipped_title"}

func strPtr(s string) *string { return &s }

func newLeaderboard(t *testing.T, mock pgxmock.PgxPoolIface) *LeaderboardService {
	t.Helper()
	c := cache.NewMemoryCache(0)
	t.Cleanup(func() { c.Close() })
	return NewLeaderboardService(mock, c, time.Minute, 10)
}

func TestLeaderboard_RanksAndFallbackNames(t *testing.T) {
	mock := newMock(t)
	svc := newLeaderboard(t, mock)

	mock.ExpectQuery("RANK\\(\\) OVER").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topColumnNames).
			AddRow("user_1", strPtr("Gravelord"), 320, 10, 1, 3, strPtr("Lord of Cinder")).
			AddRow("user_2", (*string)(nil), 120, 5, 2, 3, (*string)(nil)).
			AddRow("user_3", strPtr(""), 120, 0, 2, 3, (*string)(nil)))

	board, err := svc.GetLeaderboard(context.Background(), "user_2")
	require.NoError(t, err)

	require.Len(t, board.Entries, 3)
	assert.Equal(t, 3, board.TotalUsers)

	assert.Equal(t, "Gravelord", board.Entries[0].DisplayName)
	assert.Equal(t, 4, board.Entries[0].Level)
	require.NotNil(t, board.Entries[0].EquippedTitle)
	assert.Equal(t, "Lord of Cinder", *board.Entries[0].EquippedTitle)

	assert.Equal(t, "Undead #2", board.Entries[1].DisplayName)
	assert.Equal(t, "Undead #2", board.Entries[2].DisplayName)
	assert.Equal(t, board.Entries[1].Rank, board.Entries[2].Rank)

	require.NotNil(t, board.UserPosition)
	assert.Equal(t, "user_2", board.UserPosition.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_ServedFromCacheUntilInvalidated(t *testing.T) {
	mock := newMock(t)
	svc := newLeaderboard(t, mock)
	ctx := context.Background()

	mock.ExpectQuery("RANK\\(\\) OVER").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topColumnNames).
			AddRow("user_1", strPtr("A"), 50, 0, 1, 1, (*string)(nil)))
	mock.ExpectQuery("RANK\\(\\) OVER").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topColumnNames).
			AddRow("user_1", strPtr("A"), 150, 0, 1, 1, (*string)(nil)))

	first, err := svc.Top(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, first.Entries[0].XP)

	cached, err := svc.Top(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, cached.Entries[0].XP)

	require.NoError(t, svc.Invalidate(ctx))

	fresh, err := svc.Top(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150, fresh.Entries[0].XP)
	assert.Equal(t, 2, fresh.Entries[0].Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_UserOutsideTop(t *testing.T) {
	mock := newMock(t)
	svc := newLeaderboard(t, mock)

	mock.ExpectQuery("RANK\\(\\) OVER").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topColumnNames).
			AddRow("user_1", strPtr("A"), 900, 0, 1, 40, (*string)(nil)))
	mock.ExpectQuery("WHERE ps.user_id").
		WithArgs("user_39").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "display_name", "xp", "gold", "rank", "equipped_title"}).
			AddRow("user_39", (*string)(nil), 5, 5, 39, (*string)(nil)))

	board, err := svc.GetLeaderboard(context.Background(), "user_39")
	require.NoError(t, err)

	require.NotNil(t, board.UserPosition)
	assert.Equal(t, 39, board.UserPosition.Rank)
	assert.Equal(t, "Undead #39", board.UserPosition.DisplayName)
	assert.Equal(t, 40, board.TotalUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboard_UnknownUserHasNoPosition(t *testing.T) {
	mock := newMock(t)
	svc := newLeaderboard(t, mock)

	mock.ExpectQuery("RANK\\(\\) OVER").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topColumnNames))
	mock.ExpectQuery("WHERE ps.user_id").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))

	board, err := svc.GetLeaderboard(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, board.UserPosition)
	assert.Empty(t, board.Entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// invalidatingDB invalidates the leaderboard while its query is in flight,
// as a stats change committed mid-read would.
type invalidatingDB struct {
	DB
	lb *LeaderboardService
}

func (d *invalidatingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if err := d.lb.Invalidate(ctx); err != nil {
		return nil, err
	}
	return d.DB.Query(ctx, sql, args...)
}

func TestLeaderboard_InvalidatedRefillIsNotCached(t *testing.T) {
	mock := newMock(t)
	c := cache.NewMemoryCache(0)
	t.Cleanup(func() { c.Close() })
	db := &invalidatingDB{DB: mock}
	svc := NewLeaderboardService(db, c, time.Minute, 10)
	db.lb = svc
	ctx := context.Background()

	mock.ExpectQuery("RANK\\(\\) OVER").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topColumnNames).
			AddRow("user_1", strPtr("A"), 50, 0, 1, 1, (*string)(nil)))

	board, err := svc.Top(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, board.Entries[0].XP)

	_, err = c.Get(ctx, svc.cacheKey())
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}
