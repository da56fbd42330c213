package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 10, 31, 23, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var playerColumnNames = []string{
	"id", "user_id", "display_name", "xp", "gold", "level",
	"strength", "intelligence", "charisma", "vitality", "created_at", "updated_at",
}

// playerRow builds a player_stats row with the given xp and gold and the
// given attributes in strength, intelligence, charisma, vitality order.
func playerRow(userID string, xp, gold int, attrs ...int) *pgxmock.Rows {
	a := []int{1, 1, 1, 1}
	copy(a, attrs)
	var name *string
	return pgxmock.NewRows(playerColumnNames).AddRow(
		uuid.New(), userID, name, xp, gold, xp/100+1,
		a[0], a[1], a[2], a[3], testTime, testTime,
	)
}
