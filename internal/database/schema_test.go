package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_RunsEveryStatementInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for _, stmt := range schemaStatements {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS player_stats").
		WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration step 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_EnforcesEquipAndOwnershipInvariants(t *testing.T) {
	all := ""
	for _, stmt := range schemaStatements {
		all += stmt + "\n"
	}
	assert.Contains(t, all, "UNIQUE (user_id, item_id)")
	assert.Contains(t, all, "ON user_inventory (user_id, item_type) WHERE equipped")
	assert.Contains(t, all, "CHECK (gold >= 0)")
	assert.Contains(t, all, "pg_notify('"+StatsChannel+"'")
}
