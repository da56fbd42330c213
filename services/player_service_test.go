package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlayer_SeedsStats(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)
	name := "  Ashen One "

	mock.ExpectExec("INSERT INTO player_stats").
		WithArgs(pgxmock.AnyArg(), "user_1", pgxmock.AnyArg(), 0, 0, 1, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM player_stats WHERE user_id").
		WithArgs("user_1").
		WillReturnRows(playerRow("user_1", 0, 0))

	stats, err := svc.CreatePlayer(context.Background(), "user_1", &name)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.XP)
	assert.Equal(t, 0, stats.Gold)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 1, stats.Attributes.Strength)
	assert.Equal(t, 1, stats.Attributes.Vitality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePlayer_RequiresUserID(t *testing.T) {
	svc := NewPlayerService(newMock(t))
	_, err := svc.CreatePlayer(context.Background(), " ", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEnsurePlayer_CreatesOnFirstAccess(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)

	mock.ExpectQuery("FROM player_stats WHERE user_id").
		WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows(playerColumnNames))
	mock.ExpectExec("INSERT INTO player_stats").
		WithArgs(pgxmock.AnyArg(), "user_1", pgxmock.AnyArg(), 0, 0, 1, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM player_stats WHERE user_id").
		WithArgs("user_1").
		WillReturnRows(playerRow("user_1", 0, 0))

	stats, err := svc.EnsurePlayer(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", stats.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_DerivesLevelFromXP(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)

	rows := pgxmock.NewRows(playerColumnNames)
	rows.AddRow(uuid.New(), "user_1", (*string)(nil), 250, 40, 1, 1, 1, 1, 1, testTime, testTime)
	mock.ExpectQuery("FROM player_stats WHERE user_id").
		WithArgs("user_1").
		WillReturnRows(rows)

	profile, err := svc.GetProfile(context.Background(), "user_1")
	require.NoError(t, err)

	assert.Equal(t, 3, profile.Stats.Level, "stored level column is ignored")
	assert.Equal(t, 3, profile.Progress.Level)
	assert.Equal(t, 50, profile.Progress.XPProgress)
	assert.Equal(t, 300, profile.Progress.XPForNextLevel)
	assert.InDelta(t, 16.667, profile.Progress.ProgressPercent, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDisplayName(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)

	mock.ExpectQuery("SET display_name").
		WithArgs("user_1", "Gravelord").
		WillReturnRows(playerRow("user_1", 0, 0))

	_, err := svc.UpdateDisplayName(context.Background(), "user_1", "  Gravelord  ")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDisplayName_Validation(t *testing.T) {
	svc := NewPlayerService(newMock(t))

	_, err := svc.UpdateDisplayName(context.Background(), "user_1", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateDisplayName(context.Background(), "user_1", strings.Repeat("x", maxDisplayNameLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateDisplayName_UnknownPlayer(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)

	mock.ExpectQuery("SET display_name").
		WithArgs("ghost", "Name").
		WillReturnRows(pgxmock.NewRows(playerColumnNames))

	_, err := svc.UpdateDisplayName(context.Background(), "ghost", "Name")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasRole(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)

	mock.ExpectQuery("FROM user_roles").
		WithArgs("user_1", "admin").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("FROM user_roles").
		WithArgs("user_2", "admin").
		WillReturnError(errors.New("boom"))

	ok, err := svc.HasRole(context.Background(), "user_1", "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasRole(context.Background(), "user_2", "admin")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDeletePlayer(t *testing.T) {
	mock := newMock(t)
	svc := NewPlayerService(mock)

	mock.ExpectExec("DELETE FROM player_stats").
		WithArgs("user_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, svc.DeletePlayer(context.Background(), "user_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
