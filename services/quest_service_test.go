package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darkQuestsAPI/internal/player"
	"darkQuestsAPI/internal/quest"
)

type recordingSink struct {
	outcomes []*CompletionOutcome
}

func (r *recordingSink) QuestCompleted(userID string, outcome *CompletionOutcome) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestCompleteQuest_LevelsUpAndRewards(t *testing.T) {
	mock := newMock(t)
	sink := &recordingSink{}
	svc := NewQuestService(mock, sink)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}).
			AddRow(quest.DifficultyMedium, quest.CategoryFitness))
	mock.ExpectQuery("UPDATE player_stats").
		WithArgs("user_1", 25, 15, 1, 0, 0, 0).
		WillReturnRows(playerRow("user_1", 115, 55, 2, 1, 1, 1))
	mock.ExpectCommit()

	outcome, err := svc.CompleteQuest(context.Background(), "user_1", questID)
	require.NoError(t, err)

	assert.True(t, outcome.LeveledUp)
	assert.Equal(t, 1, outcome.OldLevel)
	assert.Equal(t, 2, outcome.NewLevel)
	assert.Equal(t, 25, outcome.Reward.XP)
	assert.Equal(t, 15, outcome.Reward.Gold)
	assert.Equal(t, player.AttributeStrength, outcome.Attribute)
	assert.False(t, outcome.BossDefeated)
	assert.False(t, outcome.AlreadyCompleted)
	assert.Equal(t, 2, outcome.Stats.Level)
	assert.Equal(t, 2, outcome.Stats.Attributes.Strength)

	require.Len(t, sink.outcomes, 1)
	assert.Same(t, outcome, sink.outcomes[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteQuest_NoLevelUpWithinLevel(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}).
			AddRow(quest.DifficultyEasy, quest.CategoryLearning))
	mock.ExpectQuery("UPDATE player_stats").
		WithArgs("user_1", 10, 5, 0, 0, 0, 1).
		WillReturnRows(playerRow("user_1", 10, 5, 1, 1, 1, 2))
	mock.ExpectCommit()

	outcome, err := svc.CompleteQuest(context.Background(), "user_1", questID)
	require.NoError(t, err)

	assert.False(t, outcome.LeveledUp)
	assert.Equal(t, 1, outcome.OldLevel)
	assert.Equal(t, 1, outcome.NewLevel)
	assert.Equal(t, player.AttributeVitality, outcome.Attribute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteQuest_LegendaryIsBoss(t *testing.T) {
	mock := newMock(t)
	sink := &recordingSink{}
	svc := NewQuestService(mock, sink)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}).
			AddRow(quest.DifficultyLegendary, quest.CategoryCareer))
	mock.ExpectQuery("UPDATE player_stats").
		WithArgs("user_1", 100, 80, 0, 1, 0, 0).
		WillReturnRows(playerRow("user_1", 150, 80, 1, 2, 1, 1))
	mock.ExpectCommit()

	outcome, err := svc.CompleteQuest(context.Background(), "user_1", questID)
	require.NoError(t, err)

	assert.True(t, outcome.BossDefeated)
	assert.True(t, outcome.LeveledUp)
	assert.Equal(t, 1, outcome.OldLevel)
	assert.Equal(t, 2, outcome.NewLevel)
	assert.Len(t, sink.outcomes, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteQuest_AlreadyCompletedGrantsNothing(t *testing.T) {
	mock := newMock(t)
	sink := &recordingSink{}
	svc := NewQuestService(mock, sink)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}))
	mock.ExpectQuery("SELECT difficulty FROM quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty"}).AddRow(quest.DifficultyHard))
	mock.ExpectRollback()

	outcome, err := svc.CompleteQuest(context.Background(), "user_1", questID)
	require.NoError(t, err)

	assert.True(t, outcome.AlreadyCompleted)
	assert.False(t, outcome.LeveledUp)
	assert.Zero(t, outcome.Reward.XP)
	assert.Zero(t, outcome.Reward.Gold)
	assert.Equal(t, quest.DifficultyHard, outcome.Difficulty)
	assert.Nil(t, outcome.Stats)
	assert.Empty(t, sink.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteQuest_NotFound(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}))
	mock.ExpectQuery("SELECT difficulty FROM quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty"}))
	mock.ExpectRollback()

	_, err := svc.CompleteQuest(context.Background(), "user_1", questID)
	assert.ErrorIs(t, err, ErrQuestNotFound)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteQuest_StatsFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	sink := &recordingSink{}
	svc := NewQuestService(mock, sink)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "user_1").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}).
			AddRow(quest.DifficultyEasy, quest.CategorySocial))
	mock.ExpectQuery("UPDATE player_stats").
		WithArgs("user_1", 10, 5, 0, 0, 1, 0).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.CompleteQuest(context.Background(), "user_1", questID)
	require.Error(t, err)

	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.Empty(t, sink.outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteQuest_MissingPlayer(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)
	questID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quests").
		WithArgs(questID, "ghost").
		WillReturnRows(pgxmock.NewRows([]string{"difficulty", "category"}).
			AddRow(quest.DifficultyEasy, quest.CategorySocial))
	mock.ExpectQuery("UPDATE player_stats").
		WithArgs("ghost", 10, 5, 0, 0, 1, 0).
		WillReturnRows(pgxmock.NewRows(playerColumnNames))
	mock.ExpectRollback()

	_, err := svc.CompleteQuest(context.Background(), "ghost", questID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddQuest(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)
	svc.now = func() time.Time { return testTime }

	desc := "  five kilometres  "
	mock.ExpectExec("INSERT INTO quests").
		WithArgs(pgxmock.AnyArg(), "user_1", "Run", pgxmock.AnyArg(), "easy", "fitness", testTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	q, err := svc.AddQuest(context.Background(), "user_1", &quest.CreateQuestRequest{
		Title:       "  Run ",
		Description: &desc,
		Difficulty:  quest.DifficultyEasy,
		Category:    quest.CategoryFitness,
	})
	require.NoError(t, err)

	assert.Equal(t, "Run", q.Title)
	require.NotNil(t, q.Description)
	assert.Equal(t, "five kilometres", *q.Description)
	assert.False(t, q.Completed)
	assert.Nil(t, q.CompletedAt)
	assert.Equal(t, testTime, q.CreatedAt)
	assert.NotEqual(t, uuid.Nil, q.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddQuest_Validation(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)

	cases := map[string]*quest.CreateQuestRequest{
		"blank title":    {Title: "   ", Difficulty: quest.DifficultyEasy, Category: quest.CategoryFitness},
		"bad difficulty": {Title: "x", Difficulty: "mythic", Category: quest.CategoryFitness},
		"bad category":   {Title: "x", Difficulty: quest.DifficultyEasy, Category: "cooking"},
		"empty request":  {},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddQuest(context.Background(), "user_1", req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddQuest_UnknownPlayer(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)

	mock.ExpectExec("INSERT INTO quests").
		WithArgs(pgxmock.AnyArg(), "ghost", "Read", pgxmock.AnyArg(), "easy", "learning", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := svc.AddQuest(context.Background(), "ghost", &quest.CreateQuestRequest{
		Title:      "Read",
		Difficulty: quest.DifficultyEasy,
		Category:   quest.CategoryLearning,
	})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuests_SplitsByCompletion(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)

	done := testTime
	columns := []string{"id", "user_id", "title", "description", "difficulty", "category", "completed", "created_at", "completed_at"}
	mock.ExpectQuery("FROM quests WHERE user_id").
		WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(uuid.New(), "user_1", "Spar", nil, quest.DifficultyHard, quest.CategoryFitness, false, testTime, nil).
			AddRow(uuid.New(), "user_1", "Network", nil, quest.DifficultyEasy, quest.CategorySocial, true, testTime, &done).
			AddRow(uuid.New(), "user_1", "Study", nil, quest.DifficultyMedium, quest.CategoryLearning, false, testTime, nil))

	questLog, err := svc.ListQuests(context.Background(), "user_1")
	require.NoError(t, err)

	require.Len(t, questLog.Active, 2)
	require.Len(t, questLog.Completed, 1)
	assert.Equal(t, "Spar", questLog.Active[0].Title)
	assert.Equal(t, "Study", questLog.Active[1].Title)
	assert.Equal(t, "Network", questLog.Completed[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuests_EmptyLogIsNotNil(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)

	mock.ExpectQuery("FROM quests WHERE user_id").
		WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	questLog, err := svc.ListQuests(context.Background(), "user_1")
	require.NoError(t, err)
	assert.NotNil(t, questLog.Active)
	assert.NotNil(t, questLog.Completed)
}

func TestDeleteQuest_Idempotent(t *testing.T) {
	mock := newMock(t)
	svc := NewQuestService(mock, nil)
	questID := uuid.New()

	mock.ExpectExec("DELETE FROM quests").
		WithArgs(questID, "user_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM quests").
		WithArgs(questID, "user_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, svc.DeleteQuest(context.Background(), "user_1", questID))
	require.NoError(t, svc.DeleteQuest(context.Background(), "user_1", questID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
