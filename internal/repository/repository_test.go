package repository_test

import (
	"testing"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_FindByLoginAndList(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewUserRepository(db)

	alice := testutil.SeedUser(t, db, "alice", model.Student)
	testutil.SeedUser(t, db, "bob", model.Student)
	testutil.SeedUser(t, db, "root", model.Admin)

	byEmail, err := repo.FindByLogin("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	byName, err := repo.FindByLogin("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	exists, err := repo.ExistsByEmailOrUsername("new@example.com", "bob")
	require.NoError(t, err)
	assert.True(t, exists)

	students, total, err := repo.List(1, 1, repository.UserFilter{Role: string(model.Student)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, students, 1)
	assert.Equal(t, "alice", students[0].Username)

	page2, _, err := repo.List(2, 1, repository.UserFilter{Role: string(model.Student)})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "bob", page2[0].Username)
}

func TestModuleRepository_ListOrderAndDelete(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewModuleRepository(db)
	progress := repository.NewProgressRepository(db)
	user := testutil.SeedUser(t, db, "alice", model.Student)

	testutil.SeedModule(t, db, "B", 2)
	testutil.SeedModule(t, db, "A", 1)
	testutil.SeedModule(t, db, "C", 3, 2)

	modules, err := repo.List()
	require.NoError(t, err)
	ids := make([]string, 0, len(modules))
	for _, m := range modules {
		ids = append(ids, m.ModuleID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, []int{2}, []int(modules[2].RequiredFor))

	found, err := repo.ExistingIDs([]string{"A", "Z", "C"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "C"}, found)

	_, err = progress.MarkCompleted(user.ID, "B")
	require.NoError(t, err)
	require.NoError(t, repo.Delete("B"))

	done, err := progress.CompletedModuleIDs(user.ID)
	require.NoError(t, err)
	assert.Empty(t, done)

	// 物理删除后 module_id 可以复用
	testutil.SeedModule(t, db, "B", 4)
}

func TestCheckpointRepository_UpdateReplacesQuestions(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewCheckpointRepository(db)
	testutil.SeedQuiz(t, db, 2, 3, "M3")
	testutil.SeedQuiz(t, db, 1, 1)

	quizzes, err := repo.List()
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.Equal(t, 1, quizzes[0].CheckpointNumber)
	assert.Len(t, quizzes[1].Questions, 3)

	quiz, err := repo.FindByNumber(2)
	require.NoError(t, err)
	quiz.PassingScore = 50
	err = repo.Update(quiz, []model.CheckpointQuestion{
		{Prompt: "second", Options: []string{"a", "b"}, Order: 2},
		{Prompt: "first", Options: []string{"a", "b"}, Order: 1},
	})
	require.NoError(t, err)

	reloaded, err := repo.FindByNumber(2)
	require.NoError(t, err)
	assert.Equal(t, 50, reloaded.PassingScore)
	require.Len(t, reloaded.Questions, 2)
	assert.Equal(t, "first", reloaded.Questions[0].Prompt)

	require.NoError(t, repo.Delete(2))
	exists, err := repo.ExistsNumber(2)
	require.NoError(t, err)
	assert.False(t, exists)

	var orphans int64
	require.NoError(t, db.Unscoped().Model(&model.CheckpointQuestion{}).Where("quiz_id = ?", quiz.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestProgressRepository_MarkCompletedIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	user := testutil.SeedUser(t, db, "alice", model.Student)

	created, err := repo.MarkCompleted(user.ID, "M1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.MarkCompleted(user.ID, "M1")
	require.NoError(t, err)
	assert.False(t, created)

	ids, err := repo.CompletedModuleIDs(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"M1"}, ids)
}

func TestProgressRepository_AttemptsAndScoreRecord(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	user := testutil.SeedUser(t, db, "alice", model.Student)

	for i, passed := range []bool{false, true} {
		require.NoError(t, repo.CreateAttempt(&model.CheckpointAttempt{
			UserID:           user.ID,
			CheckpointNumber: 1,
			Passed:           passed,
			Score:            float64(50 + i*50),
			AttemptNumber:    i + 1,
		}))
	}

	all, err := repo.AllAttempts()
	require.NoError(t, err)
	require.Len(t, all[user.ID], 2)
	assert.NotEmpty(t, all[user.ID][0].ID)

	record, err := repo.ScoreRecord(user.ID)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, repo.SaveScoreRecord(user.ID, []byte(`{"moduleScores":{"M1":{"correct":1,"total":2}}}`)))
	require.NoError(t, repo.SaveScoreRecord(user.ID, []byte(`{"moduleScores":{"M1":{"correct":2,"total":2}}}`)))

	record, err = repo.ScoreRecord(user.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, `{"moduleScores":{"M1":{"correct":2,"total":2}}}`, string(record.Payload))
}

func TestProgressRepository_AppendAttempt(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	user := testutil.SeedUser(t, db, "alice", model.Student)
	now := time.Now()

	first := &model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 1, Score: 40, SubmittedAt: now}
	alreadyPassed, err := repo.AppendAttempt(first)
	require.NoError(t, err)
	assert.False(t, alreadyPassed)
	assert.Equal(t, 1, first.AttemptNumber)

	// 其他检查点的编号独立计数
	other := &model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 2, Score: 10, SubmittedAt: now}
	_, err = repo.AppendAttempt(other)
	require.NoError(t, err)
	assert.Equal(t, 1, other.AttemptNumber)

	second := &model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 1, Score: 90, Passed: true, SubmittedAt: now}
	alreadyPassed, err = repo.AppendAttempt(second)
	require.NoError(t, err)
	assert.False(t, alreadyPassed)
	assert.Equal(t, 2, second.AttemptNumber)

	late := &model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 1, Score: 0, SubmittedAt: now}
	alreadyPassed, err = repo.AppendAttempt(late)
	require.NoError(t, err)
	assert.True(t, alreadyPassed)
	assert.Empty(t, late.ID, "no row is written once the checkpoint is passed")

	all, err := repo.AllAttempts()
	require.NoError(t, err)
	assert.Len(t, all[user.ID], 3)
}

func TestProgressRepository_AttemptNumberIsUnique(t *testing.T) {
	db := testutil.DB(t)
	repo := repository.NewProgressRepository(db)
	user := testutil.SeedUser(t, db, "alice", model.Student)

	require.NoError(t, repo.CreateAttempt(&model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 1, AttemptNumber: 1}))
	err := repo.CreateAttempt(&model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 1, AttemptNumber: 1})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repo.CreateAttempt(&model.CheckpointAttempt{UserID: user.ID, CheckpointNumber: 2, AttemptNumber: 1}))
}
