package service

import (
	"bytes"
	"testing"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReportService_ProgressWorkbook(t *testing.T) {
	db := testutil.DB(t)
	testutil.SeedSampleCatalog(t, db)
	alice := testutil.SeedUser(t, db, "alice", model.Student)
	testutil.SeedUser(t, db, "bob", model.Student)
	testutil.SeedUser(t, db, "root", model.Admin)

	progress := repository.NewProgressRepository(db)
	_, err := progress.MarkCompleted(alice.ID, "M1")
	require.NoError(t, err)
	_, err = progress.MarkCompleted(alice.ID, "M2")
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, progress.CreateAttempt(&model.CheckpointAttempt{UserID: alice.ID, CheckpointNumber: 1, Score: 50, AttemptNumber: 1, SubmittedAt: now}))
	require.NoError(t, progress.CreateAttempt(&model.CheckpointAttempt{UserID: alice.ID, CheckpointNumber: 1, Score: 100, Passed: true, AttemptNumber: 2, SubmittedAt: now.Add(time.Minute)}))

	learning := NewLearningService(nil, nil, progress, nil, nil, nil)
	svc := NewReportService(repository.NewUserRepository(db), repository.NewCheckpointRepository(db), progress, learning)

	rows, numbers, err := svc.Rows()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers)
	require.Len(t, rows, 2, "admins are not listed")
	assert.Equal(t, []int{1}, rows[0].PassedCheckpoints)
	assert.Equal(t, float64(100), rows[0].LatestScores[1])
	assert.Equal(t, "Tier 3", rows[0].Tier)
	assert.Empty(t, rows[1].CompletedModules)

	buf, err := svc.ProgressWorkbook()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	sheetRows, err := f.GetRows(progressSheet)
	require.NoError(t, err)
	require.Len(t, sheetRows, 3)
	assert.Equal(t, []string{
		"Name", "Username", "Email", "Completed Modules", "Passed Checkpoints",
		"Checkpoint 1 Latest", "Checkpoint 2 Latest", "Checkpoint 3 Latest",
		"Average Score", "Tier",
	}, sheetRows[0])
	assert.Equal(t, "alice", sheetRows[1][1])
	assert.Equal(t, "M1, M2", sheetRows[1][3])
	assert.Equal(t, "1", sheetRows[1][4])
	assert.Equal(t, "100", sheetRows[1][5])
}
