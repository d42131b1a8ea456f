package testutil

import (
	"testing"

	"learnhub_backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DefaultPassword = "password123"

func SeedUser(tb testing.TB, db *gorm.DB, username string, role model.UserRole) *model.User {
	tb.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := &model.User{
		Name:     username,
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedModule(tb testing.TB, db *gorm.DB, moduleID string, order int, requiredFor ...int) *model.LearningModule {
	tb.Helper()
	m := &model.LearningModule{
		ModuleID:    moduleID,
		Title:       "Module " + moduleID,
		RequiredFor: requiredFor,
		Order:       order,
	}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

// SeedQuiz 创建检查点测验，每题两个选项，正确答案均为下标 0
func SeedQuiz(tb testing.TB, db *gorm.DB, number int, questions int, required ...string) *model.CheckpointQuiz {
	tb.Helper()
	q := &model.CheckpointQuiz{
		CheckpointNumber:  number,
		Title:             "Checkpoint",
		RequiredModuleIDs: required,
		PassingScore:      70,
	}
	for i := 0; i < questions; i++ {
		q.Questions = append(q.Questions, model.CheckpointQuestion{
			Prompt:      "question",
			Options:     []string{"right", "wrong"},
			AnswerIndex: 0,
			Order:       i + 1,
		})
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return q
}

// SeedSampleCatalog 五个模块三个检查点：
// Q1 需要 M1 M2，Q2 需要 M3 M4，Q3 需要 M5
func SeedSampleCatalog(tb testing.TB, db *gorm.DB) {
	tb.Helper()
	SeedModule(tb, db, "M1", 1)
	SeedModule(tb, db, "M2", 2)
	SeedModule(tb, db, "M3", 3, 2)
	SeedModule(tb, db, "M4", 4, 2)
	SeedModule(tb, db, "M5", 5, 3)
	SeedQuiz(tb, db, 1, 2, "M1", "M2")
	SeedQuiz(tb, db, 2, 2, "M3", "M4")
	SeedQuiz(tb, db, 3, 1, "M5")
}
