package database

import (
	"errors"
	"fmt"
	"os"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// CatalogFile 课程目录种子文件结构
type CatalogFile struct {
	Modules     []SeedModule     `yaml:"modules"`
	Checkpoints []SeedCheckpoint `yaml:"checkpoints"`
}

type SeedModule struct {
	ModuleID    string `yaml:"module_id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Tier        string `yaml:"tier"`
	RequiredFor []int  `yaml:"required_for"`
}

type SeedCheckpoint struct {
	CheckpointNumber  int            `yaml:"checkpoint_number"`
	Title             string         `yaml:"title"`
	PassingScore      *int           `yaml:"passing_score"`
	RequiredModuleIDs []string       `yaml:"required_module_ids"`
	Questions         []SeedQuestion `yaml:"questions"`
}

type SeedQuestion struct {
	Prompt      string   `yaml:"prompt"`
	Options     []string `yaml:"options"`
	AnswerIndex int      `yaml:"answer_index"`
}

func LoadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return &file, nil
}

// Models 转换为可直接写入数据库的模型，模块顺序即文件中的顺序
func (f *CatalogFile) Models() ([]model.LearningModule, []model.CheckpointQuiz) {
	modules := make([]model.LearningModule, 0, len(f.Modules))
	for i, m := range f.Modules {
		modules = append(modules, model.LearningModule{
			ModuleID:    m.ModuleID,
			Title:       m.Title,
			Description: m.Description,
			Tier:        m.Tier,
			RequiredFor: m.RequiredFor,
			Order:       i + 1,
		})
	}

	quizzes := make([]model.CheckpointQuiz, 0, len(f.Checkpoints))
	for _, cp := range f.Checkpoints {
		passing := model.DefaultPassingScore
		if cp.PassingScore != nil {
			passing = *cp.PassingScore
		}
		quiz := model.CheckpointQuiz{
			CheckpointNumber:  cp.CheckpointNumber,
			Title:             cp.Title,
			PassingScore:      passing,
			RequiredModuleIDs: cp.RequiredModuleIDs,
		}
		for i, q := range cp.Questions {
			quiz.Questions = append(quiz.Questions, model.CheckpointQuestion{
				Prompt:      q.Prompt,
				Options:     q.Options,
				AnswerIndex: q.AnswerIndex,
				Order:       i + 1,
			})
		}
		quizzes = append(quizzes, quiz)
	}
	return modules, quizzes
}

// SeedCatalog 仅在 learning_modules 为空时导入种子目录
func SeedCatalog(db *gorm.DB, path string) error {
	if path == "" {
		return nil
	}

	var count int64
	if err := db.Model(&model.LearningModule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	file, err := LoadCatalogFile(path)
	if err != nil {
		return err
	}
	modules, quizzes := file.Models()

	err = db.Transaction(func(tx *gorm.DB) error {
		if len(modules) > 0 {
			if err := tx.Create(&modules).Error; err != nil {
				return err
			}
		}
		for i := range quizzes {
			if err := tx.Create(&quizzes[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	logger.Log.Info("Catalog seeded",
		zap.String("file", path),
		zap.Int("modules", len(modules)),
		zap.Int("checkpoints", len(quizzes)))
	return nil
}

// SeedAdmin 创建初始管理员账号，已存在时跳过
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	var existing model.User
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	username := cfg.Username
	if username == "" {
		username = "admin"
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}

	admin := model.User{
		Name:     name,
		Username: username,
		Email:    cfg.Email,
		Password: string(hashed),
		Role:     model.Admin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Log.Info("Admin account created", zap.String("email", cfg.Email))
	return nil
}
