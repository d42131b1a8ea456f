package database

import (
	"fmt"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	level := gormLogger.Warn
	if debug {
		level = gormLogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DBName))

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Log.Info("Database migration completed")
	return db, nil
}

// Migrate 自动迁移所有表，测试中的 sqlite 也复用此函数
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.LearningModule{},
		&model.CheckpointQuiz{},
		&model.CheckpointQuestion{},
		&model.ModuleCompletion{},
		&model.CheckpointAttempt{},
		&model.ModuleScoreRecord{},
	)
}
