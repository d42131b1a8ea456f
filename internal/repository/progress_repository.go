package repository

import (
	"errors"
	"time"

	"learnhub_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) CompletedModuleIDs(userID uint) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.ModuleCompletion{}).
		Where("user_id = ?", userID).
		Order("completed_at ASC").
		Order("id ASC").
		Pluck("module_id", &ids).Error
	return ids, err
}

// MarkCompleted 幂等地记录模块完成，created 表示本次是否新增
func (r *ProgressRepository) MarkCompleted(userID uint, moduleID string) (created bool, err error) {
	completion := model.ModuleCompletion{
		UserID:      userID,
		ModuleID:    moduleID,
		CompletedAt: time.Now(),
	}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion)
	return res.RowsAffected > 0, res.Error
}

// Attempts 按提交时间先后返回用户所有检查点作答
func (r *ProgressRepository) Attempts(userID uint) ([]model.CheckpointAttempt, error) {
	var attempts []model.CheckpointAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("submitted_at ASC").
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *ProgressRepository) CreateAttempt(attempt *model.CheckpointAttempt) error {
	return r.DB.Create(attempt).Error
}

// AppendAttempt 锁定该用户在该检查点的作答记录，编号为已有记录数 + 1 后写入。
// 已存在通过记录时不写入，alreadyPassed 为 true。
// 并发提交撞上唯一索引 idx_user_cp_attempt 时返回 gorm.ErrDuplicatedKey。
func (r *ProgressRepository) AppendAttempt(attempt *model.CheckpointAttempt) (alreadyPassed bool, err error) {
	err = r.DB.Transaction(func(tx *gorm.DB) error {
		var existing []model.CheckpointAttempt
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "passed", "attempt_number").
			Where("user_id = ? AND checkpoint_number = ?", attempt.UserID, attempt.CheckpointNumber).
			Find(&existing).Error; err != nil {
			return err
		}
		for _, a := range existing {
			if a.Passed {
				alreadyPassed = true
				return nil
			}
		}
		attempt.AttemptNumber = len(existing) + 1
		return tx.Create(attempt).Error
	})
	return alreadyPassed, err
}

// AllCompletions 报表用：user_id -> 已完成模块
func (r *ProgressRepository) AllCompletions() (map[uint][]string, error) {
	var rows []model.ModuleCompletion
	if err := r.DB.Order("completed_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint][]string)
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.ModuleID)
	}
	return out, nil
}

// AllAttempts 报表用：user_id -> 作答记录（时间升序）
func (r *ProgressRepository) AllAttempts() (map[uint][]model.CheckpointAttempt, error) {
	var rows []model.CheckpointAttempt
	if err := r.DB.Order("submitted_at ASC").Order("attempt_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint][]model.CheckpointAttempt)
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row)
	}
	return out, nil
}

// AllScoreRecords 报表用：user_id -> 原始得分 JSON
func (r *ProgressRepository) AllScoreRecords() (map[uint][]byte, error) {
	var rows []model.ModuleScoreRecord
	if err := r.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint][]byte, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Payload
	}
	return out, nil
}

// ScoreRecord 没有记录时返回 nil, nil
func (r *ProgressRepository) ScoreRecord(userID uint) (*model.ModuleScoreRecord, error) {
	var record model.ModuleScoreRecord
	err := r.DB.Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ProgressRepository) SaveScoreRecord(userID uint, payload []byte) error {
	record, err := r.ScoreRecord(userID)
	if err != nil {
		return err
	}
	if record == nil {
		return r.DB.Create(&model.ModuleScoreRecord{UserID: userID, Payload: datatypes.JSON(payload)}).Error
	}
	record.Payload = datatypes.JSON(payload)
	return r.DB.Save(record).Error
}
