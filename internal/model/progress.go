package model

import (
	"time"

	"gorm.io/datatypes"
)

// ModuleCompletion 学员已完成的模块，每个用户每个模块仅一条
type ModuleCompletion struct {
	BaseModel
	UserID      uint      `gorm:"uniqueIndex:idx_user_module;not null" json:"userId"`
	ModuleID    string    `gorm:"size:64;uniqueIndex:idx_user_module;not null" json:"moduleId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (ModuleCompletion) TableName() string {
	return "module_completions"
}

// CheckpointAttempt 检查点测验的一次作答记录，重考会追加新记录
type CheckpointAttempt struct {
	RecordBase
	UserID           uint                               `gorm:"uniqueIndex:idx_user_cp_attempt,priority:1;not null" json:"userId"`
	CheckpointNumber int                                `gorm:"uniqueIndex:idx_user_cp_attempt,priority:2;not null" json:"checkpointNumber"`
	AttemptNumber    int                                `gorm:"uniqueIndex:idx_user_cp_attempt,priority:3;not null" json:"attemptNumber"`
	Score            float64                            `gorm:"default:0" json:"score"`
	Passed           bool                               `gorm:"default:false" json:"passed"`
	Answers          datatypes.JSONType[map[string]int] `gorm:"type:json" json:"answers"`
	SubmittedAt      time.Time                          `json:"submittedAt"`
}

func (CheckpointAttempt) TableName() string {
	return "checkpoint_attempts"
}

// ModuleScoreRecord 原始的模块得分记录，新旧两种结构都可能出现，读取时统一归一化
type ModuleScoreRecord struct {
	BaseModel
	UserID  uint           `gorm:"uniqueIndex;not null" json:"userId"`
	Payload datatypes.JSON `gorm:"type:json" json:"payload"`
}

func (ModuleScoreRecord) TableName() string {
	return "module_score_records"
}
