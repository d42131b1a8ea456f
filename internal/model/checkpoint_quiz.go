package model

import (
	"gorm.io/datatypes"
)

// DefaultPassingScore 请求未给出分数线时使用，0 是合法的分数线
const DefaultPassingScore = 70

// CheckpointQuiz 检查点测验，通过后解锁下一组模块
type CheckpointQuiz struct {
	BaseModel
	CheckpointNumber  int                         `gorm:"uniqueIndex;not null" json:"checkpointNumber"`
	Title             string                      `gorm:"size:255" json:"title"`
	RequiredModuleIDs datatypes.JSONSlice[string] `gorm:"type:json" json:"requiredModuleIds"`
	PassingScore      int                         `gorm:"not null" json:"passingScore"` // 0-100，0 表示不设分数线
	Questions         []CheckpointQuestion        `gorm:"foreignKey:QuizID" json:"questions"`
}

func (CheckpointQuiz) TableName() string {
	return "checkpoint_quizzes"
}

type CheckpointQuestion struct {
	BaseModel
	QuizID      uint                        `gorm:"index;not null" json:"quizId"`
	Prompt      string                      `gorm:"type:text;not null" json:"prompt"`
	Options     datatypes.JSONSlice[string] `gorm:"type:json" json:"options"`
	AnswerIndex int                         `gorm:"default:0" json:"answerIndex"`
	Order       int                         `gorm:"default:0" json:"order"`
}

func (CheckpointQuestion) TableName() string {
	return "checkpoint_questions"
}
