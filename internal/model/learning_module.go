package model

import (
	"gorm.io/datatypes"
)

// LearningModule 学习模块，RequiredFor 记录该模块作为前置条件的检查点编号
type LearningModule struct {
	BaseModel
	ModuleID        string                   `gorm:"size:64;uniqueIndex;not null" json:"moduleId"`
	Title           string                   `gorm:"size:255;not null" json:"title"`
	Description     string                   `gorm:"type:text" json:"description"`
	Tier            string                   `gorm:"size:32" json:"tier"`
	RequiredFor     datatypes.JSONSlice[int] `gorm:"type:json" json:"requiredFor"`
	Order           int                      `gorm:"default:0" json:"order"`
	ContentKey      *string                  `gorm:"size:512" json:"contentKey,omitempty"`
	ContentType     string                   `gorm:"size:100" json:"contentType,omitempty"`
	ContentDuration float64                  `gorm:"default:0" json:"contentDuration,omitempty"` // 视频时长（秒）
}

func (LearningModule) TableName() string {
	return "learning_modules"
}
