package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type CheckpointRepository struct {
	DB *gorm.DB
}

func NewCheckpointRepository(db *gorm.DB) *CheckpointRepository {
	return &CheckpointRepository{DB: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("`order` ASC").Order("id ASC")
}

// List 按检查点编号升序返回所有测验（含题目）
func (r *CheckpointRepository) List() ([]model.CheckpointQuiz, error) {
	var quizzes []model.CheckpointQuiz
	err := r.DB.Preload("Questions", orderedQuestions).
		Order("checkpoint_number ASC").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *CheckpointRepository) FindByNumber(number int) (*model.CheckpointQuiz, error) {
	var quiz model.CheckpointQuiz
	err := r.DB.Preload("Questions", orderedQuestions).
		Where("checkpoint_number = ?", number).
		First(&quiz).Error
	return &quiz, err
}

func (r *CheckpointRepository) ExistsNumber(number int) (bool, error) {
	var count int64
	err := r.DB.Model(&model.CheckpointQuiz{}).Where("checkpoint_number = ?", number).Count(&count).Error
	return count > 0, err
}

// Create 同时创建测验和题目
func (r *CheckpointRepository) Create(quiz *model.CheckpointQuiz) error {
	return r.DB.Create(quiz).Error
}

// Update 更新测验字段并整体替换题目
func (r *CheckpointRepository) Update(quiz *model.CheckpointQuiz, questions []model.CheckpointQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions").Save(quiz).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).Delete(&model.CheckpointQuestion{}).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].ID = 0
			questions[i].QuizID = quiz.ID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		quiz.Questions = questions
		return nil
	})
}

func (r *CheckpointRepository) Delete(number int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var quiz model.CheckpointQuiz
		if err := tx.Where("checkpoint_number = ?", number).First(&quiz).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).Delete(&model.CheckpointQuestion{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&quiz).Error
	})
}
