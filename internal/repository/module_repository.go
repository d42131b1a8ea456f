package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

// List 按目录顺序返回所有模块
func (r *ModuleRepository) List() ([]model.LearningModule, error) {
	var modules []model.LearningModule
	err := r.DB.Order("`order` ASC").Order("id ASC").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) FindByModuleID(moduleID string) (*model.LearningModule, error) {
	var module model.LearningModule
	err := r.DB.Where("module_id = ?", moduleID).First(&module).Error
	return &module, err
}

func (r *ModuleRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.LearningModule{}).Count(&count).Error
	return count, err
}

// ExistingIDs 返回 ids 中在库里存在的模块 ID
func (r *ModuleRepository) ExistingIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	err := r.DB.Model(&model.LearningModule{}).Where("module_id IN ?", ids).Pluck("module_id", &found).Error
	return found, err
}

func (r *ModuleRepository) Create(module *model.LearningModule) error {
	return r.DB.Create(module).Error
}

func (r *ModuleRepository) Update(module *model.LearningModule) error {
	return r.DB.Save(module).Error
}

// Delete 物理删除模块及其完成记录，保证 module_id 可以被重新使用
func (r *ModuleRepository) Delete(moduleID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("module_id = ?", moduleID).Delete(&model.ModuleCompletion{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("module_id = ?", moduleID).Delete(&model.LearningModule{}).Error
	})
}
