package service

import (
	"errors"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
)

// UserService 管理端的用户查询
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

// GetUsers 获取用户列表，支持分页和筛选
func (s *UserService) GetUsers(page, pageSize int, filter repository.UserFilter) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.UserRepo.List(page, pageSize, filter)
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

// DisableUser 禁用/启用用户
func (s *UserService) DisableUser(id uint, disable bool) error {
	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}
	user.Disabled = disable
	return s.UserRepo.Update(user)
}
