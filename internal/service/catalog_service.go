package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService 管理端维护模块和检查点测验
type CatalogService struct {
	ModuleRepo     *repository.ModuleRepository
	CheckpointRepo *repository.CheckpointRepository
	Storage        *StorageService
	Probe          util.ProbeFunc
}

func NewCatalogService(moduleRepo *repository.ModuleRepository, checkpointRepo *repository.CheckpointRepository, storage *StorageService) *CatalogService {
	return &CatalogService{
		ModuleRepo:     moduleRepo,
		CheckpointRepo: checkpointRepo,
		Storage:        storage,
		Probe:          util.ProbeMedia,
	}
}

type ModuleRequest struct {
	ModuleID    string `json:"moduleId"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Tier        string `json:"tier"`
	RequiredFor []int  `json:"requiredFor"`
	Order       int    `json:"order"`
}

type QuestionRequest struct {
	Prompt      string   `json:"prompt" binding:"required"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
}

type CheckpointRequest struct {
	CheckpointNumber  int               `json:"checkpointNumber"`
	Title             string            `json:"title"`
	RequiredModuleIDs []string          `json:"requiredModuleIds"`
	PassingScore      *int              `json:"passingScore"`
	Questions         []QuestionRequest `json:"questions"`
}

func (s *CatalogService) ListModules() ([]model.LearningModule, error) {
	return s.ModuleRepo.List()
}

func (s *CatalogService) GetModule(moduleID string) (*model.LearningModule, error) {
	module, err := s.ModuleRepo.FindByModuleID(moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	return module, err
}

func validateModule(req *ModuleRequest) error {
	req.ModuleID = strings.TrimSpace(req.ModuleID)
	if req.ModuleID == "" || strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: moduleId and title are required", util.ErrInvalidModule)
	}
	for _, n := range req.RequiredFor {
		if n < 1 {
			return fmt.Errorf("%w: requiredFor entries must be positive checkpoint numbers", util.ErrInvalidModule)
		}
	}
	return nil
}

func (s *CatalogService) CreateModule(req ModuleRequest) (*model.LearningModule, error) {
	if err := validateModule(&req); err != nil {
		return nil, err
	}
	if _, err := s.ModuleRepo.FindByModuleID(req.ModuleID); err == nil {
		return nil, util.ErrModuleExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if req.Order == 0 {
		count, err := s.ModuleRepo.Count()
		if err != nil {
			return nil, err
		}
		req.Order = int(count) + 1
	}

	module := &model.LearningModule{
		ModuleID:    req.ModuleID,
		Title:       req.Title,
		Description: req.Description,
		Tier:        req.Tier,
		RequiredFor: req.RequiredFor,
		Order:       req.Order,
	}
	if err := s.ModuleRepo.Create(module); err != nil {
		return nil, err
	}
	return module, nil
}

// UpdateModule moduleId 不可修改
func (s *CatalogService) UpdateModule(moduleID string, req ModuleRequest) (*model.LearningModule, error) {
	module, err := s.GetModule(moduleID)
	if err != nil {
		return nil, err
	}
	req.ModuleID = moduleID
	if err := validateModule(&req); err != nil {
		return nil, err
	}

	module.Title = req.Title
	module.Description = req.Description
	module.Tier = req.Tier
	module.RequiredFor = req.RequiredFor
	if req.Order != 0 {
		module.Order = req.Order
	}
	if err := s.ModuleRepo.Update(module); err != nil {
		return nil, err
	}
	return module, nil
}

// DeleteModule 仍被检查点测验引用的模块不能删除
func (s *CatalogService) DeleteModule(ctx context.Context, moduleID string) error {
	module, err := s.GetModule(moduleID)
	if err != nil {
		return err
	}

	quizzes, err := s.CheckpointRepo.List()
	if err != nil {
		return err
	}
	for _, q := range quizzes {
		if slices.Contains(q.RequiredModuleIDs, moduleID) {
			return fmt.Errorf("%w (checkpoint %d)", util.ErrModuleReferenced, q.CheckpointNumber)
		}
	}

	if err := s.ModuleRepo.Delete(moduleID); err != nil {
		return err
	}

	if module.ContentKey != nil && s.Storage != nil {
		if err := s.Storage.Delete(ctx, *module.ContentKey); err != nil {
			logger.Log.Warn("Failed to delete module content", zap.String("key", *module.ContentKey), zap.Error(err))
		}
	}
	return nil
}

// UploadContent 保存模块内容，音视频会先落盘探测时长，探测失败只记录日志
func (s *CatalogService) UploadContent(ctx context.Context, moduleID, filename string, reader io.ReadSeeker, size int64) (*model.LearningModule, error) {
	module, err := s.GetModule(moduleID)
	if err != nil {
		return nil, err
	}

	contentType, err := util.ValidateMimeType(reader, util.AllowedContentTypes)
	if err != nil {
		if !util.IsMedia(contentType, filename) {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidModule, err)
		}
		// 嗅探不出容器格式时按扩展名判断
		if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
			contentType = byExt
		}
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := path.Join("modules", moduleID, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	duration := 0.0

	if util.IsMedia(contentType, filename) {
		tmp, err := os.CreateTemp("", "module-*"+filepath.Ext(filename))
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp.Name())

		if _, err := io.Copy(tmp, reader); err != nil {
			tmp.Close()
			return nil, err
		}
		tmp.Close()

		if info, err := s.Probe(tmp.Name()); err != nil {
			logger.Log.Warn("Failed to probe module media", zap.String("moduleID", moduleID), zap.Error(err))
		} else {
			duration = info.Duration
		}

		if err := s.Storage.UploadFile(ctx, key, tmp.Name(), contentType); err != nil {
			return nil, err
		}
	} else {
		if err := s.Storage.Upload(ctx, key, reader, size, contentType); err != nil {
			return nil, err
		}
	}

	previous := module.ContentKey
	module.ContentKey = &key
	module.ContentType = contentType
	module.ContentDuration = duration
	if err := s.ModuleRepo.Update(module); err != nil {
		return nil, err
	}

	if previous != nil && *previous != key {
		if err := s.Storage.Delete(ctx, *previous); err != nil {
			logger.Log.Warn("Failed to delete replaced module content", zap.String("key", *previous), zap.Error(err))
		}
	}
	return module, nil
}

func (s *CatalogService) ListCheckpoints() ([]model.CheckpointQuiz, error) {
	return s.CheckpointRepo.List()
}

func (s *CatalogService) GetCheckpoint(number int) (*model.CheckpointQuiz, error) {
	quiz, err := s.CheckpointRepo.FindByNumber(number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCheckpointNotFound
	}
	return quiz, err
}

func (s *CatalogService) validateCheckpoint(req *CheckpointRequest) error {
	if req.CheckpointNumber < 1 {
		return fmt.Errorf("%w: checkpointNumber must be >= 1", util.ErrInvalidCheckpoint)
	}
	if req.PassingScore == nil {
		def := model.DefaultPassingScore
		req.PassingScore = &def
	}
	if *req.PassingScore < 0 || *req.PassingScore > 100 {
		return fmt.Errorf("%w: passingScore must be between 0 and 100", util.ErrInvalidCheckpoint)
	}
	if len(req.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", util.ErrInvalidCheckpoint)
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", util.ErrInvalidCheckpoint, i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", util.ErrInvalidCheckpoint, i+1)
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer index out of range", util.ErrInvalidCheckpoint, i+1)
		}
	}

	seen := make(map[string]struct{}, len(req.RequiredModuleIDs))
	ids := make([]string, 0, len(req.RequiredModuleIDs))
	for _, id := range req.RequiredModuleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	req.RequiredModuleIDs = ids

	found, err := s.ModuleRepo.ExistingIDs(ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !slices.Contains(found, id) {
			return fmt.Errorf("%w: %s", util.ErrUnknownModule, id)
		}
	}
	return nil
}

func toQuestions(reqs []QuestionRequest) []model.CheckpointQuestion {
	questions := make([]model.CheckpointQuestion, 0, len(reqs))
	for i, q := range reqs {
		questions = append(questions, model.CheckpointQuestion{
			Prompt:      q.Prompt,
			Options:     q.Options,
			AnswerIndex: q.AnswerIndex,
			Order:       i + 1,
		})
	}
	return questions
}

func (s *CatalogService) CreateCheckpoint(req CheckpointRequest) (*model.CheckpointQuiz, error) {
	if err := s.validateCheckpoint(&req); err != nil {
		return nil, err
	}
	exists, err := s.CheckpointRepo.ExistsNumber(req.CheckpointNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrCheckpointExists
	}

	quiz := &model.CheckpointQuiz{
		CheckpointNumber:  req.CheckpointNumber,
		Title:             req.Title,
		RequiredModuleIDs: req.RequiredModuleIDs,
		PassingScore:      *req.PassingScore,
		Questions:         toQuestions(req.Questions),
	}
	if quiz.Title == "" {
		quiz.Title = fmt.Sprintf("Checkpoint %d", quiz.CheckpointNumber)
	}
	if err := s.CheckpointRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// UpdateCheckpoint 编号可以修改，但不能与其他测验冲突
func (s *CatalogService) UpdateCheckpoint(number int, req CheckpointRequest) (*model.CheckpointQuiz, error) {
	quiz, err := s.GetCheckpoint(number)
	if err != nil {
		return nil, err
	}
	if req.CheckpointNumber == 0 {
		req.CheckpointNumber = number
	}
	if err := s.validateCheckpoint(&req); err != nil {
		return nil, err
	}
	if req.CheckpointNumber != number {
		exists, err := s.CheckpointRepo.ExistsNumber(req.CheckpointNumber)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, util.ErrCheckpointExists
		}
	}

	quiz.CheckpointNumber = req.CheckpointNumber
	quiz.Title = req.Title
	if quiz.Title == "" {
		quiz.Title = fmt.Sprintf("Checkpoint %d", quiz.CheckpointNumber)
	}
	quiz.RequiredModuleIDs = req.RequiredModuleIDs
	quiz.PassingScore = *req.PassingScore
	if err := s.CheckpointRepo.Update(quiz, toQuestions(req.Questions)); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *CatalogService) DeleteCheckpoint(number int) error {
	err := s.CheckpointRepo.Delete(number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrCheckpointNotFound
	}
	return err
}
