package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"learnhub_backend/internal/gating"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LearningService 学员侧的学习流程：目录、进度、模块完成、检查点测验
type LearningService struct {
	ModuleRepo     *repository.ModuleRepository
	CheckpointRepo *repository.CheckpointRepository
	ProgressRepo   *repository.ProgressRepository
	Storage        *StorageService
	Sessions       *QuizSessionService

	tiers atomic.Pointer[[]gating.Tier]
	now   func() time.Time
}

func NewLearningService(
	moduleRepo *repository.ModuleRepository,
	checkpointRepo *repository.CheckpointRepository,
	progressRepo *repository.ProgressRepository,
	storage *StorageService,
	sessions *QuizSessionService,
	tiers []gating.Tier,
) *LearningService {
	s := &LearningService{
		ModuleRepo:     moduleRepo,
		CheckpointRepo: checkpointRepo,
		ProgressRepo:   progressRepo,
		Storage:        storage,
		Sessions:       sessions,
		now:            time.Now,
	}
	s.SetTiers(tiers)
	return s
}

// SetTiers 配置热更新时调用，空列表回退到默认区间
func (s *LearningService) SetTiers(tiers []gating.Tier) {
	if len(tiers) == 0 {
		tiers = gating.DefaultTiers()
	}
	cp := append([]gating.Tier(nil), tiers...)
	s.tiers.Store(&cp)
}

func (s *LearningService) Tiers() []gating.Tier {
	return *s.tiers.Load()
}

// LearningOverview 目录 + 计算结果
type LearningOverview struct {
	gating.Catalog
	gating.View
}

type ScoredModule struct {
	gating.ModuleScoreStat
	Tier string `json:"tier,omitempty"`
}

type LearningProgress struct {
	CompletedModules []string                   `json:"completedModules"`
	Checkpoints      []gating.CheckpointSummary `json:"checkpoints"`
	ModuleScores     []ScoredModule             `json:"moduleScores"`
	ScoreShape       gating.ScoreShape          `json:"scoreShape"`
	AverageScore     float64                    `json:"averageScore"`
	Tier             string                     `json:"tier,omitempty"`
}

type ModuleContent struct {
	ModuleID    string  `json:"moduleId"`
	URL         string  `json:"url"`
	ContentType string  `json:"contentType,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// QuestionView 下发给学员的题目，不含答案
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type CheckpointQuizView struct {
	CheckpointNumber int            `json:"checkpointNumber"`
	Title            string         `json:"title"`
	PassingScore     int            `json:"passingScore"`
	Questions        []QuestionView `json:"questions"`
	Session          *QuizSession   `json:"session,omitempty"`
}

type SubmissionResult struct {
	CheckpointNumber int      `json:"checkpointNumber"`
	AttemptNumber    int      `json:"attemptNumber"`
	Correct          int      `json:"correct"`
	Total            int      `json:"total"`
	Score            float64  `json:"score"`
	PassingScore     int      `json:"passingScore"`
	Passed           bool     `json:"passed"`
	UnlockedModules  []string `json:"unlockedModules"`
}

func (s *LearningService) loadCatalog() (gating.Catalog, error) {
	modules, err := s.ModuleRepo.List()
	if err != nil {
		return gating.Catalog{}, err
	}
	quizzes, err := s.CheckpointRepo.List()
	if err != nil {
		return gating.Catalog{}, err
	}
	return ToCatalog(modules, quizzes), nil
}

// ToCatalog 将数据库模型转换为门槛计算的输入
func ToCatalog(modules []model.LearningModule, quizzes []model.CheckpointQuiz) gating.Catalog {
	catalog := gating.Catalog{
		Modules:           make([]gating.CatalogModule, 0, len(modules)),
		CheckpointQuizzes: make([]gating.CatalogQuiz, 0, len(quizzes)),
	}
	for _, m := range modules {
		catalog.Modules = append(catalog.Modules, gating.CatalogModule{
			ID:          strconv.FormatUint(uint64(m.ID), 10),
			ModuleID:    m.ModuleID,
			Title:       m.Title,
			Tier:        m.Tier,
			RequiredFor: m.RequiredFor,
			ContentRef:  m.ContentKey,
		})
	}
	for _, q := range quizzes {
		catalog.CheckpointQuizzes = append(catalog.CheckpointQuizzes, gating.CatalogQuiz{
			CheckpointNumber:  q.CheckpointNumber,
			Title:             q.Title,
			RequiredModuleIDs: q.RequiredModuleIDs,
			PassingScore:      q.PassingScore,
			QuestionCount:     len(q.Questions),
		})
	}
	return catalog
}

// ToProgress 作答记录需按提交时间升序
func ToProgress(completed []string, attempts []model.CheckpointAttempt) gating.Progress {
	progress := gating.Progress{
		CompletedModules:           completed,
		CompletedCheckpointQuizzes: make([]gating.AttemptRecord, 0, len(attempts)),
	}
	for _, a := range attempts {
		progress.CompletedCheckpointQuizzes = append(progress.CompletedCheckpointQuizzes, gating.AttemptRecord{
			CheckpointNumber: a.CheckpointNumber,
			Passed:           a.Passed,
			Score:            a.Score,
		})
	}
	return progress
}

func (s *LearningService) loadProgress(userID uint) (gating.Progress, error) {
	completed, err := s.ProgressRepo.CompletedModuleIDs(userID)
	if err != nil {
		return gating.Progress{}, err
	}
	attempts, err := s.ProgressRepo.Attempts(userID)
	if err != nil {
		return gating.Progress{}, err
	}
	return ToProgress(completed, attempts), nil
}

func (s *LearningService) evaluate(ctx context.Context, userID uint) (gating.Catalog, gating.Progress, gating.Evaluation, error) {
	_, span := tracing.Tracer.Start(ctx, "LearningService.evaluate")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", int64(userID)))

	catalog, err := s.loadCatalog()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return catalog, gating.Progress{}, gating.Evaluation{}, err
	}
	progress, err := s.loadProgress(userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return catalog, progress, gating.Evaluation{}, err
	}
	return catalog, progress, gating.Evaluate(progress, catalog), nil
}

func (s *LearningService) Overview(ctx context.Context, userID uint) (*LearningOverview, error) {
	ctx, span := tracing.Tracer.Start(ctx, "LearningService.Overview")
	defer span.End()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	progress, err := s.loadProgress(userID)
	if err != nil {
		return nil, err
	}
	_, computeSpan := tracing.Tracer.Start(ctx, "gating.Compute")
	view := gating.Compute(progress, catalog)
	computeSpan.End()

	return &LearningOverview{Catalog: catalog, View: view}, nil
}

func (s *LearningService) Progress(ctx context.Context, userID uint) (*LearningProgress, error) {
	progress, err := s.loadProgress(userID)
	if err != nil {
		return nil, err
	}
	ix := gating.NewProgressIndex(progress)

	result := &LearningProgress{
		CompletedModules: progress.CompletedModules,
		Checkpoints:      ix.Checkpoints(),
		ModuleScores:     []ScoredModule{},
		ScoreShape:       gating.ShapeEmpty,
	}
	if result.CompletedModules == nil {
		result.CompletedModules = []string{}
	}

	record, err := s.ProgressRepo.ScoreRecord(userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return result, nil
	}

	raw, err := gating.ParseScoreRecord(record.Payload)
	if err != nil {
		logger.Log.Warn("Stored module score record is not valid JSON", zap.Uint("userID", userID), zap.Error(err))
		return result, nil
	}

	tiers := s.Tiers()
	stats := gating.NormalizeModuleScores(raw)
	result.ScoreShape = raw.Shape()
	for _, st := range stats {
		scored := ScoredModule{ModuleScoreStat: st}
		if t, ok := gating.ClassifyTier(tiers, st.Percentage); ok {
			scored.Tier = t.Name
		}
		result.ModuleScores = append(result.ModuleScores, scored)
	}
	if len(stats) > 0 {
		result.AverageScore = gating.AverageScore(stats)
		if t, ok := gating.ClassifyTier(tiers, result.AverageScore); ok {
			result.Tier = t.Name
		}
	}
	return result, nil
}

// SaveScores 保存客户端上报的模块得分原始记录，两种结构均可
func (s *LearningService) SaveScores(userID uint, payload []byte) (gating.ScoreShape, error) {
	raw, err := gating.ParseScoreRecord(payload)
	if err != nil {
		return gating.ShapeEmpty, util.ErrInvalidScoreRecord
	}
	shape := raw.Shape()
	if shape == gating.ShapeEmpty {
		return shape, util.ErrInvalidScoreRecord
	}
	return shape, s.ProgressRepo.SaveScoreRecord(userID, payload)
}

func (s *LearningService) findModule(moduleID string) (*model.LearningModule, error) {
	module, err := s.ModuleRepo.FindByModuleID(moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	return module, err
}

// CompleteModule 重复完成不会报错，created 表示是否首次完成
func (s *LearningService) CompleteModule(ctx context.Context, userID uint, moduleID string) (bool, error) {
	if _, err := s.findModule(moduleID); err != nil {
		return false, err
	}

	_, _, ev, err := s.evaluate(ctx, userID)
	if err != nil {
		return false, err
	}
	if ev.ModuleLockState[moduleID].Locked {
		return false, util.ErrModuleLocked
	}

	created, err := s.ProgressRepo.MarkCompleted(userID, moduleID)
	if err != nil {
		return false, err
	}
	if created {
		monitoring.ModuleCompletions.Inc()
		logger.Log.Info("Module completed", zap.Uint("userID", userID), zap.String("moduleID", moduleID))
	}
	return created, nil
}

func (s *LearningService) ModuleContent(ctx context.Context, userID uint, moduleID string) (*ModuleContent, error) {
	module, err := s.findModule(moduleID)
	if err != nil {
		return nil, err
	}

	_, _, ev, err := s.evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ev.ModuleLockState[moduleID].Locked {
		return nil, util.ErrModuleLocked
	}
	if module.ContentKey == nil || *module.ContentKey == "" {
		return nil, util.ErrNoContent
	}

	url, err := s.Storage.URL(ctx, *module.ContentKey)
	if err != nil {
		return nil, err
	}
	return &ModuleContent{
		ModuleID:    module.ModuleID,
		URL:         url,
		ContentType: module.ContentType,
		Duration:    module.ContentDuration,
	}, nil
}

func (s *LearningService) findQuiz(number int) (*model.CheckpointQuiz, error) {
	quiz, err := s.CheckpointRepo.FindByNumber(number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCheckpointNotFound
	}
	return quiz, err
}

// requireAvailable 只有 available 状态的测验可以作答
func requireAvailable(ev gating.Evaluation, number int) error {
	switch ev.QuizState[number] {
	case gating.QuizCompleted:
		return util.ErrCheckpointPassed
	case gating.QuizLocked:
		return util.ErrCheckpointLocked
	case gating.QuizAvailable:
		return nil
	default:
		return util.ErrCheckpointNotFound
	}
}

// GetCheckpoint 返回不含答案的题目，若存在未过期的作答会话一并返回
func (s *LearningService) GetCheckpoint(ctx context.Context, userID uint, username string, number int) (*CheckpointQuizView, error) {
	quiz, err := s.findQuiz(number)
	if err != nil {
		return nil, err
	}
	_, _, ev, err := s.evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAvailable(ev, number); err != nil {
		return nil, err
	}

	view := &CheckpointQuizView{
		CheckpointNumber: quiz.CheckpointNumber,
		Title:            quiz.Title,
		PassingScore:     quiz.PassingScore,
		Questions:        make([]QuestionView, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		view.Questions = append(view.Questions, QuestionView{
			ID:      strconv.FormatUint(uint64(q.ID), 10),
			Prompt:  q.Prompt,
			Options: q.Options,
		})
	}

	if s.Sessions != nil {
		session, err := s.Sessions.Resume(ctx, username, number)
		switch {
		case err == nil:
			view.Session = session
		case errors.Is(err, util.ErrSessionNotFound), errors.Is(err, util.ErrSessionExpired):
		default:
			logger.Log.Warn("Failed to load quiz session", zap.String("username", username), zap.Int("checkpoint", number), zap.Error(err))
		}
	}
	return view, nil
}

// Grade answers 为 questionId -> 选项下标；没有题目的测验视为满分
func Grade(questions []model.CheckpointQuestion, answers map[string]int) (correct int, score float64) {
	if len(questions) == 0 {
		return 0, 100
	}
	for _, q := range questions {
		chosen, ok := answers[strconv.FormatUint(uint64(q.ID), 10)]
		if ok && chosen == q.AnswerIndex {
			correct++
		}
	}
	score = math.Round(float64(correct) / float64(len(questions)) * 100)
	return correct, score
}

// SubmitCheckpoint 评分并追加一次作答记录。已通过的测验不再接受提交，因此解锁状态不会回退。
// appendAttemptRetries 并发提交争用同一作答编号时的重试次数
const appendAttemptRetries = 3

func (s *LearningService) appendAttempt(attempt *model.CheckpointAttempt) (bool, error) {
	var (
		alreadyPassed bool
		err           error
	)
	for i := 0; i < appendAttemptRetries; i++ {
		attempt.ID = ""
		alreadyPassed, err = s.ProgressRepo.AppendAttempt(attempt)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		logger.Log.Debug("Attempt number taken, retrying",
			zap.Uint("userID", attempt.UserID),
			zap.Int("checkpoint", attempt.CheckpointNumber),
			zap.Int("try", i+1))
	}
	return alreadyPassed, err
}

func (s *LearningService) SubmitCheckpoint(ctx context.Context, userID uint, username string, number int, answers map[string]int) (*SubmissionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "LearningService.SubmitCheckpoint")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("checkpoint.number", number),
	)

	quiz, err := s.findQuiz(number)
	if err != nil {
		return nil, err
	}
	catalog, progress, before, err := s.evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAvailable(before, number); err != nil {
		return nil, err
	}

	correct, score := Grade(quiz.Questions, answers)
	passed := score >= float64(quiz.PassingScore)

	attempt := &model.CheckpointAttempt{
		UserID:           userID,
		CheckpointNumber: number,
		Score:            score,
		Passed:           passed,
		Answers:          datatypes.NewJSONType(answers),
		SubmittedAt:      s.now(),
	}
	alreadyPassed, err := s.appendAttempt(attempt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if alreadyPassed {
		// 并发提交中另一次已经通过
		return nil, util.ErrCheckpointPassed
	}
	monitoring.ObserveSubmission(number, passed)
	span.SetAttributes(attribute.Bool("checkpoint.passed", passed), attribute.Float64("checkpoint.score", score))

	result := &SubmissionResult{
		CheckpointNumber: number,
		AttemptNumber:    attempt.AttemptNumber,
		Correct:          correct,
		Total:            len(quiz.Questions),
		Score:            score,
		PassingScore:     quiz.PassingScore,
		Passed:           passed,
		UnlockedModules:  []string{},
	}

	if passed {
		progress.CompletedCheckpointQuizzes = append(progress.CompletedCheckpointQuizzes, gating.AttemptRecord{
			CheckpointNumber: number,
			Passed:           true,
			Score:            score,
		})
		after := gating.Evaluate(progress, catalog)
		for _, m := range catalog.Modules {
			key := m.Key()
			if before.ModuleLockState[key].Locked && !after.ModuleLockState[key].Locked {
				result.UnlockedModules = append(result.UnlockedModules, key)
			}
		}
	}

	if s.Sessions != nil {
		if err := s.Sessions.Discard(ctx, username, number); err != nil {
			logger.Log.Warn("Failed to clear quiz session", zap.String("username", username), zap.Int("checkpoint", number), zap.Error(err))
		}
	}

	logger.Log.Info("Checkpoint submitted",
		zap.Uint("userID", userID),
		zap.Int("checkpoint", number),
		zap.Int("attempt", attempt.AttemptNumber),
		zap.Float64("score", score),
		zap.Bool("passed", passed))
	return result, nil
}

// SaveSession 保存作答进度，测验不可作答时拒绝
func (s *LearningService) SaveSession(ctx context.Context, userID uint, username string, number int, answers map[string]int, currentIndex int) (*QuizSession, error) {
	if _, err := s.findQuiz(number); err != nil {
		return nil, err
	}
	_, _, ev, err := s.evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAvailable(ev, number); err != nil {
		return nil, err
	}
	return s.Sessions.Save(ctx, username, number, answers, currentIndex)
}

func (s *LearningService) ResumeSession(ctx context.Context, username string, number int) (*QuizSession, error) {
	return s.Sessions.Resume(ctx, username, number)
}

func (s *LearningService) DiscardSession(ctx context.Context, username string, number int) error {
	return s.Sessions.Discard(ctx, username, number)
}
