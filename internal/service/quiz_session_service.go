package service

import (
	"context"
	"sync/atomic"
	"time"

	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

// sessionPurger 支持主动清理过期会话的存储
type sessionPurger interface {
	Purge(cutoff time.Time) int
}

type QuizSessionService struct {
	Store QuizSessionStore
	ttl   atomic.Int64
	now   func() time.Time
}

func NewQuizSessionService(store QuizSessionStore, ttl time.Duration) *QuizSessionService {
	s := &QuizSessionService{Store: store, now: time.Now}
	s.SetTTL(ttl)
	return s
}

// SetTTL 配置热更新时调用
func (s *QuizSessionService) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s.ttl.Store(int64(ttl))
}

func (s *QuizSessionService) TTL() time.Duration {
	return time.Duration(s.ttl.Load())
}

func (s *QuizSessionService) Save(ctx context.Context, username string, checkpoint int, answers map[string]int, currentIndex int) (*QuizSession, error) {
	if answers == nil {
		answers = map[string]int{}
	}
	session := &QuizSession{
		Username:         username,
		CheckpointNumber: checkpoint,
		Answers:          answers,
		CurrentIndex:     currentIndex,
		SavedAt:          s.now(),
	}
	if err := s.Store.Set(ctx, QuizSessionKey(username, checkpoint), session); err != nil {
		return nil, err
	}
	return session, nil
}

// Resume 超过 TTL 的会话会被清除并返回 ErrSessionExpired
func (s *QuizSessionService) Resume(ctx context.Context, username string, checkpoint int) (*QuizSession, error) {
	key := QuizSessionKey(username, checkpoint)
	session, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, util.ErrSessionNotFound
	}

	if s.now().Sub(session.SavedAt) > s.TTL() {
		if err := s.Store.Clear(ctx, key); err != nil {
			logger.Log.Warn("Failed to clear expired quiz session", zap.String("key", key), zap.Error(err))
		}
		return nil, util.ErrSessionExpired
	}
	return session, nil
}

func (s *QuizSessionService) Discard(ctx context.Context, username string, checkpoint int) error {
	return s.Store.Clear(ctx, QuizSessionKey(username, checkpoint))
}

// PurgeExpired 由定时任务调用，Redis 依赖 key 过期，不需要处理
func (s *QuizSessionService) PurgeExpired() int {
	purger, ok := s.Store.(sessionPurger)
	if !ok {
		return 0
	}
	removed := purger.Purge(s.now().Add(-s.TTL()))
	if removed > 0 {
		logger.Log.Info("Purged expired quiz sessions", zap.Int("count", removed))
	}
	return removed
}
