package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// QuizSession 未提交的检查点测验作答进度，用于刷新或重新登录后恢复
type QuizSession struct {
	Username         string         `json:"username"`
	CheckpointNumber int            `json:"checkpointNumber"`
	Answers          map[string]int `json:"answers"`
	CurrentIndex     int            `json:"currentIndex"`
	SavedAt          time.Time      `json:"savedAt"`
}

// QuizSessionStore 会话的键值存储，Get 在 key 不存在时返回 nil, nil
type QuizSessionStore interface {
	Get(ctx context.Context, key string) (*QuizSession, error)
	Set(ctx context.Context, key string, session *QuizSession) error
	Clear(ctx context.Context, key string) error
}

// QuizSessionKey quiz_session:<username>:<checkpoint>
func QuizSessionKey(username string, checkpoint int) string {
	return fmt.Sprintf("quiz_session:%s:%d", username, checkpoint)
}

type RedisQuizSessionStore struct {
	Client *redis.Client
	// Expiration 交给 Redis 的兜底过期时间，过期判断仍以 SavedAt 为准
	Expiration time.Duration
}

func NewRedisQuizSessionStore(client *redis.Client, ttl time.Duration) *RedisQuizSessionStore {
	return &RedisQuizSessionStore{Client: client, Expiration: 2 * ttl}
}

func (s *RedisQuizSessionStore) Get(ctx context.Context, key string) (*QuizSession, error) {
	data, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		// 损坏的数据直接丢弃
		s.Client.Del(ctx, key)
		return nil, nil
	}
	return &session, nil
}

func (s *RedisQuizSessionStore) Set(ctx context.Context, key string, session *QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key, data, s.Expiration).Err()
}

func (s *RedisQuizSessionStore) Clear(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// MemoryQuizSessionStore 单实例部署或测试使用
type MemoryQuizSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]QuizSession
}

func NewMemoryQuizSessionStore() *MemoryQuizSessionStore {
	return &MemoryQuizSessionStore{sessions: make(map[string]QuizSession)}
}

func (s *MemoryQuizSessionStore) Get(ctx context.Context, key string) (*QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryQuizSessionStore) Set(ctx context.Context, key string, session *QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = *session
	return nil
}

func (s *MemoryQuizSessionStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// Purge 删除 SavedAt 早于 cutoff 的会话，返回删除数量
func (s *MemoryQuizSessionStore) Purge(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, session := range s.sessions {
		if session.SavedAt.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryQuizSessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
