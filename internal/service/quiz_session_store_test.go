package service

import (
	"context"
	"testing"
	"time"

	"learnhub_backend/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisQuizSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQuizSessionStore(client, ttl), mr
}

func TestRedisQuizSessionStore_GetMissing(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)

	session, err := store.Get(context.Background(), QuizSessionKey("alice", 1))
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRedisQuizSessionStore_RoundTripAndClear(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()
	key := QuizSessionKey("alice", 2)
	saved := &QuizSession{
		Username:         "alice",
		CheckpointNumber: 2,
		Answers:          map[string]int{"7": 1, "8": 0},
		CurrentIndex:     1,
		SavedAt:          time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.Set(ctx, key, saved))
	assert.True(t, mr.Exists("quiz_session:alice:2"))
	assert.Equal(t, 2*time.Hour, mr.TTL(key))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.Answers, got.Answers)
	assert.Equal(t, saved.CurrentIndex, got.CurrentIndex)
	assert.True(t, saved.SavedAt.Equal(got.SavedAt))

	require.NoError(t, store.Clear(ctx, key))
	assert.False(t, mr.Exists(key))
}

func TestRedisQuizSessionStore_CorruptValueDiscarded(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	key := QuizSessionKey("bob", 1)
	require.NoError(t, mr.Set(key, "{not json"))

	session, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.False(t, mr.Exists(key))
}

func TestRedisQuizSessionStore_KeyExpiresAfterTwiceTTL(t *testing.T) {
	store, mr := newRedisStore(t, 30*time.Minute)
	ctx := context.Background()
	key := QuizSessionKey("carol", 3)
	require.NoError(t, store.Set(ctx, key, &QuizSession{Username: "carol", CheckpointNumber: 3, SavedAt: time.Now()}))

	mr.FastForward(59 * time.Minute)
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(2 * time.Minute)
	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQuizSessionService_ResumeExpiredFromRedis(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	svc := NewQuizSessionService(store, time.Hour)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.Save(ctx, "dave", 1, map[string]int{"1": 0}, 0)
	require.NoError(t, err)

	now = now.Add(90 * time.Minute)
	_, err = svc.Resume(ctx, "dave", 1)
	assert.ErrorIs(t, err, util.ErrSessionExpired)
	assert.False(t, mr.Exists(QuizSessionKey("dave", 1)), "expired session is cleared")
}
