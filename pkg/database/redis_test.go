package database_test

import (
	"strconv"
	"testing"

	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestInitRedis(t *testing.T) {
	logs := observeLogs(t)
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	rdb, err := database.InitRedis(&config.RedisConfig{Host: mr.Host(), Port: port, DB: 0})
	require.NoError(t, err)
	defer rdb.Close()

	entries := logs.FilterMessage("Redis connection established").All()
	require.Len(t, entries, 1)
	assert.Equal(t, mr.Addr(), entries[0].ContextMap()["addr"])
}

func TestInitRedisUnreachable(t *testing.T) {
	logs := observeLogs(t)
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	_, err = database.InitRedis(&config.RedisConfig{Host: mr.Host(), Port: port})
	assert.Error(t, err)
	assert.Zero(t, logs.Len())
}
