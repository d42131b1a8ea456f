package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"learnhub_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchWithReloadsAfterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o644))

	loads := make(chan string, 4)
	load := func(d string) (*config.Config, error) {
		loads <- d
		return &config.Config{Server: config.ServerConfig{Port: "9090"}}, nil
	}
	reloaded := make(chan *config.Config, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- WatchWith(ctx, path, load, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// 等待监听建立
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "9090", cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	assert.Equal(t, dir, <-loads)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchWithIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	reloaded := make(chan struct{}, 1)
	load := func(string) (*config.Config, error) { return &config.Config{}, nil }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchWith(ctx, path, load, func(*config.Config) { reloaded <- struct{}{} })

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte("modules: []"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("unexpected reload")
	case <-time.After(DebounceInterval + 500*time.Millisecond):
	}
}
