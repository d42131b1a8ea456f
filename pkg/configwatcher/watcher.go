package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DebounceInterval 编辑器保存时常连续触发多个写事件
const DebounceInterval = time.Second

type ConfigReloader func(cfg *config.Config)

type LoadFunc func(dir string) (*config.Config, error)

// Watch 监听配置文件变化并在防抖后调用 reloader，ctx 结束时返回
func Watch(ctx context.Context, configPath string, reloader ConfigReloader) {
	if err := WatchWith(ctx, configPath, config.LoadConfig, reloader); err != nil {
		logger.Log.Error("Config watcher stopped", zap.Error(err))
	}
}

// WatchWith 与 Watch 相同，但可以替换加载函数
func WatchWith(ctx context.Context, configPath string, load LoadFunc, reloader ConfigReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	// 监听目录而不是文件，原子替换（rename）后仍能收到事件
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(DebounceInterval)
			}
		case <-pending:
			pending = nil
			newCfg, err := load(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			reloader(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
