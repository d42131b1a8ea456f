package service

import (
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 后台定时任务
type Scheduler struct {
	cron     *cron.Cron
	sessions *QuizSessionService
}

func NewScheduler(sessions *QuizSessionService) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
	}
}

func (s *Scheduler) Start() error {
	// 每小时整点清理过期的内存会话
	_, err := s.cron.AddFunc("@hourly", s.PurgeSessions)
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.Log.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	return nil
}

func (s *Scheduler) PurgeSessions() {
	removed := s.sessions.PurgeExpired()
	monitoring.QuizSessionsPurged.Add(float64(removed))
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
