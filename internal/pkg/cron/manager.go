package cron

import (
	"Agora/internal/job"
	"fmt"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const defaultReconcileSpec = "0 */5 * * * *"

type Manager struct {
	engine        *cron.Cron
	reconcileJob  *job.CounterReconcileJob
	reconcileSpec string
}

func NewCronManager(reconcileJob *job.CounterReconcileJob, reconcileSpec string) *Manager {
	if reconcileSpec == "" {
		reconcileSpec = defaultReconcileSpec
	}
	return &Manager{
		engine:        cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		reconcileJob:  reconcileJob,
		reconcileSpec: reconcileSpec,
	}
}

// Start 注册任务并启动引擎，表达式非法时返回错误
func (s *Manager) Start() error {
	if _, err := s.engine.AddJob(s.reconcileSpec, s.reconcileJob); err != nil {
		return fmt.Errorf("register reconcile job %q: %w", s.reconcileSpec, err)
	}
	log.Info("Cron 定时任务引擎启动", "reconcile_spec", s.reconcileSpec)
	s.engine.Start()
	return nil
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
