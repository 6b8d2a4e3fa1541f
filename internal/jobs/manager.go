// Package jobs schedules background housekeeping with cron.
package jobs

import (
	"context"

	"schoolboard/internal/middleware"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job interface {
	cron.Job
	Name() string
}

// Manager owns the cron engine and the registered jobs.
type Manager struct {
	engine *cron.Cron
}

// NewManager returns a Manager whose jobs recover from panics.
func NewManager() *Manager {
	return &Manager{
		engine: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Register schedules job with a standard cron spec or a descriptor such as "@hourly".
func (m *Manager) Register(spec string, job Job) error {
	if _, err := m.engine.AddJob(spec, job); err != nil {
		return err
	}
	middleware.Logger.Info("Cron job registered", "job", job.Name(), "spec", spec)
	return nil
}

// Entries reports how many jobs are scheduled.
func (m *Manager) Entries() int {
	return len(m.engine.Entries())
}

func (m *Manager) Start() {
	middleware.Logger.Info("Cron engine starting")
	m.engine.Start()
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (m *Manager) Stop(ctx context.Context) {
	middleware.Logger.Info("Cron engine stopping")
	select {
	case <-m.engine.Stop().Done():
	case <-ctx.Done():
	}
}
