package scheduler

import (
	"context"
	"time"

	"github.com/zjpeterson/ztprov/pkg/config"
	"github.com/zjpeterson/ztprov/pkg/logging"
)

// BatchRunner is one snapshot-and-render pass over the CMDB.
type BatchRunner interface {
	Run(ctx context.Context) error
}

// Scheduler re-runs the render batch on a fixed tick so published
// artifacts track the CMDB without operator involvement.
type Scheduler struct {
	cfg    config.SchedulerConfig
	runner BatchRunner
	log    *logging.Logger
}

// New creates a scheduler.
func New(cfg config.SchedulerConfig, runner BatchRunner, log *logging.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, runner: runner, log: log}
}

// Start runs one batch immediately, then periodically until ctx is
// done. A failed batch is logged and retried on the next tick; the
// previous artifact set stays published untouched.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Infof("scheduler disabled")
		return
	}
	interval, err := time.ParseDuration(s.cfg.Tick)
	if err != nil {
		s.log.Errorf("invalid scheduler tick: %v", err)
		return
	}
	if err := s.runner.Run(ctx); err != nil {
		s.log.Errorf("initial batch run error: %v", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runner.Run(ctx); err != nil {
				s.log.Errorf("scheduled batch run error: %v", err)
			}
		}
	}
}
