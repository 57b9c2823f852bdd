package scheduler

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zjpeterson/ztprov/pkg/config"
	"github.com/zjpeterson/ztprov/pkg/logging"
)

type countingRunner struct {
	runs atomic.Int32
}

func (c *countingRunner) Run(ctx context.Context) error {
	c.runs.Add(1)
	return nil
}

func testLogger() *logging.Logger {
	return logging.NewWriter(&bytes.Buffer{}, logging.LevelInfo)
}

func TestSchedulerRunsImmediatelyThenOnTick(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{Enabled: true, Tick: "10ms"}, runner, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	assert.GreaterOrEqual(t, runner.runs.Load(), int32(2), "one immediate run plus at least one tick")
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{Enabled: false, Tick: "10ms"}, runner, testLogger())
	s.Start(context.Background())
	assert.Zero(t, runner.runs.Load())
}

func TestSchedulerBadTick(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{Enabled: true, Tick: "often"}, runner, testLogger())
	s.Start(context.Background())
	assert.Zero(t, runner.runs.Load())
}
