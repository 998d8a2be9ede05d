package scheduler

import (
	"context"
	"fmt"
	"time"

	"forex-entry-bot/internal/logging"
	"forex-entry-bot/internal/strategy"

	"github.com/robfig/cron/v3"
)

// DecisionSink receives completed evaluation cycles, typically the
// websocket hub.
type DecisionSink interface {
	BroadcastDecision(d strategy.Decision)
}

// Pruner trims decision rows older than a retention window.
type Pruner interface {
	PruneDecisions(ctx context.Context, olderThan time.Duration) (int64, error)
}

// pruneSpec runs retention nightly, off the evaluation cadence.
const pruneSpec = "0 0 3 * * *"

// Scheduler drives the evaluator on a cron cadence. The cron spec uses
// the six-field form with seconds, e.g. "0 * * * * *" for once a
// minute.
type Scheduler struct {
	cron      *cron.Cron
	evaluator *strategy.Evaluator
	sink      DecisionSink
	log       *logging.Logger
	timeout   time.Duration
}

// New creates a scheduler. sink may be nil.
func New(evaluator *strategy.Evaluator, sink DecisionSink, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		evaluator: evaluator,
		sink:      sink,
		log:       log.WithComponent("scheduler"),
		timeout:   30 * time.Second,
	}
}

// Start registers the evaluation job and begins the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return fmt.Errorf("invalid evaluation schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info("evaluation schedule started", "spec", spec)
	return nil
}

// SchedulePruning registers a nightly retention job. A nil pruner or a
// non-positive retention disables it.
func (s *Scheduler) SchedulePruning(p Pruner, retention time.Duration) error {
	if p == nil || retention <= 0 {
		return nil
	}
	if _, err := s.cron.AddFunc(pruneSpec, func() { s.pruneOnce(p, retention) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", pruneSpec, err)
	}
	s.log.Info("decision retention scheduled", "retention", retention.String())
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	decision, err := s.evaluator.RunCycle(ctx)
	if err != nil {
		s.log.Error("evaluation cycle failed", "error", err)
		return
	}
	if s.sink != nil {
		s.sink.BroadcastDecision(decision)
	}
}

func (s *Scheduler) pruneOnce(p Pruner, retention time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	pruned, err := p.PruneDecisions(ctx, retention)
	if err != nil {
		s.log.Error("decision pruning failed", "error", err)
		return
	}
	if pruned > 0 {
		s.log.Info("aged decisions pruned", "rows", pruned)
	}
}
