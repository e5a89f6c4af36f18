// Package lifecycle sequences the teardown of the board service. Stages
// register in startup order and drain in reverse, so the HTTP listener stops
// taking writes before the status refresher, the snapshot log, and the
// remote gateways go away underneath it.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// StopFunc drains one stage of the service within the given context.
type StopFunc func(ctx context.Context) error

type stage struct {
	label string
	stop  StopFunc
}

// Manager runs registered stop functions in reverse registration order when
// the process is asked to terminate. A second Shutdown call is a no-op and
// returns the first call's result.
type Manager struct {
	grace  time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	stages []stage

	once   sync.Once
	result error
}

func New(grace time.Duration, logger *zap.Logger) *Manager {
	if grace <= 0 {
		grace = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{grace: grace, logger: logger}
}

// Register queues a stage for teardown. Call in startup order; stages drain
// last-registered first.
func (m *Manager) Register(label string, stop StopFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	m.stages = append(m.stages, stage{label: label, stop: stop})
	m.mu.Unlock()
}

// Shutdown drains every registered stage under the grace period. Failures do
// not stop the sequence; they are collected and returned together.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, m.grace)
		defer cancel()

		m.mu.Lock()
		stages := make([]stage, len(m.stages))
		copy(stages, m.stages)
		m.mu.Unlock()

		var errs *multierror.Error
		for i := len(stages) - 1; i >= 0; i-- {
			s := stages[i]
			started := time.Now()
			if err := s.stop(ctx); err != nil {
				m.logger.Error("stage failed to drain",
					zap.String("stage", s.label),
					zap.Error(err))
				errs = multierror.Append(errs, err)
				continue
			}
			m.logger.Info("stage drained",
				zap.String("stage", s.label),
				zap.Duration("took", time.Since(started)))
		}
		m.result = errs.ErrorOrNil()
	})
	return m.result
}

// Listen cancels the application context when SIGTERM or SIGINT arrives.
func (m *Manager) Listen(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(signals)
		received := <-signals
		m.logger.Info("termination requested", zap.String("signal", received.String()))
		cancel()
	}()
}
