package services

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
)

// StatusRefresher periodically recomputes activity statuses against the
// current day so tasks turn overdue without any edit touching them. The
// recompute is idempotent; a run that changes nothing publishes nothing.
type StatusRefresher struct {
	store    *board.Store
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewStatusRefresher(store *board.Store, schedule string, logger *zap.Logger) *StatusRefresher {
	if schedule == "" {
		schedule = "@every 1m"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sr := &StatusRefresher{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}

	_, _ = sr.cron.AddFunc(schedule, sr.Run)
	return sr
}

// Run executes one recompute pass immediately.
func (sr *StatusRefresher) Run() {
	if sr.store.RefreshStatuses(domain.Today()) {
		sr.logger.Info("activity statuses refreshed")
	}
}

func (sr *StatusRefresher) Start() {
	sr.cron.Start()
	sr.logger.Info("status refresher started", zap.String("schedule", sr.schedule))
}

func (sr *StatusRefresher) Stop() {
	ctx := sr.cron.Stop()
	<-ctx.Done()
}
