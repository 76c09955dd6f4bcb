// Package scheduler runs the background jobs that drain the outbox and
// surface ledger drift. Jobs are safe to re-run; every cycle picks up
// where the previous one stopped.
package scheduler

import (
	"context"
	"time"

	"github.com/uplinelabs/upline/internal/config"
	ledgerservice "github.com/uplinelabs/upline/internal/ledger/service"
	notificationservice "github.com/uplinelabs/upline/internal/notification/service"
	"go.uber.org/zap"
)

type Scheduler struct {
	cfg        config.SchedulerConfig
	log        *zap.Logger
	dispatcher *notificationservice.Dispatcher
	ledger     *ledgerservice.Service
}

func New(
	cfg config.Config,
	log *zap.Logger,
	dispatcher *notificationservice.Dispatcher,
	ledger *ledgerservice.Service,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg.Scheduler,
		log:        log.Named("scheduler"),
		dispatcher: dispatcher,
		ledger:     ledger,
	}
}

// RunForever ticks until ctx is cancelled. One cycle failing does not stop
// the loop.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s.log.Info("scheduler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if err := s.dispatcher.ProcessEvents(ctx); err != nil {
		s.log.Error("outbox dispatch cycle failed", zap.Error(err))
	}
	if err := s.integrityJob(ctx); err != nil {
		s.log.Error("ledger integrity cycle failed", zap.Error(err))
	}
}

func (s *Scheduler) integrityJob(ctx context.Context) error {
	report, err := s.ledger.IntegrityCheck(ctx)
	if err != nil {
		return err
	}
	if report.Clean() {
		return nil
	}
	s.log.Warn("ledger integrity violations detected",
		zap.Int64("orphaned_topups", report.OrphanedTopUps),
		zap.Int64("blank_status", report.BlankStatusCount),
		zap.Int64("orphaned_withdrawals", report.OrphanedWithdrawals),
		zap.Int64("negative_balance_users", report.NegativeBalanceUsers),
	)
	return nil
}
