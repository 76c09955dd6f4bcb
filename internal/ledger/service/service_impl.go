package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	"github.com/uplinelabs/upline/internal/clock"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	"github.com/uplinelabs/upline/internal/ledger/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	balanceCacheKeyPrefix = "wallet:balance:"
	balanceCacheTTL       = 5 * time.Minute
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     *repository.Repository
	cache    *redis.Client
	auditSvc auditdomain.Service

	txCounter *prometheus.CounterVec
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     *repository.Repository
	Cache    *redis.Client `optional:"true"`
	AuditSvc auditdomain.Service
	Registry *prometheus.Registry `optional:"true"`
}

func NewService(p ServiceParam) *Service {
	s := &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		cache:    p.Cache,
		auditSvc: p.AuditSvc,
		txCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upline",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Ledger transactions posted, by type.",
		}, []string{"type"}),
	}
	if p.Registry != nil {
		p.Registry.MustRegister(s.txCounter)
	}
	return s
}

// Record posts a ledger transaction on the caller's handle so the entry
// commits atomically with the caller's own writes. The cached balance
// projection is invalidated immediately; it is best-effort, never truth.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, in ledgerdomain.RecordInput) (*ledgerdomain.LedgerTransaction, error) {
	if _, ok := ledgerdomain.Sign(in.Type); !ok {
		return nil, ledgerdomain.ErrInvalidType
	}
	if in.Amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	status := in.Status
	if status == "" {
		status = ledgerdomain.StatusCompleted
	}

	now := s.clock.Now(ctx)
	entry := &ledgerdomain.LedgerTransaction{
		ID:              s.genID.Generate(),
		UserID:          in.UserID,
		Type:            in.Type,
		Amount:          in.Amount,
		Status:          status,
		RelatedEntityID: in.RelatedEntityID,
		RunID:           in.RunID,
		Description:     in.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	s.txCounter.WithLabelValues(string(in.Type)).Inc()
	s.invalidateBalance(ctx, in.UserID)
	return entry, nil
}

// BalanceOf derives a member's spendable balance from the ledger fold.
// A Redis projection fronts the fold when available; any cache failure
// degrades to the direct query.
func (s *Service) BalanceOf(ctx context.Context, userID snowflake.ID) (float64, error) {
	key := balanceCacheKey(userID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Float64()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("balance cache read failed", zap.Error(err))
		}
	}

	balance, err := s.repo.SumCompleted(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, balance, balanceCacheTTL).Err(); err != nil {
			s.log.Warn("balance cache write failed", zap.Error(err))
		}
	}
	return balance, nil
}

// Transition moves a pending transaction to a terminal status. Completed,
// failed and cancelled entries never change again; corrections happen through
// compensating entries.
func (s *Service) Transition(ctx context.Context, id snowflake.ID, to ledgerdomain.TransactionStatus) error {
	entry, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return ledgerdomain.ErrTransactionNotFound
	}
	if entry.Status != ledgerdomain.StatusPending {
		return fmt.Errorf("%w: %s -> %s", ledgerdomain.ErrInvalidTransition, entry.Status, to)
	}
	switch to {
	case ledgerdomain.StatusCompleted, ledgerdomain.StatusFailed, ledgerdomain.StatusCancelled:
	default:
		return fmt.Errorf("%w: %s -> %s", ledgerdomain.ErrInvalidTransition, entry.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, to); err != nil {
		return err
	}
	s.invalidateBalance(ctx, entry.UserID)
	return nil
}

// CancelByRelatedEntity flips completed entries linked to an entity to
// cancelled. Used when an adjusted or reset commission supersedes its payout.
func (s *Service) CancelByRelatedEntity(ctx context.Context, tx *gorm.DB, relatedEntityID snowflake.ID, txType ledgerdomain.TransactionType) error {
	var userIDs []snowflake.ID
	err := tx.WithContext(ctx).Model(&ledgerdomain.LedgerTransaction{}).
		Where("related_entity_id = ? AND type = ? AND status = ?", relatedEntityID, txType, ledgerdomain.StatusCompleted).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	err = tx.WithContext(ctx).Model(&ledgerdomain.LedgerTransaction{}).
		Where("related_entity_id = ? AND type = ? AND status = ?", relatedEntityID, txType, ledgerdomain.StatusCompleted).
		Update("status", ledgerdomain.StatusCancelled).Error
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		s.invalidateBalance(ctx, id)
	}
	return nil
}

func (s *Service) ExistsForRun(ctx context.Context, tx *gorm.DB, runID, userID snowflake.ID) (bool, error) {
	return s.repo.ExistsForRun(ctx, tx, runID, userID)
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]ledgerdomain.LedgerTransaction, error) {
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}

// IntegrityCheck scans for ledger inconsistencies. Each finding is a count
// surfaced for manual remediation; nothing is auto-corrected and a finding is
// never an error.
func (s *Service) IntegrityCheck(ctx context.Context) (ledgerdomain.IntegrityReport, error) {
	report := ledgerdomain.IntegrityReport{CheckedAt: s.clock.Now(ctx)}

	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM topup_requests t
		 WHERE t.status = ?
		 AND (t.transaction_id IS NULL
		      OR NOT EXISTS (SELECT 1 FROM ledger_transactions lt WHERE lt.id = t.transaction_id))`,
		ledgerdomain.TopUpStatusVerified,
	).Scan(&report.OrphanedTopUps).Error
	if err != nil {
		return report, err
	}

	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM ledger_transactions
		 WHERE status IS NULL OR status NOT IN (?, ?, ?, ?)`,
		ledgerdomain.StatusPending,
		ledgerdomain.StatusCompleted,
		ledgerdomain.StatusFailed,
		ledgerdomain.StatusCancelled,
	).Scan(&report.BlankStatusCount).Error
	if err != nil {
		return report, err
	}

	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM withdrawal_requests w
		 WHERE w.status = ?
		 AND (w.transaction_id IS NULL
		      OR NOT EXISTS (SELECT 1 FROM ledger_transactions lt WHERE lt.id = w.transaction_id))`,
		ledgerdomain.WithdrawalStatusApproved,
	).Scan(&report.OrphanedWithdrawals).Error
	if err != nil {
		return report, err
	}

	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM (
			SELECT user_id FROM ledger_transactions
			WHERE status = ?
			GROUP BY user_id
			HAVING SUM(CASE WHEN type IN ('withdrawal', 'loan_repayment') THEN -amount ELSE amount END) < 0
		 ) negatives`,
		ledgerdomain.StatusCompleted,
	).Scan(&report.NegativeBalanceUsers).Error
	if err != nil {
		return report, err
	}

	if report.OrphanedTopUps > 0 || report.BlankStatusCount > 0 || report.OrphanedWithdrawals > 0 || report.NegativeBalanceUsers > 0 {
		s.log.Warn("ledger integrity violations detected",
			zap.Int64("orphaned_topups", report.OrphanedTopUps),
			zap.Int64("blank_status", report.BlankStatusCount),
			zap.Int64("orphaned_withdrawals", report.OrphanedWithdrawals),
			zap.Int64("negative_balances", report.NegativeBalanceUsers),
		)
	}
	return report, nil
}

func (s *Service) invalidateBalance(ctx context.Context, userID snowflake.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, balanceCacheKey(userID)).Err(); err != nil {
		s.log.Warn("balance cache invalidation failed", zap.Error(err))
	}
}

func balanceCacheKey(userID snowflake.ID) string {
	return balanceCacheKeyPrefix + userID.String()
}

var _ ledgerdomain.Recorder = (*Service)(nil)
