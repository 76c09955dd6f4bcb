package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	"github.com/uplinelabs/upline/internal/clock"
	commissiondomain "github.com/uplinelabs/upline/internal/commission/domain"
	"github.com/uplinelabs/upline/internal/commission/repository"
	"github.com/uplinelabs/upline/internal/events"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
	rateconfigservice "github.com/uplinelabs/upline/internal/rateconfig/service"
	"github.com/uplinelabs/upline/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       *repository.Repository
	memberRepo memberdomain.Repository
	rateSvc    *rateconfigservice.Service
	ledger     ledgerdomain.Recorder
	auditSvc   auditdomain.Service

	earnedCounter *prometheus.CounterVec
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       *repository.Repository
	MemberRepo memberdomain.Repository
	RateSvc    *rateconfigservice.Service
	Ledger     ledgerdomain.Recorder
	AuditSvc   auditdomain.Service
	Registry   *prometheus.Registry `optional:"true"`
}

func NewService(p ServiceParam) *Service {
	s := &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		memberRepo: p.MemberRepo,
		rateSvc:    p.RateSvc,
		ledger:     p.Ledger,
		auditSvc:   p.AuditSvc,
		earnedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upline",
			Subsystem: "commission",
			Name:      "records_total",
			Help:      "Commission records written, by lifecycle action.",
		}, []string{"action"}),
	}
	if p.Registry != nil {
		p.Registry.MustRegister(s.earnedCounter)
	}
	return s
}

type PurchaseInput struct {
	RefereeID     snowflake.ID `json:"referee_id"`
	PackageAmount float64      `json:"package_amount"`
	Description   string       `json:"description"`
}

// ProcessPurchase walks the referee's sponsor chain and writes one pending
// commission record per ancestor with a non-zero payout. The kit flag of each
// ancestor is snapshotted here, at purchase time, so later kit purchases never
// retroactively change historical commissions.
//
// A referee without a sponsor yields no records and no error; a disabled or
// missing schedule suppresses payouts without blocking the purchase.
func (s *Service) ProcessPurchase(ctx context.Context, in PurchaseInput) ([]commissiondomain.CommissionRecord, error) {
	schedule, err := s.rateSvc.GetActive(ctx)
	if err != nil {
		if errors.Is(err, rateconfigdomain.ErrNotConfigured) {
			s.log.Warn("no rate schedule configured, skipping commission generation",
				zap.String("referee_id", in.RefereeID.String()))
			return nil, nil
		}
		return nil, err
	}

	chain, err := s.memberRepo.AncestorChain(ctx, s.db, in.RefereeID, memberdomain.MaxChainDepth)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, nil
	}

	now := s.clock.Now(ctx)
	records := make([]commissiondomain.CommissionRecord, 0, len(chain))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for hop, sponsor := range chain {
			level := hop + 1
			breakdown, err := commissiondomain.Calculate(in.PackageAmount, level, sponsor.HasKit, schedule)
			if err != nil {
				return err
			}
			if breakdown.Amount <= 0 {
				continue
			}

			rec := commissiondomain.CommissionRecord{
				ID:                      s.genID.Generate(),
				ReferrerID:              sponsor.ID,
				RefereeID:               in.RefereeID,
				Level:                   level,
				PackageAmount:           in.PackageAmount,
				CommissionBaseAmount:    breakdown.CommissionBaseAmount,
				Amount:                  breakdown.Amount,
				NonKitMultiplierApplied: breakdown.NonKitMultiplierApplied,
				ReferrerHadKit:          sponsor.HasKit,
				Status:                  commissiondomain.StatusPending,
				CreatedAt:               now,
				UpdatedAt:               now,
			}
			if err := s.repo.Insert(ctx, tx, &rec); err != nil {
				return err
			}
			if err := events.Emit(ctx, tx, s.genID.Generate(), sponsor.ID, events.EventCommissionEarned, map[string]interface{}{
				"commission_id": rec.ID.String(),
				"referee_id":    in.RefereeID.String(),
				"level":         level,
				"amount":        rec.Amount,
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.earnedCounter.WithLabelValues("earned").Add(float64(len(records)))
	s.log.Info("purchase processed",
		zap.String("referee_id", in.RefereeID.String()),
		zap.Int("chain_length", len(chain)),
		zap.Int("records_written", len(records)),
	)
	return records, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*commissiondomain.CommissionRecord, error) {
	rec, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, commissiondomain.ErrRecordNotFound
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, filter repository.ListFilter, page pagination.Pagination) ([]commissiondomain.CommissionRecord, int64, error) {
	return s.repo.List(ctx, s.db, filter, page)
}
