package service

import (
	"context"
	"errors"
	"math"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	"github.com/uplinelabs/upline/internal/clock"
	"github.com/uplinelabs/upline/internal/events"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	profitsharedomain "github.com/uplinelabs/upline/internal/profitshare/domain"
	"github.com/uplinelabs/upline/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DistributeChunkSize bounds the members paid per transaction so a fan-out
// across thousands of members can be interrupted and resumed between chunks.
const DistributeChunkSize = 100

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	ledger   ledgerdomain.Recorder
	auditSvc auditdomain.Service

	payoutCounter prometheus.Counter
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Ledger   ledgerdomain.Recorder
	AuditSvc auditdomain.Service
	Registry *prometheus.Registry `optional:"true"`
}

func NewService(p ServiceParam) *Service {
	s := &Service{
		db:       p.DB,
		log:      p.Log.Named("profitshare.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		ledger:   p.Ledger,
		auditSvc: p.AuditSvc,
		payoutCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "upline",
			Subsystem: "profitshare",
			Name:      "payouts_total",
			Help:      "Profit share transactions posted to members.",
		}),
	}
	if p.Registry != nil {
		p.Registry.MustRegister(s.payoutCounter)
	}
	return s
}

type CreateRunInput struct {
	Year        int                                  `json:"year"`
	Quarter     int                                  `json:"quarter"`
	TotalProfit float64                              `json:"total_profit"`
	Method      profitsharedomain.DistributionMethod `json:"distribution_method"`
	ActorID     snowflake.ID                         `json:"-"`
}

// CreateRun snapshots the active member set, computes each member's frozen
// share and persists the run in draft. Nothing is paid out yet.
func (s *Service) CreateRun(ctx context.Context, in CreateRunInput) (*profitsharedomain.ProfitShareRun, error) {
	if in.TotalProfit <= 0 {
		return nil, profitsharedomain.ErrInvalidProfit
	}
	if in.Quarter < 1 || in.Quarter > 4 || in.Year < 2000 {
		return nil, profitsharedomain.ErrInvalidPeriod
	}
	switch in.Method {
	case profitsharedomain.MethodBPBased, profitsharedomain.MethodLevelBased:
	default:
		return nil, profitsharedomain.ErrInvalidMethod
	}

	// Unpaginated on purpose: the snapshot must cover every active member.
	var members []memberdomain.Member
	if err := s.db.WithContext(ctx).
		Where("status = ?", memberdomain.MemberStatusActive).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, profitsharedomain.ErrNoActiveMembers
	}

	memberPool := round2(in.TotalProfit * profitsharedomain.MemberPoolShare)
	now := s.clock.Now(ctx)
	run := &profitsharedomain.ProfitShareRun{
		ID:                             s.genID.Generate(),
		Year:                           in.Year,
		Quarter:                        in.Quarter,
		TotalProfit:                    in.TotalProfit,
		MemberShareAmount:              memberPool,
		CompanyRetained:                round2(in.TotalProfit - memberPool),
		DistributionMethod:             in.Method,
		Status:                         profitsharedomain.RunStatusDraft,
		ActiveMemberCountAtCalculation: len(members),
		CreatedAt:                      now,
		UpdatedAt:                      now,
	}

	weights := computeWeights(members, in.Method)
	allocations := make([]profitsharedomain.ProfitShareAllocation, 0, len(members))
	for i, m := range members {
		allocations = append(allocations, profitsharedomain.ProfitShareAllocation{
			ID:       s.genID.Generate(),
			RunID:    run.ID,
			MemberID: m.ID,
			Weight:   weights[i],
			Amount:   round2(memberPool * weights[i]),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(allocations, DistributeChunkSize).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("profit share run created",
		zap.String("run_id", run.ID.String()),
		zap.Int("members", len(members)),
		zap.String("method", string(in.Method)),
	)
	return run, nil
}

// computeWeights returns normalized per-member weights. bp_based weights by
// accumulated bonus points, level_based by membership tier. An all-zero pool
// falls back to an equal split.
func computeWeights(members []memberdomain.Member, method profitsharedomain.DistributionMethod) []float64 {
	raw := make([]float64, len(members))
	var total float64
	for i, m := range members {
		switch method {
		case profitsharedomain.MethodBPBased:
			raw[i] = m.BonusPoints
		case profitsharedomain.MethodLevelBased:
			raw[i] = float64(m.Tier)
		}
		total += raw[i]
	}

	weights := make([]float64, len(members))
	if total <= 0 {
		equal := 1.0 / float64(len(members))
		for i := range weights {
			weights[i] = equal
		}
		return weights
	}
	for i := range raw {
		weights[i] = raw[i] / total
	}
	return weights
}

// Approve gates the payout: only a draft run can be approved and approval has
// no financial effect.
func (s *Service) Approve(ctx context.Context, runID snowflake.ID, actorID snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := s.findRun(ctx, tx, runID)
		if err != nil {
			return err
		}
		if run.Status != profitsharedomain.RunStatusDraft {
			return profitsharedomain.ErrInvalidRunState
		}

		now := s.clock.Now(ctx)
		return tx.Model(run).Updates(map[string]interface{}{
			"status":      profitsharedomain.RunStatusApproved,
			"approved_by": actorID,
			"approved_at": now,
			"updated_at":  now,
		}).Error
	})
	if err != nil {
		return err
	}

	actor := actorID.String()
	entity := runID.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor, "profitshare.run.approved", "profit_share_run", &entity, nil)
	return nil
}

// Distribute fans the approved run out to its snapshotted members, one
// profit_share transaction each, in chunks. Re-invoking on an already
// distributed run is a silent success; re-invoking after a mid-fan-out crash
// skips members who already received their transaction for this run.
func (s *Service) Distribute(ctx context.Context, runID snowflake.ID) error {
	run, err := s.findRun(ctx, s.db, runID)
	if err != nil {
		return err
	}
	switch run.Status {
	case profitsharedomain.RunStatusDistributed:
		return nil
	case profitsharedomain.RunStatusApproved:
	default:
		return profitsharedomain.ErrInvalidRunState
	}

	var allocations []profitsharedomain.ProfitShareAllocation
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("member_id ASC").
		Find(&allocations).Error; err != nil {
		return err
	}

	var posted int
	for start := 0; start < len(allocations); start += DistributeChunkSize {
		if err := ctx.Err(); err != nil {
			// Committed chunks stay committed; the next invocation resumes.
			return err
		}
		end := start + DistributeChunkSize
		if end > len(allocations) {
			end = len(allocations)
		}
		chunk := allocations[start:end]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, alloc := range chunk {
				if alloc.Amount <= 0 {
					continue
				}

				paid, err := s.ledger.ExistsForRun(ctx, tx, runID, alloc.MemberID)
				if err != nil {
					return err
				}
				if paid {
					continue
				}

				if _, err := s.ledger.Record(ctx, tx, ledgerdomain.RecordInput{
					UserID:          alloc.MemberID,
					Type:            ledgerdomain.TypeProfitShare,
					Amount:          alloc.Amount,
					Status:          ledgerdomain.StatusCompleted,
					RelatedEntityID: &alloc.ID,
					RunID:           &runID,
					Description:     "quarterly profit share",
				}); err != nil {
					return err
				}
				if err := events.Emit(ctx, tx, s.genID.Generate(), alloc.MemberID, events.EventProfitShareDistributed, map[string]interface{}{
					"run_id": runID.String(),
					"amount": alloc.Amount,
				}); err != nil {
					return err
				}
				posted++
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	now := s.clock.Now(ctx)
	err = s.db.WithContext(ctx).Model(&profitsharedomain.ProfitShareRun{}).
		Where("id = ? AND status = ?", runID, profitsharedomain.RunStatusApproved).
		Updates(map[string]interface{}{
			"status":         profitsharedomain.RunStatusDistributed,
			"distributed_at": now,
			"updated_at":     now,
		}).Error
	if err != nil {
		return err
	}

	s.payoutCounter.Add(float64(posted))
	entity := runID.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeSystem), nil, "profitshare.run.distributed", "profit_share_run", &entity, map[string]interface{}{
		"transactions_posted": posted,
		"allocations":         len(allocations),
	})
	s.log.Info("profit share distributed",
		zap.String("run_id", entity),
		zap.Int("transactions_posted", posted),
	)
	return nil
}

func (s *Service) GetRun(ctx context.Context, runID snowflake.ID) (*profitsharedomain.ProfitShareRun, error) {
	return s.findRun(ctx, s.db, runID)
}

func (s *Service) ListRuns(ctx context.Context, page pagination.Pagination) ([]profitsharedomain.ProfitShareRun, int64, error) {
	q := s.db.WithContext(ctx).Model(&profitsharedomain.ProfitShareRun{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []profitsharedomain.ProfitShareRun
	err := page.Apply(q.Order("created_at DESC")).Find(&rows).Error
	return rows, total, err
}

func (s *Service) findRun(ctx context.Context, db *gorm.DB, runID snowflake.ID) (*profitsharedomain.ProfitShareRun, error) {
	var run profitsharedomain.ProfitShareRun
	err := db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profitsharedomain.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
