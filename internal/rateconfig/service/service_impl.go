package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	"github.com/uplinelabs/upline/internal/clock"
	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
	"github.com/uplinelabs/upline/internal/rateconfig/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     *repository.Repository
	auditSvc auditdomain.Service
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     *repository.Repository
	AuditSvc auditdomain.Service
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("rateconfig.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) GetActive(ctx context.Context) (*rateconfigdomain.RateSchedule, error) {
	schedule, err := s.repo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, rateconfigdomain.ErrNotConfigured
	}
	return schedule, nil
}

type ReplaceInput struct {
	BasePercentage             float64         `json:"base_percentage"`
	NonKitMultiplierPercentage float64         `json:"non_kit_multiplier_percentage"`
	LevelRates                 map[int]float64 `json:"level_rates"`
	Enabled                    bool            `json:"enabled"`
	ActorID                    snowflake.ID    `json:"-"`
}

// Replace validates the candidate as a whole and atomically swaps it in.
// There is no partial update path: concurrent admins read-modify-write the
// full schedule and the last committed writer wins.
func (s *Service) Replace(ctx context.Context, in ReplaceInput) (*rateconfigdomain.RateSchedule, error) {
	candidate := &rateconfigdomain.RateSchedule{
		ID:                         s.genID.Generate(),
		BasePercentage:             in.BasePercentage,
		NonKitMultiplierPercentage: in.NonKitMultiplierPercentage,
		Enabled:                    in.Enabled,
		CreatedAt:                  s.clock.Now(ctx),
	}
	if in.ActorID != 0 {
		candidate.CreatedBy = &in.ActorID
	}
	if err := candidate.SetLevelRates(in.LevelRates); err != nil {
		return nil, err
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Replace(ctx, tx, candidate)
	})
	if err != nil {
		return nil, err
	}

	actorID := in.ActorID.String()
	scheduleID := candidate.ID.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actorID, "rateconfig.schedule.replaced", "rate_schedule", &scheduleID, map[string]interface{}{
		"base_percentage":               candidate.BasePercentage,
		"non_kit_multiplier_percentage": candidate.NonKitMultiplierPercentage,
		"level_rates":                   candidate.LevelRates(),
		"enabled":                       candidate.Enabled,
	})

	s.log.Info("rate schedule replaced", zap.String("schedule_id", scheduleID))
	return candidate, nil
}
