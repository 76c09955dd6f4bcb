package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/uplinelabs/upline/internal/clock"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	"github.com/uplinelabs/upline/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  memberdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  memberdomain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("member.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

type CreateMemberInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	SponsorCode string `json:"sponsor_code"`
}

// Create registers a member. The sponsor link is resolved from the referral
// code once, here, and never changes afterwards.
func (s *Service) Create(ctx context.Context, in CreateMemberInput) (*memberdomain.Member, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, memberdomain.ErrInvalidMemberName
	}

	var sponsorID *snowflake.ID
	if code := strings.TrimSpace(in.SponsorCode); code != "" {
		sponsor, err := s.repo.FindByReferralCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		if sponsor == nil {
			return nil, memberdomain.ErrSponsorNotFound
		}
		sponsorID = &sponsor.ID
	}

	existing, err := s.findByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, memberdomain.ErrEmailTaken
	}

	now := s.clock.Now(ctx)
	m := &memberdomain.Member{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		ReferralCode: newReferralCode(name),
		SponsorID:    sponsorID,
		Status:       memberdomain.MemberStatusActive,
		Tier:         1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, m); err != nil {
		return nil, err
	}

	s.log.Info("member created",
		zap.String("member_id", m.ID.String()),
		zap.Bool("has_sponsor", sponsorID != nil),
	)
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*memberdomain.Member, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, memberdomain.ErrMemberNotFound
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, filter memberdomain.ListMemberFilter, page pagination.Pagination) ([]memberdomain.Member, int64, error) {
	return s.repo.List(ctx, s.db, filter, page)
}

// Chain resolves the sponsor chain for a member, nearest sponsor first.
func (s *Service) Chain(ctx context.Context, id snowflake.ID) ([]memberdomain.Member, error) {
	return s.repo.AncestorChain(ctx, s.db, id, memberdomain.MaxChainDepth)
}

// GrantKit marks the member as holding a qualifying kit from now on. Earlier
// commissions keep the kit snapshot taken at their computation time.
func (s *Service) GrantKit(ctx context.Context, id snowflake.ID) (*memberdomain.Member, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.HasKit {
		return m, nil
	}

	now := s.clock.Now(ctx)
	m.HasKit = true
	m.KitPurchasedAt = &now
	m.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, status memberdomain.MemberStatus) error {
	if !status.Valid() {
		return memberdomain.ErrInvalidStatus
	}
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.Status = status
	m.UpdatedAt = s.clock.Now(ctx)
	return s.repo.Update(ctx, s.db, m)
}

func (s *Service) findByEmail(ctx context.Context, email string) (*memberdomain.Member, error) {
	var m memberdomain.Member
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func newReferralCode(name string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s", slug.Make(name), suffix)
}
