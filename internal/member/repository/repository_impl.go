package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	"github.com/uplinelabs/upline/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() memberdomain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, m *memberdomain.Member) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*memberdomain.Member, error) {
	var m memberdomain.Member
	err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*memberdomain.Member, error) {
	var m memberdomain.Member
	err := db.WithContext(ctx).Where("referral_code = ?", code).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, filter memberdomain.ListMemberFilter, page pagination.Pagination) ([]memberdomain.Member, int64, error) {
	q := db.WithContext(ctx).Model(&memberdomain.Member{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []memberdomain.Member
	err := page.Apply(q.Order("created_at DESC")).Find(&rows).Error
	return rows, total, err
}

// AncestorChain walks the immutable sponsor links one hop at a time. The
// per-hop query keeps it portable across postgres, mysql and the sqlite
// test driver; the chain is at most maxDepth long so the cost is bounded.
func (r *repository) AncestorChain(ctx context.Context, db *gorm.DB, id snowflake.ID, maxDepth int) ([]memberdomain.Member, error) {
	current, err := r.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, memberdomain.ErrMemberNotFound
	}

	chain := make([]memberdomain.Member, 0, maxDepth)
	for hop := 0; hop < maxDepth && current.SponsorID != nil; hop++ {
		sponsor, err := r.FindByID(ctx, db, *current.SponsorID)
		if err != nil {
			return nil, err
		}
		if sponsor == nil {
			// Dangling sponsor reference terminates the chain.
			break
		}
		chain = append(chain, *sponsor)
		current = sponsor
	}
	return chain, nil
}

func (r *repository) ListActiveIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Model(&memberdomain.Member{}).
		Where("status = ?", memberdomain.MemberStatusActive).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, m *memberdomain.Member) error {
	return db.WithContext(ctx).Save(m).Error
}
