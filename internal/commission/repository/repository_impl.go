package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/uplinelabs/upline/internal/commission/domain"
	"github.com/uplinelabs/upline/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository struct{}

func Provide() *Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, rec *commissiondomain.CommissionRecord) error {
	return db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*commissiondomain.CommissionRecord, error) {
	var rec commissiondomain.CommissionRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) Save(ctx context.Context, db *gorm.DB, rec *commissiondomain.CommissionRecord) error {
	return db.WithContext(ctx).Save(rec).Error
}

func (r *Repository) InsertAdjustment(ctx context.Context, db *gorm.DB, adj *commissiondomain.CommissionAdjustment) error {
	return db.WithContext(ctx).Create(adj).Error
}

type ListFilter struct {
	Status     commissiondomain.CommissionStatus
	ReferrerID snowflake.ID
	RefereeID  snowflake.ID
}

func (r *Repository) List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]commissiondomain.CommissionRecord, int64, error) {
	q := db.WithContext(ctx).Model(&commissiondomain.CommissionRecord{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ReferrerID != 0 {
		q = q.Where("referrer_id = ?", filter.ReferrerID)
	}
	if filter.RefereeID != 0 {
		q = q.Where("referee_id = ?", filter.RefereeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []commissiondomain.CommissionRecord
	err := page.Apply(q.Order("created_at DESC")).Find(&rows).Error
	return rows, total, err
}
