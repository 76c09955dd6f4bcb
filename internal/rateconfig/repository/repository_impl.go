package repository

import (
	"context"
	"errors"

	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
	"gorm.io/gorm"
)

type Repository struct{}

func Provide() *Repository {
	return &Repository{}
}

func (r *Repository) FindActive(ctx context.Context, db *gorm.DB) (*rateconfigdomain.RateSchedule, error) {
	var s rateconfigdomain.RateSchedule
	err := db.WithContext(ctx).Where("active = ?", true).Order("created_at DESC").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Replace deactivates the current schedule and inserts the candidate as the
// new active one. The caller supplies the transaction handle.
func (r *Repository) Replace(ctx context.Context, tx *gorm.DB, candidate *rateconfigdomain.RateSchedule) error {
	if err := tx.WithContext(ctx).Model(&rateconfigdomain.RateSchedule{}).
		Where("active = ?", true).
		Update("active", false).Error; err != nil {
		return err
	}
	candidate.Active = true
	return tx.WithContext(ctx).Create(candidate).Error
}
