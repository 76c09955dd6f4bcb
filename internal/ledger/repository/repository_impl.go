package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	"gorm.io/gorm"
)

type Repository struct{}

func Provide() *Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, t *ledgerdomain.LedgerTransaction) error {
	return db.WithContext(ctx).Create(t).Error
}

func (r *Repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ledgerdomain.LedgerTransaction, error) {
	var t ledgerdomain.LedgerTransaction
	err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// SumCompleted folds the signed amounts of all completed transactions for a
// user. The sign lives in SQL so the fold is a single aggregate query.
func (r *Repository) SumCompleted(ctx context.Context, db *gorm.DB, userID snowflake.ID) (float64, error) {
	var balance float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE
			WHEN type IN ('withdrawal', 'loan_repayment') THEN -amount
			ELSE amount
		END), 0)
		FROM ledger_transactions
		WHERE user_id = ? AND status = ?`,
		userID,
		ledgerdomain.StatusCompleted,
	).Scan(&balance).Error
	return balance, err
}

func (r *Repository) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status ledgerdomain.TransactionStatus) error {
	return db.WithContext(ctx).Model(&ledgerdomain.LedgerTransaction{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ExistsForRun reports whether a profit-share transaction for the given run
// and member has already been posted. Used to make fan-out resumable.
func (r *Repository) ExistsForRun(ctx context.Context, db *gorm.DB, runID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ? AND user_id = ? AND type = ?", runID, userID, ledgerdomain.TypeProfitShare).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]ledgerdomain.LedgerTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []ledgerdomain.LedgerTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
