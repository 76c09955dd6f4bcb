package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	"github.com/uplinelabs/upline/internal/events"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) RequestTopUp(ctx context.Context, userID snowflake.ID, amount float64) (*ledgerdomain.TopUpRequest, error) {
	if amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	now := s.clock.Now(ctx)
	req := &ledgerdomain.TopUpRequest{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Amount:    amount,
		Status:    ledgerdomain.TopUpStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// VerifyTopUp marks a pending top-up verified and posts the matching deposit
// in the same transaction, so a verified top-up can never lack its ledger
// entry.
func (s *Service) VerifyTopUp(ctx context.Context, id snowflake.ID, actorID snowflake.ID) (*ledgerdomain.TopUpRequest, error) {
	var req ledgerdomain.TopUpRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&req).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledgerdomain.ErrTopUpNotFound
			}
			return err
		}
		if req.Status != ledgerdomain.TopUpStatusPending {
			return ledgerdomain.ErrAlreadyProcessed
		}

		entry, err := s.Record(ctx, tx, ledgerdomain.RecordInput{
			UserID:          req.UserID,
			Type:            ledgerdomain.TypeDeposit,
			Amount:          req.Amount,
			Status:          ledgerdomain.StatusCompleted,
			RelatedEntityID: &req.ID,
			Description:     "top-up verified",
		})
		if err != nil {
			return err
		}

		req.Status = ledgerdomain.TopUpStatusVerified
		req.TransactionID = &entry.ID
		req.UpdatedAt = s.clock.Now(ctx)
		if err := tx.Save(&req).Error; err != nil {
			return err
		}

		return events.Emit(ctx, tx, s.genID.Generate(), req.UserID, events.EventTopUpVerified, map[string]interface{}{
			"topup_id": req.ID.String(),
			"amount":   req.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditWallet(ctx, actorID, "ledger.topup.verified", "topup_request", req.ID, map[string]interface{}{
		"user_id": req.UserID.String(),
		"amount":  req.Amount,
	})
	return &req, nil
}

// RequestWithdrawal checks the requested amount against the derived ledger
// balance, not any cached column.
func (s *Service) RequestWithdrawal(ctx context.Context, userID snowflake.ID, amount float64) (*ledgerdomain.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	balance, err := s.repo.SumCompleted(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, fmt.Errorf("%w: balance %.2f, requested %.2f", ledgerdomain.ErrInsufficientBalance, balance, amount)
	}

	now := s.clock.Now(ctx)
	req := &ledgerdomain.WithdrawalRequest{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Amount:    amount,
		Status:    ledgerdomain.WithdrawalStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) ApproveWithdrawal(ctx context.Context, id snowflake.ID, actorID snowflake.ID) (*ledgerdomain.WithdrawalRequest, error) {
	var req ledgerdomain.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&req).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledgerdomain.ErrWithdrawalNotFound
			}
			return err
		}
		if req.Status != ledgerdomain.WithdrawalStatusPending {
			return ledgerdomain.ErrAlreadyProcessed
		}

		entry, err := s.Record(ctx, tx, ledgerdomain.RecordInput{
			UserID:          req.UserID,
			Type:            ledgerdomain.TypeWithdrawal,
			Amount:          req.Amount,
			Status:          ledgerdomain.StatusCompleted,
			RelatedEntityID: &req.ID,
			Description:     "withdrawal approved",
		})
		if err != nil {
			return err
		}

		req.Status = ledgerdomain.WithdrawalStatusApproved
		req.TransactionID = &entry.ID
		req.UpdatedAt = s.clock.Now(ctx)
		if err := tx.Save(&req).Error; err != nil {
			return err
		}

		return events.Emit(ctx, tx, s.genID.Generate(), req.UserID, events.EventWithdrawalApproved, map[string]interface{}{
			"withdrawal_id": req.ID.String(),
			"amount":        req.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditWallet(ctx, actorID, "ledger.withdrawal.approved", "withdrawal_request", req.ID, map[string]interface{}{
		"user_id": req.UserID.String(),
		"amount":  req.Amount,
	})
	return &req, nil
}

func (s *Service) IssueLoan(ctx context.Context, userID snowflake.ID, amount float64, actorID snowflake.ID) (*ledgerdomain.LedgerTransaction, error) {
	return s.loanEntry(ctx, userID, amount, actorID, ledgerdomain.TypeLoanIssue, events.EventLoanIssued, "ledger.loan.issued")
}

func (s *Service) RepayLoan(ctx context.Context, userID snowflake.ID, amount float64, actorID snowflake.ID) (*ledgerdomain.LedgerTransaction, error) {
	return s.loanEntry(ctx, userID, amount, actorID, ledgerdomain.TypeLoanRepayment, events.EventLoanRepaid, "ledger.loan.repaid")
}

func (s *Service) loanEntry(ctx context.Context, userID snowflake.ID, amount float64, actorID snowflake.ID, txType ledgerdomain.TransactionType, eventType, action string) (*ledgerdomain.LedgerTransaction, error) {
	var entry *ledgerdomain.LedgerTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.Record(ctx, tx, ledgerdomain.RecordInput{
			UserID: userID,
			Type:   txType,
			Amount: amount,
			Status: ledgerdomain.StatusCompleted,
		})
		if err != nil {
			return err
		}
		return events.Emit(ctx, tx, s.genID.Generate(), userID, eventType, map[string]interface{}{
			"transaction_id": entry.ID.String(),
			"amount":         amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditWallet(ctx, actorID, action, "ledger_transaction", entry.ID, map[string]interface{}{
		"user_id": userID.String(),
		"amount":  amount,
	})
	s.log.Info("loan entry posted",
		zap.String("type", string(txType)),
		zap.String("user_id", userID.String()),
	)
	return entry, nil
}

func (s *Service) auditWallet(ctx context.Context, actorID snowflake.ID, action, entityType string, entityID snowflake.ID, metadata map[string]interface{}) {
	actor := actorID.String()
	entity := entityID.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor, action, entityType, &entity, metadata)
}
