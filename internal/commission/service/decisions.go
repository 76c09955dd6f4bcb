package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	commissiondomain "github.com/uplinelabs/upline/internal/commission/domain"
	"github.com/uplinelabs/upline/internal/events"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BulkAction string

const (
	BulkActionApprove BulkAction = "approve"
	BulkActionReject  BulkAction = "reject"
)

type BulkDecideInput struct {
	IDs     []snowflake.ID `json:"ids"`
	Action  BulkAction     `json:"action"`
	Reason  string         `json:"reason"`
	ActorID snowflake.ID   `json:"-"`
}

type ItemOutcome struct {
	ID    snowflake.ID `json:"id"`
	Error string       `json:"error,omitempty"`
}

type BulkDecideResult struct {
	Succeeded []ItemOutcome `json:"succeeded"`
	Failed    []ItemOutcome `json:"failed"`
}

// BulkDecide applies an approve/reject decision per record. Each id runs in
// its own transaction so an already-decided record never rolls back the rest
// of the batch; callers get a per-id outcome instead of an all-or-nothing
// failure.
func (s *Service) BulkDecide(ctx context.Context, in BulkDecideInput) (BulkDecideResult, error) {
	switch in.Action {
	case BulkActionApprove, BulkActionReject:
	default:
		return BulkDecideResult{}, commissiondomain.ErrInvalidAction
	}
	if in.Action == BulkActionReject && strings.TrimSpace(in.Reason) == "" {
		return BulkDecideResult{}, commissiondomain.ErrReasonRequired
	}

	result := BulkDecideResult{
		Succeeded: make([]ItemOutcome, 0, len(in.IDs)),
		Failed:    make([]ItemOutcome, 0),
	}
	for _, id := range in.IDs {
		if err := ctx.Err(); err != nil {
			// Interrupted between items: everything decided so far is
			// committed, the rest stays pending.
			return result, err
		}

		var err error
		if in.Action == BulkActionApprove {
			err = s.approveOne(ctx, id, in.ActorID)
		} else {
			err = s.rejectOne(ctx, id, in.ActorID, in.Reason)
		}
		if err != nil {
			result.Failed = append(result.Failed, ItemOutcome{ID: id, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, ItemOutcome{ID: id})
	}

	actor := in.ActorID.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor, "commission.bulk_decided", "commission_record", nil, map[string]interface{}{
		"action":    string(in.Action),
		"requested": len(in.IDs),
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	})
	s.earnedCounter.WithLabelValues(string(in.Action)).Add(float64(len(result.Succeeded)))
	return result, nil
}

// approveOne transitions pending -> paid and posts the commission payout in
// the same transaction, so a paid record always has its ledger entry.
func (s *Service) approveOne(ctx context.Context, id snowflake.ID, actorID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return commissiondomain.ErrRecordNotFound
		}
		if rec.Status != commissiondomain.StatusPending {
			return commissiondomain.ErrAlreadyDecided
		}

		now := s.clock.Now(ctx)
		rec.Status = commissiondomain.StatusPaid
		rec.DecidedBy = &actorID
		rec.DecidedAt = &now
		rec.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, rec); err != nil {
			return err
		}

		if _, err := s.ledger.Record(ctx, tx, ledgerdomain.RecordInput{
			UserID:          rec.ReferrerID,
			Type:            ledgerdomain.TypeCommission,
			Amount:          rec.Amount,
			Status:          ledgerdomain.StatusCompleted,
			RelatedEntityID: &rec.ID,
			Description:     "referral commission payout",
		}); err != nil {
			return err
		}

		return events.Emit(ctx, tx, s.genID.Generate(), rec.ReferrerID, events.EventCommissionPaid, map[string]interface{}{
			"commission_id": rec.ID.String(),
			"amount":        rec.Amount,
		})
	})
}

func (s *Service) rejectOne(ctx context.Context, id snowflake.ID, actorID snowflake.ID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return commissiondomain.ErrRecordNotFound
		}
		if rec.Status != commissiondomain.StatusPending {
			return commissiondomain.ErrAlreadyDecided
		}

		now := s.clock.Now(ctx)
		rec.Status = commissiondomain.StatusRejected
		rec.Reason = reason
		rec.DecidedBy = &actorID
		rec.DecidedAt = &now
		rec.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, rec); err != nil {
			return err
		}

		return events.Emit(ctx, tx, s.genID.Generate(), rec.ReferrerID, events.EventCommissionRejected, map[string]interface{}{
			"commission_id": rec.ID.String(),
			"reason":        reason,
		})
	})
}

type AdjustInput struct {
	ID      snowflake.ID `json:"-"`
	Amount  float64      `json:"amount"`
	Reason  string       `json:"reason"`
	ActorID snowflake.ID `json:"-"`
}

// Adjust replaces a paid record's amount. The original payout entry is
// cancelled and a new one posted, so the ledger carries the full history as
// compensating entries; the old/new values land in commission_adjustments.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) error {
	if strings.TrimSpace(in.Reason) == "" {
		return commissiondomain.ErrReasonRequired
	}
	if in.Amount <= 0 {
		return commissiondomain.ErrInvalidAmount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindByID(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if rec == nil {
			return commissiondomain.ErrRecordNotFound
		}
		if rec.Status != commissiondomain.StatusPaid && rec.Status != commissiondomain.StatusAdjusted {
			return commissiondomain.ErrNotPaid
		}

		now := s.clock.Now(ctx)
		adjustment := &commissiondomain.CommissionAdjustment{
			ID:           s.genID.Generate(),
			CommissionID: rec.ID,
			OldAmount:    rec.Amount,
			NewAmount:    in.Amount,
			Reason:       in.Reason,
			ActorID:      in.ActorID,
			CreatedAt:    now,
		}
		if err := s.repo.InsertAdjustment(ctx, tx, adjustment); err != nil {
			return err
		}

		if err := s.ledger.CancelByRelatedEntity(ctx, tx, rec.ID, ledgerdomain.TypeCommission); err != nil {
			return err
		}
		if _, err := s.ledger.Record(ctx, tx, ledgerdomain.RecordInput{
			UserID:          rec.ReferrerID,
			Type:            ledgerdomain.TypeCommission,
			Amount:          in.Amount,
			Status:          ledgerdomain.StatusCompleted,
			RelatedEntityID: &rec.ID,
			Description:     "commission adjustment",
		}); err != nil {
			return err
		}

		rec.Amount = in.Amount
		rec.Status = commissiondomain.StatusAdjusted
		rec.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, rec); err != nil {
			return err
		}

		return events.Emit(ctx, tx, s.genID.Generate(), rec.ReferrerID, events.EventCommissionAdjusted, map[string]interface{}{
			"commission_id": rec.ID.String(),
			"old_amount":    adjustment.OldAmount,
			"new_amount":    adjustment.NewAmount,
		})
	})
	if err != nil {
		return err
	}

	actor := in.ActorID.String()
	entity := in.ID.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor, "commission.adjusted", "commission_record", &entity, map[string]interface{}{
		"new_amount": in.Amount,
		"reason":     in.Reason,
	})
	return nil
}

// Reset is the administrative override back to pending. It is outside the
// normal state machine, so it is always audit-logged and reverses any payout
// through a compensating cancellation.
func (s *Service) Reset(ctx context.Context, id snowflake.ID, actorID snowflake.ID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return commissiondomain.ErrReasonRequired
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return commissiondomain.ErrRecordNotFound
		}
		if rec.Status == commissiondomain.StatusPending {
			return commissiondomain.ErrAlreadyPending
		}

		if err := s.ledger.CancelByRelatedEntity(ctx, tx, rec.ID, ledgerdomain.TypeCommission); err != nil {
			return err
		}

		rec.Status = commissiondomain.StatusPending
		rec.Reason = ""
		rec.DecidedBy = nil
		rec.DecidedAt = nil
		rec.UpdatedAt = s.clock.Now(ctx)
		return s.repo.Save(ctx, tx, rec)
	})
	if err != nil {
		return err
	}

	actor := actorID.String()
	entity := id.String()
	s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actor, "commission.reset", "commission_record", &entity, map[string]interface{}{
		"reason": reason,
	})
	s.log.Warn("commission record reset to pending",
		zap.String("commission_id", entity),
		zap.String("actor_id", actor),
	)
	return nil
}
