// Package events defines the outbox feed consumed by the notification
// dispatcher. Producers append events inside the same transaction as the
// state change they describe.
package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventCommissionEarned       = "commission.earned"
	EventCommissionPaid         = "commission.paid"
	EventCommissionRejected     = "commission.rejected"
	EventCommissionAdjusted     = "commission.adjusted"
	EventProfitShareDistributed = "profit_share.distributed"
	EventTopUpVerified          = "wallet.topup_verified"
	EventWithdrawalApproved     = "wallet.withdrawal_approved"
	EventLoanIssued             = "loan.issued"
	EventLoanRepaid             = "loan.repaid"
)

type OutboxEvent struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID   `json:"user_id" gorm:"not null;index"`
	EventType string         `json:"event_type" gorm:"type:text;not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// DispatchOffset tracks the last event a consumer has processed.
type DispatchOffset struct {
	ConsumerID  string       `gorm:"primaryKey;type:text"`
	LastEventID snowflake.ID `gorm:"not null"`
	UpdatedAt   time.Time    `gorm:"not null"`
}

func (DispatchOffset) TableName() string { return "dispatch_offsets" }
