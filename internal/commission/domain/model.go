// Package domain contains commission records and the pure commission
// calculator.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CommissionStatus string

const (
	StatusPending  CommissionStatus = "pending"
	StatusPaid     CommissionStatus = "paid"
	StatusAdjusted CommissionStatus = "adjusted"
	StatusRejected CommissionStatus = "rejected"
)

var (
	ErrInvalidLevel   = errors.New("commission level outside valid range")
	ErrRecordNotFound = errors.New("commission record not found")
	ErrAlreadyDecided = errors.New("commission record already decided")
	ErrNotPaid        = errors.New("commission record is not paid")
	ErrReasonRequired = errors.New("a non-empty reason is required")
	ErrInvalidAction  = errors.New("unknown bulk action")
	ErrInvalidAmount  = errors.New("adjusted amount must be positive")
	ErrAlreadyPending = errors.New("commission record is already pending")
)

type CommissionRecord struct {
	ID                      snowflake.ID     `json:"id" gorm:"primaryKey"`
	ReferrerID              snowflake.ID     `json:"referrer_id" gorm:"not null;index"`
	RefereeID               snowflake.ID     `json:"referee_id" gorm:"not null;index"`
	Level                   int              `json:"level" gorm:"not null"`
	PackageAmount           float64          `json:"package_amount" gorm:"not null"`
	CommissionBaseAmount    float64          `json:"commission_base_amount" gorm:"not null"`
	Amount                  float64          `json:"amount" gorm:"not null"`
	NonKitMultiplierApplied bool             `json:"non_kit_multiplier_applied" gorm:"not null"`
	ReferrerHadKit          bool             `json:"referrer_had_kit" gorm:"not null"`
	Status                  CommissionStatus `json:"status" gorm:"type:text;not null;index"`
	Reason                  string           `json:"reason" gorm:"type:text"`
	DecidedBy               *snowflake.ID    `json:"decided_by"`
	DecidedAt               *time.Time       `json:"decided_at"`
	CreatedAt               time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt               time.Time        `json:"updated_at" gorm:"not null"`
}

func (CommissionRecord) TableName() string { return "commission_records" }

// CommissionAdjustment is the audit row written whenever a paid record's
// amount is replaced.
type CommissionAdjustment struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	CommissionID snowflake.ID `json:"commission_id" gorm:"not null;index"`
	OldAmount    float64      `json:"old_amount" gorm:"not null"`
	NewAmount    float64      `json:"new_amount" gorm:"not null"`
	Reason       string       `json:"reason" gorm:"type:text;not null"`
	ActorID      snowflake.ID `json:"actor_id" gorm:"not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
}

func (CommissionAdjustment) TableName() string { return "commission_adjustments" }
