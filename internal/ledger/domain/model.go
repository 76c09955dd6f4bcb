// Package domain contains the transaction ledger models. The ledger is the
// single source of truth for member balances: a balance is always the signed
// fold over completed transactions, never a stored counter.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type TransactionType string

const (
	TypeDeposit       TransactionType = "deposit"
	TypeWithdrawal    TransactionType = "withdrawal"
	TypeCommission    TransactionType = "commission"
	TypeProfitShare   TransactionType = "profit_share"
	TypeLoanIssue     TransactionType = "loan_issue"
	TypeLoanRepayment TransactionType = "loan_repayment"
	TypeReturn        TransactionType = "return"
	TypeReferral      TransactionType = "referral"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

var (
	ErrTransactionNotFound = errors.New("ledger transaction not found")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidAmount       = errors.New("transaction amount must be positive")
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
	ErrTopUpNotFound       = errors.New("top-up request not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal request not found")
	ErrAlreadyProcessed    = errors.New("request already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Sign returns +1 for balance-crediting types and -1 for debiting ones.
func Sign(t TransactionType) (int, bool) {
	switch t {
	case TypeDeposit, TypeCommission, TypeProfitShare, TypeLoanIssue, TypeReturn, TypeReferral:
		return 1, true
	case TypeWithdrawal, TypeLoanRepayment:
		return -1, true
	default:
		return 0, false
	}
}

type LedgerTransaction struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID          snowflake.ID      `json:"user_id" gorm:"not null;index"`
	Type            TransactionType   `json:"type" gorm:"type:text;not null;index"`
	Amount          float64           `json:"amount" gorm:"not null"`
	Status          TransactionStatus `json:"status" gorm:"type:text;not null;index"`
	RelatedEntityID *snowflake.ID     `json:"related_entity_id" gorm:"index"`
	RunID           *snowflake.ID     `json:"run_id" gorm:"index"`
	Description     string            `json:"description" gorm:"type:text"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null"`
}

func (LedgerTransaction) TableName() string { return "ledger_transactions" }

type TopUpStatus string

const (
	TopUpStatusPending  TopUpStatus = "pending"
	TopUpStatusVerified TopUpStatus = "verified"
	TopUpStatusRejected TopUpStatus = "rejected"
)

type TopUpRequest struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID        snowflake.ID  `json:"user_id" gorm:"not null;index"`
	Amount        float64       `json:"amount" gorm:"not null"`
	Status        TopUpStatus   `json:"status" gorm:"type:text;not null;index"`
	TransactionID *snowflake.ID `json:"transaction_id"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"not null"`
}

func (TopUpRequest) TableName() string { return "topup_requests" }

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

type WithdrawalRequest struct {
	ID            snowflake.ID     `json:"id" gorm:"primaryKey"`
	UserID        snowflake.ID     `json:"user_id" gorm:"not null;index"`
	Amount        float64          `json:"amount" gorm:"not null"`
	Status        WithdrawalStatus `json:"status" gorm:"type:text;not null;index"`
	TransactionID *snowflake.ID    `json:"transaction_id"`
	CreatedAt     time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"not null"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

// IntegrityReport carries inconsistency counts for manual remediation. None
// of these block reads or writes.
type IntegrityReport struct {
	OrphanedTopUps       int64     `json:"orphaned_topups"`
	BlankStatusCount     int64     `json:"blank_status_count"`
	OrphanedWithdrawals  int64     `json:"orphaned_withdrawals"`
	NegativeBalanceUsers int64     `json:"negative_balance_users"`
	CheckedAt            time.Time `json:"checked_at"`
}

func (r IntegrityReport) Clean() bool {
	return r.OrphanedTopUps == 0 &&
		r.BlankStatusCount == 0 &&
		r.OrphanedWithdrawals == 0 &&
		r.NegativeBalanceUsers == 0
}
