// Package domain contains profit-share run models. A run moves through
// draft -> approved -> distributed; the two-step gate separates calculation
// from the irreversible payout, and distribution is idempotent per run.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type DistributionMethod string

const (
	MethodBPBased    DistributionMethod = "bp_based"
	MethodLevelBased DistributionMethod = "level_based"
)

type RunStatus string

const (
	RunStatusDraft       RunStatus = "draft"
	RunStatusApproved    RunStatus = "approved"
	RunStatusDistributed RunStatus = "distributed"
)

// MemberPoolShare is the fixed split policy: this fraction of the profit pool
// goes to members, the remainder is retained by the company.
const MemberPoolShare = 0.60

var (
	ErrRunNotFound     = errors.New("profit share run not found")
	ErrInvalidMethod   = errors.New("unknown distribution method")
	ErrInvalidProfit   = errors.New("total profit must be positive")
	ErrInvalidPeriod   = errors.New("invalid distribution period")
	ErrNoActiveMembers = errors.New("no active members to distribute to")
	ErrInvalidRunState = errors.New("run is not in the required state")
)

type ProfitShareRun struct {
	ID                             snowflake.ID       `json:"id" gorm:"primaryKey"`
	Year                           int                `json:"year" gorm:"not null"`
	Quarter                        int                `json:"quarter" gorm:"not null"`
	TotalProfit                    float64            `json:"total_profit" gorm:"not null"`
	MemberShareAmount              float64            `json:"member_share_amount" gorm:"not null"`
	CompanyRetained                float64            `json:"company_retained" gorm:"not null"`
	DistributionMethod             DistributionMethod `json:"distribution_method" gorm:"type:text;not null"`
	Status                         RunStatus          `json:"status" gorm:"type:text;not null;index"`
	ActiveMemberCountAtCalculation int                `json:"active_member_count_at_calculation" gorm:"not null"`
	ApprovedBy                     *snowflake.ID      `json:"approved_by"`
	ApprovedAt                     *time.Time         `json:"approved_at"`
	DistributedAt                  *time.Time         `json:"distributed_at"`
	CreatedAt                      time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt                      time.Time          `json:"updated_at" gorm:"not null"`
}

func (ProfitShareRun) TableName() string { return "profit_share_runs" }

// ProfitShareAllocation is a member's frozen share of a run, snapshotted at
// calculation time. Distribution reads these rows, never the live member set.
type ProfitShareAllocation struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey"`
	RunID    snowflake.ID `json:"run_id" gorm:"not null;index"`
	MemberID snowflake.ID `json:"member_id" gorm:"not null;index"`
	Weight   float64      `json:"weight" gorm:"not null"`
	Amount   float64      `json:"amount" gorm:"not null"`
}

func (ProfitShareAllocation) TableName() string { return "profit_share_allocations" }
