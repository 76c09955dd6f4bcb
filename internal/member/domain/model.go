// Package domain contains the member tree models. A member's sponsor link is
// fixed at signup and never re-parented, so sponsorship chains cannot cycle
// and historical commission computation stays stable.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusInactive  MemberStatus = "inactive"
	MemberStatusSuspended MemberStatus = "suspended"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusActive, MemberStatusInactive, MemberStatusSuspended:
		return true
	}
	return false
}

// MaxChainDepth bounds how far up the sponsor tree commissions reach.
const MaxChainDepth = 7

type Member struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name           string        `json:"name" gorm:"type:text;not null"`
	Email          string        `json:"email" gorm:"type:text;not null;uniqueIndex"`
	ReferralCode   string        `json:"referral_code" gorm:"type:text;not null;uniqueIndex"`
	SponsorID      *snowflake.ID `json:"sponsor_id" gorm:"index"`
	HasKit         bool          `json:"has_kit" gorm:"not null;default:false"`
	KitPurchasedAt *time.Time    `json:"kit_purchased_at"`
	BonusPoints    float64       `json:"bonus_points" gorm:"not null;default:0"`
	Tier           int           `json:"tier" gorm:"not null;default:1"`
	Status         MemberStatus  `json:"status" gorm:"type:text;not null;default:'active';index"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null"`
}

func (Member) TableName() string { return "members" }

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrSponsorNotFound   = errors.New("sponsor not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidMemberName = errors.New("member name is required")
	ErrInvalidStatus     = errors.New("invalid member status")
)
