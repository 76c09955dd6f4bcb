// Package seed provisions the minimal data a fresh install needs: an active
// rate schedule and a small demo member tree. Every function is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
	"gorm.io/gorm"
)

const demoMemberCount = 4

// EnsureDefaults seeds the default rate schedule and a demo sponsor chain.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRateSchedule(ctx, tx, node); err != nil {
			return err
		}
		return ensureDemoMembers(ctx, tx, node)
	})
}

func ensureRateSchedule(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&rateconfigdomain.RateSchedule{}).
		Where("active = ?", true).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	schedule := &rateconfigdomain.RateSchedule{
		ID:                         node.Generate(),
		BasePercentage:             10,
		NonKitMultiplierPercentage: 50,
		Enabled:                    true,
		Active:                     true,
	}
	if err := schedule.SetLevelRates(map[int]float64{
		1: 20, 2: 10, 3: 5, 4: 3, 5: 2, 6: 1, 7: 1,
	}); err != nil {
		return err
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(schedule).Error
}

// ensureDemoMembers builds a straight four-deep sponsor chain so commission
// walks have something to traverse out of the box.
func ensureDemoMembers(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&memberdomain.Member{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var sponsorID *snowflake.ID
	for i := 1; i <= demoMemberCount; i++ {
		name := fmt.Sprintf("Demo Member %d", i)
		m := &memberdomain.Member{
			ID:           node.Generate(),
			Name:         name,
			Email:        fmt.Sprintf("demo%d@upline.local", i),
			ReferralCode: slug.Make(name),
			SponsorID:    sponsorID,
			HasKit:       i == 1,
			Tier:         1,
			Status:       memberdomain.MemberStatusActive,
		}
		if err := tx.WithContext(ctx).Create(m).Error; err != nil {
			return err
		}
		id := m.ID
		sponsorID = &id
	}
	return nil
}
