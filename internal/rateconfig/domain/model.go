// Package domain contains the commission rate schedule and its validation
// rules. A schedule is only ever replaced as a whole; prior schedules stay on
// record for audit but are never applied.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotConfigured   = errors.New("no active rate schedule configured")
	ErrInvalidSchedule = errors.New("invalid rate schedule")
)

const (
	MinLevel = 1
	MaxLevel = 7

	maxLevelRate    = 50.0
	maxLevelRateSum = 100.0
)

type RateSchedule struct {
	ID                         snowflake.ID  `json:"id" gorm:"primaryKey"`
	BasePercentage             float64       `json:"base_percentage" gorm:"not null"`
	NonKitMultiplierPercentage float64       `json:"non_kit_multiplier_percentage" gorm:"not null"`
	Level1Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Level2Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Level3Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Level4Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Level5Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Level6Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Level7Rate                 float64       `json:"-" gorm:"not null;default:0"`
	Enabled                    bool          `json:"enabled" gorm:"not null;default:true"`
	Active                     bool          `json:"active" gorm:"not null;index"`
	CreatedBy                  *snowflake.ID `json:"created_by"`
	CreatedAt                  time.Time     `json:"created_at" gorm:"not null"`
}

func (RateSchedule) TableName() string { return "rate_schedules" }

// LevelRate returns the configured rate for a level, zero for levels outside
// the schedule.
func (s *RateSchedule) LevelRate(level int) float64 {
	switch level {
	case 1:
		return s.Level1Rate
	case 2:
		return s.Level2Rate
	case 3:
		return s.Level3Rate
	case 4:
		return s.Level4Rate
	case 5:
		return s.Level5Rate
	case 6:
		return s.Level6Rate
	case 7:
		return s.Level7Rate
	default:
		return 0
	}
}

func (s *RateSchedule) setLevelRate(level int, rate float64) {
	switch level {
	case 1:
		s.Level1Rate = rate
	case 2:
		s.Level2Rate = rate
	case 3:
		s.Level3Rate = rate
	case 4:
		s.Level4Rate = rate
	case 5:
		s.Level5Rate = rate
	case 6:
		s.Level6Rate = rate
	case 7:
		s.Level7Rate = rate
	}
}

func (s *RateSchedule) LevelRates() map[int]float64 {
	rates := make(map[int]float64, MaxLevel)
	for level := MinLevel; level <= MaxLevel; level++ {
		rates[level] = s.LevelRate(level)
	}
	return rates
}

// SetLevelRates replaces all level rates from a map keyed by level.
func (s *RateSchedule) SetLevelRates(rates map[int]float64) error {
	for level := range rates {
		if level < MinLevel || level > MaxLevel {
			return fmt.Errorf("%w: level %d outside %d..%d", ErrInvalidSchedule, level, MinLevel, MaxLevel)
		}
	}
	for level := MinLevel; level <= MaxLevel; level++ {
		s.setLevelRate(level, rates[level])
	}
	return nil
}

// Validate enforces the schedule invariants: base in [1,100], multiplier in
// [0,100], each level rate in [0,50], and the level rates summing to at most
// 100.
func (s *RateSchedule) Validate() error {
	if s.BasePercentage < 1 || s.BasePercentage > 100 {
		return fmt.Errorf("%w: base percentage %.2f outside [1,100]", ErrInvalidSchedule, s.BasePercentage)
	}
	if s.NonKitMultiplierPercentage < 0 || s.NonKitMultiplierPercentage > 100 {
		return fmt.Errorf("%w: non-kit multiplier %.2f outside [0,100]", ErrInvalidSchedule, s.NonKitMultiplierPercentage)
	}

	var sum float64
	for level := MinLevel; level <= MaxLevel; level++ {
		rate := s.LevelRate(level)
		if rate < 0 || rate > maxLevelRate {
			return fmt.Errorf("%w: level %d rate %.2f outside [0,%.0f]", ErrInvalidSchedule, level, rate, maxLevelRate)
		}
		sum += rate
	}
	if sum > maxLevelRateSum {
		return fmt.Errorf("%w: level rates sum %.2f exceeds %.0f", ErrInvalidSchedule, sum, maxLevelRateSum)
	}
	return nil
}
