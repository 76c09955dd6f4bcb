package domain

import (
	"math"

	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
)

// Breakdown is the result of a single commission computation.
type Breakdown struct {
	CommissionBaseAmount    float64
	Amount                  float64
	NonKitMultiplierApplied bool
}

// Calculate computes the commission for one referrer/level pair. It is a pure
// function: the schedule is passed in explicitly, never read from ambient
// state.
//
// A disabled schedule or a zero level rate yields a zero breakdown rather
// than an error, so a purchase is never blocked by suppressed payouts.
// Rounding to currency precision happens once, at the end, using
// round-half-up.
func Calculate(purchaseAmount float64, level int, referrerHasKit bool, schedule *rateconfigdomain.RateSchedule) (Breakdown, error) {
	if level < rateconfigdomain.MinLevel || level > rateconfigdomain.MaxLevel {
		return Breakdown{}, ErrInvalidLevel
	}

	levelRate := schedule.LevelRate(level)
	if !schedule.Enabled || levelRate == 0 {
		return Breakdown{}, nil
	}

	base := purchaseAmount * schedule.BasePercentage / 100

	effectiveRate := levelRate
	applied := false
	if !referrerHasKit {
		effectiveRate = levelRate * (1 - schedule.NonKitMultiplierPercentage/100)
		applied = true
	}

	return Breakdown{
		CommissionBaseAmount:    roundCurrency(base),
		Amount:                  roundCurrency(base * effectiveRate / 100),
		NonKitMultiplierApplied: applied,
	}, nil
}

// roundCurrency rounds to 2 decimals, half away from zero.
func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
