package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
)

func testSchedule(t *testing.T) *rateconfigdomain.RateSchedule {
	t.Helper()
	s := &rateconfigdomain.RateSchedule{
		BasePercentage:             10,
		NonKitMultiplierPercentage: 50,
		Enabled:                    true,
	}
	require.NoError(t, s.SetLevelRates(map[int]float64{
		1: 20, 2: 10, 3: 5, 4: 3, 5: 2, 6: 1, 7: 1,
	}))
	return s
}

func TestCalculateKitHolderLevelOne(t *testing.T) {
	b, err := Calculate(1000, 1, true, testSchedule(t))
	require.NoError(t, err)
	require.Equal(t, 100.0, b.CommissionBaseAmount)
	require.Equal(t, 20.0, b.Amount)
	require.False(t, b.NonKitMultiplierApplied)
}

func TestCalculateNonKitHolderHalvesRate(t *testing.T) {
	b, err := Calculate(1000, 1, false, testSchedule(t))
	require.NoError(t, err)
	require.Equal(t, 100.0, b.CommissionBaseAmount)
	require.Equal(t, 10.0, b.Amount)
	require.True(t, b.NonKitMultiplierApplied)
}

func TestCalculateDeeperLevels(t *testing.T) {
	b, err := Calculate(1000, 3, true, testSchedule(t))
	require.NoError(t, err)
	require.Equal(t, 5.0, b.Amount)

	b, err = Calculate(1000, 7, true, testSchedule(t))
	require.NoError(t, err)
	require.Equal(t, 1.0, b.Amount)
}

func TestCalculateInvalidLevel(t *testing.T) {
	_, err := Calculate(1000, 0, true, testSchedule(t))
	require.ErrorIs(t, err, ErrInvalidLevel)

	_, err = Calculate(1000, 8, true, testSchedule(t))
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestCalculateDisabledScheduleYieldsZero(t *testing.T) {
	s := testSchedule(t)
	s.Enabled = false

	b, err := Calculate(1000, 1, true, s)
	require.NoError(t, err)
	require.Zero(t, b.Amount)
	require.Zero(t, b.CommissionBaseAmount)
}

func TestCalculateZeroLevelRateYieldsZero(t *testing.T) {
	s := testSchedule(t)
	require.NoError(t, s.SetLevelRates(map[int]float64{1: 20}))

	b, err := Calculate(1000, 4, true, s)
	require.NoError(t, err)
	require.Zero(t, b.Amount)
}

func TestCalculateRoundsHalfUpOnce(t *testing.T) {
	// 33.33 * 10% = 3.333 base; 3.333 * 20% = 0.6666 -> 0.67
	b, err := Calculate(33.33, 1, true, testSchedule(t))
	require.NoError(t, err)
	require.Equal(t, 3.33, b.CommissionBaseAmount)
	require.Equal(t, 0.67, b.Amount)
}
