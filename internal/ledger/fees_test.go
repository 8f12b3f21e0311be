package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectRate(t *testing.T) {
	tiers := FeeTiers{LevelOne: 100, LevelTwo: 50, LevelThree: 25}

	assert.Equal(t, uint64(100), SelectRate(1, 10_000, 1_000_000, tiers))
	assert.Equal(t, uint64(100), SelectRate(10_000, 10_000, 1_000_000, tiers), "boundary belongs to the lower tier")
	assert.Equal(t, uint64(50), SelectRate(10_001, 10_000, 1_000_000, tiers))
	assert.Equal(t, uint64(50), SelectRate(1_000_000, 10_000, 1_000_000, tiers))
	assert.Equal(t, uint64(25), SelectRate(1_000_001, 10_000, 1_000_000, tiers))
}

func TestCostFloorsFee(t *testing.T) {
	tiers := FeeTiers{LevelOne: 100, LevelTwo: 50, LevelThree: 25}

	// 1% of 150 is 1.5; the fee truncates to 1, never up to 2.
	total, fee := Cost(150, 10_000, 1_000_000, 10_000, tiers)
	assert.Equal(t, uint64(1), fee)
	assert.Equal(t, uint64(151), total)

	// Amounts too small to produce a fee cost exactly the amount.
	total, fee = Cost(99, 10_000, 1_000_000, 10_000, tiers)
	assert.Equal(t, uint64(0), fee)
	assert.Equal(t, uint64(99), total)

	// Third tier: 0.25% of 2,000,000.
	total, fee = Cost(2_000_000, 10_000, 1_000_000, 10_000, tiers)
	assert.Equal(t, uint64(500), fee)
	assert.Equal(t, uint64(2_000_500), total)
}
