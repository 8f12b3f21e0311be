package ledger

// FeeTiers holds the three fee rates, expressed in units of the scaling
// factor (e.g. with a scaling factor of 10000 a rate of 50 is 0.5%).
type FeeTiers struct {
	LevelOne   uint64 `json:"level_one"`
	LevelTwo   uint64 `json:"level_two"`
	LevelThree uint64 `json:"level_three"`
}

// SelectRate picks the fee rate bracket for an amount. The thresholds are
// guaranteed well-ordered by validation at the point they are configured.
func SelectRate(amount, limitOne, limitTwo uint64, tiers FeeTiers) uint64 {
	if amount <= limitOne {
		return tiers.LevelOne
	}
	if amount <= limitTwo {
		return tiers.LevelTwo
	}
	return tiers.LevelThree
}

// Cost returns the total the sender must supply and the fee portion of it.
// Integer division truncates toward zero, so fees are never rounded up.
func Cost(amount, limitOne, limitTwo, scalingFactor uint64, tiers FeeTiers) (total, fee uint64) {
	rate := SelectRate(amount, limitOne, limitTwo, tiers)
	fee = amount * rate / scalingFactor
	total = amount + fee
	return total, fee
}
