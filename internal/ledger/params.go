package ledger

import (
	"fmt"
	"time"
)

// Params is the owner-mutable global configuration. It is passed explicitly
// to the ledger instead of being read from ambient state so the ledger stays
// testable in isolation.
type Params struct {
	MinAmount             uint64        `json:"min_amount"`
	MinPasswordLength     int           `json:"min_password_length"`
	CooldownPeriod        time.Duration `json:"cooldown_period"`
	AvailabilityPeriod    time.Duration `json:"availability_period"`
	CleanupInterval       time.Duration `json:"cleanup_interval"`
	InactivityThreshold   time.Duration `json:"inactivity_threshold"`
	MaintenanceBatchLimit int           `json:"maintenance_batch_limit"`
	FeeLimitOne           uint64        `json:"fee_limit_one"`
	FeeLimitTwo           uint64        `json:"fee_limit_two"`
	FeeScalingFactor      uint64        `json:"fee_scaling_factor"`
	FeeTiers              FeeTiers      `json:"fee_tiers"`
}

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// DefaultParams mirrors the defaults written into a fresh config file.
func DefaultParams() Params {
	return Params{
		MinAmount:             1,
		MinPasswordLength:     7,
		CooldownPeriod:        30 * time.Minute,
		AvailabilityPeriod:    7 * 24 * time.Hour,
		CleanupInterval:       24 * time.Hour,
		InactivityThreshold:   90 * 24 * time.Hour,
		MaintenanceBatchLimit: 50,
		FeeLimitOne:           10_000,
		FeeLimitTwo:           1_000_000,
		FeeScalingFactor:      10_000,
		FeeTiers:              FeeTiers{LevelOne: 100, LevelTwo: 50, LevelThree: 25},
	}
}

// Validate enforces the orderings the fee engine and the state machine rely
// on. Setters reject any change that would break them.
func (p Params) Validate() error {
	if p.FeeScalingFactor == 0 {
		return fmt.Errorf("fee scaling factor must be non-zero")
	}
	if p.FeeLimitOne > p.FeeLimitTwo {
		return fmt.Errorf("fee limit one (%d) exceeds fee limit two (%d)", p.FeeLimitOne, p.FeeLimitTwo)
	}
	if p.MinPasswordLength <= 0 {
		return fmt.Errorf("minimum password length must be positive")
	}
	if p.AvailabilityPeriod <= 0 {
		return fmt.Errorf("availability period must be positive")
	}
	if p.CooldownPeriod < 0 || p.CooldownPeriod >= p.AvailabilityPeriod {
		return fmt.Errorf("cooldown period must fit inside the availability period")
	}
	if p.MaintenanceBatchLimit <= 0 {
		return fmt.Errorf("maintenance batch limit must be positive")
	}
	return nil
}
