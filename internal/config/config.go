package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

// LoadConfig loads the configuration and sets default values for development/production
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath(".") // Path to look for the config file in

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create a default one
			return createDefaultConfig()
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	// Ensure we have sensible defaults in case they are not in the config file
	setDefaults()

	return nil
}

// setDefaults sets default configuration values based on the environment
func setDefaults() {
	// Check the current environment (default is development)
	env := viper.GetString("ENV")
	if env == "" {
		env = "development"
		viper.Set("ENV", env)
	}

	// Set defaults for development and production environments
	if env == "development" {
		viper.SetDefault("allowed_origin", "http://localhost:3000")
		viper.SetDefault("escrow_db_path", "./dev_escrow.db")
		viper.SetDefault("log_level", "debug")
	} else if env == "production" {
		viper.SetDefault("allowed_origin", "https://my-production-site.com")
		viper.SetDefault("escrow_db_path", "/var/lib/escrow-wallet/escrow.db")
		viper.SetDefault("log_level", "info")
	}

	// Service settings
	viper.SetDefault("service_name", "escrow")
	viper.SetDefault("db_backend", "sqlite") // or "graviton"
	viper.SetDefault("api_port", 9003)
	viper.SetDefault("tls_cert_file", "")
	viper.SetDefault("tls_key_file", "")
	viper.SetDefault("jwt_keys_dir", "./jwtkeys")
	viper.SetDefault("api_key_hash", "")
	viper.SetDefault("owner_address", "")
	viper.SetDefault("server_mode", true)
	viper.SetDefault("log_file", "./escrow.log")
	viper.SetDefault("sweep_interval", "5m")

	// Ledger parameters, all durations in seconds
	viper.SetDefault("min_amount", 1)
	viper.SetDefault("min_password_length", 7)
	viper.SetDefault("cooldown_period", 1800)
	viper.SetDefault("availability_period", 604800)
	viper.SetDefault("cleanup_interval", 86400)
	viper.SetDefault("inactivity_threshold", 7776000)
	viper.SetDefault("maintenance_batch_limit", 50)

	// Fee engine
	viper.SetDefault("fee_limit_one", 10000)
	viper.SetDefault("fee_limit_two", 1000000)
	viper.SetDefault("fee_scaling_factor", 10000)
	viper.SetDefault("fee_tier_one", 100)
	viper.SetDefault("fee_tier_two", 50)
	viper.SetDefault("fee_tier_three", 25)
}

// createDefaultConfig creates a new configuration file if it doesn't exist
func createDefaultConfig() error {
	setDefaults()

	// Write the default configuration to a file
	err := viper.SafeWriteConfig()
	if err != nil {
		if os.IsExist(err) {
			// If the config already exists, attempt to overwrite it
			err = viper.WriteConfig()
			if err != nil {
				return fmt.Errorf("error writing config file: %w", err)
			}
		} else {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	fmt.Println("Created default configuration file")
	return nil
}

// LedgerParams assembles the ledger parameters from the loaded
// configuration.
func LedgerParams() (ledger.Params, error) {
	p := ledger.DefaultParams()
	p.MinAmount = viper.GetUint64("min_amount")
	p.MinPasswordLength = viper.GetInt("min_password_length")
	p.CooldownPeriod = time.Duration(viper.GetInt64("cooldown_period")) * time.Second
	p.AvailabilityPeriod = time.Duration(viper.GetInt64("availability_period")) * time.Second
	p.CleanupInterval = time.Duration(viper.GetInt64("cleanup_interval")) * time.Second
	p.InactivityThreshold = time.Duration(viper.GetInt64("inactivity_threshold")) * time.Second
	p.MaintenanceBatchLimit = viper.GetInt("maintenance_batch_limit")
	p.FeeLimitOne = viper.GetUint64("fee_limit_one")
	p.FeeLimitTwo = viper.GetUint64("fee_limit_two")
	p.FeeScalingFactor = viper.GetUint64("fee_scaling_factor")
	p.FeeTiers = ledger.FeeTiers{
		LevelOne:   viper.GetUint64("fee_tier_one"),
		LevelTwo:   viper.GetUint64("fee_tier_two"),
		LevelThree: viper.GetUint64("fee_tier_three"),
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid ledger parameters in config: %w", err)
	}
	return p, nil
}
