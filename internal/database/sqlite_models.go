package escrowdb

import (
	"time"

	"gorm.io/gorm"
)

// SQLiteTransfer represents one escrow transfer record
type SQLiteTransfer struct {
	gorm.Model
	TransferID  uint64 `gorm:"uniqueIndex"`
	Sender      string `gorm:"index"`
	Receiver    string `gorm:"index"`
	Asset       string `gorm:"index"`
	Amount      uint64
	CreatedTime time.Time
	ExpiresTime time.Time
	Commitment  string
	Salt        []byte
	Status      int `gorm:"index"`
}

// SQLiteLedgerBalance holds one held or fee balance per asset
type SQLiteLedgerBalance struct {
	gorm.Model
	Asset   string `gorm:"uniqueIndex:idx_kind_asset"`
	Kind    string `gorm:"uniqueIndex:idx_kind_asset"` // "held" or "fee"
	Balance uint64
}

// SQLiteAccountBalance holds one external account balance per asset
type SQLiteAccountBalance struct {
	gorm.Model
	Account string `gorm:"uniqueIndex:idx_account_asset"`
	Asset   string `gorm:"uniqueIndex:idx_account_asset"`
	Balance uint64
}

// SQLiteAddressActivity is the tracking record behind the maintenance sweep
type SQLiteAddressActivity struct {
	gorm.Model
	Address         string `gorm:"uniqueIndex"`
	LastInteraction time.Time
	LastCleanup     time.Time
}

// SQLiteAsset is one allow-list entry
type SQLiteAsset struct {
	gorm.Model
	Asset       string `gorm:"uniqueIndex"`
	Whitelisted bool
}

// SQLiteChallenge represents an auth challenge
type SQLiteChallenge struct {
	gorm.Model
	Challenge string `gorm:"uniqueIndex"`
	Hash      string `gorm:"uniqueIndex"`
	Status    string `gorm:"index"` // unused, used, expired
	IssuedAt  time.Time
	UsedAt    *time.Time
}

// SQLiteMetadata stores miscellaneous key/value state (owner, params)
type SQLiteMetadata struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex"`
	Value string
}
