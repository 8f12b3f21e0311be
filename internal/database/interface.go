package escrowdb

import (
	"fmt"
	"time"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

// DatabaseType represents the type of database backend to use
type DatabaseType string

const (
	// DBTypeSQLite represents the SQLite database backend
	DBTypeSQLite DatabaseType = "sqlite"
	// DBTypeGraviton represents the Graviton database backend
	DBTypeGraviton DatabaseType = "graviton"
)

// DBBackend is the configured backend type
var DBBackend DatabaseType = DBTypeSQLite

// Backend is the active database instance, set by InitializeDatabase
var Backend DatabaseInterface

// SetDatabaseBackend sets the database backend type
func SetDatabaseBackend(dbType DatabaseType) {
	DBBackend = dbType
}

// InitializeDatabase opens the configured backend and makes it active
func InitializeDatabase(dbPath string) error {
	var err error
	switch DBBackend {
	case DBTypeGraviton:
		Backend, err = InitGravitonDB(dbPath)
	case DBTypeSQLite:
		Backend, err = InitSQLiteDB(dbPath)
	default:
		return fmt.Errorf("unknown database backend: %s", DBBackend)
	}
	return err
}

// Challenge is one login challenge handed to a client. It is persisted so a
// restart does not strand an in-flight login.
type Challenge struct {
	Challenge string     `json:"challenge"`
	Hash      string     `json:"hash"`
	Status    string     `json:"status"` // "unused", "used", "expired"
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// DatabaseInterface defines the operations both backends implement. It
// covers the ledger's write-through store, the bank's balance store, the
// boot-time state reload and the API's challenge bookkeeping.
type DatabaseInterface interface {
	// Ledger write-through (ledger.Store)
	SaveTransfer(t ledger.Transfer) error
	SaveFeeBalance(asset string, balance uint64) error
	SaveHeldBalance(asset string, balance uint64) error
	SaveActivity(a ledger.AddressActivity) error
	DeleteActivity(address string) error
	SaveAsset(asset string, whitelisted bool) error
	SaveOwner(owner string) error
	SaveParams(p ledger.Params) error

	// Bank write-through (bank.Store)
	SaveAccountBalance(account, asset string, balance uint64) error

	// Boot-time reload
	LoadLedgerSnapshot() (ledger.Snapshot, error)
	LoadAccountBalances() (map[string]map[string]uint64, error)

	// Auth challenges
	SaveChallenge(c Challenge) error
	GetChallenge(hash string) (*Challenge, error)
	MarkChallengeUsed(hash string) error
	ExpireOldChallenges(maxAge time.Duration) error

	Close() error
}
