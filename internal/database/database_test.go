package escrowdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

// openBackends gives each test a fresh instance of both implementations so
// every behavior is exercised against SQLite and Graviton alike.
func openBackends(t *testing.T) map[string]DatabaseInterface {
	t.Helper()

	sqliteDB, err := InitSQLiteDB(filepath.Join(t.TempDir(), "escrow.db"))
	require.NoError(t, err)
	gravitonDB, err := InitGravitonDB(filepath.Join(t.TempDir(), "graviton"))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqliteDB.Close()
		gravitonDB.Close()
	})

	return map[string]DatabaseInterface{
		"sqlite":   sqliteDB,
		"graviton": gravitonDB,
	}
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			transfer := ledger.Transfer{
				ID:         3,
				Sender:     "alice",
				Receiver:   "bob",
				Asset:      ledger.NativeAsset,
				Amount:     1000,
				CreatedAt:  created,
				ExpiresAt:  created.Add(7 * 24 * time.Hour),
				Commitment: "c0ffee",
				Salt:       []byte{1, 2, 3},
				Status:     ledger.StatusPending,
			}
			require.NoError(t, db.SaveTransfer(transfer))

			// A second save must update in place, not duplicate the row.
			transfer.Amount = 0
			transfer.Status = ledger.StatusCanceled
			require.NoError(t, db.SaveTransfer(transfer))

			require.NoError(t, db.SaveHeldBalance(ledger.NativeAsset, 1010))
			require.NoError(t, db.SaveFeeBalance(ledger.NativeAsset, 10))
			require.NoError(t, db.SaveAsset(ledger.NativeAsset, true))
			require.NoError(t, db.SaveAsset("WIDGET", false))
			require.NoError(t, db.SaveOwner("owner"))

			params := ledger.DefaultParams()
			params.MinAmount = 5
			require.NoError(t, db.SaveParams(params))

			require.NoError(t, db.SaveActivity(ledger.AddressActivity{
				Address: "alice", LastInteraction: created, LastCleanup: created,
			}))

			snap, err := db.LoadLedgerSnapshot()
			require.NoError(t, err)

			require.Len(t, snap.Transfers, 1)
			got := snap.Transfers[0]
			assert.Equal(t, uint64(3), got.ID)
			assert.Equal(t, "alice", got.Sender)
			assert.Equal(t, "bob", got.Receiver)
			assert.Equal(t, ledger.StatusCanceled, got.Status)
			assert.Zero(t, got.Amount)
			assert.Equal(t, "c0ffee", got.Commitment)
			assert.Equal(t, []byte{1, 2, 3}, got.Salt)
			assert.True(t, got.CreatedAt.Equal(created))
			assert.True(t, got.ExpiresAt.Equal(created.Add(7*24*time.Hour)))

			assert.Equal(t, uint64(1010), snap.HeldBalances[ledger.NativeAsset])
			assert.Equal(t, uint64(10), snap.FeeBalances[ledger.NativeAsset])
			assert.Equal(t, map[string]bool{ledger.NativeAsset: true, "WIDGET": false}, snap.Assets)
			assert.Equal(t, "owner", snap.Owner)

			require.NotNil(t, snap.Params)
			assert.Equal(t, uint64(5), snap.Params.MinAmount)
			assert.Equal(t, params.FeeTiers, snap.Params.FeeTiers)

			require.Len(t, snap.Activities, 1)
			assert.Equal(t, "alice", snap.Activities[0].Address)
			assert.True(t, snap.Activities[0].LastInteraction.Equal(created))
		})
	}
}

func TestAccountBalancesRoundTrip(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.SaveAccountBalance("alice", ledger.NativeAsset, 5000))
			require.NoError(t, db.SaveAccountBalance("alice", "WIDGET", 7))
			require.NoError(t, db.SaveAccountBalance("bob", ledger.NativeAsset, 100))
			// Overwrite takes the latest value.
			require.NoError(t, db.SaveAccountBalance("bob", ledger.NativeAsset, 250))

			balances, err := db.LoadAccountBalances()
			require.NoError(t, err)
			assert.Equal(t, map[string]map[string]uint64{
				"alice": {ledger.NativeAsset: 5000, "WIDGET": 7},
				"bob":   {ledger.NativeAsset: 250},
			}, balances)
		})
	}
}

func TestDeleteActivityRemovesRecord(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.SaveActivity(ledger.AddressActivity{
				Address: "alice", LastInteraction: now, LastCleanup: now,
			}))
			require.NoError(t, db.SaveActivity(ledger.AddressActivity{
				Address: "bob", LastInteraction: now, LastCleanup: now,
			}))

			require.NoError(t, db.DeleteActivity("alice"))

			snap, err := db.LoadLedgerSnapshot()
			require.NoError(t, err)
			require.Len(t, snap.Activities, 1)
			assert.Equal(t, "bob", snap.Activities[0].Address)
		})
	}
}

func TestChallengeLifecycle(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			fresh := Challenge{
				Challenge: "abcdef-2025",
				Hash:      "hash-fresh",
				Status:    "unused",
				CreatedAt: time.Now(),
			}
			stale := Challenge{
				Challenge: "uvwxyz-2025",
				Hash:      "hash-stale",
				Status:    "unused",
				CreatedAt: time.Now().Add(-10 * time.Minute),
			}
			require.NoError(t, db.SaveChallenge(fresh))
			require.NoError(t, db.SaveChallenge(stale))

			got, err := db.GetChallenge("hash-fresh")
			require.NoError(t, err)
			assert.Equal(t, "unused", got.Status)
			assert.Nil(t, got.UsedAt)

			require.NoError(t, db.MarkChallengeUsed("hash-fresh"))
			got, err = db.GetChallenge("hash-fresh")
			require.NoError(t, err)
			assert.Equal(t, "used", got.Status)
			require.NotNil(t, got.UsedAt)

			// Expiry only touches unused challenges past the cutoff.
			require.NoError(t, db.ExpireOldChallenges(5*time.Minute))
			got, err = db.GetChallenge("hash-stale")
			require.NoError(t, err)
			assert.Equal(t, "expired", got.Status)
			got, err = db.GetChallenge("hash-fresh")
			require.NoError(t, err)
			assert.Equal(t, "used", got.Status)

			_, err = db.GetChallenge("no-such-hash")
			assert.Error(t, err)
		})
	}
}
