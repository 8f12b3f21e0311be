package sweeper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passlock-labs/escrow-wallet.git/internal/bank"
	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLedger(t *testing.T) (*ledger.Ledger, *bank.Bank, *fakeClock) {
	t.Helper()

	b := bank.New()
	require.NoError(t, b.Deposit("alice", ledger.NativeAsset, 100_000))

	l := ledger.New("owner", ledger.DefaultParams(), b)
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l.SetClock(clk.Now)
	return l, b, clk
}

func TestRunOnceRefundsExpiredTransfers(t *testing.T) {
	l, b, clk := newTestLedger(t)

	idA, err := l.Create("alice", "bob", ledger.NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	idB, err := l.Create("alice", "carol", ledger.NativeAsset, 2000, 2020, "abcdefg")
	require.NoError(t, err)

	sw := New(l, time.Minute)

	// Nothing expired yet
	refunded, failed, _ := sw.RunOnce()
	assert.Zero(t, refunded)
	assert.Zero(t, failed)
	assert.Equal(t, "pending", l.GetTransfer(idA).Status)

	clk.advance(8 * 24 * time.Hour)

	refunded, failed, _ = sw.RunOnce()
	assert.Equal(t, 2, refunded)
	assert.Zero(t, failed)
	assert.Equal(t, "expired_and_refunded", l.GetTransfer(idA).Status)
	assert.Equal(t, "expired_and_refunded", l.GetTransfer(idB).Status)

	// Principal returned, fees kept
	assert.Equal(t, uint64(100_000-10-20), b.BalanceOf("alice", ledger.NativeAsset))
}

func TestRunOnceCountsFailures(t *testing.T) {
	l, b, clk := newTestLedger(t)

	id, err := l.Create("alice", "bob", ledger.NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	clk.advance(8 * 24 * time.Hour)
	b.Freeze("alice")

	sweep := New(l, time.Minute)
	refunded, failed, _ := sweep.RunOnce()
	assert.Zero(t, refunded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "pending", l.GetTransfer(id).Status)

	b.Unfreeze("alice")
	refunded, failed, _ = sweep.RunOnce()
	assert.Equal(t, 1, refunded)
	assert.Zero(t, failed)
}

func TestRunOnceSkipsWhileEngaged(t *testing.T) {
	l, _, clk := newTestLedger(t)

	id, err := l.Create("alice", "bob", ledger.NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	clk.advance(8 * 24 * time.Hour)

	sw := New(l, time.Minute)
	sw.engaged.Store(true)
	refunded, failed, maintenance := sw.RunOnce()
	assert.Zero(t, refunded)
	assert.Zero(t, failed)
	assert.Nil(t, maintenance)
	assert.Equal(t, "pending", l.GetTransfer(id).Status)

	sw.engaged.Store(false)
	refunded, _, _ = sw.RunOnce()
	assert.Equal(t, 1, refunded)
}

func TestRunOnceTriggersMaintenance(t *testing.T) {
	l, _, clk := newTestLedger(t)

	id, err := l.Create("alice", "bob", ledger.NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	require.NoError(t, l.Cancel("alice", id))

	// The canceled entry sits in alice's history until a cleanup is due
	assert.Equal(t, []uint64{id}, l.CanceledBySender("alice"))

	clk.advance(25 * time.Hour)

	_, _, maintenance := New(l, time.Minute).RunOnce()
	require.NotNil(t, maintenance)
	assert.Equal(t, 2, maintenance.AddressesCleaned)
	assert.Empty(t, l.CanceledBySender("alice"))
}
