package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBank keys balances by account and asset, fails debits on shortfall
// and refuses credits to frozen accounts. Freezing is how the tests model a
// counterpart rejecting funds.
type testBank struct {
	balances       map[string]uint64
	frozen         map[string]bool
	creditFailures int
}

func newTestBank() *testBank {
	return &testBank{balances: make(map[string]uint64), frozen: make(map[string]bool)}
}

func bankKey(account, asset string) string { return account + "|" + asset }

func (b *testBank) fund(account, asset string, amount uint64) {
	b.balances[bankKey(account, asset)] += amount
}

func (b *testBank) balance(account, asset string) uint64 {
	return b.balances[bankKey(account, asset)]
}

func (b *testBank) Debit(account, asset string, amount uint64) error {
	key := bankKey(account, asset)
	if b.balances[key] < amount {
		return fmt.Errorf("account %s has %d, needs %d", account, b.balances[key], amount)
	}
	b.balances[key] -= amount
	return nil
}

func (b *testBank) Credit(account, asset string, amount uint64) error {
	if b.frozen[account] {
		return fmt.Errorf("account %s refuses funds", account)
	}
	if b.creditFailures > 0 {
		b.creditFailures--
		return fmt.Errorf("transient credit failure for %s", account)
	}
	b.balances[bankKey(account, asset)] += amount
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingNotifier struct {
	topics []string
}

func (n *recordingNotifier) Publish(topic string, _ interface{}) {
	n.topics = append(n.topics, topic)
}

func newTestLedger() (*Ledger, *testBank, *fakeClock) {
	bank := newTestBank()
	l := New("owner", DefaultParams(), bank)
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l.SetClock(clk.Now)
	return l, bank, clk
}

// assertConservation checks the core accounting invariant: custody equals
// the sum of pending amounts plus the accumulated fee balance, per asset.
func assertConservation(t *testing.T, l *Ledger, assets ...string) {
	t.Helper()
	for _, asset := range assets {
		var pendingSum uint64
		for _, id := range l.PendingTransfers() {
			if d := l.GetTransfer(id); d.Asset == asset {
				pendingSum += d.Amount
			}
		}
		assert.Equal(t, pendingSum+l.FeeBalance(asset), l.HeldBalance(asset),
			"conservation violated for asset %s", asset)
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 1_000_000)

	id, err := l.Create("alice", "bob", NativeAsset, 1, 1, "abcdefg")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	detail := l.GetTransfer(id)
	assert.Equal(t, "pending", detail.Status)
	assert.Equal(t, uint64(1), detail.Amount)
	assert.Equal(t, uint64(1), l.HeldBalance(NativeAsset), "amount 1 is below the fee floor, so held == amount")
	assertConservation(t, l, NativeAsset)

	id2, err := l.Create("alice", "bob", NativeAsset, 500, 505, "abcdefg")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id2)
	assert.Equal(t, uint64(2), l.TransferCount())
}

func TestCreateValidationOrder(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 1_000_000)
	require.NoError(t, l.SetMinAmount("owner", 10))

	cases := []struct {
		name     string
		receiver string
		asset    string
		amount   uint64
		password string
		want     error
	}{
		{"zero amount", "bob", NativeAsset, 0, "abcdefg", ErrZeroAmount},
		{"empty receiver", "", NativeAsset, 100, "abcdefg", ErrReceiverRequired},
		{"self transfer", "alice", NativeAsset, 100, "abcdefg", ErrSelfTransfer},
		{"unknown asset", "bob", "WIDGET", 100, "abcdefg", ErrAssetNotWhitelisted},
		{"below minimum", "bob", NativeAsset, 5, "abcdefg", ErrAmountBelowMinimum},
		{"empty password", "bob", NativeAsset, 100, "", ErrPasswordRequired},
		{"short password", "bob", NativeAsset, 100, "abc", ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Create("alice", tc.receiver, tc.asset, tc.amount, tc.amount*2, tc.password)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, uint64(0), l.TransferCount(), "failed creations must not consume ids")
}

func TestCreatePaymentShortfall(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 1_000_000)

	// 1% fee tier: amount 1000 costs 1010 in total.
	_, err := l.Create("alice", "bob", NativeAsset, 1000, 1009, "abcdefg")
	require.ErrorIs(t, err, ErrInsufficientPayment)
	assert.Contains(t, err.Error(), "required 1010")
	assert.Contains(t, err.Error(), "provided 1009")
	assert.Equal(t, uint64(1_000_000), bank.balance("alice", NativeAsset), "no funds move on a shortfall")
}

func TestCreateReturnsNativeExcess(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)

	_, err := l.Create("alice", "bob", NativeAsset, 1000, 5000, "abcdefg")
	require.NoError(t, err)

	// Total cost 1010; the 3990 excess comes straight back.
	assert.Equal(t, uint64(10_000-1010), bank.balance("alice", NativeAsset))
	assert.Equal(t, uint64(1010), l.HeldBalance(NativeAsset))
	assert.Equal(t, uint64(10), l.FeeBalance(NativeAsset))
	assertConservation(t, l, NativeAsset)
}

func TestCreateUnwindsFullPaymentWhenExcessReturnFails(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)

	// The excess credit fails once; the unwind credit that follows succeeds.
	bank.creditFailures = 1
	_, err := l.Create("alice", "bob", NativeAsset, 1000, 5000, "abcdefg")
	require.ErrorIs(t, err, ErrTransferFailed)

	assert.Equal(t, uint64(10_000), bank.balance("alice", NativeAsset), "the whole payment comes back, excess included")
	assert.Equal(t, uint64(0), l.TransferCount())
	assert.Zero(t, l.HeldBalance(NativeAsset))
	assert.Zero(t, l.FeeBalance(NativeAsset))
	assertConservation(t, l, NativeAsset)
}

func TestCreateTokenDebitsExactTotal(t *testing.T) {
	l, bank, _ := newTestLedger()
	require.NoError(t, l.AddAsset("owner", "WIDGET"))
	bank.fund("alice", "WIDGET", 10_000)

	_, err := l.Create("alice", "bob", "WIDGET", 1000, 5000, "abcdefg")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000-1010), bank.balance("alice", "WIDGET"), "token payments pull exactly amount plus fee")
	assertConservation(t, l, "WIDGET")
}

func TestCancelRefundsAmountNotFee(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)

	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	require.NoError(t, l.Cancel("alice", id))

	detail := l.GetTransfer(id)
	assert.Equal(t, "canceled", detail.Status)
	assert.Equal(t, uint64(0), detail.Amount)
	assert.Equal(t, uint64(10_000-10), bank.balance("alice", NativeAsset), "the fee stays with the ledger")
	assert.Equal(t, uint64(10), l.HeldBalance(NativeAsset))
	assert.Equal(t, []uint64{id}, l.CanceledBySender("alice"))
	assert.Empty(t, l.PendingTransfers())
	assertConservation(t, l, NativeAsset)
}

func TestCancelAuthorizationAndState(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	// The receiver cannot cancel; the ledger is untouched.
	assert.ErrorIs(t, l.Cancel("bob", id), ErrOnlySenderCanCancel)
	assert.Equal(t, "pending", l.GetTransfer(id).Status)
	assertConservation(t, l, NativeAsset)

	require.NoError(t, l.Cancel("alice", id))
	assert.ErrorIs(t, l.Cancel("alice", id), ErrTransferNotPending)
	assert.ErrorIs(t, l.Cancel("alice", 999), ErrTransferNotPending)
}

func TestClaimCooldownGate(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	err = l.Claim("bob", id, "abcdefg")
	require.ErrorIs(t, err, ErrCooldownActive)
	assert.Equal(t, "pending", l.GetTransfer(id).Status)

	clk.advance(l.Params().CooldownPeriod)
	require.NoError(t, l.Claim("bob", id, "abcdefg"))
	assert.Equal(t, uint64(1000), bank.balance("bob", NativeAsset))
	assert.Equal(t, "claimed", l.GetTransfer(id).Status)
	assert.Equal(t, []uint64{id}, l.ClaimedByReceiver("bob"))
	assertConservation(t, l, NativeAsset)
}

func TestClaimWrongPassword(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	clk.advance(time.Hour)

	assert.ErrorIs(t, l.Claim("bob", id, "abcdefh"), ErrIncorrectPassword)

	detail := l.GetTransfer(id)
	assert.Equal(t, "pending", detail.Status)
	assert.Equal(t, uint64(1000), detail.Amount)
	assert.Equal(t, uint64(0), bank.balance("bob", NativeAsset))

	// A failed attempt moves no clock; the right password works right away.
	require.NoError(t, l.Claim("bob", id, "abcdefg"))
}

func TestClaimAuthorization(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	clk.advance(time.Hour)

	assert.ErrorIs(t, l.Claim("carol", id, "abcdefg"), ErrInvalidReceiver)
	assert.ErrorIs(t, l.Claim("alice", id, "abcdefg"), ErrInvalidReceiver)
	assert.ErrorIs(t, l.Claim("bob", 999, "abcdefg"), ErrInvalidReceiver)
	assert.ErrorIs(t, l.Claim("bob", id, ""), ErrPasswordRequired)
}

func TestFailedClaimLeavesReceiverActivityUntouched(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	tracked := l.activity["bob"].LastInteraction

	clk.advance(time.Hour)
	bank.frozen["bob"] = true
	require.ErrorIs(t, l.Claim("bob", id, "abcdefg"), ErrTransferFailed)
	assert.Equal(t, "pending", l.GetTransfer(id).Status)
	assert.Equal(t, tracked, l.activity["bob"].LastInteraction, "a rolled-back claim is not an interaction")

	bank.frozen["bob"] = false
	require.NoError(t, l.Claim("bob", id, "abcdefg"))
	assert.True(t, l.activity["bob"].LastInteraction.After(tracked))
}

func TestRefundExpiryGate(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	assert.ErrorIs(t, l.Refund(id), ErrTransferNotExpired)
	assert.Equal(t, "pending", l.GetTransfer(id).Status)

	clk.advance(l.Params().AvailabilityPeriod)
	require.NoError(t, l.Refund(id))

	detail := l.GetTransfer(id)
	assert.Equal(t, "expired_and_refunded", detail.Status)
	assert.Equal(t, uint64(0), detail.Amount)
	assert.Equal(t, uint64(10_000-10), bank.balance("alice", NativeAsset))
	assert.Equal(t, []uint64{id}, l.ExpiredBySender("alice"))
	assertConservation(t, l, NativeAsset)

	assert.ErrorIs(t, l.Refund(id), ErrTransferNotPending)
}

func TestBatchRefundContinuesOnError(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	bank.fund("carol", NativeAsset, 10_000)

	idA, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	idC, err := l.Create("carol", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	clk.advance(l.Params().AvailabilityPeriod)
	due := l.RefundableTransfers()
	require.ElementsMatch(t, []uint64{idA, idC}, due)

	// Alice refuses the refund; Carol's must still go through.
	bank.frozen["alice"] = true
	results := l.RefundExpired(due)
	require.Len(t, results, 2)
	for _, res := range results {
		if res.ID == idA {
			assert.ErrorIs(t, res.Err, ErrTransferFailed)
		} else {
			assert.NoError(t, res.Err)
		}
	}
	assert.Equal(t, "pending", l.GetTransfer(idA).Status)
	assert.Equal(t, "expired_and_refunded", l.GetTransfer(idC).Status)
	assertConservation(t, l, NativeAsset)

	// Once the account accepts funds again the retry succeeds.
	bank.frozen["alice"] = false
	require.NoError(t, l.Refund(idA))
	assertConservation(t, l, NativeAsset)
}

func TestCustodyFailureUnwindsCancel(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	bank.frozen["alice"] = true
	err = l.Cancel("alice", id)
	require.ErrorIs(t, err, ErrTransferFailed)

	// Nothing observable changed: still pending, still indexed, custody intact.
	detail := l.GetTransfer(id)
	assert.Equal(t, "pending", detail.Status)
	assert.Equal(t, uint64(1000), detail.Amount)
	assert.Equal(t, []uint64{id}, l.PendingTransfers())
	assert.Equal(t, []uint64{id}, l.PendingBySender("alice"))
	assert.Equal(t, []uint64{id}, l.PendingByReceiver("bob"))
	assert.Empty(t, l.CanceledBySender("alice"))
	assertConservation(t, l, NativeAsset)

	bank.frozen["alice"] = false
	require.NoError(t, l.Cancel("alice", id))
}

func TestIDSequentialityAcrossInterleaving(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 1_000_000)

	for i := 0; i < 3; i++ {
		id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id)
	}
	require.NoError(t, l.Cancel("alice", 1))
	clk.advance(time.Hour)
	require.NoError(t, l.Claim("bob", 0, "abcdefg"))

	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id, "terminal transitions never free ids for reuse")
	assertConservation(t, l, NativeAsset)
}

func TestStatusMonotonicity(t *testing.T) {
	l, bank, clk := newTestLedger()
	bank.fund("alice", NativeAsset, 10_000)
	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)

	clk.advance(time.Hour)
	require.NoError(t, l.Claim("bob", id, "abcdefg"))

	// Every path out of a terminal state is shut.
	assert.ErrorIs(t, l.Cancel("alice", id), ErrTransferNotPending)
	assert.ErrorIs(t, l.Claim("bob", id, "abcdefg"), ErrTransferNotPending)
	clk.advance(l.Params().AvailabilityPeriod)
	assert.ErrorIs(t, l.Refund(id), ErrTransferNotPending)
	assert.Equal(t, "claimed", l.GetTransfer(id).Status)
}

func TestWithdrawFees(t *testing.T) {
	l, bank, _ := newTestLedger()
	bank.fund("alice", NativeAsset, 1_000_000)
	_, err := l.Create("alice", "bob", NativeAsset, 100_000, 100_500, "abcdefg")
	require.NoError(t, err)
	require.Equal(t, uint64(500), l.FeeBalance(NativeAsset))

	assert.ErrorIs(t, l.WithdrawFees("alice", NativeAsset, 100), ErrNotOwner)
	assert.ErrorIs(t, l.WithdrawFees("owner", NativeAsset, 0), ErrZeroAmount)
	assert.ErrorIs(t, l.WithdrawFees("owner", NativeAsset, 501), ErrInsufficientFeeBalance)

	require.NoError(t, l.WithdrawFees("owner", NativeAsset, 300))
	assert.Equal(t, uint64(300), bank.balance("owner", NativeAsset))
	assert.Equal(t, uint64(200), l.FeeBalance(NativeAsset))
	assertConservation(t, l, NativeAsset)

	// A rejected payout restores the balance.
	bank.frozen["owner"] = true
	assert.ErrorIs(t, l.WithdrawFees("owner", NativeAsset, 200), ErrTransferFailed)
	assert.Equal(t, uint64(200), l.FeeBalance(NativeAsset))
	assertConservation(t, l, NativeAsset)
}

func TestAllowlistLifecycle(t *testing.T) {
	l, bank, clk := newTestLedger()
	require.NoError(t, l.AddAsset("owner", "WIDGET"))
	assert.ErrorIs(t, l.AddAsset("owner", "WIDGET"), ErrAlreadyWhitelisted)
	assert.ErrorIs(t, l.AddAsset("mallory", "GADGET"), ErrNotOwner)

	bank.fund("alice", "WIDGET", 10_000)
	id, err := l.Create("alice", "bob", "WIDGET", 1000, 1010, "abcdefg")
	require.NoError(t, err)

	// Delisting blocks new creations but leaves the pending transfer operable.
	require.NoError(t, l.RemoveAsset("owner", "WIDGET"))
	_, err = l.Create("alice", "bob", "WIDGET", 1000, 1010, "abcdefg")
	assert.ErrorIs(t, err, ErrAssetNotWhitelisted)

	clk.advance(time.Hour)
	require.NoError(t, l.Claim("bob", id, "abcdefg"))
	assert.Equal(t, uint64(1000), bank.balance("bob", "WIDGET"))
	assertConservation(t, l, "WIDGET")

	// Fees accrued before delisting remain withdrawable.
	require.NoError(t, l.WithdrawFees("owner", "WIDGET", 10))
}

func TestParamSettersValidate(t *testing.T) {
	l, _, _ := newTestLedger()

	assert.ErrorIs(t, l.SetMinAmount("mallory", 5), ErrNotOwner)
	require.NoError(t, l.SetMinAmount("owner", 5))
	assert.Equal(t, uint64(5), l.Params().MinAmount)

	assert.Error(t, l.SetFeeScalingFactor("owner", 0))
	assert.Error(t, l.SetFeeLimits("owner", 500, 100), "limits must stay ordered")
	assert.Error(t, l.SetMinPasswordLength("owner", 0))
	assert.Error(t, l.SetCooldownPeriod("owner", int64(l.Params().AvailabilityPeriod/time.Second)+1))

	require.NoError(t, l.SetFeeLimits("owner", 100, 500))
	require.NoError(t, l.SetFeeTiers("owner", FeeTiers{LevelOne: 10, LevelTwo: 5, LevelThree: 1}))
}

func TestTransferOwnership(t *testing.T) {
	l, _, _ := newTestLedger()
	assert.ErrorIs(t, l.TransferOwnership("mallory", "mallory"), ErrNotOwner)
	require.NoError(t, l.TransferOwnership("owner", "owner2"))
	assert.Equal(t, "owner2", l.Owner())
	assert.ErrorIs(t, l.SetMinAmount("owner", 1), ErrNotOwner)
	require.NoError(t, l.SetMinAmount("owner2", 1))
}

func TestConservationAfterMixedSequence(t *testing.T) {
	l, bank, clk := newTestLedger()
	require.NoError(t, l.AddAsset("owner", "WIDGET"))
	bank.fund("alice", NativeAsset, 1_000_000)
	bank.fund("alice", "WIDGET", 1_000_000)
	bank.fund("carol", NativeAsset, 1_000_000)

	for i := 0; i < 4; i++ {
		_, err := l.Create("alice", "bob", NativeAsset, 2000, 2020, "abcdefg")
		require.NoError(t, err)
		_, err = l.Create("alice", "bob", "WIDGET", 3000, 3030, "abcdefg")
		require.NoError(t, err)
		_, err = l.Create("carol", "dave", NativeAsset, 15_000, 15_075, "abcdefg")
		require.NoError(t, err)
		assertConservation(t, l, NativeAsset, "WIDGET")
	}

	require.NoError(t, l.Cancel("alice", 0))
	clk.advance(time.Hour)
	require.NoError(t, l.Claim("bob", 1, "abcdefg"))
	require.NoError(t, l.Claim("dave", 2, "abcdefg"))
	assertConservation(t, l, NativeAsset, "WIDGET")

	clk.advance(l.Params().AvailabilityPeriod)
	l.RefundExpired(l.RefundableTransfers())
	assert.Empty(t, l.PendingTransfers())
	assertConservation(t, l, NativeAsset, "WIDGET")

	require.NoError(t, l.WithdrawFees("owner", NativeAsset, l.FeeBalance(NativeAsset)))
	assertConservation(t, l, NativeAsset, "WIDGET")
	assert.Equal(t, uint64(0), l.HeldBalance(NativeAsset))
}

func TestEventsEmitted(t *testing.T) {
	l, bank, clk := newTestLedger()
	rec := &recordingNotifier{}
	l.SetNotifier(rec)
	bank.fund("alice", NativeAsset, 100_000)

	id, err := l.Create("alice", "bob", NativeAsset, 1000, 1010, "abcdefg")
	require.NoError(t, err)
	clk.advance(time.Hour)
	require.NoError(t, l.Claim("bob", id, "abcdefg"))
	require.NoError(t, l.WithdrawFees("owner", NativeAsset, 10))

	assert.Equal(t, []string{TopicTransferCreated, TopicTransferClaimed, TopicFeesWithdrawn}, rec.topics)
}
