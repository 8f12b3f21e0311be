package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var seen []ledger.TransferEvent
	err := bus.Subscribe(ledger.TopicTransferCreated, func(payload interface{}) {
		ev, ok := payload.(ledger.TransferEvent)
		require.True(t, ok)
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	bus.Publish(ledger.TopicTransferCreated, ledger.TransferEvent{ID: 7, Sender: "alice"})
	bus.Publish(ledger.TopicTransferClaimed, ledger.TransferEvent{ID: 7})
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, uint64(7), seen[0].ID)
	assert.Equal(t, "alice", seen[0].Sender)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	count := 0
	handler := func(payload interface{}) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	require.NoError(t, bus.Subscribe(ledger.TopicFeesWithdrawn, handler))
	bus.Publish(ledger.TopicFeesWithdrawn, ledger.FeeWithdrawalEvent{Asset: "native", Amount: 5})
	bus.WaitAsync()

	require.NoError(t, bus.Unsubscribe(ledger.TopicFeesWithdrawn, handler))
	bus.Publish(ledger.TopicFeesWithdrawn, ledger.FeeWithdrawalEvent{Asset: "native", Amount: 5})
	bus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
