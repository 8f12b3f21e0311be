package events

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus fans ledger notifications out to in-process subscribers. It satisfies
// the ledger's Notifier interface so the ledger never imports this package.
type Bus struct {
	bus evbus.Bus
}

func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish delivers payload to every subscriber of topic. Delivery is
// asynchronous so a slow subscriber cannot stall a ledger operation.
func (b *Bus) Publish(topic string, payload interface{}) {
	b.bus.Publish(topic, payload)
}

func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.SubscribeAsync(topic, fn, false)
}

func (b *Bus) SubscribeSync(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// WaitAsync blocks until all asynchronous deliveries have finished. Tests
// use it to observe events deterministically.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
