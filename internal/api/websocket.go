package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		allowed := viper.GetString("allowed_origin")
		if allowed == "" || allowed == "*" {
			return true
		}
		return r.Header.Get("Origin") == allowed
	},
}

// wsEvent is one frame pushed to a websocket subscriber.
type wsEvent struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

var streamedTopics = []string{
	ledger.TopicTransferCreated,
	ledger.TopicTransferCanceled,
	ledger.TopicTransferClaimed,
	ledger.TopicTransferRefunded,
	ledger.TopicFeesWithdrawn,
	ledger.TopicMaintenanceDone,
}

// EventStreamHandler upgrades the connection and relays every ledger event
// until the client disconnects.
func (a *API) EventStreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading websocket connection: %v", err)
		return
	}

	// Buffered so a burst of ledger activity does not block publishers.
	frames := make(chan wsEvent, 64)

	handlers := make(map[string]func(interface{}), len(streamedTopics))
	for _, topic := range streamedTopics {
		topic := topic
		handler := func(payload interface{}) {
			select {
			case frames <- wsEvent{Topic: topic, Payload: payload}:
			default:
				log.Printf("Dropping event on slow websocket client: %s", topic)
			}
		}
		handlers[topic] = handler
		if err := a.Bus.Subscribe(topic, handler); err != nil {
			log.Printf("Error subscribing to %s: %v", topic, err)
		}
	}

	unsubscribe := func() {
		for topic, handler := range handlers {
			if err := a.Bus.Unsubscribe(topic, handler); err != nil {
				log.Printf("Error unsubscribing from %s: %v", topic, err)
			}
		}
	}

	done := make(chan struct{})

	// Reader goroutine just watches for the client going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			unsubscribe()
			conn.Close()
		}()
		for {
			select {
			case frame := <-frames:
				if err := conn.WriteJSON(frame); err != nil {
					log.Printf("Error writing websocket frame: %v", err)
					return
				}
			case <-done:
				return
			}
		}
	}()
}
