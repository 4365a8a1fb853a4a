// Package live streams analytics updates to survey owners over websockets.
package live

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// subscriberBuffer is how many updates may queue before a slow client
	// starts missing them
	subscriberBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Subscription receives encoded updates for one survey
type Subscription struct {
	surveyID uuid.UUID
	updates  chan []byte
}

// Updates returns the channel of JSON-encoded messages
func (s *Subscription) Updates() <-chan []byte {
	return s.updates
}

// Hub fans survey updates out to subscribers
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscription]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[*Subscription]struct{})}
}

// Subscribe registers interest in surveyID
func (h *Hub) Subscribe(surveyID uuid.UUID) *Subscription {
	sub := &Subscription{surveyID: surveyID, updates: make(chan []byte, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[surveyID] == nil {
		h.subs[surveyID] = make(map[*Subscription]struct{})
	}
	h.subs[surveyID][sub] = struct{}{}
	telemetry.LiveSubscribers.Inc()
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.surveyID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.surveyID)
	}
	close(sub.updates)
	telemetry.LiveSubscribers.Dec()
}

// Subscribers returns the number of subscribers for surveyID
func (h *Hub) Subscribers(surveyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[surveyID])
}

// Publish sends v as JSON to every subscriber of surveyID. Subscribers whose
// buffer is full skip the update.
func (h *Hub) Publish(surveyID uuid.UUID, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[surveyID] {
		select {
		case sub.updates <- data:
		default:
			log.Printf("Dropping live update for slow subscriber on survey %s", surveyID)
		}
	}
	return nil
}

// ServeWS upgrades the request, sends initial (when non-nil) and then streams
// updates for surveyID until the client disconnects
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, surveyID uuid.UUID, initial interface{}) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}
	defer conn.Close()

	sub := h.Subscribe(surveyID)
	defer h.Unsubscribe(sub)

	if initial != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(initial); err != nil {
			return fmt.Errorf("failed to send initial state: %w", err)
		}
	}

	// The read loop only exists to notice the client going away and to
	// process pong frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case msg, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("failed to write update: %w", err)
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("failed to ping: %w", err)
			}
		}
	}
}
