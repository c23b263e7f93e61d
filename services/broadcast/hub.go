package broadcastsvc

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/trezcool/darasa/core"
)

var ErrHubClosed = errors.New("broadcast hub is closed")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize bounds per-subscriber backlog; a subscriber that cannot
	// drain it loses events rather than stalling Publish (best-effort contract).
	sendBufSize = 64
)

// envelope is the wire format: the topic travels with every event so one
// connection can watch several topics.
type envelope struct {
	Topic string      `json:"topic"`
	Event interface{} `json:"event"`
}

type subscriber struct {
	id     string
	topics []string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (sub *subscriber) close() {
	sub.once.Do(func() {
		close(sub.send)
		_ = sub.conn.Close()
	})
}

// Hub is the websocket implementation of core.Broadcaster: a registry of
// subscriber connections keyed by topic. Publish fans an event out to every
// connection currently subscribed to the topic, in call order per topic.
type Hub struct {
	logger core.Logger

	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	closed bool
}

var _ core.Broadcaster = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger: logger,
		topics: make(map[string]map[string]*subscriber),
	}
}

func (h *Hub) Publish(topic string, event interface{}) error {
	payload, err := json.Marshal(envelope{Topic: topic, Event: event})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, sub := range h.topics[topic] {
		select {
		case sub.send <- payload:
		default:
			// slow consumer; drop rather than block the publisher
			h.logger.Warn("dropping event for slow subscriber", map[string]interface{}{"topic": topic, "subscriber": sub.id})
		}
	}
	return nil
}

// Subscribe registers conn on the given topics and takes over its lifecycle:
// the connection is closed and deregistered when the peer goes away or the
// hub shuts down.
func (h *Hub) Subscribe(conn *websocket.Conn, topics ...string) (string, error) {
	sub := &subscriber{
		id:     uuid.New().String(),
		topics: topics,
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", ErrHubClosed
	}
	for _, topic := range topics {
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[string]*subscriber)
			h.topics[topic] = subs
		}
		subs[sub.id] = sub
	}
	h.mu.Unlock()

	go h.writePump(sub)
	go h.readPump(sub)
	return sub.id, nil
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	for _, topic := range sub.topics {
		if subs, ok := h.topics[topic]; ok {
			delete(subs, sub.id)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Close tears down every subscriber connection. Further Publish/Subscribe
// calls fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, subs := range h.topics {
		for _, sub := range subs {
			sub.close()
		}
	}
	h.topics = make(map[string]map[string]*subscriber)
	return nil
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unsubscribe(sub)
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok { // hub closed the channel
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (subscribers are listen-only) and detects
// peer disconnects.
func (h *Hub) readPump(sub *subscriber) {
	defer h.unsubscribe(sub)

	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
