package broadcastsvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	logsvc "github.com/trezcool/darasa/services/logger"
)

type testEvent struct {
	N int `json:"n"`
}

// startHubServer upgrades every request and subscribes the connection to the
// given topics, signalling on ready once the hub has registered it.
func startHubServer(t *testing.T, hub *Hub, ready chan<- struct{}, topics ...string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade(): %v", err)
			return
		}
		if _, err := hub.Subscribe(conn, topics...); err != nil {
			t.Errorf("Subscribe(): %v", err)
			return
		}
		ready <- struct{}{}
	}))
}

func newTestHub() *Hub {
	logger := logsvc.NewStdLogger(nil)
	logger.Enable(false)
	return NewHub(logger)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Dial(): %v", err)
	}
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, testEvent) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage(): %v", err)
	}
	var env struct {
		Topic string    `json:"topic"`
		Event testEvent `json:"event"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("unmarshalling %s: %v", payload, err)
	}
	return env.Topic, env.Event
}

func TestHub_Publish(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ready := make(chan struct{}, 2)
	srv := startHubServer(t, hub, ready, "class:1")
	defer srv.Close()

	sub1 := dialWS(t, srv)
	defer sub1.Close()
	sub2 := dialWS(t, srv)
	defer sub2.Close()
	<-ready
	<-ready

	t.Run("publishing without subscribers is fine", func(t *testing.T) {
		if err := hub.Publish("class:99", testEvent{N: 1}); err != nil {
			t.Errorf("Publish(): %v", err)
		}
	})

	t.Run("fans out to every subscriber in order", func(t *testing.T) {
		if err := hub.Publish("class:1", testEvent{N: 1}); err != nil {
			t.Fatalf("Publish(): %v", err)
		}
		if err := hub.Publish("class:1", testEvent{N: 2}); err != nil {
			t.Fatalf("Publish(): %v", err)
		}

		for _, conn := range []*websocket.Conn{sub1, sub2} {
			for want := 1; want <= 2; want++ {
				topic, ev := readEnvelope(t, conn)
				if topic != "class:1" || ev.N != want {
					t.Errorf("got topic %q event %+v, want class:1 n=%d", topic, ev, want)
				}
			}
		}
	})
}

func TestHub_multipleTopics(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ready := make(chan struct{}, 1)
	srv := startHubServer(t, hub, ready, "teacher:7", "class:1")
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()
	<-ready

	if err := hub.Publish("teacher:7", testEvent{N: 1}); err != nil {
		t.Fatalf("Publish(): %v", err)
	}
	if err := hub.Publish("class:1", testEvent{N: 2}); err != nil {
		t.Fatalf("Publish(): %v", err)
	}

	if topic, ev := readEnvelope(t, conn); topic != "teacher:7" || ev.N != 1 {
		t.Errorf("got %q %+v", topic, ev)
	}
	if topic, ev := readEnvelope(t, conn); topic != "class:1" || ev.N != 2 {
		t.Errorf("got %q %+v", topic, ev)
	}
}

func TestHub_unsubscribeOnDisconnect(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ready := make(chan struct{}, 1)
	srv := startHubServer(t, hub, ready, "class:1")
	defer srv.Close()

	conn := dialWS(t, srv)
	<-ready
	_ = conn.Close()

	// readPump notices the disconnect and deregisters the subscriber
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		_, ok := hub.topics["class:1"]
		hub.mu.RUnlock()
		if !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Publish("class:1", testEvent{N: 1}); err != nil {
		t.Errorf("Publish() after disconnect: %v", err)
	}
}

func TestHub_Close(t *testing.T) {
	hub := newTestHub()

	ready := make(chan struct{}, 1)
	srv := startHubServer(t, hub, ready, "class:1")
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()
	<-ready

	if err := hub.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if err := hub.Close(); err != nil { // idempotent
		t.Errorf("Close() again: %v", err)
	}

	if err := hub.Publish("class:1", testEvent{N: 1}); err != ErrHubClosed {
		t.Errorf("Publish() error = %v, wantErr %v", err, ErrHubClosed)
	}
	if _, err := hub.Subscribe(nil); err != ErrHubClosed {
		t.Errorf("Subscribe() error = %v, wantErr %v", err, ErrHubClosed)
	}
}
