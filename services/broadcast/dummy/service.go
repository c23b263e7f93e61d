package dummybroadcast

import (
	"sync"

	"github.com/trezcool/darasa/core"
)

// Service records published events in memory for assertion in tests.
type Service struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

var _ core.Broadcaster = (*Service)(nil)

func NewServiceMock() *Service {
	return &Service{events: make(map[string][]interface{})}
}

func (svc *Service) Publish(topic string, event interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.events[topic] = append(svc.events[topic], event)
	return nil
}

// Events returns everything published on topic, in publish order.
func (svc *Service) Events(topic string) []interface{} {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]interface{}(nil), svc.events[topic]...)
}

func (svc *Service) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.events = make(map[string][]interface{})
}
