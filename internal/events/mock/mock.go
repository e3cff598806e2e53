// Package mock provides a test double for the event publisher.
package mock

import (
	"context"
	"sync"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/events"
)

var _ events.Publisher = (*Publisher)(nil)

// Publisher is a test double for events.Publisher.
type Publisher struct {
	mu sync.Mutex

	PublishFn func(ctx context.Context, event *domain.Event) error
	ReadyFn   func() error

	Published []*domain.Event
}

func (m *Publisher) Publish(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	m.Published = append(m.Published, event)
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, event)
	}
	return nil
}

func (m *Publisher) Ready() error {
	if m.ReadyFn != nil {
		return m.ReadyFn()
	}
	return nil
}

func (m *Publisher) Close() error { return nil }

// ByName returns the published events carrying the given name.
func (m *Publisher) ByName(name string) []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Event
	for _, e := range m.Published {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
