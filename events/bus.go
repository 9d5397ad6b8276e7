package events

import (
	"context"
	"errors"
	"sync"
)

// Handler consumes a screening event.
type Handler func(ctx context.Context, ev ScreeningCompleted) error

// Bus fans screening events out to in-process subscribers. Publish runs handlers
// synchronously so callers observe their errors.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, ev ScreeningCompleted) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
