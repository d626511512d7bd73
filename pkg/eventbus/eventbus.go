package eventbus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is anything published on the bus.
type Event interface {
	Name() string
}

// Listener handles one event.
type Listener func(ctx context.Context, event Event) error

const wildcard = "*"

type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	timeout   time.Duration
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		timeout:   time.Minute,
		logger:    logger,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// SubscribeAll registers a listener for every event name.
func (b *Bus) SubscribeAll(listener Listener) {
	b.Subscribe(wildcard, listener)
}

// Publish runs every matching listener in its own goroutine with a bounded
// context detached from the publisher's. Listener errors and panics are
// logged, never returned.
func (b *Bus) Publish(ctx context.Context, event Event) {
	eventName := event.Name()

	b.mu.RLock()
	targets := make([]Listener, 0, len(b.listeners[eventName])+len(b.listeners[wildcard]))
	targets = append(targets, b.listeners[eventName]...)
	targets = append(targets, b.listeners[wildcard]...)
	b.mu.RUnlock()

	for _, listener := range targets {
		b.wg.Add(1)
		go func(l Listener) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event listener panicked", zap.String("event", eventName), zap.Any("panic", r))
				}
			}()

			ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
			defer cancel()

			if err := l(ctxWithTimeout, event); err != nil {
				b.logger.Error("event listener failed",
					zap.String("event", eventName),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait blocks until all in-flight listeners return.
func (b *Bus) Wait() {
	b.wg.Wait()
}
