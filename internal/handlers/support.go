package handlers

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/avvvet/deliverybuddy/internal/directory"
	"github.com/avvvet/deliverybuddy/internal/models"
)

// ErrInvalidRequest marks a chat request missing required fields.
var ErrInvalidRequest = errors.New("invalid request")

// OrderExtractor derives an order from user messages.
type OrderExtractor interface {
	Extract(history []string, current string) models.ExtractedOrder
}

// RestaurantSearcher produces restaurant candidates.
type RestaurantSearcher interface {
	Search(ctx context.Context, q directory.Query) []models.Restaurant
}

// Publisher receives order status events.
type Publisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event models.OrderEvent) error { return nil }

// Clock abstracts time so tests never sleep.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// randomDelay picks a duration in [min, max].
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

// KeyedMutex serializes work per session key. Different keys never block each other.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
