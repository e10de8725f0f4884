package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/deliverybuddy/internal/models"
)

const (
	sessionPrefix      = "session:"
	dispatchPrefix     = "dispatch:"
	conversationPrefix = "conversation:"
)

// Manager stores sessions, dispatched orders and restaurant conversation logs as JSON
// documents in a Store.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a new session repository
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
	}
}

func sessionKey(sessionID string) string      { return sessionPrefix + sessionID }
func dispatchKey(sessionID string) string     { return dispatchPrefix + sessionID }
func conversationKey(sessionID string) string { return conversationPrefix + sessionID }

// GetOrCreateSession loads a session, creating a fresh collecting_info one for an
// unseen id. The new session is not saved until SaveSession.
func (m *Manager) GetOrCreateSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := m.load(ctx, sessionKey(sessionID), &session)
	if errors.Is(err, ErrNotFound) {
		return models.NewSession(sessionID, m.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

func (m *Manager) SaveSession(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = m.now()
	return m.save(ctx, sessionKey(session.ID), session)
}

// GetDispatch returns the dispatched order for a session, or ErrNotFound.
func (m *Manager) GetDispatch(ctx context.Context, sessionID string) (*models.DispatchedOrder, error) {
	var order models.DispatchedOrder
	if err := m.load(ctx, dispatchKey(sessionID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *Manager) SaveDispatch(ctx context.Context, order *models.DispatchedOrder) error {
	order.UpdatedAt = m.now()
	return m.save(ctx, dispatchKey(order.SessionID), order)
}

func (m *Manager) DeleteDispatch(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, dispatchKey(sessionID))
}

// ListDispatches returns every dispatched order. Records that vanish or fail to decode
// between listing and loading are skipped.
func (m *Manager) ListDispatches(ctx context.Context) ([]*models.DispatchedOrder, error) {
	keys, err := m.store.Keys(ctx, dispatchPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}

	orders := make([]*models.DispatchedOrder, 0, len(keys))
	for _, key := range keys {
		var order models.DispatchedOrder
		if err := m.load(ctx, key, &order); err != nil {
			continue
		}
		orders = append(orders, &order)
	}
	return orders, nil
}

// FindDispatch picks, among the orders accepted by match, the newest one still waiting on
// the restaurant (not yet out for delivery). When every match already left, the newest
// match is returned.
func (m *Manager) FindDispatch(ctx context.Context, match func(*models.DispatchedOrder) bool) (*models.DispatchedOrder, error) {
	orders, err := m.ListDispatches(ctx)
	if err != nil {
		return nil, err
	}

	var open, newest *models.DispatchedOrder
	for _, o := range orders {
		if !match(o) {
			continue
		}
		if newest == nil || o.CreatedAt.After(newest.CreatedAt) {
			newest = o
		}
		if o.Status != models.OrderOutForDelivery && (open == nil || o.CreatedAt.After(open.CreatedAt)) {
			open = o
		}
	}

	switch {
	case open != nil:
		return open, nil
	case newest != nil:
		return newest, nil
	}
	return nil, ErrNotFound
}

// Conversation returns the restaurant conversation log of a session, oldest first.
func (m *Manager) Conversation(ctx context.Context, sessionID string) ([]models.ConversationEntry, error) {
	var entries []models.ConversationEntry
	err := m.load(ctx, conversationKey(sessionID), &entries)
	if errors.Is(err, ErrNotFound) {
		return []models.ConversationEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return entries, nil
}

// AppendConversation adds entries to the log, stamping those without a timestamp.
func (m *Manager) AppendConversation(ctx context.Context, sessionID string, entries ...models.ConversationEntry) error {
	log, err := m.Conversation(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = m.now()
		}
		e.Content = strings.TrimSpace(e.Content)
		log = append(log, e)
	}
	return m.save(ctx, conversationKey(sessionID), log)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (m *Manager) load(ctx context.Context, key string, v interface{}) error {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

func (m *Manager) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := m.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
