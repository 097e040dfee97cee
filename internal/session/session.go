// Package session implements the login/signup stub. Any credentials are
// accepted after a simulated round-trip delay; the fabricated user record is
// kept in a local-storage slot per browser client.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stocktrend/internal/logger"
	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
)

// StorageKey is the local-storage slot holding the signed-in user.
const StorageKey = "stockpredict_user"

// DefaultDelay is the simulated authentication latency.
const DefaultDelay = time.Second

// State mirrors what the dashboard shows for the current client.
type State struct {
	User            *model.User `json:"user"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// Manager performs session operations against a Storage.
type Manager struct {
	store   Storage
	delay   time.Duration
	metrics *metrics.Metrics
}

// NewManager creates a Manager. A negative delay is treated as zero; m may be nil.
func NewManager(store Storage, delay time.Duration, m *metrics.Metrics) *Manager {
	if delay < 0 {
		delay = 0
	}
	return &Manager{store: store, delay: delay, metrics: m}
}

// Key returns the storage key for a client. An empty client maps to the bare key.
func Key(client string) string {
	if client == "" {
		return StorageKey
	}
	return client + "/" + StorageKey
}

// Login signs in with any email/password. The display name is the part of
// the email before the first "@".
func (m *Manager) Login(ctx context.Context, client, email, password string) (*model.User, error) {
	name, _, _ := strings.Cut(email, "@")
	return m.establish(ctx, "login", client, email, name)
}

// Signup registers any email/password/name combination.
func (m *Manager) Signup(ctx context.Context, client, email, password, name string) (*model.User, error) {
	return m.establish(ctx, "signup", client, email, name)
}

func (m *Manager) establish(ctx context.Context, op, client, email, name string) (*model.User, error) {
	if err := m.wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &model.User{ID: uuid.NewString(), Email: email, Name: name}
	raw, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("%s: encode user: %w", op, err)
	}
	if err := m.store.SetItem(ctx, Key(client), string(raw)); err != nil {
		return nil, fmt.Errorf("%s: store user: %w", op, err)
	}

	m.count(op)
	slog.Info("session established", append(logger.LogWithTrace(ctx), "op", op, "user_id", user.ID)...)
	return user, nil
}

// Logout clears the client's slot. It never waits.
func (m *Manager) Logout(ctx context.Context, client string) error {
	if err := m.store.RemoveItem(ctx, Key(client)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.count("logout")
	return nil
}

// Current returns the stored user for client, or nil when signed out.
func (m *Manager) Current(ctx context.Context, client string) (*model.User, error) {
	raw, ok, err := m.store.GetItem(ctx, Key(client))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &user, nil
}

// State wraps Current for the dashboard.
func (m *Manager) State(ctx context.Context, client string) (State, error) {
	user, err := m.Current(ctx, client)
	if err != nil {
		return State{}, err
	}
	return State{User: user, IsAuthenticated: user != nil}, nil
}

func (m *Manager) wait(ctx context.Context) error {
	if m.delay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Manager) count(op string) {
	if m.metrics != nil {
		m.metrics.SessionOps.WithLabelValues(op).Inc()
	}
}
