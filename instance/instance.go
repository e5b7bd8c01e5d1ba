// Package instance describes the federated peers roles are resolved for.
// Instances are owned by the host application; herald only reads them
// through a Provider.
package instance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/herald/condition"
)

// ErrNotFound is returned by providers for an unknown instance.
var ErrNotFound = errors.New("herald: instance not found")

// Instance is a remote server and its current counters.
type Instance struct {
	ID             string    `json:"id"`
	Host           string    `json:"host"`
	CreatedAt      time.Time `json:"created_at"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	NotesCount     int64     `json:"notes_count"`
}

// Metrics returns the snapshot condition trees are evaluated against.
func (i *Instance) Metrics() condition.Metrics {
	return condition.Metrics{
		CreatedAt:      i.CreatedAt,
		FollowersCount: i.FollowersCount,
		FollowingCount: i.FollowingCount,
		NotesCount:     i.NotesCount,
	}
}

// Provider looks up instances by ID.
type Provider interface {
	GetInstance(ctx context.Context, instanceID string) (*Instance, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, instanceID string) (*Instance, error)

func (f ProviderFunc) GetInstance(ctx context.Context, instanceID string) (*Instance, error) {
	return f(ctx, instanceID)
}

// Memory is an in-memory Provider, useful for tests and single-node setups
// that mirror instance counters into herald.
type Memory struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

var _ Provider = (*Memory)(nil)

// NewMemory returns an empty Memory provider.
func NewMemory() *Memory {
	return &Memory{instances: make(map[string]*Instance)}
}

// Put stores a copy of inst, replacing any previous value.
func (m *Memory) Put(inst *Instance) {
	cp := *inst
	m.mu.Lock()
	m.instances[inst.ID] = &cp
	m.mu.Unlock()
}

// Remove deletes an instance.
func (m *Memory) Remove(instanceID string) {
	m.mu.Lock()
	delete(m.instances, instanceID)
	m.mu.Unlock()
}

func (m *Memory) GetInstance(_ context.Context, instanceID string) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	cp := *inst
	return &cp, nil
}
