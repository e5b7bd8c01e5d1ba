// Package redis fans Herald cache invalidations out to other nodes over
// Redis pub/sub.
//
// A Bus is registered on every node twice: as a plugin, so local role and
// assignment writes are published, and through Subscribe, so writes made
// elsewhere clear the local caches.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/plugin"
	"github.com/xraph/herald/role"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "herald:events"

// EventType names an invalidation event.
type EventType string

const (
	// EventRolesChanged means the role set changed; every node drops its
	// role cache.
	EventRolesChanged EventType = "roles.changed"
	// EventInstanceChanged means one instance's assignments changed.
	EventInstanceChanged EventType = "instance.changed"
	// EventAssignmentsReset means assignments for many instances changed
	// at once, as when a role is deleted.
	EventAssignmentsReset EventType = "assignments.reset"
)

// Event is the JSON payload published on the channel.
type Event struct {
	Type       EventType `json:"type"`
	Origin     string    `json:"origin"`
	RoleID     string    `json:"role_id,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	At         time.Time `json:"at"`
}

// Invalidator is the part of the engine a subscriber drives.
type Invalidator interface {
	InvalidateRoles()
	InvalidateInstance(instanceID string)
	InvalidateAssignments()
}

// Bus publishes and consumes invalidation events.
type Bus struct {
	client  goredis.UniversalClient
	channel string
	nodeID  string
	logger  *slog.Logger
}

var (
	_ plugin.RoleCreated    = (*Bus)(nil)
	_ plugin.RoleUpdated    = (*Bus)(nil)
	_ plugin.RoleDeleted    = (*Bus)(nil)
	_ plugin.RoleAssigned   = (*Bus)(nil)
	_ plugin.RoleUnassigned = (*Bus)(nil)
)

// Option configures a Bus.
type Option func(*Bus)

// WithChannel overrides DefaultChannel.
func WithChannel(ch string) Option {
	return func(b *Bus) { b.channel = ch }
}

// WithNodeID sets the origin stamped on published events. Events carrying
// this node's ID are ignored by its own subscriber.
func WithNodeID(nodeID string) Option {
	return func(b *Bus) { b.nodeID = nodeID }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates a Bus over client.
func New(client goredis.UniversalClient, opts ...Option) *Bus {
	b := &Bus{
		client:  client,
		channel: DefaultChannel,
		nodeID:  id.New("node").String(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements plugin.Plugin.
func (b *Bus) Name() string { return "redis-bus" }

// NodeID returns the origin this bus stamps on events.
func (b *Bus) NodeID() string { return b.nodeID }

// Publish sends ev on the channel, filling Origin and At.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	ev.Origin = b.nodeID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("herald/redis: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("herald/redis: publish %s: %w", ev.Type, err)
	}
	return nil
}

func (b *Bus) OnRoleCreated(ctx context.Context, r *role.Role) error {
	return b.Publish(ctx, Event{Type: EventRolesChanged, RoleID: r.ID.String()})
}

func (b *Bus) OnRoleUpdated(ctx context.Context, r *role.Role) error {
	return b.Publish(ctx, Event{Type: EventRolesChanged, RoleID: r.ID.String()})
}

func (b *Bus) OnRoleDeleted(ctx context.Context, roleID id.RoleID) error {
	if err := b.Publish(ctx, Event{Type: EventRolesChanged, RoleID: roleID.String()}); err != nil {
		return err
	}
	return b.Publish(ctx, Event{Type: EventAssignmentsReset, RoleID: roleID.String()})
}

func (b *Bus) OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error {
	return b.Publish(ctx, Event{Type: EventInstanceChanged, RoleID: a.RoleID.String(), InstanceID: a.InstanceID})
}

func (b *Bus) OnRoleUnassigned(ctx context.Context, a *assignment.Assignment) error {
	return b.Publish(ctx, Event{Type: EventInstanceChanged, RoleID: a.RoleID.String(), InstanceID: a.InstanceID})
}

// Subscription is a running subscriber. Close it to stop.
type Subscription struct {
	pubsub *goredis.PubSub
	done   chan struct{}
	once   sync.Once
	err    error
}

// Subscribe starts applying remote events to inv. It returns once the
// subscription is confirmed by the server.
func (b *Bus) Subscribe(ctx context.Context, inv Invalidator) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("herald/redis: subscribe %s: %w", b.channel, err)
	}

	sub := &Subscription{pubsub: ps, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			b.apply(inv, msg.Payload)
		}
	}()
	return sub, nil
}

func (b *Bus) apply(inv Invalidator, payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		b.logger.Warn("herald/redis: dropping malformed event", slog.String("error", err.Error()))
		return
	}
	if ev.Origin == b.nodeID {
		return
	}

	switch ev.Type {
	case EventRolesChanged:
		inv.InvalidateRoles()
	case EventInstanceChanged:
		inv.InvalidateInstance(ev.InstanceID)
	case EventAssignmentsReset:
		inv.InvalidateAssignments()
	default:
		b.logger.Debug("herald/redis: ignoring event", slog.String("type", string(ev.Type)))
	}
}

// Done is closed when the subscription's receive loop exits.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unsubscribes and waits for the receive loop to exit.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
		<-s.done
		if errors.Is(s.err, goredis.ErrClosed) {
			s.err = nil
		}
	})
	return s.err
}
