package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/slogx"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/panics"
)

// RedeemedEvent is dispatched inside the redemption transaction, before the
// password is set. Listeners that write through Tx commit or roll back with
// the redemption.
type RedeemedEvent struct {
	Invitation domain.Invitation
	User       domain.User
	Form       Form
	Tx         store.Tx
}

// Listener reacts to a redeemed invitation. Returned errors and panics are
// logged and otherwise ignored.
type Listener func(ctx context.Context, ev RedeemedEvent) error

type ListenerResult struct {
	Name string
	Err  error
}

type namedListener struct {
	name string
	fn   Listener
}

// Dispatcher fans a RedeemedEvent out to subscribers in subscription order.
// A nil *Dispatcher has no subscribers.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []namedListener
}

func NewDispatcher() *Dispatcher { return &Dispatcher{} }

func (d *Dispatcher) Subscribe(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, namedListener{name: name, fn: l})
}

// Dispatch calls every listener, isolating each from the others' failures.
// The results are returned for inspection; nothing a listener does can fail
// the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, ev RedeemedEvent) []ListenerResult {
	if d == nil {
		return nil
	}
	log := slogx.FromContext(ctx)

	d.mu.RLock()
	listeners := append([]namedListener(nil), d.listeners...)
	d.mu.RUnlock()

	results := make([]ListenerResult, 0, len(listeners))
	for _, l := range listeners {
		var err error
		if r := panics.Try(func() { err = l.fn(ctx, ev) }); r != nil {
			err = r.AsError()
		}
		if err != nil {
			log.Error("invitation redeemed listener failed",
				slog.String("listener", l.name),
				slog.String("invitation_id", ev.Invitation.ID),
				slog.Any("error", err),
			)
		}
		results = append(results, ListenerResult{Name: l.name, Err: err})
	}
	return results
}

// RedisPublisher announces redemptions on a redis pub/sub channel so other
// services can react. The invitation code is never published.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string

	Now func() time.Time
}

// DefaultRedisChannel is used when no channel is configured.
const DefaultRedisChannel = "invite.redeemed"

func NewRedisPublisher(redisURL, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{Client: redis.NewClient(opts), Channel: channel}, nil
}

// RedeemedMessage is the JSON payload published for each redemption.
type RedeemedMessage struct {
	Event        string    `json:"event"`
	InvitationID string    `json:"invitation_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	InvitedBy    string    `json:"invited_by"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

// Publish is a Listener.
func (p *RedisPublisher) Publish(ctx context.Context, ev RedeemedEvent) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	payload, err := json.Marshal(RedeemedMessage{
		Event:        "invitation.redeemed",
		InvitationID: ev.Invitation.ID,
		UserID:       ev.User.ID,
		Username:     ev.User.Username,
		InvitedBy:    ev.Invitation.FromUserID,
		RedeemedAt:   now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, p.Channel, payload).Err()
}

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.Client.Close()
}
