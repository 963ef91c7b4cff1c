package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"messenger/internal/metrics"
	"messenger/pkg/types"
)

// Dispatcher decouples the read pump from subscriber handlers: events are
// queued on a buffered channel and fanned out from a single goroutine, so
// handlers observe push events strictly in arrival order.
type Dispatcher struct {
	events   chan types.Event
	registry *SubscriptionRegistry
	shutdown chan struct{}
	running  bool
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *SubscriptionRegistry, buffer int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		events:   make(chan types.Event, buffer),
		registry: registry,
		shutdown: make(chan struct{}),
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// Start begins event processing on a background goroutine.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrDispatcherAlreadyRunning
	}
	d.running = true
	d.mu.Unlock()

	go d.run(ctx)
	return nil
}

// Stop halts event processing. Queued events are dropped.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrDispatcherNotRunning
	}
	d.running = false

	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}
	return nil
}

// Dispatch queues one event. Non-blocking so a slow handler can never
// stall the websocket read pump.
func (d *Dispatcher) Dispatch(evt types.Event) error {
	d.mu.RLock()
	if !d.running {
		d.mu.RUnlock()
		return ErrDispatcherNotRunning
	}
	d.mu.RUnlock()

	select {
	case d.events <- evt:
		return nil
	default:
		return ErrEventChannelFull
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case evt := <-d.events:
			d.route(evt)
		case <-d.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// route fans one event out to its subscribers. The switch is exhaustive
// over the known event names; anything else is counted and logged but not
// delivered, since no component can have subscribed to it meaningfully.
func (d *Dispatcher) route(evt types.Event) {
	switch evt.Name {
	case types.EventChatMessage, types.EventTyping, types.EventConversationUpdated:
		metrics.GatewayEvents.WithLabelValues(evt.Name).Inc()
		d.registry.dispatch(evt)
	default:
		metrics.GatewayEvents.WithLabelValues("unknown").Inc()
		d.log.Warn().Str("event", evt.Name).Msg("dropping unknown gateway event")
	}
}
