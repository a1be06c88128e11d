// Package event provides the notification and command bus used to expose the
// resolver to host applications.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventType represents the type of event.
type EventType string

const (
	ConfigResolved      EventType = "config.resolved"
	ConfigResolveFailed EventType = "config.resolve.failed"
	ConfigChanged       EventType = "config.changed"
)

var (
	// ErrNoHandler is returned by Trigger when nothing handles the name.
	ErrNoHandler = errors.New("no handler registered")
	// ErrHandlerExists is returned by Handle when the name is taken.
	ErrHandlerExists = errors.New("handler already registered")
	// ErrClosed is returned once the bus has been closed.
	ErrClosed = errors.New("event bus closed")
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

// Handler answers a named trigger. The payload and result are whatever the
// registering side documents for that name.
type Handler func(ctx context.Context, payload any) (any, error)

// subscriberEntry wraps a subscriber with an ID.
type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus manages pub/sub notifications and named command handlers.
// Subscribers are called directly so event data keeps its Go type; every
// published event is also forwarded as a JSON message to the watermill
// topic named after its type, which Stream exposes.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[EventType][]subscriberEntry
	handlers    map[string]Handler

	nextID       uint64
	closed       bool
	closedCancel context.CancelFunc
	closedCtx    context.Context
}

// globalBus is the default event bus instance.
var globalBus = newBus()

func newBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers:  make(map[EventType][]subscriberEntry),
		handlers:     make(map[string]Handler),
		closedCtx:    ctx,
		closedCancel: cancel,
	}
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	return newBus()
}

// Global returns the process-wide bus.
func Global() *Bus {
	return globalBus
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers fn for eventType. Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(eventType, id)
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Publish calls each subscriber in its own goroutine.
func (b *Bus) Publish(event Event) {
	subs, ok := b.collect(event.Type)
	if !ok {
		return
	}
	b.forward(event)

	for _, sub := range subs {
		go sub(event)
	}
}

func (b *Bus) collect(eventType EventType) ([]Subscriber, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false
	}

	subs := make([]Subscriber, 0, len(b.subscribers[eventType]))
	for _, entry := range b.subscribers[eventType] {
		subs = append(subs, entry.fn)
	}
	return subs, true
}

// forward publishes the JSON form of event on its watermill topic. Events
// whose data cannot be encoded are only delivered to direct subscribers.
func (b *Bus) forward(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set("type", string(event.Type))
	_ = b.pubsub.Publish(string(event.Type), msg)
}

// Stream returns the JSON messages published for eventType until ctx is
// done. Consumers must Ack each message.
func (b *Bus) Stream(ctx context.Context, eventType EventType) (<-chan *message.Message, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	return b.pubsub.Subscribe(ctx, string(eventType))
}

// Handle registers h under name. It returns a function removing the
// registration.
func (b *Bus) Handle(name string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if _, ok := b.handlers[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	b.handlers[name] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, name)
	}, nil
}

// Trigger invokes the handler registered under name.
func (b *Bus) Trigger(ctx context.Context, name string, payload any) (any, error) {
	b.mu.RLock()
	h, ok := b.handlers[name]
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, name)
	}
	return h(ctx, payload)
}

// Handlers returns the registered trigger names, sorted.
func (b *Bus) Handlers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the bus, dropping subscribers and handlers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.closedCancel()

	b.subscribers = make(map[EventType][]subscriberEntry)
	b.handlers = make(map[string]Handler)
	b.mu.Unlock()

	return b.pubsub.Close()
}
