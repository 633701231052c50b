package table

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrSubscriberExists   = errors.New("table: subscriber already exists")
	ErrSubscriberNotFound = errors.New("table: subscriber not found")
	ErrNilChannel         = errors.New("table: nil channel")
)

// EventKind identifies a table change.
type EventKind int

const (
	EventHeaderAdded EventKind = iota
	EventRowAdded
	EventCellUpdated
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventHeaderAdded:
		return "header_added"
	case EventRowAdded:
		return "row_added"
	case EventCellUpdated:
		return "cell_updated"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event describes one change applied to the table. Row and Column are
// indexes at the time of the change; Column counts the Timestamp column.
type Event struct {
	Kind   EventKind
	Row    int
	Column int
	Name   string
}

// DeliveryStats counts events sent to and dropped for one subscriber.
type DeliveryStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	ch      chan<- Event
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// eventBus fans events out to subscriber channels with drop-new semantics
// so a slow reader never stalls the ingestion path.
type eventBus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber

	dropCount atomic.Int64
	lastDrop  atomic.Int64 // unix seconds of last drop log
}

func newEventBus() *eventBus {
	return &eventBus{subscribers: make(map[string]*subscriber)}
}

func (b *eventBus) subscribe(id string, ch chan<- Event) error {
	if ch == nil {
		return ErrNilChannel
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	b.subscribers[id] = &subscriber{ch: ch}
	return nil
}

func (b *eventBus) unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

func (b *eventBus) stats(id string) (DeliveryStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subscribers[id]
	if !ok {
		return DeliveryStats{}, ErrSubscriberNotFound
	}
	return DeliveryStats{Sent: sub.sent.Load(), Dropped: sub.dropped.Load()}, nil
}

func (b *eventBus) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
			b.logDrop()
		}
	}
}

// logDrop emits a throttled warning, at most once per 10 seconds.
func (b *eventBus) logDrop() {
	count := b.dropCount.Add(1)
	now := time.Now().Unix()
	last := b.lastDrop.Load()
	if now-last >= 10 && b.lastDrop.CompareAndSwap(last, now) {
		log.Printf("table: %d change events dropped (subscriber channel full)", count)
	}
}
