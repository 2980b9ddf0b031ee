// Package eventbus is an in-memory ring buffer of typed events consumed
// by the operator TUI and robot CLI collaborators. It is a
// single-producer, multiple-consumer broadcast: every Subscriber gets its
// own read cursor over a shared, fixed-size backing array; a slow
// subscriber that falls behind the write cursor by more than the ring's
// capacity loses the overwritten entries and receives a "missed-N"
// marker on its next Next call rather than blocking the producer.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind enumerates the event types the core publishes.
type Kind string

const (
	KindMessageSent         Kind = "message_sent"
	KindMessageRead         Kind = "message_read"
	KindMessageAcked        Kind = "message_acked"
	KindReservationCreated  Kind = "reservation_created"
	KindReservationReleased Kind = "reservation_released"
	KindReservationConflict Kind = "reservation_conflict"
	KindContactRequested    Kind = "contact_requested"
	KindContactApproved     Kind = "contact_approved"
)

// Event is one published occurrence. Payload is kind-specific and left
// as `any` because the bus is a pure transport: it does not interpret
// events, only distributes them.
type Event struct {
	Kind      Kind
	ProjectID int64
	Payload   any
}

// Bus is a fixed-capacity ring buffer. Writes never block: once the ring
// wraps, the oldest unread-by-everyone entry is simply overwritten, and
// lagging subscribers detect the gap via their own cursor arithmetic.
type Bus struct {
	capacity uint64
	mask     uint64
	slots    []slot

	writeCursor atomic.Uint64

	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
}

type slot struct {
	seq   atomic.Uint64 // 1-based sequence number written into this slot, 0 if never written
	event Event
}

// New creates a Bus whose capacity is rounded up to the next power of two
// (required for the mask-based index arithmetic).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1024
	}
	n := uint64(1)
	for n < uint64(capacity) {
		n <<= 1
	}
	return &Bus{
		capacity:    n,
		mask:        n - 1,
		slots:       make([]slot, n),
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Publish writes an event into the ring. Lock-free with respect to
// readers: the sequence number is bumped after the payload is written, so
// a reader observing seq==N is guaranteed to see the Nth event's payload,
// not a torn write.
func (b *Bus) Publish(e Event) {
	seq := b.writeCursor.Add(1)
	idx := (seq - 1) & b.mask
	b.slots[idx].event = e
	b.slots[idx].seq.Store(seq)
}

// Subscribe registers a new consumer starting at the current write
// cursor (it sees only events published after this call).
func (b *Bus) Subscribe() *Subscriber {
	sub := &Subscriber{bus: b, id: uuid.New().String()}
	sub.readCursor.Store(b.writeCursor.Load())

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber. Safe to call more than once.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()
}

// Subscriber is one consumer's read cursor into the shared ring. Each
// gets a random id so the robot CLI and operator TUI can tell lagging
// subscribers apart in diagnostics without leaking internal pointers.
type Subscriber struct {
	bus        *Bus
	id         string
	readCursor atomic.Uint64
}

// ID returns the subscriber's random identifier, minted once at Subscribe time.
func (s *Subscriber) ID() string { return s.id }

// Next returns the next event after the subscriber's cursor, or ok=false
// if the subscriber is caught up to the write cursor. If the producer has
// overwritten entries the subscriber hasn't read yet (missed > 0), Next
// first fast-forwards the cursor to the oldest still-available entry and
// reports how many were skipped.
func (s *Subscriber) Next() (ev Event, missed uint64, ok bool) {
	write := s.bus.writeCursor.Load()
	read := s.readCursor.Load()
	if read >= write {
		return Event{}, 0, false
	}

	oldestAvailable := uint64(0)
	if write > s.bus.capacity {
		oldestAvailable = write - s.bus.capacity
	}
	if read < oldestAvailable {
		missed = oldestAvailable - read
		read = oldestAvailable
	}

	nextSeq := read + 1
	idx := (nextSeq - 1) & s.bus.mask
	slotSeq := s.bus.slots[idx].seq.Load()
	if slotSeq != nextSeq {
		// The producer has already lapped this slot again since we
		// computed oldestAvailable; treat as an additional miss and
		// resynchronize to the slot's actual sequence.
		missed += slotSeq - nextSeq
		s.readCursor.Store(slotSeq)
		return s.bus.slots[idx].event, missed, true
	}

	ev = s.bus.slots[idx].event
	s.readCursor.Store(nextSeq)
	return ev, missed, true
}

// Pending reports how many events are available to this subscriber
// without consuming them, for poll-driven consumers (the robot CLI).
func (s *Subscriber) Pending() uint64 {
	write := s.bus.writeCursor.Load()
	read := s.readCursor.Load()
	if write <= read {
		return 0
	}
	return write - read
}
