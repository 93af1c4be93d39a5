package publisher

import (
	"sync"

	audit "electiondesk/pkg/platform/audit"
)

// RingBuffer is a bounded, thread-safe FIFO of audit events.
// When full, the oldest event is dropped to make room for the new one.
type RingBuffer struct {
	mu       sync.Mutex
	events   []audit.Event
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RingBuffer{
		events:   make([]audit.Event, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an event and reports whether an older event was dropped for it.
func (b *RingBuffer) Enqueue(event audit.Event) (droppedOldest bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.events[b.tail] = audit.Event{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		droppedOldest = true
	}

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.count++
	return droppedOldest
}

// DequeueBatch removes up to n events in FIFO order.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]audit.Event, n)
	for i := 0; i < n; i++ {
		result[i] = b.events[b.tail]
		b.events[b.tail] = audit.Event{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of events evicted by Enqueue.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
