package comm

import (
	"context"
	"sync/atomic"
)

// Default ring capacities.
const (
	DefaultInboundSize  = 256
	DefaultOutboundSize = 128
)

// Ring is a fixed capacity single-producer/single-consumer byte queue.
//
// The write cursor is only touched by the producer and the read cursor only
// by the consumer; the two sides meet on count, which disambiguates full
// from empty. Push and Pop never block and never allocate, so Push is safe
// to call from the receive side of a peripheral.
type Ring struct {
	buf []byte
	r   int // consumer owned
	w   int // producer owned

	count     int32
	pushes    uint32
	pops      uint32
	drops     uint32
	highWater uint32

	readable chan struct{}
	writable chan struct{}
}

// RingStats holds counters since creation or the last Reset.
type RingStats struct {
	Pushes    uint32 // accepted bytes
	Pops      uint32 // consumed bytes
	Drops     uint32 // rejected bytes (overflow)
	HighWater uint32 // max occupancy observed
}

// NewRing creates a Ring with fixed capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic("ring capacity must be positive")
	}
	return &Ring{
		buf:      make([]byte, capacity),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

// Cap returns the capacity in bytes.
func (q *Ring) Cap() int {
	return len(q.buf)
}

// Len returns the number of bytes queued.
func (q *Ring) Len() int {
	return int(atomic.LoadInt32(&q.count))
}

// Free returns the number of bytes which can be pushed without dropping.
// From the producer side the value only grows concurrently.
func (q *Ring) Free() int {
	return len(q.buf) - q.Len()
}

// Readable returns a coalesced notification sent after bytes are pushed.
// Receivers must re-check Len after waking.
func (q *Ring) Readable() <-chan struct{} {
	return q.readable
}

// Writable returns a coalesced notification sent after bytes are popped.
func (q *Ring) Writable() <-chan struct{} {
	return q.writable
}

// Push appends a byte. It returns false and drops the byte if the ring is full.
func (q *Ring) Push(b byte) bool {
	count := atomic.LoadInt32(&q.count)
	if int(count) == len(q.buf) {
		atomic.AddUint32(&q.drops, 1)
		return false
	}
	q.buf[q.w] = b
	if q.w++; q.w == len(q.buf) {
		q.w = 0
	}
	used := uint32(atomic.AddInt32(&q.count, 1))
	atomic.AddUint32(&q.pushes, 1)
	for {
		max := atomic.LoadUint32(&q.highWater)
		if used <= max || atomic.CompareAndSwapUint32(&q.highWater, max, used) {
			break
		}
	}
	signal(q.readable)
	return true
}

// Pop removes the oldest byte. It returns false if the ring is empty.
func (q *Ring) Pop() (byte, bool) {
	if atomic.LoadInt32(&q.count) == 0 {
		return 0, false
	}
	b := q.buf[q.r]
	if q.r++; q.r == len(q.buf) {
		q.r = 0
	}
	atomic.AddInt32(&q.count, -1)
	atomic.AddUint32(&q.pops, 1)
	signal(q.writable)
	return b, true
}

// ReadByte implements io.ByteReader.
func (q *Ring) ReadByte() (byte, error) {
	if b, ok := q.Pop(); ok {
		return b, nil
	}
	return 0, ErrRingUnderflow
}

// Write enqueues as many bytes as fit. If not all bytes fit, the rest are
// dropped and ErrRingOverflow is returned with the accepted count.
func (q *Ring) Write(p []byte) (int, error) {
	for n, b := range p {
		if !q.Push(b) {
			atomic.AddUint32(&q.drops, uint32(len(p)-n-1))
			return n, ErrRingOverflow
		}
	}
	return len(p), nil
}

// WriteContext enqueues all bytes, waiting for the consumer to make room
// instead of dropping.
func (q *Ring) WriteContext(ctx context.Context, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if q.Free() == 0 {
			select {
			case <-q.writable:
				continue
			case <-ctx.Done():
				return n, ctx.Err()
			}
		}
		q.Push(p[n])
		n++
	}
	return n, nil
}

// Stats returns a snapshot of the counters.
func (q *Ring) Stats() RingStats {
	return RingStats{
		Pushes:    atomic.LoadUint32(&q.pushes),
		Pops:      atomic.LoadUint32(&q.pops),
		Drops:     atomic.LoadUint32(&q.drops),
		HighWater: atomic.LoadUint32(&q.highWater),
	}
}

// Reset discards queued bytes and counters.
// It must only be called while neither side is active.
func (q *Ring) Reset() {
	q.r, q.w = 0, 0
	atomic.StoreInt32(&q.count, 0)
	atomic.StoreUint32(&q.pushes, 0)
	atomic.StoreUint32(&q.pops, 0)
	atomic.StoreUint32(&q.drops, 0)
	atomic.StoreUint32(&q.highWater, 0)
	drain(q.readable)
	drain(q.writable)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
