// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import "code.hybscloud.com/atomix"

// ring is a single-producer/single-consumer bounded queue of *Batch.
//
// Based on Lamport's ring buffer with cached index optimization: the
// producer caches the consumer's dequeue index, and vice versa, reducing
// cross-core cache line traffic. Both the refill ring and the ready ring
// of every priority are an instance of this type — the pipeline never
// needs a multi-producer or multi-consumer ring because the per-priority
// fan-in mutex (producer side) and the single consumer task (consumer
// side) already make every ring's endpoints single-threaded.
type ring struct {
	_          pad
	head       atomix.Uint64 // consumer reads from here
	_          pad
	cachedTail uint64 // consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // producer writes here
	_          pad
	cachedHead uint64 // producer's cached view of head
	_          pad
	buffer     []*Batch
	mask       uint64
}

// newRing creates a ring with the given capacity, rounded up to the next
// power of 2. Capacity must be >= 1.
func newRing(capacity int) *ring {
	if capacity < 1 {
		panic("txpipe: ring capacity must be >= 1")
	}
	n := uint64(roundToPow2(capacity))
	return &ring{
		buffer: make([]*Batch, n),
		mask:   n - 1,
	}
}

// push adds a batch to the ring (producer side only).
// Returns false if the ring is full.
func (r *ring) push(b *Batch) bool {
	tail := r.tail.LoadRelaxed()
	if tail-r.cachedHead > r.mask {
		r.cachedHead = r.head.LoadAcquire()
		if tail-r.cachedHead > r.mask {
			return false
		}
	}
	r.buffer[tail&r.mask] = b
	r.tail.StoreRelease(tail + 1)
	return true
}

// pop removes and returns a batch from the ring (consumer side only).
// Returns (nil, false) if the ring is empty.
func (r *ring) pop() (*Batch, bool) {
	head := r.head.LoadRelaxed()
	if head >= r.cachedTail {
		r.cachedTail = r.tail.LoadAcquire()
		if head >= r.cachedTail {
			return nil, false
		}
	}
	b := r.buffer[head&r.mask]
	r.buffer[head&r.mask] = nil
	r.head.StoreRelease(head + 1)
	return b, true
}

// cap returns the ring's physical capacity (rounded up to a power of 2).
func (r *ring) cap() int {
	return int(r.mask + 1)
}

// roundToPow2 rounds n up to the next power of 2. n must be >= 1.
func roundToPow2(n int) int {
	if n < 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
