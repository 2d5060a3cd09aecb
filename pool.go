// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// pool is the per-priority pair of rings that recycle *Batch instances
// between StageIn and StageOut (spec.md §4.1): the refill ring holds empty
// batches available to StageIn, the ready ring holds full batches available
// to StageOut. A batch drained by the consumer and returned via refill
// never allocates again for the lifetime of the pipeline.
//
// refillSignal is a per-priority, capacity-1 signal channel: a blocked
// StageIn push wakes on it once the consumer returns a batch. notify is
// shared by every priority's pool in a pipeline (the consumer multiplexes
// all priorities behind a single wakeup source, spec.md §4.4) — a send
// that would block (a wakeup is already pending) is silently dropped, as
// one pending wakeup is enough to make the consumer re-scan every
// priority.
//
// done is closed exactly once, by closeRefill, when the pipeline is
// disabled or drained: it is never sent to, only closed, so it carries the
// "refill signal channel closed" condition of spec.md §6 without risking a
// send-on-closed-channel panic against refillSignal, which putRefill still
// sends on concurrently.
//
// pendingBytes/backoffActive support the coalescing path (spec.md §4.2):
// StageIn keeps a transport message's batch open as its current batch
// rather than moving it to the ready ring, and only records how many
// bytes are sitting in it. StageOut's backoff loop decides for itself
// whether that's enough to justify an early flush. backoffActive, set by
// StageOut while it sleeps, suppresses StageIn's wakeup: there is no point
// signalling a consumer that is going to check anyway once its timer
// fires.
type pool struct {
	refill        *ring
	ready         *ring
	notify        chan struct{}
	refillSignal  chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
	pendingBytes  atomix.Uint64
	backoffActive atomix.Bool
}

// newPool allocates n batches of the given configuration, seeds the refill
// ring with all of them, and sizes the ready ring to hold the same count.
// notify is the pipeline-wide wakeup channel shared by every priority.
func newPool(n int, cfg BatchConfig, notify chan struct{}) *pool {
	p := &pool{
		refill:       newRing(n),
		ready:        newRing(n),
		notify:       notify,
		refillSignal: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		p.refill.push(NewBatch(cfg))
	}
	return p
}

// takeRefill removes an empty batch from the refill ring for StageIn to
// fill. Returns (nil, false) if none are currently available.
func (p *pool) takeRefill() (*Batch, bool) {
	return p.refill.pop()
}

// putRefill returns a drained batch to the refill ring (consumer side,
// after the batch has been flushed to the transport) and wakes a StageIn
// blocked waiting for one.
func (p *pool) putRefill(b *Batch) bool {
	b.Clear()
	if !p.refill.push(b) {
		return false
	}
	p.signalRefill()
	return true
}

// putReady moves a filled batch to the ready ring and wakes the consumer.
// Also clears any pending-bytes notification: the batch it described is no
// longer "current", it is now queued in full.
func (p *pool) putReady(b *Batch) bool {
	if !p.ready.push(b) {
		return false
	}
	p.pendingBytes.StoreRelaxed(0)
	p.wake()
	return true
}

// takeReady removes a filled batch from the ready ring for StageOut to
// flush. Returns (nil, false) if none are currently available.
func (p *pool) takeReady() (*Batch, bool) {
	return p.ready.pop()
}

// notifyPending records that n bytes are sitting in StageIn's current
// (not yet queued) batch and wakes the consumer unless it is already in a
// backoff sleep.
func (p *pool) notifyPending(n int) {
	p.pendingBytes.StoreRelaxed(uint64(n))
	if !p.backoffActive.LoadRelaxed() {
		p.wake()
	}
}

// pending returns the byte count last recorded by notifyPending.
func (p *pool) pending() int {
	return int(p.pendingBytes.LoadRelaxed())
}

// wake signals the shared pipeline-wide wakeup channel. Never blocks.
func (p *pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// signalRefill wakes a producer blocked on refillSignal. Never blocks.
func (p *pool) signalRefill() {
	select {
	case p.refillSignal <- struct{}{}:
	default:
	}
}

// waitRefill blocks until signalRefill is called or the pool is torn down
// via closeRefill, consuming at most one pending wakeup. It returns false
// once done is closed, signalling a permanent failure the caller must not
// retry (spec.md §6: "Refill signal channel closed").
func (p *pool) waitRefill() bool {
	select {
	case <-p.refillSignal:
		return true
	case <-p.done:
		return false
	}
}

// closeRefill permanently releases every producer currently blocked, or
// that will ever block, waiting for a refill on this pool. Safe to call
// more than once and from more than one goroutine (Producer.Disable and
// Consumer.Drain may both reach it).
func (p *pool) closeRefill() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}
