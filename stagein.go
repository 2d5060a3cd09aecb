// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// stageIn is the serialization stage of one priority (spec.md §4.2).
// pushMu serializes concurrent producers pushing to the same priority;
// slot is shared with this priority's stageOut so a deep pull can steal a
// non-empty current batch without waiting for a producer.
type stageIn struct {
	pool     *pool
	slot     *currentSlot
	channels PriorityChannels
	codec    Codec
	priority Priority
	clock    clock.Clock
	log      *zap.Logger

	pushMu  sync.Mutex
	scratch ScratchBuffer
}

func newStageIn(p *pool, slot *currentSlot, channels PriorityChannels, codec Codec, priority Priority, clk clock.Clock, log *zap.Logger) *stageIn {
	return &stageIn{
		pool:     p,
		slot:     slot,
		channels: channels,
		codec:    codec,
		priority: priority,
		clock:    clk,
		log:      log,
	}
}

// takeCurrentOrWait returns the open current batch if there is one,
// otherwise an empty batch from the refill ring, otherwise waits for a
// refill to become available. fragmenting relaxes a droppable message's
// deadline: once fragmentation has begun the message is no longer
// dropped on congestion (spec.md §4.2 step 5: "fragments are never
// dropped once started").
//
// Returns ok=false when a droppable message's deadline elapses first, or
// when the refill wait has been closed by Producer.Disable or
// Consumer.Drain; in either case the caller must restore any sequence
// number it took and drop the message.
func (s *stageIn) takeCurrentOrWait(fragmenting bool, deadline *time.Time) (batch *Batch, ok bool) {
	for {
		if b, got := s.slot.take(); got {
			return b, true
		}
		if b, got := s.pool.takeRefill(); got {
			return b, true
		}
		switch {
		case deadline != nil && !fragmenting:
			if !s.waitRefillDeadline(*deadline) {
				return nil, false
			}
		default:
			if !s.pool.waitRefill() {
				return nil, false
			}
		}
	}
}

func (s *stageIn) waitRefillDeadline(deadline time.Time) bool {
	d := deadline.Sub(s.clock.Now())
	if d <= 0 {
		select {
		case <-s.pool.refillSignal:
			return true
		case <-s.pool.done:
			return false
		default:
			return false
		}
	}
	timer := s.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-s.pool.refillSignal:
		return true
	case <-s.pool.done:
		return false
	case <-timer.C:
		return false
	}
}

// PushNetworkMessage serializes msg into the priority's pipeline (spec.md
// §4.2). If msg IsDroppable and deadline is non-nil, the push gives up and
// returns false once the deadline elapses while waiting for a batch,
// rather than blocking indefinitely.
func (s *stageIn) PushNetworkMessage(msg NetworkMessage, deadline *time.Time) bool {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	var dl *time.Time
	if msg.IsDroppable() {
		dl = deadline
	}

	batch, ok := s.takeCurrentOrWait(false, dl)
	if !ok {
		return false
	}

	if err := s.codec.EncodeMessage(batch, msg); err == nil {
		s.pool.putReady(batch)
		return true
	}
	// Any encode failure, whether ErrNewFrame or otherwise, means this
	// batch has no frame msg can be appended to: synthesize one.

	ch := s.channels.channel(msg.IsReliable())
	sn := ch.Get()
	hdr := FrameHeader{Reliable: msg.IsReliable(), SN: sn, Priority: s.priority}

	if err := s.codec.EncodeFramed(batch, hdr, msg); err == nil {
		s.pool.putReady(batch)
		return true
	}

	if !batch.IsEmpty() {
		s.pool.putReady(batch)
		var got bool
		batch, got = s.takeCurrentOrWait(false, dl)
		if !got {
			ch.Set(sn)
			return false
		}
	}

	if err := s.codec.EncodeFramed(batch, hdr, msg); err == nil {
		s.pool.putReady(batch)
		return true
	}

	// The message does not fit even in a fully empty batch: fragment it.
	s.slot.put(batch)
	return s.fragment(msg, hdr, sn, ch)
}

// fragment serializes msg in full into the scratch buffer and writes it
// out across as many batches as needed (spec.md §4.2 step 5). Once
// fragmentation starts the message is treated as non-droppable: a
// fragmented message that cannot complete is abandoned and logged, never
// silently truncated.
func (s *stageIn) fragment(msg NetworkMessage, frame FrameHeader, sn uint64, ch TxChannel) bool {
	s.scratch.Reset()
	if err := s.codec.EncodeWhole(&s.scratch, msg); err != nil {
		ch.Set(sn)
		s.log.Warn("message dropped because it can not be serialized",
			zap.Uint8("priority", uint8(s.priority)),
			zap.Error(err),
		)
		return true
	}

	fragHdr := FragmentHeader{Reliable: frame.Reliable, More: true, SN: sn, Priority: s.priority}

	for s.scratch.CanRead() {
		batch, ok := s.takeCurrentOrWait(true, nil)
		if !ok {
			ch.Set(sn)
			s.log.Warn("message dropped because no batch became available for its next fragment",
				zap.Uint8("priority", uint8(s.priority)),
			)
			return false
		}

		more, err := s.codec.EncodeFragment(batch, fragHdr, &s.scratch)
		if err != nil {
			ch.Set(sn)
			s.slot.put(batch)
			s.log.Warn("message dropped because it can not be fragmented",
				zap.Uint8("priority", uint8(s.priority)),
				zap.Error(err),
			)
			break
		}
		fragHdr.SN = ch.Get()
		fragHdr.More = more
		s.pool.putReady(batch)
	}

	s.scratch.Reset()
	return true
}

// PushTransportMessage serializes a control message into the priority's
// pipeline (spec.md §4.2). Transport messages never fragment and are
// never dropped on congestion: a push fails only if the message does not
// fit even an empty batch, or if the refill wait is closed by
// Producer.Disable or Consumer.Drain before a batch becomes available.
//
// Unlike PushNetworkMessage, a successful encode keeps the batch open as
// current (coalescing) rather than moving it to the ready ring; StageOut
// learns about the pending bytes via notifyPending and decides on its own
// whether to flush early.
func (s *stageIn) PushTransportMessage(msg TransportMessage) bool {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	batch, ok := s.takeCurrentOrWait(false, nil)
	if !ok {
		return false
	}

	if err := s.codec.EncodeTransport(batch, msg); err == nil {
		s.slot.put(batch)
		s.pool.notifyPending(batch.Len())
		return true
	}

	if !batch.IsEmpty() {
		s.pool.putReady(batch)
		batch, ok = s.takeCurrentOrWait(false, nil)
		if !ok {
			return false
		}
	}

	if err := s.codec.EncodeTransport(batch, msg); err != nil {
		// A control message that does not fit a fully empty batch is a
		// misconfiguration (MTU smaller than the message), not a
		// congestion scenario. Keep the batch and surface no progress.
		s.slot.put(batch)
		return false
	}
	s.slot.put(batch)
	s.pool.notifyPending(batch.Len())
	return true
}

// drainCurrent moves any open current batch to the ready ring so the
// consumer can flush it, called by Producer.Disable (spec.md §5: drain).
func (s *stageIn) drainCurrent() {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	b, ok := s.slot.take()
	if !ok {
		return
	}
	if !b.IsEmpty() {
		s.pool.putReady(b)
	} else {
		s.pool.putRefill(b)
	}
}
