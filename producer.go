// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"time"

	"code.hybscloud.com/atomix"
	"github.com/benbjohnson/clock"
)

// Producer is the fan-in handle shared by every goroutine pushing into a
// pipeline. Each priority serializes its own pushes independently; pushes
// to different priorities never contend (spec.md §4.4).
type Producer struct {
	stageIn        []*stageIn
	active         *atomix.Bool
	waitBeforeDrop time.Duration
	clock          clock.Clock
}

// index resolves msg's priority to a stageIn slot. A single-priority
// pipeline (len(stageIn) == 1) ignores the message's own priority and
// always routes to index 0 (spec.md §4.4).
func (p *Producer) index(prio Priority) int {
	if len(p.stageIn) > 1 {
		return int(prio)
	}
	return 0
}

// PushNetworkMessage routes msg to its priority's StageIn. If msg is
// droppable, the push gives up after WaitBeforeDrop has elapsed waiting
// for a free batch and returns false instead of blocking indefinitely.
func (p *Producer) PushNetworkMessage(msg NetworkMessage) bool {
	if !p.active.LoadAcquire() {
		return false
	}
	idx := p.index(msg.Priority())

	var deadline *time.Time
	if msg.IsDroppable() {
		d := p.clock.Now().Add(p.waitBeforeDrop)
		deadline = &d
	}
	return p.stageIn[idx].PushNetworkMessage(msg, deadline)
}

// PushTransportMessage routes msg, a control message, to the given
// priority's StageIn. It is never dropped on congestion.
func (p *Producer) PushTransportMessage(msg TransportMessage, priority Priority) bool {
	if !p.active.LoadAcquire() {
		return false
	}
	return p.stageIn[p.index(priority)].PushTransportMessage(msg)
}

// Disable marks the pipeline inactive, wakes a blocked Consumer.Pull so it
// observes the new state promptly instead of waiting out its current
// backoff, releases every producer parked waiting for a free batch, and
// moves each priority's open current batch to its ready ring so a
// subsequent Drain recovers it (spec.md §5). No further pushes succeed
// after Disable returns.
func (p *Producer) Disable() {
	p.active.StoreRelease(false)
	for _, si := range p.stageIn {
		si.pool.closeRefill()
		si.pool.wake()
		si.drainCurrent()
	}
}

// IsActive reports whether the pipeline still accepts pushes.
func (p *Producer) IsActive() bool {
	return p.active.LoadAcquire()
}
