// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"runtime"

	"code.hybscloud.com/atomix"
	"github.com/benbjohnson/clock"
)

// Consumer is the single-reader handle to a pipeline's output. Pull drains
// priorities strictly in order: a lower-numbered (higher-priority) batch
// that becomes ready is always returned ahead of any higher-numbered
// priority, with no fairness guarantee across priorities (spec.md §4.4).
type Consumer struct {
	stageOut []*stageOut
	notify   chan struct{}
	active   *atomix.Bool
	clock    clock.Clock
}

// Pull blocks until a batch is ready on some priority or the pipeline is
// disabled. It returns the batch and the priority index it came from. A
// zero-value return with ok=false means the pipeline has been disabled
// and will never produce another batch.
func (c *Consumer) Pull() (batch *Batch, priority int, ok bool) {
	for _, so := range c.stageOut {
		so.reset()
	}

	for c.active.LoadAcquire() {
		minWait := maxBackoff
		for prio, so := range c.stageOut {
			b, outcome, wait := so.tryPull()
			switch outcome {
			case pullSome:
				return b, prio, true
			case pullBackoff:
				if wait < minWait {
					minWait = wait
				}
			}
		}

		// Pulling briefly takes each priority's current-batch mutex; yield
		// so a producer spinning on it doesn't starve against us.
		runtime.Gosched()

		timer := c.clock.Timer(minWait)
		select {
		case <-c.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
	return nil, 0, false
}

// Refill returns a flushed batch to the given priority's refill ring so
// StageIn can reuse it.
func (c *Consumer) Refill(batch *Batch, priority int) {
	c.stageOut[priority].pool.putRefill(batch)
}

// Drain releases every producer parked waiting for a free batch on any
// priority, then empties every priority's ready ring and current batch.
// It does not require Producer.Disable to have been called first: a
// caller that wants to unblock stuck producers without also rejecting new
// pushes can call Drain alone (spec.md §5 scenario: both producer threads
// must unblock and complete once drain is invoked).
func (c *Consumer) Drain() []DrainedBatch {
	for _, so := range c.stageOut {
		so.pool.closeRefill()
	}

	var out []DrainedBatch
	for prio, so := range c.stageOut {
		for _, b := range so.drain() {
			out = append(out, DrainedBatch{Batch: b, Priority: prio})
		}
	}
	return out
}

// DrainedBatch pairs a batch recovered by Drain with the priority it came
// from.
type DrainedBatch struct {
	Batch    *Batch
	Priority int
}
