// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Make assembles a Producer and Consumer pair from cfg, one codec shared
// by every priority, and one PriorityChannels per priority the pipeline
// should serve. A single-element channels slice builds a QoS-unaware
// pipeline where every message is routed to priority index 0 regardless
// of its own Priority() (spec.md §4.4).
//
// Make panics if channels is empty or if cfg.QueueSize does not supply
// exactly one in-range size per priority: an invalid queue-size
// configuration is a programmer error, not a runtime condition a caller
// is expected to recover from (spec.md §6: "Queue-size configuration
// invalid (0 or > max) | Panic at make() time").
func Make(cfg PipelineConfig, codec Codec, channels []PriorityChannels) (*Producer, *Consumer) {
	if len(channels) == 0 {
		panic("txpipe: channels must have at least one priority")
	}

	sizes := cfg.QueueSize
	if len(sizes) != len(channels) {
		panic(fmt.Sprintf("txpipe: queue size count %d does not match channel count %d", len(sizes), len(channels)))
	}

	notify := make(chan struct{}, 1)
	stageIns := make([]*stageIn, len(channels))
	stageOuts := make([]*stageOut, len(channels))

	for i, ch := range channels {
		n := sizes[i]
		if n <= 0 || n > MaxQueueSize {
			panic(fmt.Sprintf("txpipe: priority %d queue size %d out of range (1..%d)", i, n, MaxQueueSize))
		}
		p := newPool(n, cfg.Batch, notify)
		slot := &currentSlot{}
		bo := newBackoff(cfg.Backoff, cfg.Logger, Priority(i))
		prio := Priority(i)
		if len(channels) == 1 {
			// A QoS-unaware pipeline stamps its headers with PriorityDefault.
			prio = PriorityDefault
		}
		stageIns[i] = newStageIn(p, slot, ch, codec, prio, cfg.Clock, cfg.Logger)
		stageOuts[i] = newStageOut(p, slot, bo, cfg.Logger)
	}

	active := &atomix.Bool{}
	active.StoreRelease(true)

	producer := &Producer{
		stageIn:        stageIns,
		active:         active,
		waitBeforeDrop: cfg.WaitBeforeDrop,
		clock:          cfg.Clock,
	}
	consumer := &Consumer{
		stageOut: stageOuts,
		notify:   notify,
		active:   active,
		clock:    cfg.Clock,
	}
	return producer, consumer
}
