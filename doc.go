// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package txpipe provides a multi-priority transmission pipeline: a
// two-stage producer/consumer handoff that serializes application
// messages into fixed-size batches, fragments messages too large for a
// single batch, and drains batches to a transport in strict priority
// order.
//
// # Quick Start
//
//	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 65535}).
//		QueueSizes(4).
//		BackoffSlot(10 * time.Microsecond).
//		WaitBeforeDrop(5 * time.Millisecond).
//		Build()
//
//	producer, consumer := txpipe.Make(cfg, codec, []txpipe.PriorityChannels{channels})
//
//	go func() { // Producer side
//		for msg := range outbound {
//			producer.PushNetworkMessage(msg)
//		}
//	}()
//
//	go func() { // Consumer side
//		for {
//			batch, priority, ok := consumer.Pull()
//			if !ok {
//				return // pipeline disabled, nothing left to send
//			}
//			transport.Write(batch.Bytes())
//			consumer.Refill(batch, priority)
//		}
//	}()
//
// # QoS and Priority
//
// Constructing Make with a single PriorityChannels builds a QoS-unaware
// pipeline: every message is routed to priority index 0 regardless of its
// own Priority(). Passing one PriorityChannels per named priority
// (PriorityControl through PriorityBackground) builds a QoS-aware
// pipeline where Consumer.Pull always drains a lower-numbered priority
// ahead of any higher-numbered one that becomes ready concurrently —
// there is no fairness guarantee across priorities, only within one.
//
// # Fragmentation
//
// A message that does not fit in an empty batch is fragmented: it is
// serialized in full into a scratch buffer and written out across as many
// batches as it takes. Once fragmentation starts a message is never
// dropped on congestion, even if it was originally droppable. A fragmented
// message is abandoned only on a hard encode failure, or when Disable or
// Drain releases the producer while it waits for a batch for its next
// fragment; either way the abandonment is logged through the configured
// zap.Logger rather than silently discarded.
//
// # Backoff
//
// Consumer.Pull backs off exponentially, per priority, between
// unsuccessful pull attempts rather than spinning: a priority that keeps
// missing waits longer before being checked again, while a priority that
// just produced a batch resets to retrying immediately. The computed wait
// is capped at the largest duration representable in nanoseconds by a
// uint32; reaching that cap is logged once per backoff cycle.
//
// # Collaborators
//
// A pipeline does not know how to serialize a message onto the wire or
// how to allocate sequence numbers: those are supplied by the caller
// through the Codec and TxChannel interfaces respectively, constructed
// once and passed to Make. See the message, wire, and txchan
// subpackages for reference implementations.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [go.uber.org/zap] for structured
// diagnostics, and [github.com/benbjohnson/clock] so tests can drive
// deadlines and backoff waits deterministically.
package txpipe
