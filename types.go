// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

// Priority is a transmission priority class. Priority 0 is highest and is
// always drained ahead of any lower (larger-numbered) priority that becomes
// ready concurrently (spec.md §4.5, strict priority, no fairness guarantee
// across priorities).
type Priority uint8

// Named priority classes, lowest value first (highest priority first),
// mirroring the eight-class scheme referenced by the original
// zenoh-transport pipeline this spec was distilled from.
const (
	PriorityControl Priority = iota
	PriorityRealTime
	PriorityInteractiveHigh
	PriorityInteractiveLow
	PriorityDataHigh
	PriorityData
	PriorityDataLow
	PriorityBackground

	// NumPriorities is the number of named priority classes above.
	// Pipelines are not required to use all of them; a single-priority
	// pipeline uses index 0 with PriorityDefault regardless of a
	// message's own Priority() (spec.md §4.4).
	NumPriorities = int(PriorityBackground) + 1
)

// PriorityDefault is the priority assigned to messages on a pipeline that
// was configured with a single priority (spec.md §4.4: "index 0 with
// default priority").
const PriorityDefault = PriorityData

// MaxQueueSize is the compile-time upper bound on a single priority's queue
// size (spec.md §6: "1 ≤ N ≤ compile-time maximum"). It also bounds the
// physical capacity of the per-priority refill/ready rings.
const MaxQueueSize = 1 << 16

// Message is the minimal capability every message pushed through the
// pipeline must expose: which sequence-number channel it belongs to.
type Message interface {
	// IsReliable reports whether this message's sequence number is drawn
	// from the reliable channel (true) or the best-effort channel (false).
	IsReliable() bool
}

// NetworkMessage is an application-level message pushed via
// StageIn.PushNetworkMessage / Producer.PushNetworkMessage. It may be
// fragmented and may be dropped under congestion.
type NetworkMessage interface {
	Message

	// Priority reports the message's QoS priority class, used to select
	// which per-priority StageIn it is pushed into.
	Priority() Priority

	// IsDroppable reports whether the message's QoS permits the pipeline
	// to drop it under congestion rather than block indefinitely
	// (spec.md §4.2 step 1, §5 cancellation/timeouts).
	IsDroppable() bool
}

// TransportMessage is a protocol control message pushed via
// StageIn.PushTransportMessage / Producer.PushTransportMessage. It never
// fragments and is never dropped on congestion (only on unrecoverable
// signal failure, spec.md §4.2).
type TransportMessage interface {
	Message
}

// FrameHeader is the wire header synthesized when a NetworkMessage cannot
// be appended to the current open frame and a new one must be opened
// (spec.md §4.2 step 3). The Reliable field tracks the message's own
// Message.IsReliable(), matching the channel the SN was drawn from — see
// DESIGN.md / SPEC_FULL.md §4 for why this differs from (and fixes) the
// original's hard-coded Reliable header bit.
type FrameHeader struct {
	Reliable bool
	SN       uint64
	Priority Priority
}

// FragmentHeader is the wire header written before each chunk of a
// fragmented message (spec.md §4.2 step 5). More is true for every
// fragment except the last in its series.
type FragmentHeader struct {
	Reliable bool
	More     bool
	SN       uint64
	Priority Priority
}

// Codec is the external collaborator (spec.md §6) responsible for turning
// messages into bytes inside a Batch. It is consumed only through this
// interface; the wire format itself is the codec's concern, not the
// pipeline's.
type Codec interface {
	// EncodeMessage attempts to append msg to the batch's currently open
	// frame. Returns ErrNewFrame if there is no open frame (or it belongs
	// to a different channel/priority) and a new one must be synthesized
	// via EncodeFramed.
	EncodeMessage(b *Batch, msg NetworkMessage) error

	// EncodeFramed opens (or continues) a frame identified by hdr and
	// appends msg to it in the same call. hdr.SN is already the sequence
	// number to commit; the caller (not the codec) owns advancing the
	// originating TxChannel.
	EncodeFramed(b *Batch, hdr FrameHeader, msg NetworkMessage) error

	// EncodeWhole serializes msg in full into scratch, the growable buffer
	// used as the source for fragmentation (spec.md §4.2 step 5b).
	EncodeWhole(scratch *ScratchBuffer, msg NetworkMessage) error

	// EncodeFragment appends a fragment header followed by as many bytes
	// of scratch as fit in b's remaining capacity. It reports whether
	// scratch has bytes remaining after this call (more) and writes that
	// same value as the header's more bit, so the last fragment of a series
	// carries more=false; the caller passes it back as hdr.More, with a
	// freshly fetched hdr.SN, on the next fragment.
	EncodeFragment(b *Batch, hdr FragmentHeader, scratch *ScratchBuffer) (more bool, err error)

	// EncodeTransport attempts to append msg (a control message) to the
	// batch. Transport messages never fragment. Any error on a non-empty
	// batch makes the pipeline hand that batch off and retry once on an
	// empty one; an error on an empty batch fails the push.
	EncodeTransport(b *Batch, msg TransportMessage) error
}

// TxChannel is the external sequence-number allocator collaborator
// (spec.md §6). A pipeline priority owns one reliable and one best-effort
// instance. Implementations must guard Get/Set with an internal mutex.
type TxChannel interface {
	// Get returns the next sequence number to use and advances the
	// counter past it — it is a fetch-and-increment, not a peek.
	Get() uint64

	// Set restores the counter to sn, used to roll back an SN after a
	// dropped or abandoned message.
	Set(sn uint64)
}

// PriorityChannels bundles the reliable and best-effort TxChannel for one
// priority (spec.md §3: "tx_channel: reliable and best-effort sequence-
// number allocators").
type PriorityChannels struct {
	Reliable   TxChannel
	BestEffort TxChannel
}

// channel returns the channel matching the message's reliability.
func (p PriorityChannels) channel(reliable bool) TxChannel {
	if reliable {
		return p.Reliable
	}
	return p.BestEffort
}
