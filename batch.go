// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

// BatchConfig configures batch creation (spec.md §6).
type BatchConfig struct {
	// MTU is the maximum serialized batch size in bytes.
	MTU uint16
	// IsStreamed reports whether batches carry a length prefix when
	// written to a streamed transport. The pipeline itself never reads
	// this flag; it only carries it through to the Codec/transport.
	IsStreamed bool
	// IsCompression enables an (external) compression pass over the
	// batch before it reaches the wire. The pipeline does not compress;
	// it only carries the flag through to external collaborators.
	IsCompression bool
}

// Batch is a fixed-capacity byte buffer with a write cursor. It is created
// once at pipeline construction and reused for the pipeline's lifetime
// (spec.md §3): ownership moves between the refill ring, a StageIn
// current slot, the ready ring, the consumer, and back.
//
// Batch has no knowledge of message semantics; a Codec writes into it
// through TryAppend/AppendPartial and the pipeline moves it around
// unopened.
type Batch struct {
	cfg BatchConfig
	buf []byte
	pos int
	tag any
}

// NewBatch allocates a batch with the given configuration. The backing
// buffer is sized to cfg.MTU and never reallocated.
func NewBatch(cfg BatchConfig) *Batch {
	return &Batch{
		cfg: cfg,
		buf: make([]byte, cfg.MTU),
	}
}

// Config returns the batch's configuration.
func (b *Batch) Config() BatchConfig { return b.cfg }

// Len returns the number of bytes written into the batch since the last
// Clear.
func (b *Batch) Len() int { return b.pos }

// Cap returns the batch's fixed capacity (its MTU).
func (b *Batch) Cap() int { return len(b.buf) }

// Remaining returns how many more bytes can be written before the batch
// is full.
func (b *Batch) Remaining() int { return len(b.buf) - b.pos }

// IsEmpty reports whether the batch has no written bytes.
func (b *Batch) IsEmpty() bool { return b.pos == 0 }

// Clear resets the write cursor to the start of the batch and drops any
// codec tag. The underlying storage is reused, not reallocated.
func (b *Batch) Clear() {
	b.pos = 0
	b.tag = nil
}

// Tag returns the value a Codec last stored with SetTag, or nil if none
// has been stored since the last Clear. A Codec uses this to track
// per-batch encoding state — such as whether a frame is already open and
// what reliability/priority it was opened for — without the batch itself
// needing any notion of message semantics.
func (b *Batch) Tag() any { return b.tag }

// SetTag stores v as the batch's codec tag, replacing any previous value.
func (b *Batch) SetTag(v any) { b.tag = v }

// Bytes returns the written portion of the batch. The returned slice
// aliases the batch's storage and is only valid until the next Clear or
// TryAppend/AppendPartial call.
func (b *Batch) Bytes() []byte { return b.buf[:b.pos] }

// TryAppend writes p to the batch as a single atomic record. It writes
// nothing and returns false if p does not fit in the remaining capacity —
// callers (a Codec) must never partially commit a wire record.
func (b *Batch) TryAppend(p []byte) bool {
	if len(p) > b.Remaining() {
		return false
	}
	copy(b.buf[b.pos:], p)
	b.pos += len(p)
	return true
}

// AppendPartial writes as many leading bytes of p as fit in the batch's
// remaining capacity and returns the count written. Used by fragment
// encoding, which deliberately fills the batch to the MTU (spec.md §4.2
// step 5c: "as many scratch bytes as fit").
func (b *Batch) AppendPartial(p []byte) int {
	n := len(p)
	if r := b.Remaining(); n > r {
		n = r
	}
	copy(b.buf[b.pos:], p[:n])
	b.pos += n
	return n
}

// ScratchBuffer is a growable byte buffer used as the source for
// fragmentation (spec.md §4.2 step 5b: "encode the whole message into a
// growable scratch buffer"). It is reused across pushes via Reset, mirroring
// how the pipeline reuses Batch instances rather than allocating per message.
type ScratchBuffer struct {
	buf []byte
	pos int
}

// Reset clears the buffer for reuse, retaining its backing storage.
func (s *ScratchBuffer) Reset() {
	s.buf = s.buf[:0]
	s.pos = 0
}

// Write appends p to the buffer. It implements io.Writer so a Codec can
// serialize directly into it.
func (s *ScratchBuffer) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// CanRead reports whether there are unread bytes remaining.
func (s *ScratchBuffer) CanRead() bool { return s.pos < len(s.buf) }

// Remaining returns the number of unread bytes.
func (s *ScratchBuffer) Remaining() int { return len(s.buf) - s.pos }

// Next returns up to n unread bytes and advances the read cursor past
// them. The returned slice aliases the buffer and is only valid until the
// next Reset or Write.
func (s *ScratchBuffer) Next(n int) []byte {
	if r := s.Remaining(); n > r {
		n = r
	}
	p := s.buf[s.pos : s.pos+n]
	s.pos += n
	return p
}
