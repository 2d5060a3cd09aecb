// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire provides a reference txpipe.Codec. Its wire format is
// deliberately simple: a one-byte flags field, a varint sequence number,
// and either a length-prefixed message (inside a frame) or a raw byte run
// (a fragment, which occupies the rest of its batch).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"code.hybscloud.com/txpipe"
)

const (
	flagReliable byte = 1 << 0
	flagFragment byte = 1 << 4
	flagMore     byte = 1 << 5
	flagControl  byte = 1 << 7

	priorityShift = 1
	priorityMask  = 0x7
)

// frameState is what Codec stashes on a Batch via SetTag while a frame is
// open for appends.
type frameState struct {
	reliable bool
	priority txpipe.Priority
}

// Codec is a reference implementation of txpipe.Codec.
type Codec struct{}

func encodeFlags(reliable bool, priority txpipe.Priority, fragment, more bool) byte {
	var f byte
	if reliable {
		f |= flagReliable
	}
	f |= byte(priority&priorityMask) << priorityShift
	if fragment {
		f |= flagFragment
	}
	if more {
		f |= flagMore
	}
	return f
}

// EncodeMessage implements txpipe.Codec.
func (Codec) EncodeMessage(b *txpipe.Batch, msg txpipe.NetworkMessage) error {
	fs, ok := b.Tag().(*frameState)
	if !ok || fs == nil || fs.reliable != msg.IsReliable() || fs.priority != msg.Priority() {
		return txpipe.ErrNewFrame
	}
	return appendLengthPrefixed(b, payloadOf(msg))
}

// EncodeFramed implements txpipe.Codec.
func (Codec) EncodeFramed(b *txpipe.Batch, hdr txpipe.FrameHeader, msg txpipe.NetworkMessage) error {
	var scratch [1 + binary.MaxVarintLen64]byte
	scratch[0] = encodeFlags(hdr.Reliable, hdr.Priority, false, false)
	n := binary.PutUvarint(scratch[1:], hdr.SN)
	header := scratch[:1+n]

	payload := payloadOf(msg)
	need := len(header) + varintLen(uint64(len(payload))) + len(payload)
	if need > b.Remaining() {
		return fmt.Errorf("wire: frame header and message do not fit in an empty batch")
	}

	if !b.TryAppend(header) {
		return fmt.Errorf("wire: frame header does not fit")
	}
	if err := appendLengthPrefixed(b, payload); err != nil {
		return err
	}
	b.SetTag(&frameState{reliable: hdr.Reliable, priority: hdr.Priority})
	return nil
}

// EncodeWhole implements txpipe.Codec.
func (Codec) EncodeWhole(scratch *txpipe.ScratchBuffer, msg txpipe.NetworkMessage) error {
	_, err := scratch.Write(payloadOf(msg))
	return err
}

// EncodeFragment implements txpipe.Codec.
func (Codec) EncodeFragment(b *txpipe.Batch, hdr txpipe.FragmentHeader, scratch *txpipe.ScratchBuffer) (more bool, err error) {
	var snBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(snBuf[:], hdr.SN)

	header := make([]byte, 0, 1+n)
	header = append(header, 0)
	header = append(header, snBuf[:n]...)

	if len(header) >= b.Remaining() {
		return false, errors.New("wire: fragment header does not fit in batch")
	}
	// The more bit reflects what is left of scratch after this fragment, so
	// the last fragment of a series is written with more=false.
	more = scratch.Remaining() > b.Remaining()-len(header)
	header[0] = encodeFlags(hdr.Reliable, hdr.Priority, true, more)
	if !b.TryAppend(header) {
		return false, errors.New("wire: fragment header does not fit in batch")
	}

	chunk := scratch.Next(b.Remaining())
	if len(chunk) == 0 {
		return false, errors.New("wire: no room for any fragment payload")
	}
	b.AppendPartial(chunk)
	return scratch.CanRead(), nil
}

// EncodeTransport implements txpipe.Codec.
func (Codec) EncodeTransport(b *txpipe.Batch, msg txpipe.TransportMessage) error {
	payload := payloadOf(msg)
	flags := flagControl
	if msg.IsReliable() {
		flags |= flagReliable
	}
	need := 1 + varintLen(uint64(len(payload))) + len(payload)
	if need > b.Remaining() {
		return fmt.Errorf("wire: control message does not fit in remaining batch space")
	}
	if !b.TryAppend([]byte{flags}) {
		return fmt.Errorf("wire: control message flags byte does not fit")
	}
	return appendLengthPrefixed(b, payload)
}

func appendLengthPrefixed(b *txpipe.Batch, payload []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))
	if !b.TryAppend(lenBuf[:n]) {
		return fmt.Errorf("wire: length prefix does not fit")
	}
	if !b.TryAppend(payload) {
		return fmt.Errorf("wire: payload does not fit")
	}
	return nil
}

func varintLen(v uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], v)
}

// payloader is implemented by message types that carry a raw byte
// payload. Applications with richer message types should implement
// txpipe.Codec directly instead of relying on this reference codec.
type payloader interface {
	Payload() []byte
}

func payloadOf(msg txpipe.Message) []byte {
	if p, ok := msg.(payloader); ok {
		return p.Payload()
	}
	panic(fmt.Sprintf("wire: %T does not implement Payload() []byte", msg))
}
