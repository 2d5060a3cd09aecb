// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package message provides concrete txpipe.NetworkMessage and
// txpipe.TransportMessage implementations for applications that have no
// richer message type of their own.
package message

import "code.hybscloud.com/txpipe"

// Network is a plain-payload txpipe.NetworkMessage.
type Network struct {
	Bytes     []byte
	Prio      txpipe.Priority
	Reliable  bool
	Droppable bool
}

func (m *Network) IsReliable() bool          { return m.Reliable }
func (m *Network) Priority() txpipe.Priority { return m.Prio }
func (m *Network) IsDroppable() bool         { return m.Droppable }

// Payload returns the message's raw bytes, for use by codecs (such as
// the wire package's reference Codec) that operate on plain byte
// payloads.
func (m *Network) Payload() []byte { return m.Bytes }

// Transport is a plain-payload txpipe.TransportMessage.
type Transport struct {
	Bytes    []byte
	Reliable bool
}

func (m *Transport) IsReliable() bool { return m.Reliable }

// Payload returns the message's raw bytes.
func (m *Transport) Payload() []byte { return m.Bytes }
