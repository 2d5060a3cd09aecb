// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package txchan provides a mutex-guarded txpipe.TxChannel. A priority's
// reliable/best-effort pair is two independent Channel values.
package txchan

import "sync"

// Channel is a mutex-guarded sequence-number allocator implementing
// txpipe.TxChannel. The zero value starts at sequence number 0.
type Channel struct {
	mu sync.Mutex
	sn uint64
}

// Get returns the next sequence number to use and advances the internal
// counter past it. Callers that end up not using the returned number (a
// dropped or abandoned message) must roll the counter back with Set.
func (c *Channel) Get() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	sn := c.sn
	c.sn++
	return sn
}

// Set restores or advances the counter to sn.
func (c *Channel) Set(sn uint64) {
	c.mu.Lock()
	c.sn = sn
	c.mu.Unlock()
}
