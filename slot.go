// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import "sync"

// currentSlot is the batch a priority currently has open for appends,
// shared between that priority's stageIn (which fills it) and stageOut
// (which may steal a non-empty-but-not-yet-queued batch during a deep
// pull, spec.md §4.3). Exactly one *Batch is ever "current" for a
// priority at a time; nil means there is none.
type currentSlot struct {
	mu    sync.Mutex
	batch *Batch
}

// take removes and returns the current batch, if any.
func (s *currentSlot) take() (*Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.batch
	s.batch = nil
	return b, b != nil
}

// tryTake removes and returns the current batch without blocking if the
// slot is already locked by the other side.
func (s *currentSlot) tryTake() (*Batch, bool, bool) {
	if !s.mu.TryLock() {
		return nil, false, false
	}
	defer s.mu.Unlock()
	b := s.batch
	s.batch = nil
	return b, b != nil, true
}

// put stores b as the current batch.
func (s *currentSlot) put(b *Batch) {
	s.mu.Lock()
	s.batch = b
	s.mu.Unlock()
}
