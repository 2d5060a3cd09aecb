// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"time"

	"go.uber.org/zap"
)

// pullOutcome is the tri-state result of a single priority's pull attempt
// (spec.md §4.3): a batch was ready, nothing is ready yet, or the caller
// should back off before checking this priority again.
type pullOutcome int

const (
	pullNone pullOutcome = iota
	pullSome
	pullBackoff
)

// stageOut is the flush stage of one priority. It shares slot with this
// priority's stageIn and owns the backoff controller consulted between
// unsuccessful pulls.
type stageOut struct {
	pool     *pool
	slot     *currentSlot
	backoff  *backoff
	lastSeen int
	log      *zap.Logger
}

func newStageOut(p *pool, slot *currentSlot, bo *backoff, log *zap.Logger) *stageOut {
	return &stageOut{pool: p, slot: slot, backoff: bo, log: log}
}

// tryPull attempts to retrieve a batch without blocking. When it returns
// pullBackoff, wait holds the duration the caller should wait before
// retrying this priority.
func (s *stageOut) tryPull() (batch *Batch, outcome pullOutcome, wait time.Duration) {
	if b, ok := s.pool.takeReady(); ok {
		return b, pullSome, 0
	}
	return s.tryPullDeep()
}

// tryPullDeep is consulted once the ready ring is empty. It guards against
// spinning on a current batch that keeps receiving identical-looking
// writes: only once two consecutive polls observe the same pending byte
// count does it even attempt to steal the current batch, and even then
// only if that steal doesn't contend with a producer actively pushing
// (spec.md §4.3).
func (s *stageOut) tryPullDeep() (batch *Batch, outcome pullOutcome, wait time.Duration) {
	newBytes := s.pool.pending()
	oldBytes := s.lastSeen
	s.lastSeen = newBytes

	if newBytes == oldBytes {
		// Re-check the ready ring first: two identical byte counts can
		// also mean two back-to-back pushes happened to serialize to the
		// same length.
		if b, ok := s.pool.takeReady(); ok {
			return b, pullSome, 0
		}
		if b, got, locked := s.slot.tryTake(); locked {
			if got {
				return b, pullSome, 0
			}
			return nil, pullNone, 0
		}
		// The slot is held by a producer mid-push; fall through to backoff.
	}

	wait = s.backoff.Next()
	s.pool.backoffActive.StoreRelease(true)
	return nil, pullBackoff, wait
}

// reset clears the backoff controller, the backoff-active flag StageIn
// consults before waking this priority's consumer, and the last-seen byte
// count. Called once at the start of every Pull (spec.md §4.3).
func (s *stageOut) reset() {
	s.lastSeen = 0
	s.backoff.Reset()
	s.pool.backoffActive.StoreRelease(false)
}

// drain empties the ready ring and takes the current batch, if any, for a
// final flush (spec.md §5).
func (s *stageOut) drain() []*Batch {
	var batches []*Batch
	for {
		b, ok := s.pool.takeReady()
		if !ok {
			break
		}
		batches = append(batches, b)
	}
	if b, ok := s.slot.take(); ok {
		batches = append(batches, b)
	}
	return batches
}
