// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// maxBackoff is the saturation point for the backoff duration: once
// doubling would overflow a uint32 of nanoseconds, the controller holds at
// this value instead of continuing to grow (spec.md §4.3).
const maxBackoff = time.Duration(math.MaxUint32)

// backoff is a per-priority exponential backoff controller consulted by
// StageOut between unsuccessful pull attempts. It doubles its retry
// duration on every consecutive miss and resets to zero (meaning: retry
// immediately) as soon as Reset is called. It is only ever touched by the
// consumer goroutine, so it needs no synchronization of its own — compare
// pool.backoffActive, which other goroutines do read concurrently.
type backoff struct {
	base      time.Duration
	retry     time.Duration
	saturated bool
	log       *zap.Logger
	priority  Priority
}

// newBackoff creates a controller with the given base slot duration. A
// base of 0 disables backoff entirely: Next always returns 0.
func newBackoff(base time.Duration, log *zap.Logger, priority Priority) *backoff {
	return &backoff{base: base, log: log, priority: priority}
}

// Next advances the controller to its next retry duration and returns it:
// the base slot on the first call after a Reset, doubling on every call
// after that, saturating at maxBackoff.
func (b *backoff) Next() time.Duration {
	if b.base <= 0 {
		return 0
	}
	switch {
	case b.retry == 0:
		b.retry = b.base
	case b.retry > maxBackoff/2:
		if !b.saturated {
			b.saturated = true
			b.log.Warn("pull backoff saturated",
				zap.Uint8("priority", uint8(b.priority)),
				zap.Duration("retry", maxBackoff),
			)
		}
		b.retry = maxBackoff
	default:
		b.retry *= 2
	}
	return b.retry
}

// Reset restores the controller to retry-immediately, to be called as soon
// as a pull attempt succeeds or at the start of every Pull.
func (b *backoff) Reset() {
	b.retry = 0
	b.saturated = false
}
