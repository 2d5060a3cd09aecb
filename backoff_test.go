// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBackoffDisabledWhenBaseIsZero(t *testing.T) {
	b := newBackoff(0, zap.NewNop(), PriorityControl)
	for i := 0; i < 3; i++ {
		if got := b.Next(); got != 0 {
			t.Fatalf("Next() = %v, want 0 with base disabled", got)
		}
	}
}

func TestBackoffDoublesThenResets(t *testing.T) {
	base := time.Millisecond
	b := newBackoff(base, zap.NewNop(), PriorityControl)

	if got := b.Next(); got != base {
		t.Fatalf("first Next() = %v, want base %v", got, base)
	}
	if got := b.Next(); got != base*2 {
		t.Fatalf("second Next() = %v, want %v", got, base*2)
	}
	if got := b.Next(); got != base*4 {
		t.Fatalf("third Next() = %v, want %v", got, base*4)
	}

	b.Reset()
	if got := b.Next(); got != base {
		t.Fatalf("Next() after Reset = %v, want base %v", got, base)
	}
}

func TestBackoffSaturatesAtMax(t *testing.T) {
	b := newBackoff(time.Second, zap.NewNop(), PriorityControl)
	var last time.Duration
	for i := 0; i < 64; i++ {
		last = b.Next()
	}
	if last != maxBackoff {
		t.Fatalf("Next() after many doublings = %v, want saturated at %v", last, maxBackoff)
	}
	if got := b.Next(); got != maxBackoff {
		t.Fatalf("Next() once saturated = %v, want it to hold at %v", got, maxBackoff)
	}
}
