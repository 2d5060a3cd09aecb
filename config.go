// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// PipelineConfig configures a pipeline (spec.md §6).
type PipelineConfig struct {
	// Batch is the shared configuration used to allocate every batch in
	// every priority's pool.
	Batch BatchConfig
	// QueueSize is the per-priority batch count. A single-element slice
	// means the pipeline is not QoS-aware: every message is routed to
	// index 0 regardless of its own Priority() (spec.md §4.4).
	QueueSize []int
	// WaitBeforeDrop is how long a droppable message waits for a batch
	// to free up before Producer.PushNetworkMessage returns false.
	WaitBeforeDrop time.Duration
	// Backoff is the base slot duration for the per-priority backoff
	// controller (spec.md §4.3).
	Backoff time.Duration
	// Logger receives the pipeline's warning-level diagnostics (spec.md
	// §7: fragmentation abandonment, backoff saturation). A nil Logger is
	// promoted to zap.NewNop() by Build.
	Logger *zap.Logger
	// Clock abstracts time for deadlines and backoff waits so tests can
	// drive them deterministically with clock.NewMock(). A nil Clock is
	// promoted to clock.New() (the real wall clock) by Build.
	Clock clock.Clock
}

// ConfigBuilder builds a PipelineConfig with fluent chaining, in the same
// style as the teacher package's queue-algorithm Builder.
type ConfigBuilder struct {
	cfg PipelineConfig
}

// NewConfig starts a builder for a single-priority pipeline with the given
// batch configuration. Chain QueueSizes to make it QoS-aware.
func NewConfig(batch BatchConfig) *ConfigBuilder {
	return &ConfigBuilder{cfg: PipelineConfig{
		Batch:          batch,
		QueueSize:      []int{1},
		WaitBeforeDrop: 0,
		Backoff:        0,
	}}
}

// QueueSizes sets the per-priority batch counts. A single size makes the
// pipeline QoS-unaware (all messages routed to priority index 0).
func (b *ConfigBuilder) QueueSizes(sizes ...int) *ConfigBuilder {
	b.cfg.QueueSize = append([]int(nil), sizes...)
	return b
}

// WaitBeforeDrop sets how long a droppable message waits for a free batch.
func (b *ConfigBuilder) WaitBeforeDrop(d time.Duration) *ConfigBuilder {
	b.cfg.WaitBeforeDrop = d
	return b
}

// BackoffSlot sets the base backoff slot duration.
func (b *ConfigBuilder) BackoffSlot(d time.Duration) *ConfigBuilder {
	b.cfg.Backoff = d
	return b
}

// WithLogger sets the logger for pipeline warnings.
func (b *ConfigBuilder) WithLogger(l *zap.Logger) *ConfigBuilder {
	b.cfg.Logger = l
	return b
}

// WithClock sets the clock used for deadlines and backoff waits.
func (b *ConfigBuilder) WithClock(c clock.Clock) *ConfigBuilder {
	b.cfg.Clock = c
	return b
}

// Build finalizes the configuration, filling in defaults for an unset
// Logger (zap.NewNop()) and Clock (clock.New()).
func (b *ConfigBuilder) Build() PipelineConfig {
	cfg := b.cfg
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return cfg
}
