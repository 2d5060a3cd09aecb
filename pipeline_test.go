// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe_test

import (
	"testing"
	"time"

	"code.hybscloud.com/txpipe"
	"code.hybscloud.com/txpipe/message"
	"code.hybscloud.com/txpipe/txchan"
	"code.hybscloud.com/txpipe/wire"
)

func newTestChannels() txpipe.PriorityChannels {
	return txpipe.PriorityChannels{
		Reliable:   &txchan.Channel{},
		BestEffort: &txchan.Channel{},
	}
}

// TestPipelineFlowDeliversEveryMessage mirrors the baseline send-and-receive
// scenario this package's pipeline was adapted from: push several
// single-batch messages and confirm the consumer observes every one of
// them, across a handful of payload sizes.
func TestPipelineFlowDeliversEveryMessage(t *testing.T) {
	for _, size := range []int{1, 8, 56} {
		cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 128}).
			QueueSizes(16).
			Build()
		producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})

		const n = 10
		payload := make([]byte, size)
		for i := 0; i < n; i++ {
			msg := &message.Network{Bytes: payload, Reliable: true, Prio: txpipe.PriorityDefault}
			if !producer.PushNetworkMessage(msg) {
				t.Fatalf("size %d: push %d failed", size, i)
			}
		}

		got := 0
		for got < n {
			batch, _, ok := consumer.Pull()
			if !ok {
				t.Fatalf("size %d: Pull reported the pipeline disabled prematurely", size)
			}
			if batch.IsEmpty() {
				t.Fatalf("size %d: pulled an empty batch", size)
			}
			got++
			consumer.Refill(batch, 0)
		}
	}
}

// TestPipelineFragmentsOversizedMessage pushes a message larger than the
// batch MTU and expects it to come out across more than one batch.
func TestPipelineFragmentsOversizedMessage(t *testing.T) {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 16}).
		QueueSizes(8).
		Build()
	producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})
	defer producer.Disable()

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	msg := &message.Network{Bytes: payload, Reliable: true, Prio: txpipe.PriorityDefault}
	if !producer.PushNetworkMessage(msg) {
		t.Fatal("push of oversized message failed")
	}

	pulled := make(chan *txpipe.Batch)
	go func() {
		for {
			batch, _, ok := consumer.Pull()
			if !ok {
				return
			}
			pulled <- batch
		}
	}()

	fragments := 0
	const grace = 150 * time.Millisecond
collect:
	for {
		select {
		case batch := <-pulled:
			fragments++
			consumer.Refill(batch, 0)
		case <-time.After(grace):
			break collect
		}
	}
	if fragments < 2 {
		t.Fatalf("got %d batch(es), want the message split across multiple 16-byte batches", fragments)
	}
}

// TestPipelineBlocksThenUnblocksOnRefill exercises congestion with a
// single-batch queue: the second push has nothing to write into until the
// consumer pulls the first batch out and returns it via Refill.
func TestPipelineBlocksThenUnblocksOnRefill(t *testing.T) {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 64}).
		QueueSizes(1).
		Build()
	producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})

	first := &message.Network{Bytes: []byte("first"), Reliable: true, Prio: txpipe.PriorityDefault}
	if !producer.PushNetworkMessage(first) {
		t.Fatal("first push should have succeeded immediately")
	}

	result := make(chan bool, 1)
	go func() {
		second := &message.Network{Bytes: []byte("second"), Reliable: true, Prio: txpipe.PriorityDefault}
		result <- producer.PushNetworkMessage(second)
	}()

	select {
	case <-result:
		t.Fatal("second push completed without a free batch; it should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	batch, prio, ok := consumer.Pull()
	if !ok {
		t.Fatal("Pull reported the pipeline disabled")
	}
	if prio != 0 {
		t.Fatalf("Pull priority = %d, want 0", prio)
	}
	consumer.Refill(batch, 0)

	select {
	case ok := <-result:
		if !ok {
			t.Fatal("second push failed after being unblocked by Refill")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second push never unblocked after Refill")
	}
}

// TestPipelineDropsDroppableMessageAfterWaitBeforeDrop confirms a droppable
// message gives up and reports failure instead of blocking forever once a
// batch has not freed up within WaitBeforeDrop.
func TestPipelineDropsDroppableMessageAfterWaitBeforeDrop(t *testing.T) {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 64}).
		QueueSizes(1).
		WaitBeforeDrop(20 * time.Millisecond).
		Build()
	producer, _ := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})

	first := &message.Network{Bytes: []byte("first"), Reliable: true, Prio: txpipe.PriorityDefault}
	if !producer.PushNetworkMessage(first) {
		t.Fatal("first push should have succeeded immediately")
	}

	second := &message.Network{Bytes: []byte("second"), Reliable: true, Prio: txpipe.PriorityDefault, Droppable: true}
	start := time.Now()
	if producer.PushNetworkMessage(second) {
		t.Fatal("droppable push should have been dropped, no batch was ever freed")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("push returned after %v, want it to have waited out WaitBeforeDrop", elapsed)
	}
}

// TestPipelineDisableStopsConsumerAndProducer confirms Disable makes Pull
// return promptly with ok=false and further pushes fail.
func TestPipelineDisableStopsConsumerAndProducer(t *testing.T) {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 64}).
		QueueSizes(4).
		Build()
	producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})

	pullDone := make(chan struct{})
	go func() {
		defer close(pullDone)
		_, _, ok := consumer.Pull()
		if ok {
			t.Error("Pull should report ok=false once the pipeline is disabled")
		}
	}()

	producer.Disable()

	select {
	case <-pullDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Pull did not return promptly after Disable")
	}

	if producer.IsActive() {
		t.Fatal("IsActive should be false after Disable")
	}
	msg := &message.Network{Bytes: []byte("x"), Reliable: true, Prio: txpipe.PriorityDefault}
	if producer.PushNetworkMessage(msg) {
		t.Fatal("push should fail once the pipeline is disabled")
	}
}

// TestPipelineDrainRecoversQueuedAndCurrentBatches confirms Drain returns
// both fully-queued batches and an open current batch after Disable.
func TestPipelineDrainRecoversQueuedAndCurrentBatches(t *testing.T) {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 64}).
		QueueSizes(4).
		Build()
	producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})

	queued := &message.Network{Bytes: []byte("queued"), Reliable: true, Prio: txpipe.PriorityDefault}
	if !producer.PushNetworkMessage(queued) {
		t.Fatal("network push failed")
	}
	ctrl := &message.Transport{Bytes: []byte("ctrl"), Reliable: false}
	if !producer.PushTransportMessage(ctrl, txpipe.PriorityDefault) {
		t.Fatal("control push failed")
	}

	producer.Disable()
	drained := consumer.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain recovered %d batch(es), want 2: the queued network batch and the open current batch holding the control message", len(drained))
	}
	for _, d := range drained {
		if d.Batch.IsEmpty() {
			t.Fatal("Drain returned an empty batch")
		}
	}
}

// TestMakeRejectsMismatchedQueueSizeCount confirms Make panics instead of
// silently misrouting priorities: a queue-size configuration that doesn't
// match the channel count is a programmer error, not a runtime condition
// (spec.md §6).
func TestMakeRejectsMismatchedQueueSizeCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Make to panic when QueueSize count does not match channel count")
		}
	}()
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 64}).
		QueueSizes(4, 4).
		Build()
	channels := []txpipe.PriorityChannels{newTestChannels()}
	txpipe.Make(cfg, wire.Codec{}, channels)
}

// TestPipelineDrainUnblocksParkedProducers confirms Drain alone, without
// Disable, releases producers parked waiting for a free batch (spec.md §6:
// a closed refill signal is a permanent failure every blocked producer
// wait must observe).
func TestPipelineDrainUnblocksParkedProducers(t *testing.T) {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 64}).
		QueueSizes(1).
		Build()
	producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{newTestChannels()})

	first := &message.Network{Bytes: []byte("first"), Reliable: true, Prio: txpipe.PriorityDefault}
	if !producer.PushNetworkMessage(first) {
		t.Fatal("first push should have succeeded immediately")
	}

	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		go func() {
			msg := &message.Network{Bytes: []byte("blocked"), Reliable: true, Prio: txpipe.PriorityDefault}
			results <- producer.PushNetworkMessage(msg)
		}()
	}

	select {
	case <-results:
		t.Fatal("a blocked push completed before the queue had any free batch")
	case <-time.After(50 * time.Millisecond):
	}

	consumer.Drain()

	for i := 0; i < 2; i++ {
		select {
		case ok := <-results:
			if ok {
				t.Fatal("a push unblocked by Drain should report failure, not success")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("a blocked producer never unblocked after Drain")
		}
	}
}
