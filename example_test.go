// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe_test

import (
	"fmt"
	"time"

	"code.hybscloud.com/txpipe"
	"code.hybscloud.com/txpipe/message"
	"code.hybscloud.com/txpipe/txchan"
	"code.hybscloud.com/txpipe/wire"
)

// Example demonstrates building a single-priority pipeline, pushing a
// message, and draining it on the consumer side.
func Example() {
	cfg := txpipe.NewConfig(txpipe.BatchConfig{MTU: 1500}).
		QueueSizes(4).
		BackoffSlot(time.Microsecond).
		Build()

	channels := txpipe.PriorityChannels{
		Reliable:   &txchan.Channel{},
		BestEffort: &txchan.Channel{},
	}
	producer, consumer := txpipe.Make(cfg, wire.Codec{}, []txpipe.PriorityChannels{channels})

	msg := &message.Network{
		Bytes:    []byte("hello"),
		Reliable: true,
		Prio:     txpipe.PriorityDefault,
	}
	if !producer.PushNetworkMessage(msg) {
		panic("push failed")
	}

	batch, _, ok := consumer.Pull()
	if !ok {
		panic("pipeline disabled")
	}
	fmt.Println(batch.Len() > 0)
	consumer.Refill(batch, 0)

	// Output: true
}
