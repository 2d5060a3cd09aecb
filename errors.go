// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package txpipe

import "errors"

// newFrameErr is the sentinel a Codec returns from Encode when no current
// frame header matches the message and a fresh frame must be synthesized.
// It corresponds to spec.md §6's BatchError::NewFrame.
type newFrameErr struct{}

func (newFrameErr) Error() string { return "txpipe: new frame required" }

// ErrNewFrame is returned by Codec.Encode to signal that the caller must
// synthesize a frame or fragment header and retry (spec.md §4.2 step 3).
var ErrNewFrame error = newFrameErr{}

// IsNewFrame reports whether err is (or wraps) ErrNewFrame.
func IsNewFrame(err error) bool {
	return errors.Is(err, ErrNewFrame)
}
