// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package fec

import "errors"

// Sentinel errors for the FEC layer (spec.md §7).
var (
	// ErrRateUnrealisable is returned when the message needs so many source
	// symbols that even N1Min repair symbols would exceed the codec's
	// shard limit, so no code rate can be honoured.
	ErrRateUnrealisable = errors.New("fec: requested code rate is unrealisable within the N1 window")
	// ErrMessageTooLarge is returned when the message requires more
	// source symbols than the underlying codec can address. Encode also
	// returns it for an empty message.
	ErrMessageTooLarge = errors.New("fec: message exceeds codec symbol-count limit")
	// ErrCodecInitFailed is returned when the underlying erasure codec
	// refuses the requested session parameters.
	ErrCodecInitFailed = errors.New("fec: codec session initialisation failed")
	// ErrNoValidOTI is returned by Decode when no stride's CRC matches its
	// claimed OTI anywhere in the input.
	ErrNoValidOTI = errors.New("fec: no valid object transmission information found")
	// ErrUnrecoverableLoss is returned by Decode when too few distinct
	// symbols were received to reconstruct the source message.
	ErrUnrecoverableLoss = errors.New("fec: too many erasures to recover source symbols")
	// ErrCodecFailure is returned when the underlying erasure codec
	// rejects an operation outside of the above cases.
	ErrCodecFailure = errors.New("fec: underlying codec failure")
)
