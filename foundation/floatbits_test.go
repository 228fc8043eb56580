// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package foundation

import "math"

// float32NaN builds a float32 NaN with a distinct payload so tests can
// assert that two different NaNs are not bit-equal.
func float32NaN(payload uint32) float32 {
	return math.Float32frombits(0x7fc00000 | (payload & 0x3fffff))
}
