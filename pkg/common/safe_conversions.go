package common

import (
	"fmt"
	"math"
)

// MaxUint24 is the largest value representable in a 3-byte field
const MaxUint24 = 1<<24 - 1

// SafeUint64ToUint32 safely converts uint64 to uint32 with bounds checking
func SafeUint64ToUint32(value uint64) (uint32, error) {
	if value > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range for uint32 (0-%d)", value, uint64(math.MaxUint32))
	}
	return uint32(value), nil
}

// SafeUint64ToUint24 safely converts uint64 to a 24-bit value with bounds checking
func SafeUint64ToUint24(value uint64) (uint32, error) {
	if value > MaxUint24 {
		return 0, fmt.Errorf("value %d out of range for uint24 (0-%d)", value, MaxUint24)
	}
	return uint32(value), nil
}

// SafeInt64ToUint64 safely converts int64 to uint64, rejecting negative values
func SafeInt64ToUint64(value int64) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative, cannot convert to uint64", value)
	}
	return uint64(value), nil
}

// SafeUint64ToInt64 safely converts uint64 to int64 with bounds checking
func SafeUint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d out of range for int64 (0-%d)", value, int64(math.MaxInt64))
	}
	return int64(value), nil
}
