// Package common provides common utilities for disc image operations.
// This file contains alignment helpers and number formatting for offsets and sizes.
package common

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberStyle selects how offsets and sizes are printed
type NumberStyle int

const (
	Decimal NumberStyle = iota
	Hexadecimal
)

// Align rounds n up to the next multiple of alignment.
// An alignment of 0 or 1 leaves n unchanged.
func Align(n, alignment uint64) uint64 {
	if alignment <= 1 {
		return n
	}
	if rem := n % alignment; rem != 0 {
		return n + alignment - rem
	}
	return n
}

// FormatNumber renders value in the given style (hex values are 0x-prefixed)
func FormatNumber(value uint64, style NumberStyle) string {
	if style == Hexadecimal {
		return fmt.Sprintf("0x%X", value)
	}
	return strconv.FormatUint(value, 10)
}

// ParseNumber parses a decimal or 0x-prefixed hexadecimal unsigned integer
func ParseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
