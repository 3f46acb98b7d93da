// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber converts a query or path value for numeric validation.
//
// An empty (or blank) string yields nil, meaning "not provided". A value
// that is not a number yields a pointer to NaN, so a rule chain with IsNumber
// reports it instead of it being silently defaulted.
//
// Example:
//
//	utils.ParseNumber("42")  // -> 42
//	utils.ParseNumber("")    // -> nil
//	utils.ParseNumber("x")   // -> NaN
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = math.NaN()
	}
	return &f
}

// IntOr returns int(*f) when f is non-nil, otherwise def. Callers validate f
// as an integer within int range beforehand.
func IntOr(f *float64, def int) int {
	if f == nil {
		return def
	}
	return int(*f)
}

// TotalPages returns the number of pages needed for total items at pageSize
// items per page. A non-positive pageSize yields 0.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
