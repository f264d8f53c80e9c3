package storage

import (
	"strconv"
	"strings"
)

// StrToUint converts a string to uint, returning 0 and an error on failure.
func StrToUint(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

// likePattern builds a case-insensitive substring pattern for use against a
// LOWER(column) LIKE comparison.
func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
