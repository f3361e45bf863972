// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// Page size bounds shared by list endpoints and services.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage bounds page to >= 1 and pageSize to [1, MaxPageSize]. A
// non-positive pageSize becomes DefaultPageSize when useDefault is set and
// 1 otherwise. offset is the number of rows before the page.
func ClampPage(page, pageSize int, useDefault bool) (p, size, offset int) {
	p, size = page, pageSize
	if p < 1 {
		p = 1
	}
	if size < 1 {
		size = 1
		if useDefault {
			size = DefaultPageSize
		}
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return p, size, (p - 1) * size
}
