// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ident canonicalises account identifiers (usernames, emails) so that
// uniqueness and lookups are case-insensitive and whitespace-insensitive.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFKC (compatibility forms fold: "ｆｕｌｌ" → "full").
// 2. Trims surrounding whitespace.
// 3. Converts to lowercase.
package ident

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical returns the stored form of a username or email.
func Canonical(s string) string {
	result, _, err := transform.String(norm.NFKC, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(strings.TrimSpace(result))
}

// Blank reports whether s is empty after trimming.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
