// internal/app/system/normalize/normalize.go

// Package normalize provides canonical forms for user-entered identifiers.
// Stores normalize before writing so lookups are deterministic.
package normalize

import "strings"

// LoginID lowercases and trims a login identifier (usually an email).
func LoginID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// AuthMethod lowercases and trims an auth method ("internal", "google").
func AuthMethod(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Code canonicalizes a submitted linking code: trimmed, uppercased.
// Matching is case-insensitive; storage is uppercase.
func Code(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
