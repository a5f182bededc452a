// Package id provides unique identifier generation for jobs.
package id

import "github.com/google/uuid"

// Prefix marks analysis job identifiers.
const Prefix = "ana-"

// Generate creates a new unique job ID.
// Format: ana-<uuid v4>
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s has the shape produced by Generate.
func Valid(s string) bool {
	if len(s) <= len(Prefix) || s[:len(Prefix)] != Prefix {
		return false
	}
	_, err := uuid.Parse(s[len(Prefix):])
	return err == nil
}
