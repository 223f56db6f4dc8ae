// internal/app/system/status/status.go

// Package status defines the shared account/entity status values.
package status

const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid reports whether s is a recognized status value.
func IsValid(s string) bool {
	return s == Active || s == Disabled
}
