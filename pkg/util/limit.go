package util

// Page size bounds of list queries.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// SanitizeLimit clamps limit to [1,MaxLimit] and defaults to DefaultLimit when non-positive.
func SanitizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
