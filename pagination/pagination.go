// Package pagination implements the single clamp rule every list query
// in this module shares. The original CosmWasm contracts this was
// ported from appear to compute max(default, MAX) for an unset limit,
// which always yields MAX and silently ignores the default — the fix
// here is deliberate, not a replication of that bug.
package pagination

const (
	// DefaultLimit is used when the caller supplies limit <= 0.
	DefaultLimit = 10
	// MaxLimit is the hard cap regardless of what the caller supplies.
	MaxLimit = 30
)

// Clamp returns the effective page size: the caller's limit if positive,
// else DefaultLimit, capped at MaxLimit.
func Clamp(limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}
