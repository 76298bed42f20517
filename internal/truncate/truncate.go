// Package truncate bounds result payloads without changing their order.
// It only ever drops items from the tail; the engine's ordering is preserved
// and the original count is always reported alongside the kept prefix.
package truncate

// DefaultLimit is applied when a request carries no limit or a non-positive one.
const DefaultLimit = 200

// Truncated wraps a bounded prefix of a result sequence.
type Truncated[T any] struct {
	// Items is the kept prefix, in the original order.
	Items []T `json:"items"`

	// TotalCount is the length of the sequence before truncation.
	TotalCount int `json:"totalCount"`

	// Truncated is true when items were dropped from the tail.
	Truncated bool `json:"truncated"`
}

// Apply bounds items to limit entries. A non-positive limit falls back to
// DefaultLimit. The input slice is never mutated or reordered.
func Apply[T any](items []T, limit int) Truncated[T] {
	limit = Normalize(limit)

	total := len(items)
	if total <= limit {
		return Truncated[T]{
			Items:      items,
			TotalCount: total,
			Truncated:  false,
		}
	}

	return Truncated[T]{
		Items:      items[:limit],
		TotalCount: total,
		Truncated:  true,
	}
}

// Normalize maps absent or non-positive limits to DefaultLimit.
func Normalize(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
