package domain

// Predicate is a boolean filter over a record's metadata. A nil Predicate
// matches every record. Predicates are applied as hard filters: a record
// that fails the predicate is never eligible, regardless of score.
type Predicate func(metadata map[string]any) bool

// Matches reports whether the metadata satisfies the predicate.
// A nil predicate matches everything.
func (p Predicate) Matches(metadata map[string]any) bool {
	if p == nil {
		return true
	}
	return p(metadata)
}

// MatchEquals returns a predicate that is satisfied when the metadata
// contains key with exactly the given value.
func MatchEquals(key string, value any) Predicate {
	return func(metadata map[string]any) bool {
		got, ok := metadata[key]
		return ok && got == value
	}
}

// MatchAll combines predicates conjunctively. Nil elements are skipped.
func MatchAll(preds ...Predicate) Predicate {
	return func(metadata map[string]any) bool {
		for _, p := range preds {
			if p != nil && !p(metadata) {
				return false
			}
		}
		return true
	}
}
