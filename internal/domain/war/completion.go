package war

// CompletionRatio returns actual/expected clamped to [0, 1].
// When nothing is expected the ratio is not applicable and ok is false.
func CompletionRatio(actual, expected int) (ratio float64, ok bool) {
	if expected <= 0 {
		return 0, false
	}
	if actual <= 0 {
		return 0, true
	}
	if actual >= expected {
		return 1, true
	}
	return float64(actual) / float64(expected), true
}

// ClanCompletion is the share of expected decks the whole roster has used
func ClanCompletion(decksUsed []int, expected int) (float64, bool) {
	if expected <= 0 || len(decksUsed) == 0 {
		return 0, false
	}
	used := 0
	for _, d := range decksUsed {
		if d > expected {
			d = expected
		}
		if d > 0 {
			used += d
		}
	}
	return CompletionRatio(used, expected*len(decksUsed))
}
