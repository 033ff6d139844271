package search

import "time"

// debounceDelay resolves the adaptive debounce delay for an input. Longer,
// more specific queries get faster feedback; short noisy ones are damped.
//
// disabled or empty -> 0ms; under 3 runes -> 600ms; under 5 -> 400ms;
// otherwise 200ms.
func debounceDelay(input string, enabled bool) time.Duration {
	if !enabled || input == "" {
		return 0
	}
	switch n := runeLen(input); {
	case n < 3:
		return 600 * time.Millisecond
	case n < 5:
		return 400 * time.Millisecond
	default:
		return 200 * time.Millisecond
	}
}
