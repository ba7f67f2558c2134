package internal

import (
	"fmt"
	"iter"
)

// SplitWindows cuts text into fixed-size character windows where adjacent
// windows share exactly overlap characters. The final window may be
// shorter. The returned sequence is lazy and restartable.
//
// overlap >= window would make the offset stop advancing, so it is
// rejected up front instead of looping forever.
func SplitWindows(text string, window, overlap int) (iter.Seq[string], error) {
	if window <= 0 {
		return nil, fmt.Errorf("chunk window must be positive, got %d", window)
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("chunk overlap must be in [0, window), got overlap=%d window=%d", overlap, window)
	}

	runes := []rune(text)
	step := window - overlap

	return func(yield func(string) bool) {
		for offset := 0; offset < len(runes); offset += step {
			end := offset + window
			if end > len(runes) {
				end = len(runes)
			}
			if !yield(string(runes[offset:end])) {
				return
			}
		}
	}, nil
}
