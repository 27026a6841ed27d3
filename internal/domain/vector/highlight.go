package vector

import "strings"

// FromHighlights builds a 0/1 indicator vector aligned to order.
// Position i is 1 when order[i] case-insensitively equals any highlight.
// Highlights that match no label are ignored.
func FromHighlights(order, highlights []string) []float64 {
	want := make(map[string]struct{}, len(highlights))
	for _, h := range highlights {
		want[strings.ToLower(h)] = struct{}{}
	}

	out := make([]float64, len(order))
	for i, label := range order {
		if _, ok := want[strings.ToLower(label)]; ok {
			out[i] = 1
		}
	}
	return out
}
