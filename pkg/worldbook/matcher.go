package worldbook

import (
	"sort"
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
)

// DefaultWindow is the number of trailing history messages scanned for keys.
const DefaultWindow = 5

// Match selects the entries relevant to the current turn.
//
// The haystack is the last window history contents plus message, lowercased.
// Entries with Selective=false or Enabled=false never match. Constant entries
// always match. Other entries match when any of their Keys is a
// case-insensitive substring of the haystack; SecondaryKeys are not consulted.
// The result lists constant entries first, then keyed matches, each group in
// input order.
func Match(entries []domain.WorldBookEntry, message string, history []domain.Message, window int) []domain.WorldBookEntry {
	if window <= 0 {
		window = DefaultWindow
	}
	haystack := buildHaystack(message, history, window)

	var constant, keyed []domain.WorldBookEntry
	for _, e := range entries {
		if !e.Selective || !e.Enabled {
			continue
		}
		if e.Constant {
			constant = append(constant, e)
			continue
		}
		if matchesAny(haystack, e.Keys) {
			keyed = append(keyed, e)
		}
	}
	return append(constant, keyed...)
}

func buildHaystack(message string, history []domain.Message, window int) string {
	start := len(history) - window
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, len(history)-start+1)
	for _, m := range history[start:] {
		parts = append(parts, m.Content)
	}
	parts = append(parts, message)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func matchesAny(haystack string, keys []string) bool {
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

// Bucket groups entries by injection position. Entries without a valid
// position land in domain.PositionDefault. Each bucket is ordered by
// descending InsertionOrder; ties keep their input order.
func Bucket(entries []domain.WorldBookEntry) [domain.PositionCount][]domain.WorldBookEntry {
	var buckets [domain.PositionCount][]domain.WorldBookEntry
	for _, e := range entries {
		b := e.Bucket()
		buckets[b] = append(buckets[b], e)
	}
	for i := range buckets {
		sort.SliceStable(buckets[i], func(a, b int) bool {
			return buckets[i][a].InsertionOrder > buckets[i][b].InsertionOrder
		})
	}
	return buckets
}

// Render joins the contents of the entries, one per paragraph.
func Render(entries []domain.WorldBookEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if c := strings.TrimSpace(e.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n\n")
}
