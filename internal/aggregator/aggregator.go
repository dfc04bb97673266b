// Package aggregator turns raw OCR detections into a frequency-ranked set of
// plate tokens.
package aggregator

import (
	"iter"
	"sort"

	"plate-resolver/internal/domain/plate"
)

// Entry is one admissible token and how often it was read.
type Entry struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Table is the candidate frequency table of one video. It is read-only once built.
type Table struct {
	entries  []Entry // first-seen order
	observed int
}

// Build drains texts, keeping every admissible token.
func Build(texts iter.Seq[string]) *Table {
	t := &Table{}
	index := make(map[string]int)
	for raw := range texts {
		t.observed++
		token, ok := plate.Normalize(raw)
		if !ok {
			continue
		}
		if i, seen := index[token]; seen {
			t.entries[i].Count++
			continue
		}
		index[token] = len(t.entries)
		t.entries = append(t.entries, Entry{Token: token, Count: 1})
	}
	return t
}

// FromSlice is Build over an in-memory list.
func FromSlice(texts []string) *Table {
	return Build(func(yield func(string) bool) {
		for _, s := range texts {
			if !yield(s) {
				return
			}
		}
	})
}

// Len is the number of distinct admissible tokens.
func (t *Table) Len() int { return len(t.entries) }

// Observed is the number of raw detections consumed, admissible or not.
func (t *Table) Observed() int { return t.observed }

// Count returns how often token was read.
func (t *Table) Count(token string) int {
	for _, e := range t.entries {
		if e.Token == token {
			return e.Count
		}
	}
	return 0
}

// Ranked orders tokens by count desc, then length desc, then first-seen order.
func (t *Table) Ranked() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return len(out[i].Token) > len(out[j].Token)
	})
	return out
}

// Seed is the top-ranked token, or "" when nothing admissible was read.
func (t *Table) Seed() string {
	ranked := t.Ranked()
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Token
}

// Candidates lists the distinct tokens for the fallback phase, ordered by count
// desc then lexically so repeated runs try them in the same order.
func (t *Table) Candidates() []string {
	sorted := make([]Entry, len(t.entries))
	copy(sorted, t.entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Token < sorted[j].Token
	})
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = e.Token
	}
	return out
}
