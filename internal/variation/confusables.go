package variation

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfusables = errors.New("invalid confusable map")

// Rule lists the characters OCR commonly reads in place of From, most likely first.
type Rule struct {
	From byte
	To   string
}

// ConfusableMap is immutable. Every (From, To[k]) pair gets a global priority
// rank, strictly increasing in declaration order and starting at 1.
type ConfusableMap struct {
	alts  map[byte]string
	ranks map[[2]byte]int
	rules []Rule
}

// NewConfusableMap validates rules and assigns ranks.
func NewConfusableMap(rules ...Rule) (ConfusableMap, error) {
	m := ConfusableMap{
		alts:  make(map[byte]string, len(rules)),
		ranks: make(map[[2]byte]int),
		rules: make([]Rule, 0, len(rules)),
	}
	rank := 0
	for _, r := range rules {
		if _, dup := m.alts[r.From]; dup {
			return ConfusableMap{}, fmt.Errorf("%w: %q declared twice", ErrInvalidConfusables, r.From)
		}
		for i := 0; i < len(r.To); i++ {
			to := r.To[i]
			if to == r.From {
				return ConfusableMap{}, fmt.Errorf("%w: %q maps to itself", ErrInvalidConfusables, r.From)
			}
			key := [2]byte{r.From, to}
			if _, dup := m.ranks[key]; dup {
				return ConfusableMap{}, fmt.Errorf("%w: %q -> %q repeated", ErrInvalidConfusables, r.From, to)
			}
			rank++
			m.ranks[key] = rank
		}
		m.alts[r.From] = r.To
		m.rules = append(m.rules, r)
	}
	return m, nil
}

// ParseRules reads rules written as "1=IL" (character, '=', alternatives).
func ParseRules(entries []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(entries))
	for _, entry := range entries {
		from, to, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || len(from) != 1 || to == "" {
			return nil, fmt.Errorf("%w: bad rule %q", ErrInvalidConfusables, entry)
		}
		rules = append(rules, Rule{From: from[0], To: to})
	}
	return rules, nil
}

// DefaultRules is the confusion table tuned on dash-cam plate footage.
func DefaultRules() []Rule {
	return []Rule{
		{From: '0', To: "O"},
		{From: 'O', To: "0"},
		{From: '1', To: "IL"},
		{From: 'I', To: "1"},
		{From: '5', To: "S"},
		{From: 'S', To: "5"},
		{From: '6', To: "G"},
		{From: 'G', To: "6"},
		{From: '8', To: "B"},
		{From: 'B', To: "8"},
		{From: 'Z', To: "27"},
		{From: '2', To: "Z7"},
		{From: '7', To: "Z2"},
		{From: 'Q', To: "O"},
		{From: '4', To: "L"},
		{From: 'L', To: "4"},
	}
}

// Default returns the map built from DefaultRules.
func Default() ConfusableMap {
	m, err := NewConfusableMap(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return m
}

// Alternatives returns the declared confusables of c in priority order.
func (m ConfusableMap) Alternatives(c byte) string {
	return m.alts[c]
}

// Rank returns the priority of reading to where from was observed.
func (m ConfusableMap) Rank(from, to byte) (int, bool) {
	r, ok := m.ranks[[2]byte{from, to}]
	return r, ok
}

// Rules returns a copy of the declared rules.
func (m ConfusableMap) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}
