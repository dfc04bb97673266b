// Package variation enumerates plausible misreadings of a plate token.
//
// Every position of a seed may keep its character or take one of the
// character's confusables. Each resulting variation is scored by the priority
// ranks of the substitutions it uses: (lowest rank, sum of ranks). The seed
// itself scores (0, 0) and always comes first. Ranked mode yields variations in
// ascending score order, ties in cross-product order, without materializing the
// full cross-product; Sweep mode reproduces the older per-position sweep.
package variation

import (
	"container/heap"
	"fmt"
	"iter"
	"slices"
)

// DefaultCeiling bounds how many variations Generate materializes.
const DefaultCeiling = 512

type Mode string

const (
	ModeRanked Mode = "ranked"
	ModeSweep  Mode = "sweep"
)

// Metric is (minimum substitution rank, sum of substitution ranks).
type Metric struct {
	Min int `json:"min"`
	Sum int `json:"sum"`
}

// Less orders metrics by Min, then Sum.
func (m Metric) Less(o Metric) bool {
	if m.Min != o.Min {
		return m.Min < o.Min
	}
	return m.Sum < o.Sum
}

type Variation struct {
	Value  string `json:"value"`
	Metric Metric `json:"metric"`
}

// Generator is safe for concurrent use; it holds only immutable configuration.
type Generator struct {
	confusables ConfusableMap
	mode        Mode
	ceiling     int
}

func NewGenerator(m ConfusableMap, mode Mode, ceiling int) (*Generator, error) {
	switch mode {
	case "":
		mode = ModeRanked
	case ModeRanked, ModeSweep:
	default:
		return nil, fmt.Errorf("unknown variation mode %q", mode)
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Generator{confusables: m, mode: mode, ceiling: ceiling}, nil
}

func (g *Generator) Mode() Mode { return g.mode }

// Generate returns at most the generator's ceiling of variations of seed, seed first.
func (g *Generator) Generate(seed string) []Variation {
	seq := Ranked(seed, g.confusables)
	if g.mode == ModeSweep {
		seq = Sweep(seed, g.confusables)
	}
	out := make([]Variation, 0, min(g.ceiling, 64))
	for v := range seq {
		out = append(out, v)
		if len(out) >= g.ceiling {
			break
		}
	}
	return out
}

// MetricOf scores v against seed. It reports false when v is not reachable
// from seed through declared substitutions.
func MetricOf(seed, v string, m ConfusableMap) (Metric, bool) {
	if len(seed) != len(v) {
		return Metric{}, false
	}
	var metric Metric
	for i := 0; i < len(seed); i++ {
		if seed[i] == v[i] {
			continue
		}
		rank, ok := m.Rank(seed[i], v[i])
		if !ok {
			return Metric{}, false
		}
		if metric.Min == 0 || rank < metric.Min {
			metric.Min = rank
		}
		metric.Sum += rank
	}
	return metric, true
}

type choice struct {
	char byte
	rank int // 0 keeps the seed character
	gen  int // index in the position's full option list
}

func optionLists(seed string, m ConfusableMap) [][]choice {
	lists := make([][]choice, len(seed))
	for i := 0; i < len(seed); i++ {
		c := seed[i]
		alts := m.Alternatives(c)
		list := make([]choice, 0, len(alts)+1)
		list = append(list, choice{char: c})
		for k := 0; k < len(alts); k++ {
			rank, _ := m.Rank(c, alts[k])
			list = append(list, choice{char: alts[k], rank: rank, gen: k + 1})
		}
		lists[i] = list
	}
	return lists
}

// Ranked yields variations of seed in ascending Metric order, ties broken by
// cross-product order, duplicates dropped.
//
// Variations whose lowest rank is r are produced together. That group is
// split by the first position taking the rank-r substitution, so each part
// is a plain product space walked best-first by rank sum.
func Ranked(seed string, m ConfusableMap) iter.Seq[Variation] {
	return func(yield func(Variation) bool) {
		if !yield(Variation{Value: seed}) {
			return
		}
		lists := optionLists(seed, m)
		seen := map[string]struct{}{seed: {}}
		for _, r := range groupRanks(lists) {
			for v := range rankGroup(lists, r) {
				if _, dup := seen[v.Value]; dup {
					continue
				}
				seen[v.Value] = struct{}{}
				if !yield(v) {
					return
				}
			}
		}
	}
}

func groupRanks(lists [][]choice) []int {
	var ranks []int
	for _, list := range lists {
		for _, ch := range list[1:] {
			ranks = append(ranks, ch.rank)
		}
	}
	slices.Sort(ranks)
	return slices.Compact(ranks)
}

type node struct {
	part   int
	digits []int
	last   int
	sum    int
	gen    []int
}

type frontier []*node

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].sum != f[j].sum {
		return f[i].sum < f[j].sum
	}
	return slices.Compare(f[i].gen, f[j].gen) < 0
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(*node)) }
func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	*f = old[:len(old)-1]
	return n
}

// rankGroup yields every variation whose lowest substitution rank is r.
func rankGroup(lists [][]choice, r int) iter.Seq[Variation] {
	return func(yield func(Variation) bool) {
		var parts [][][]choice
		h := &frontier{}
		for k, list := range lists {
			pick := -1
			for d, ch := range list {
				if d > 0 && ch.rank == r {
					pick = d
				}
			}
			if pick < 0 {
				continue
			}
			part := make([][]choice, len(lists))
			gen := make([]int, len(lists))
			for i, opts := range lists {
				if i == k {
					part[i] = []choice{opts[pick]}
					gen[i] = opts[pick].gen
					continue
				}
				keep := []choice{opts[0]}
				for _, ch := range opts[1:] {
					if ch.rank < r || (ch.rank == r && i < k) {
						continue
					}
					keep = append(keep, ch)
				}
				part[i] = keep
			}
			heap.Push(h, &node{part: len(parts), digits: make([]int, len(lists)), last: -1, sum: r, gen: gen})
			parts = append(parts, part)
		}

		for h.Len() > 0 {
			n := heap.Pop(h).(*node)
			part := parts[n.part]
			if n.last >= 0 && n.digits[n.last]+1 < len(part[n.last]) {
				heap.Push(h, n.step(part, n.last, n.last))
			}
			for q := n.last + 1; q < len(part); q++ {
				if len(part[q]) > 1 {
					heap.Push(h, n.step(part, q, q))
				}
			}
			value := make([]byte, len(part))
			for i, d := range n.digits {
				value[i] = part[i][d].char
			}
			if !yield(Variation{Value: string(value), Metric: Metric{Min: r, Sum: n.sum}}) {
				return
			}
		}
	}
}

// step advances position pos by one option and marks last as the newest
// changed position.
func (n *node) step(part [][]choice, pos, last int) *node {
	child := &node{
		part:   n.part,
		digits: slices.Clone(n.digits),
		last:   last,
		gen:    slices.Clone(n.gen),
	}
	from := part[pos][child.digits[pos]]
	child.digits[pos]++
	to := part[pos][child.digits[pos]]
	child.sum = n.sum - from.rank + to.rank
	child.gen[pos] = to.gen
	return child
}

// Sweep yields variations the way the first release generated them: position
// by position, substituting only into the strings produced at the most recent
// position that produced anything new.
func Sweep(seed string, m ConfusableMap) iter.Seq[Variation] {
	return func(yield func(Variation) bool) {
		if !yield(Variation{Value: seed}) {
			return
		}
		seen := map[string]struct{}{seed: {}}
		current := []string{seed}
		for pos := 0; pos < len(seed); pos++ {
			var next []string
			for _, s := range current {
				alts := m.Alternatives(s[pos])
				for k := 0; k < len(alts); k++ {
					b := []byte(s)
					b[pos] = alts[k]
					candidate := string(b)
					if _, dup := seen[candidate]; dup {
						continue
					}
					seen[candidate] = struct{}{}
					next = append(next, candidate)
					metric, _ := MetricOf(seed, candidate, m)
					if !yield(Variation{Value: candidate, Metric: metric}) {
						return
					}
				}
			}
			if len(next) > 0 {
				current = next
			}
		}
	}
}
