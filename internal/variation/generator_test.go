package variation

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crossProduct materializes every variation eagerly and sorts it stably; the
// lazy ranked walk must agree with it.
func crossProduct(seed string, m ConfusableMap) []Variation {
	all := []Variation{{Value: ""}}
	for i := 0; i < len(seed); i++ {
		opts := string(seed[i]) + m.Alternatives(seed[i])
		next := make([]Variation, 0, len(all)*len(opts))
		for _, prefix := range all {
			for k := 0; k < len(opts); k++ {
				next = append(next, Variation{Value: prefix.Value + string(opts[k])})
			}
		}
		all = next
	}
	for i := range all {
		all[i].Metric, _ = MetricOf(seed, all[i].Value, m)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Metric.Less(all[j].Metric) })
	return all
}

func values(vs []Variation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Value
	}
	return out
}

func newRanked(t *testing.T, ceiling int) *Generator {
	t.Helper()
	g, err := NewGenerator(Default(), ModeRanked, ceiling)
	require.NoError(t, err)
	return g
}

func TestRankedMatchesSortedCrossProduct(t *testing.T) {
	m := Default()
	for _, seed := range []string{"ABC123", "7ZB10", "S5O0Q", "2Z7L41", "B8G6I1S"} {
		want := crossProduct(seed, m)
		got := newRanked(t, 1<<20).Generate(seed)
		require.Equal(t, len(want), len(got), seed)
		assert.Equal(t, want, got, seed)
	}
}

func TestRankedProperties(t *testing.T) {
	for _, seed := range []string{"8ABC123", "ZZ2277", "1I1I1I1I1I", "XYZ", ""} {
		got := newRanked(t, 0).Generate(seed)
		require.NotEmpty(t, got)
		assert.Equal(t, seed, got[0].Value)
		assert.Equal(t, Metric{}, got[0].Metric)

		seedCount := 0
		seen := map[string]bool{}
		for i, v := range got {
			assert.Len(t, v.Value, len(seed))
			assert.False(t, seen[v.Value], "duplicate %s", v.Value)
			seen[v.Value] = true
			if v.Value == seed {
				seedCount++
			}
			if i > 0 {
				assert.False(t, v.Metric.Less(got[i-1].Metric), "%s out of order at %d", seed, i)
			}
		}
		assert.Equal(t, 1, seedCount)
		assert.LessOrEqual(t, len(got), DefaultCeiling)
	}
}

func TestRankedWithoutConfusables(t *testing.T) {
	got := newRanked(t, 0).Generate("XYA3CD")
	assert.Equal(t, []Variation{{Value: "XYA3CD"}}, got)
}

func TestRankedDeclaredOrderWins(t *testing.T) {
	m, err := NewConfusableMap(Rule{From: '1', To: "IL"})
	require.NoError(t, err)
	g, err := NewGenerator(m, ModeRanked, 0)
	require.NoError(t, err)

	got := values(g.Generate("ABC123"))
	assert.Equal(t, []string{"ABC123", "ABCI23", "ABCL23"}, got)
}

func TestRankedDefaultMapOrder(t *testing.T) {
	got := newRanked(t, 0).Generate("ABC123")
	require.GreaterOrEqual(t, len(got), 8)
	assert.Equal(t, []string{
		"ABC123",
		"ABCI23",
		"A8CI23",
		"ABCIZ3",
		"ABCI73",
		"A8CIZ3",
		"A8CI73",
		"ABCL23",
	}, values(got[:8]))
	assert.Equal(t, Metric{Min: 3, Sum: 3}, got[1].Metric)
	assert.Equal(t, Metric{Min: 4, Sum: 4}, got[7].Metric)
}

func TestRankedIsDeterministic(t *testing.T) {
	g := newRanked(t, 0)
	first := g.Generate("8B1ZZ27")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Generate("8B1ZZ27"))
	}
}

func TestCeilingCapsOutput(t *testing.T) {
	g := newRanked(t, 50)
	got := g.Generate("1111111111")
	assert.Len(t, got, 50)
	assert.Equal(t, crossProduct("1111111111", Default())[:50], got)
}

func TestSweepMatchesFirstRelease(t *testing.T) {
	g, err := NewGenerator(Default(), ModeSweep, 0)
	require.NoError(t, err)

	got := values(g.Generate("ZB1"))
	assert.Equal(t, []string{"ZB1", "2B1", "7B1", "281", "781", "28I", "28L", "78I", "78L"}, got)
}

func TestNewGeneratorRejectsUnknownMode(t *testing.T) {
	_, err := NewGenerator(Default(), Mode("random"), 0)
	assert.Error(t, err)
}

func TestMetricOf(t *testing.T) {
	m := Default()
	metric, ok := MetricOf("ABC123", "A8CI23", m)
	require.True(t, ok)
	assert.Equal(t, Metric{Min: 3, Sum: 14}, metric)

	_, ok = MetricOf("ABC123", "XBC123", m)
	assert.False(t, ok)
}
