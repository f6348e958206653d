package recon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatcher(t *testing.T, modify func(*MatchOptions)) *Matcher {
	t.Helper()
	options := MatchOptions{
		GEMRes:        0,
		CrystalRes:    2,
		LeadGlassRes:  6,
		TransitionRes: 4,
		MatchSigma:    3,
		OverlapSigma:  10,
		Priority:      1,
	}
	if modify != nil {
		modify(&options)
	}
	m, err := NewMatcher(options)
	require.NoError(t, err)
	return m
}

func crystalCluster(x, y float64) Cluster {
	return Cluster{X: x, Y: y, Energy: 1000, Type: TypeCrystal, Flags: FlagCrystal}
}

func TestPreMatch(t *testing.T) {
	c := crystalCluster(10, 5)
	h := TrackHit{X: 10.5, Y: 5.2}

	dist, ok := testMatcher(t, nil).PreMatch(c, h)
	assert.True(t, ok)
	assert.InDelta(t, math.Hypot(0.5, 0.2), dist, 1e-12)

	_, ok = testMatcher(t, func(o *MatchOptions) { o.MatchSigma = 0.1 }).PreMatch(c, h)
	assert.False(t, ok)
}

func TestResolutionByType(t *testing.T) {
	m := testMatcher(t, nil)

	assert.Equal(t, 2., m.Resolution(Cluster{Type: TypeCrystalBoundary}))
	assert.Equal(t, 6., m.Resolution(Cluster{Type: TypeGlass}))
	assert.Equal(t, 4., m.Resolution(Cluster{Type: TypeTransition}))

	scaled := testMatcher(t, func(o *MatchOptions) { o.ScaleByEnergy = true })
	assert.InDelta(t, 1., scaled.Resolution(Cluster{Type: TypeCrystal, Energy: 4000}), 1e-12)
}

func TestPostMatchConsistentHits(t *testing.T) {
	m := testMatcher(t, func(o *MatchOptions) { o.GEMRes = 0.1 })
	c := crystalCluster(10, 5)
	gem1 := []TrackHit{{X: 30, Y: 5}, {X: 10.5, Y: 5.2}}
	gem2 := []TrackHit{{X: 10.52, Y: 5.21}}

	rec := NewMatchRecord(0)
	rec.GEM1Candidates = m.candidates(c, gem1)
	rec.GEM2Candidates = m.candidates(c, gem2)

	assert.True(t, m.PostMatch(&rec, c, gem1, gem2))
	assert.Equal(t, []int{1}, rec.GEM1Candidates)
	assert.Equal(t, 1, rec.GEM1)
	assert.Equal(t, 0, rec.GEM2)
}

func TestPostMatchInconsistentHitsKeepPriority(t *testing.T) {
	c := crystalCluster(10, 5)
	gem1 := []TrackHit{{X: 10.5, Y: 5}}
	gem2 := []TrackHit{{X: 15, Y: 5}}

	for _, priority := range []int{1, 2} {
		m := testMatcher(t, func(o *MatchOptions) {
			o.GEMRes = 0.1
			o.Priority = priority
		})
		rec := NewMatchRecord(0)
		rec.GEM1Candidates = m.candidates(c, gem1)
		rec.GEM2Candidates = m.candidates(c, gem2)
		require.Len(t, rec.GEM2Candidates, 1)

		assert.True(t, m.PostMatch(&rec, c, gem1, gem2))
		if priority == 1 {
			assert.Equal(t, 0, rec.GEM1)
			assert.Equal(t, -1, rec.GEM2)
		} else {
			assert.Equal(t, -1, rec.GEM1)
			assert.Equal(t, 0, rec.GEM2)
		}
	}
}

func TestPostMatchWithoutCandidates(t *testing.T) {
	m := testMatcher(t, nil)
	rec := NewMatchRecord(2)

	assert.False(t, m.PostMatch(&rec, crystalCluster(0, 0), nil, nil))
	assert.Equal(t, MatchRecord{Calo: 2, GEM1: -1, GEM2: -1}, rec)
}

func TestMatchExclusive(t *testing.T) {
	clusters := []Cluster{crystalCluster(0, 0), crystalCluster(3, 0)}
	gem1 := []TrackHit{{X: 1, Y: 0}}

	shared := testMatcher(t, nil).Match(clusters, gem1, nil)
	require.Len(t, shared, 2)
	assert.Equal(t, 0, shared[0].GEM1)
	assert.Equal(t, 0, shared[1].GEM1)

	exclusive := testMatcher(t, func(o *MatchOptions) { o.Exclusive = true }).Match(clusters, gem1, nil)
	require.Len(t, exclusive, 2)
	assert.Equal(t, 0, exclusive[0].GEM1)
	assert.Equal(t, -1, exclusive[1].GEM1)
	// the lost hit is still listed as a candidate
	assert.Equal(t, []int{0}, exclusive[1].GEM1Candidates)
}

func TestMatchExclusiveFallsBackToNextCandidate(t *testing.T) {
	clusters := []Cluster{crystalCluster(0, 0), crystalCluster(1.5, 0)}
	gem1 := []TrackHit{{X: 1, Y: 0}, {X: 5.5, Y: 0}}

	records := testMatcher(t, func(o *MatchOptions) { o.Exclusive = true }).Match(clusters, gem1, nil)

	require.Len(t, records, 2)
	assert.Equal(t, []int{0, 1}, records[0].GEM1Candidates)
	assert.Equal(t, 1, records[0].GEM1)
	assert.Equal(t, 0, records[1].GEM1)
	for _, r := range records {
		assert.Equal(t, -1, r.GEM2)
	}
}

func TestMatchedPosition(t *testing.T) {
	c := crystalCluster(1, 1)
	gem1 := []TrackHit{{X: 2, Y: 4}}
	gem2 := []TrackHit{{X: 4, Y: 6}}

	x, y := MatchedPosition(MatchRecord{GEM1: 0, GEM2: 0}, c, gem1, gem2)
	assert.Equal(t, [2]float64{3, 5}, [2]float64{x, y})

	x, y = MatchedPosition(MatchRecord{GEM1: -1, GEM2: 0}, c, gem1, gem2)
	assert.Equal(t, [2]float64{4, 6}, [2]float64{x, y})

	x, y = MatchedPosition(NewMatchRecord(0), c, gem1, gem2)
	assert.Equal(t, [2]float64{1, 1}, [2]float64{x, y})
}

func TestNewMatcherValidates(t *testing.T) {
	_, err := NewMatcher(MatchOptions{MatchSigma: 0, Priority: 1})
	assert.Error(t, err)
	_, err = NewMatcher(MatchOptions{MatchSigma: 3, Priority: 3})
	assert.Error(t, err)
}
