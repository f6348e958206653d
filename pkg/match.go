package recon

import (
	"fmt"
	"math"
	"sort"
)

// MatchRecord associates one calorimeter cluster with at most one hit in
// each GEM. Indices refer to the slices given to the matcher, -1 when
// there is none.
type MatchRecord struct {
	Calo           int
	GEM1           int
	GEM2           int
	GEM1Candidates []int
	GEM2Candidates []int
}

func NewMatchRecord(calo int) MatchRecord {
	return MatchRecord{Calo: calo, GEM1: -1, GEM2: -1}
}

func (r MatchRecord) Matched() bool {
	return r.GEM1 >= 0 || r.GEM2 >= 0
}

type Matcher struct {
	options MatchOptions
}

func NewMatcher(options MatchOptions) (*Matcher, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{options: options}, nil
}

func (m *Matcher) Options() MatchOptions {
	return m.options
}

// Resolution is the calorimeter position resolution for a cluster (mm).
func (m *Matcher) Resolution(c Cluster) float64 {
	var res float64
	switch c.Type {
	case TypeCrystal, TypeCrystalBoundary:
		res = m.options.CrystalRes
	case TypeGlass, TypeGlassBoundary:
		res = m.options.LeadGlassRes
	default:
		res = m.options.TransitionRes
	}
	if m.options.ScaleByEnergy && c.Energy > 0 {
		res /= math.Sqrt(c.Energy / gevToMeV)
	}
	return res
}

// PreMatch tells whether a GEM hit is compatible with a cluster, and at
// which transverse distance.
func (m *Matcher) PreMatch(c Cluster, h TrackHit) (float64, bool) {
	dist := math.Hypot(c.X-h.X, c.Y-h.Y)
	res := m.Resolution(c)
	sigma := math.Sqrt(res*res + m.options.GEMRes*m.options.GEMRes)
	return dist, dist <= m.options.MatchSigma*sigma
}

// candidates returns the compatible hits sorted by distance.
func (m *Matcher) candidates(c Cluster, hits []TrackHit) []int {
	var idx []int
	dist := make(map[int]float64)
	for i, h := range hits {
		d, ok := m.PreMatch(c, h)
		if ok {
			idx = append(idx, i)
			dist[i] = d
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dist[idx[a]] < dist[idx[b]]
	})
	return idx
}

// PostMatch picks the final GEM hits of a record from its candidates.
func (m *Matcher) PostMatch(rec *MatchRecord, c Cluster, gem1, gem2 []TrackHit) bool {
	return m.postMatch(rec, c, gem1, gem2, nil, nil)
}

func (m *Matcher) postMatch(rec *MatchRecord, c Cluster, gem1, gem2 []TrackHit, taken1, taken2 map[int]bool) bool {
	rec.GEM1, rec.GEM2 = -1, -1
	cand1 := available(rec.GEM1Candidates, taken1)
	cand2 := available(rec.GEM2Candidates, taken2)

	switch {
	case len(cand1) > 0 && len(cand2) > 0:
		limit := m.options.OverlapSigma * math.Sqrt2 * m.options.GEMRes
		best := math.Inf(1)
		for _, i := range cand1 {
			for _, j := range cand2 {
				if math.Hypot(gem1[i].X-gem2[j].X, gem1[i].Y-gem2[j].Y) > limit {
					continue
				}
				r1 := math.Hypot(c.X-gem1[i].X, c.Y-gem1[i].Y)
				r2 := math.Hypot(c.X-gem2[j].X, c.Y-gem2[j].Y)
				if res := r1*r1 + r2*r2; res < best {
					best = res
					rec.GEM1, rec.GEM2 = i, j
				}
			}
		}
		if rec.Matched() {
			break
		}
		if m.options.Priority == 2 {
			rec.GEM2 = cand2[0]
		} else {
			rec.GEM1 = cand1[0]
		}
	case len(cand1) > 0:
		rec.GEM1 = cand1[0]
	case len(cand2) > 0:
		rec.GEM2 = cand2[0]
	}
	return rec.Matched()
}

func available(candidates []int, taken map[int]bool) []int {
	if len(taken) == 0 {
		return candidates
	}
	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		if !taken[i] {
			out = append(out, i)
		}
	}
	return out
}

// Match builds one record per cluster. In exclusive mode a GEM hit ends up
// in at most one record: the closest cluster keeps it and the others fall
// back to their next candidates.
func (m *Matcher) Match(clusters []Cluster, gem1, gem2 []TrackHit) []MatchRecord {
	records := make([]MatchRecord, len(clusters))
	for i, c := range clusters {
		records[i] = NewMatchRecord(i)
		records[i].GEM1Candidates = m.candidates(c, gem1)
		records[i].GEM2Candidates = m.candidates(c, gem2)
		m.PostMatch(&records[i], c, gem1, gem2)
	}
	if !m.options.Exclusive {
		return records
	}

	lost1 := make([]map[int]bool, len(records))
	lost2 := make([]map[int]bool, len(records))
	for iter := 0; ; iter++ {
		changed := false
		changed = m.resolveConflicts(records, clusters, gem1, func(r *MatchRecord) *int { return &r.GEM1 }, lost1) || changed
		changed = m.resolveConflicts(records, clusters, gem2, func(r *MatchRecord) *int { return &r.GEM2 }, lost2) || changed
		if !changed {
			break
		}
		for i := range records {
			m.postMatch(&records[i], clusters[i], gem1, gem2, lost1[i], lost2[i])
		}
		if verbosity > 2 {
			logger.Info(fmt.Sprintf("Exclusive matching pass %d", iter+1), "match")
		}
	}
	return records
}

// resolveConflicts marks, for every GEM hit claimed by several records, the
// hit as lost for all but the closest cluster. It reports whether any
// record lost a hit.
func (m *Matcher) resolveConflicts(records []MatchRecord, clusters []Cluster, hits []TrackHit,
	field func(*MatchRecord) *int, lost []map[int]bool) bool {
	claims := make(map[int][]int)
	for i := range records {
		if h := *field(&records[i]); h >= 0 {
			claims[h] = append(claims[h], i)
		}
	}
	changed := false
	for h, owners := range claims {
		if len(owners) < 2 {
			continue
		}
		winner := owners[0]
		best := math.Inf(1)
		for _, i := range owners {
			d := math.Hypot(clusters[i].X-hits[h].X, clusters[i].Y-hits[h].Y)
			if d < best || (d == best && i < winner) {
				best = d
				winner = i
			}
		}
		for _, i := range owners {
			if i == winner {
				continue
			}
			if lost[i] == nil {
				lost[i] = make(map[int]bool)
			}
			lost[i][h] = true
			changed = true
		}
	}
	return changed
}

// MatchedPosition is the best position estimate of a cluster: the matched
// GEM hit, the average of both when they agree, or the calorimeter itself.
func MatchedPosition(rec MatchRecord, c Cluster, gem1, gem2 []TrackHit) (float64, float64) {
	switch {
	case rec.GEM1 >= 0 && rec.GEM2 >= 0:
		return 0.5 * (gem1[rec.GEM1].X + gem2[rec.GEM2].X), 0.5 * (gem1[rec.GEM1].Y + gem2[rec.GEM2].Y)
	case rec.GEM1 >= 0:
		return gem1[rec.GEM1].X, gem1[rec.GEM1].Y
	case rec.GEM2 >= 0:
		return gem2[rec.GEM2].X, gem2[rec.GEM2].Y
	}
	return c.X, c.Y
}
