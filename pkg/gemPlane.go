package recon

import (
	"fmt"
	"sort"
)

type PlaneType int

const (
	PlaneX PlaneType = iota
	PlaneY
)

func (t PlaneType) String() string {
	switch t {
	case PlaneX:
		return "X"
	case PlaneY:
		return "Y"
	default:
		return "Unknown"
	}
}

type PlaneHit struct {
	Strip  int
	Charge float64
}

// PlaneCluster is a run of adjacent fired strips. Position is the charge
// weighted strip position in mm.
type PlaneCluster struct {
	Hits     []PlaneHit
	Position float64
}

func (c PlaneCluster) TotalCharge() float64 {
	total := 0.
	for _, h := range c.Hits {
		total += h.Charge
	}
	return total
}

func (c PlaneCluster) PeakCharge() float64 {
	peak := 0.
	for _, h := range c.Hits {
		peak = max(peak, h.Charge)
	}
	return peak
}

func (c PlaneCluster) Size() int {
	return len(c.Hits)
}

// Plane collects the strip hits of one readout direction of a GEM and
// groups them into clusters.
type Plane struct {
	Name     string
	Type     PlaneType
	Size     float64
	Pitch    float64
	config   PlaneConfig
	hits     []PlaneHit
	clusters []PlaneCluster
}

func NewPlane(name string, t PlaneType, config PlaneConfig) *Plane {
	if config.Direction == 0 {
		config.Direction = 1
	}
	return &Plane{
		Name:   name,
		Type:   t,
		Size:   config.Size,
		Pitch:  config.Pitch,
		config: config,
	}
}

// AddPlaneHit records the largest of the time samples of a strip. Strips
// outside the accepted range are ignored.
func (p *Plane) AddPlaneHit(strip int, charges []float64) {
	if strip < p.config.MinStrip || strip > p.config.MaxStrip || len(charges) == 0 {
		return
	}
	charge := charges[0]
	for _, q := range charges[1:] {
		charge = max(charge, q)
	}
	p.hits = append(p.hits, PlaneHit{Strip: strip, Charge: charge})
}

func (p *Plane) Hits() []PlaneHit {
	return p.hits
}

func (p *Plane) Clusters() []PlaneCluster {
	return p.clusters
}

func (p *Plane) ClearPlaneHits() {
	p.hits = p.hits[:0]
	p.clusters = p.clusters[:0]
}

// StripPosition is the strip center in the plane frame (mm). The X readout
// has 32 extra strip pitches not covered by the active area.
func (p *Plane) StripPosition(strip int) float64 {
	var pos float64
	if p.Type == PlaneX {
		pos = -0.5*(p.Size+31*p.Pitch) + p.Pitch*float64(strip)
	} else {
		pos = -0.5*(p.Size-p.Pitch) + p.Pitch*float64(strip)
	}
	return p.config.Direction * pos
}

// ClusterHits groups the recorded hits into clusters of consecutive strips,
// splits them at charge valleys and keeps the accepted sizes.
func (p *Plane) ClusterHits() []PlaneCluster {
	hits := make([]PlaneHit, len(p.hits))
	copy(hits, p.hits)
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Strip < hits[j].Strip
	})
	hits = p.dropDuplicates(hits)

	p.clusters = p.clusters[:0]
	for _, group := range groupConsecutive(hits) {
		for _, c := range splitCluster(group, p.config.SplitMargin) {
			if c.Size() < p.config.MinClusterSize || c.Size() > p.config.MaxClusterSize {
				continue
			}
			c.Position = p.clusterPosition(c)
			p.clusters = append(p.clusters, c)
		}
	}
	return p.clusters
}

func (p *Plane) dropDuplicates(hits []PlaneHit) []PlaneHit {
	out := hits[:0]
	for _, h := range hits {
		if n := len(out); n > 0 && out[n-1].Strip == h.Strip {
			if verbosity > 1 {
				logger.Info(fmt.Sprintf("Plane %s: strip %d fired twice", p.Name, h.Strip), "gem")
			}
			out[n-1].Charge = max(out[n-1].Charge, h.Charge)
			continue
		}
		out = append(out, h)
	}
	return out
}

func (p *Plane) clusterPosition(c PlaneCluster) float64 {
	var sumQ, sumX float64
	for _, h := range c.Hits {
		sumQ += h.Charge
		sumX += h.Charge * p.StripPosition(h.Strip)
	}
	if sumQ <= 0 {
		return p.StripPosition(c.Hits[0].Strip)
	}
	return sumX / sumQ
}

// groupConsecutive cuts a strip sorted hit list wherever strips are not adjacent.
func groupConsecutive(hits []PlaneHit) [][]PlaneHit {
	var groups [][]PlaneHit
	start := 0
	for i := 1; i <= len(hits); i++ {
		if i == len(hits) || hits[i].Strip-hits[i-1].Strip > 1 {
			if i > start {
				groups = append(groups, hits[start:i])
			}
			start = i
		}
	}
	return groups
}

// splitCluster cuts a run of strips at every strip whose charge is at least
// margin below both neighbors. The valley charge is halved and the strip is
// shared by both sides.
func splitCluster(hits []PlaneHit, margin float64) []PlaneCluster {
	rest := make([]PlaneHit, len(hits))
	copy(rest, hits)

	var out []PlaneCluster
	for {
		valley := findValley(rest, margin)
		if valley < 0 {
			out = append(out, PlaneCluster{Hits: rest})
			return out
		}
		rest[valley].Charge /= 2
		left := make([]PlaneHit, valley+1)
		copy(left, rest[:valley+1])
		out = append(out, PlaneCluster{Hits: left})

		right := make([]PlaneHit, len(rest)-valley)
		copy(right, rest[valley:])
		rest = right
	}
}

func findValley(hits []PlaneHit, margin float64) int {
	for i := 1; i+1 < len(hits); i++ {
		if hits[i-1].Charge-hits[i].Charge >= margin && hits[i+1].Charge-hits[i].Charge >= margin {
			return i
		}
	}
	return -1
}
