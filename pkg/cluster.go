package recon

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ClusterFlag uint32

const (
	FlagCrystal ClusterFlag = 1 << iota
	FlagGlass
	FlagTransition
	FlagInnerBound
	FlagOuterBound
	FlagSplit
	FlagGlued
	FlagDeadModule
	FlagDiscarded
)

var flagNames = []struct {
	flag ClusterFlag
	name string
}{
	{FlagCrystal, "crystal"},
	{FlagGlass, "glass"},
	{FlagTransition, "transition"},
	{FlagInnerBound, "inner_bound"},
	{FlagOuterBound, "outer_bound"},
	{FlagSplit, "split"},
	{FlagGlued, "glued"},
	{FlagDeadModule, "dead_module"},
	{FlagDiscarded, "discarded"},
}

func (f ClusterFlag) Has(flag ClusterFlag) bool {
	return f&flag != 0
}

func (f *ClusterFlag) Set(flag ClusterFlag) {
	*f |= flag
}

func (f *ClusterFlag) Clear(flag ClusterFlag) {
	*f &^= flag
}

func (f ClusterFlag) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

type ClusterType int

const (
	TypeCrystal ClusterType = iota
	TypeGlass
	TypeTransition
	TypeCrystalBoundary
	TypeGlassBoundary
)

func (t ClusterType) String() string {
	switch t {
	case TypeCrystal:
		return "crystal"
	case TypeGlass:
		return "glass"
	case TypeTransition:
		return "transition"
	case TypeCrystalBoundary:
		return "crystal_boundary"
	case TypeGlassBoundary:
		return "glass_boundary"
	default:
		return "unknown"
	}
}

type ModuleHit struct {
	ID     int
	Energy float64
	X      float64
	Y      float64
}

// Cluster is a reconstructed calorimeter shower. Returned clusters are in
// MeV and mm in the lab frame.
type Cluster struct {
	Hits             []ModuleHit
	Energy           float64
	EnergyResolution float64
	CenterID         int
	CenterEnergy     float64
	Sector           int
	X                float64
	Y                float64
	Z                float64
	Flags            ClusterFlag
	Type             ClusterType
}

// ClusterEngine reconstructs calorimeter clusters. It holds no per-event
// state and can be shared by several goroutines.
type ClusterEngine struct {
	geometry  *Geometry
	options   ClusterOptions
	templates []*SectorGrid
	dead      []Module
}

func NewClusterEngine(geometry *Geometry, options ClusterOptions) (*ClusterEngine, error) {
	if geometry == nil {
		return nil, &ErrGeometry{Reason: "missing geometry"}
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	e := &ClusterEngine{
		geometry: geometry,
		options:  options,
		dead:     geometry.DeadModules(),
	}
	for _, s := range geometry.Sectors() {
		grid := NewSectorGrid(s.ID, s.NCol, s.NRow)
		for row := 0; row < s.NRow; row++ {
			for col := 0; col < s.NCol; col++ {
				m, ok := geometry.ModuleAt(s.ID, col, row)
				if !ok {
					continue
				}
				cell := grid.Index(col, row)
				grid.IDs[cell] = m.ID
				if m.Status == Alive {
					grid.Status[cell] = CellAlive
				} else {
					grid.Status[cell] = CellDead
				}
			}
		}
		e.templates = append(e.templates, grid)
	}
	return e, nil
}

func (e *ClusterEngine) Options() ClusterOptions {
	return e.options
}

func (e *ClusterEngine) Geometry() *Geometry {
	return e.geometry
}

// Reconstruct turns the module energies of one event into clusters.
func (e *ClusterEngine) Reconstruct(energies ChannelEnergyMap) []Cluster {
	grids := e.fillGrids(energies.InGeV())

	perSector := make([][]Cluster, len(grids))
	if e.options.Parallel {
		var wg sync.WaitGroup
		for s, grid := range grids {
			wg.Add(1)
			go func(s int, grid *SectorGrid) {
				defer wg.Done()
				perSector[s] = e.clusterSector(grid)
			}(s, grid)
		}
		wg.Wait()
	} else {
		for s, grid := range grids {
			perSector[s] = e.clusterSector(grid)
		}
	}

	var clusters []Cluster
	for _, sc := range perSector {
		clusters = append(clusters, sc...)
	}
	clusters = e.limitClusters(clusters)

	if e.options.DoTransitionMerge {
		e.mergeTransitionClusters(clusters)
	}
	if e.options.DoNonLinearCorrection {
		for i := range clusters {
			if !clusters[i].Flags.Has(FlagDiscarded) {
				e.correctNonLinearity(&clusters[i])
			}
		}
	}

	clusters = e.filterClusters(clusters)
	for i := range clusters {
		e.finalize(&clusters[i])
	}
	if verbosity > 2 {
		message := fmt.Sprintf("%d clusters from %d modules", len(clusters), energies.Len())
		logger.Info(message, "cluster")
	}
	return clusters
}

func (e *ClusterEngine) fillGrids(energies ChannelEnergyMap) []*SectorGrid {
	grids := make([]*SectorGrid, len(e.templates))
	for i, t := range e.templates {
		grids[i] = &SectorGrid{
			Sector: t.Sector,
			NCol:   t.NCol,
			NRow:   t.NRow,
			Energy: make([]float64, len(t.Energy)),
			Status: t.Status,
			IDs:    t.IDs,
		}
	}

	for _, id := range energies.IDs() {
		energy, _ := energies.Energy(id)
		m, ok := e.geometry.Module(id)
		if !ok {
			warn("energy for unknown module %d dropped", id)
			continue
		}
		if m.Status != Alive {
			if verbosity > 2 {
				logger.Info(fmt.Sprintf("Ignoring hit on dead module %d", id), "cluster")
			}
			continue
		}
		if energy < e.options.MinBlockEnergy {
			continue
		}
		grid := grids[m.Sector]
		grid.Energy[grid.Index(m.Col, m.Row)] = energy
	}
	return grids
}

func (e *ClusterEngine) clusterSector(grid *SectorGrid) []Cluster {
	islands := FindIslands(grid, IslandParams{
		MinHitEnergy:    e.options.MinBlockEnergy,
		MinCenterEnergy: e.options.MinCenterEnergy,
		Radius:          e.options.ClusterRadius,
	})

	clusters := make([]Cluster, 0, len(islands))
	for _, isl := range islands {
		c := Cluster{
			Sector:       grid.Sector,
			CenterID:     grid.IDs[isl.Seed],
			CenterEnergy: grid.Energy[isl.Seed],
			Hits:         make([]ModuleHit, 0, len(isl.Cells)),
		}
		for _, cell := range isl.Cells {
			m, _ := e.geometry.Module(grid.IDs[cell])
			c.Hits = append(c.Hits, ModuleHit{ID: m.ID, Energy: grid.Energy[cell], X: m.X, Y: m.Y})
		}
		if isl.Split {
			c.Flags.Set(FlagSplit)
		}
		e.limitHits(&c)
		setCenter(&c)
		c.Energy = sumEnergy(c.Hits)
		e.computePosition(&c)
		clusters = append(clusters, c)
	}
	return clusters
}

// limitHits keeps the most energetic members when a cluster is too large.
func (e *ClusterEngine) limitHits(c *Cluster) {
	if len(c.Hits) <= e.options.MaxClusterHits {
		return
	}
	warn("cluster centered at module %d has %d modules, keeping the %d most energetic",
		c.CenterID, len(c.Hits), e.options.MaxClusterHits)
	sort.SliceStable(c.Hits, func(i, j int) bool {
		return c.Hits[i].Energy > c.Hits[j].Energy
	})
	c.Hits = c.Hits[:e.options.MaxClusterHits]
}

// setCenter makes the most energetic member the cluster center, lower id
// first on ties, and moves it to the front of Hits.
func setCenter(c *Cluster) {
	if len(c.Hits) == 0 {
		return
	}
	best := 0
	for i, h := range c.Hits[1:] {
		b := c.Hits[best]
		if h.Energy > b.Energy || (h.Energy == b.Energy && h.ID < b.ID) {
			best = i + 1
		}
	}
	center := c.Hits[best]
	copy(c.Hits[1:best+1], c.Hits[:best])
	c.Hits[0] = center
	c.CenterID = center.ID
	c.CenterEnergy = center.Energy
}

// limitClusters drops the least energetic clusters above MaxClusters and
// keeps the order of the others.
func (e *ClusterEngine) limitClusters(clusters []Cluster) []Cluster {
	if len(clusters) <= e.options.MaxClusters {
		return clusters
	}
	warn("%d clusters found, keeping the %d most energetic", len(clusters), e.options.MaxClusters)
	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return clusters[order[i]].Energy > clusters[order[j]].Energy
	})
	keep := order[:e.options.MaxClusters]
	sort.Ints(keep)
	out := make([]Cluster, 0, len(keep))
	for _, i := range keep {
		out = append(out, clusters[i])
	}
	return out
}

// computePosition sets the weighted centroid in the working frame (cm).
func (e *ClusterEngine) computePosition(c *Cluster) {
	var sumW, x, y float64
	for _, h := range c.Hits {
		w := e.weight(h.Energy, c.Energy)
		sumW += w
		x += w * h.X
		y += w * h.Y
	}
	if sumW > 0 {
		c.X = x / sumW
		c.Y = y / sumW
		return
	}
	warn("cluster centered at module %d has no positive weight, using the module position", c.CenterID)
	m, _ := e.geometry.Module(c.CenterID)
	c.X, c.Y = m.X, m.Y
}

// filterClusters keeps, in order, the clusters passing the selection.
func (e *ClusterEngine) filterClusters(clusters []Cluster) []Cluster {
	out := clusters[:0]
	for _, c := range clusters {
		switch {
		case c.Flags.Has(FlagDiscarded):
		case c.Energy < e.options.MinClusterEnergy || c.Energy > e.options.MaxClusterEnergy:
		case len(c.Hits) < e.options.MinClusterSize:
		case c.CenterEnergy < e.options.MinCenterEnergy:
		default:
			out = append(out, c)
		}
	}
	return out
}

func sumEnergy(hits []ModuleHit) float64 {
	total := 0.
	for _, h := range hits {
		total += h.Energy
	}
	return total
}
