package recon

import (
	"fmt"
	"math"
	"sort"
)

type ModuleType int

const (
	Crystal ModuleType = iota
	LeadGlass
)

func (t ModuleType) String() string {
	switch t {
	case Crystal:
		return "crystal"
	case LeadGlass:
		return "glass"
	default:
		return "unknown"
	}
}

func ParseModuleType(s string) (ModuleType, error) {
	switch s {
	case "crystal", "PbWO4", "PWO":
		return Crystal, nil
	case "glass", "PbGlass", "LG":
		return LeadGlass, nil
	}
	return Crystal, fmt.Errorf("unknown module type %q", s)
}

type ModuleStatus int

const (
	Alive ModuleStatus = iota
	Dead
	Absent
)

// Module is one calorimeter block. Row and Col are 0-based and local to
// the sector grid, positions and sizes are in cm.
type Module struct {
	ID       int
	Sector   int
	Row      int
	Col      int
	X        float64
	Y        float64
	SizeX    float64
	SizeY    float64
	Type     ModuleType
	Status   ModuleStatus
	Boundary bool
}

type Sector struct {
	ID   int
	NCol int
	NRow int
	Type ModuleType
}

// CalibConst carries the non-linearity response of one module.
// CalibEnergy is the beam energy of the calibration in MeV.
type CalibConst struct {
	ModuleID        int
	NonLinearFactor float64
	CalibEnergy     float64
}

// Geometry is the immutable description of the calorimeter, safe for
// concurrent use once built.
type Geometry struct {
	modules []Module
	index   map[int]int
	sectors []Sector
	cells   [][]int
	dead    []int
	calib   map[int]CalibConst
}

// NewGeometry validates the modules, derives the sector grids and marks
// the modules lying on a detector edge.
func NewGeometry(modules []Module, consts []CalibConst) (*Geometry, error) {
	if len(modules) == 0 {
		return nil, &ErrGeometry{Reason: "no modules"}
	}
	g := &Geometry{
		modules: make([]Module, len(modules)),
		index:   make(map[int]int, len(modules)),
		calib:   make(map[int]CalibConst, len(consts)),
	}
	copy(g.modules, modules)
	sort.SliceStable(g.modules, func(i, j int) bool {
		return g.modules[i].ID < g.modules[j].ID
	})

	nSectors := 0
	for i, m := range g.modules {
		if _, ok := g.index[m.ID]; ok {
			return nil, &ErrGeometry{ModuleID: m.ID, Reason: "duplicated module id"}
		}
		if m.Sector < 0 || m.Row < 0 || m.Col < 0 {
			return nil, &ErrGeometry{ModuleID: m.ID, Reason: "negative grid coordinates"}
		}
		if m.SizeX <= 0 || m.SizeY <= 0 {
			return nil, &ErrGeometry{ModuleID: m.ID, Reason: "non positive module size"}
		}
		g.index[m.ID] = i
		if m.Sector+1 > nSectors {
			nSectors = m.Sector + 1
		}
	}

	g.sectors = make([]Sector, nSectors)
	for i := range g.sectors {
		g.sectors[i].ID = i
	}
	populated := make([]bool, nSectors)
	for _, m := range g.modules {
		s := &g.sectors[m.Sector]
		if !populated[m.Sector] {
			s.Type = m.Type
			populated[m.Sector] = true
		} else if s.Type != m.Type {
			return nil, &ErrGeometry{ModuleID: m.ID, Reason: fmt.Sprintf("mixed module types in sector %d", m.Sector)}
		}
		s.NCol = max(s.NCol, m.Col+1)
		s.NRow = max(s.NRow, m.Row+1)
	}

	g.cells = make([][]int, nSectors)
	for i, s := range g.sectors {
		cells := make([]int, s.NCol*s.NRow)
		for j := range cells {
			cells[j] = -1
		}
		g.cells[i] = cells
	}
	for i, m := range g.modules {
		s := g.sectors[m.Sector]
		cell := m.Row*s.NCol + m.Col
		if g.cells[m.Sector][cell] >= 0 {
			other := g.modules[g.cells[m.Sector][cell]]
			return nil, &ErrGeometry{ModuleID: m.ID, Reason: fmt.Sprintf("grid cell already used by module %d", other.ID)}
		}
		g.cells[m.Sector][cell] = i
		if m.Status == Dead {
			g.dead = append(g.dead, i)
		}
	}

	for _, c := range consts {
		if _, ok := g.index[c.ModuleID]; !ok {
			warn("calibration constants for unknown module %d ignored", c.ModuleID)
			continue
		}
		g.calib[c.ModuleID] = c
	}

	g.markBoundaries()
	return g, nil
}

// markBoundaries flags a module when one of its eight neighbors is neither
// in its sector grid nor covered by any other module.
func (g *Geometry) markBoundaries() {
	for i := range g.modules {
		m := &g.modules[i]
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				if _, ok := g.ModuleAt(m.Sector, m.Col+dc, m.Row+dr); ok {
					continue
				}
				x := m.X + float64(dc)*m.SizeX
				y := m.Y + float64(dr)*m.SizeY
				if !g.covered(x, y, m.Sector) {
					m.Boundary = true
				}
			}
		}
	}
}

func (g *Geometry) covered(x, y float64, skipSector int) bool {
	for _, o := range g.modules {
		if o.Sector == skipSector {
			continue
		}
		if math.Abs(x-o.X) < o.SizeX/2 && math.Abs(y-o.Y) < o.SizeY/2 {
			return true
		}
	}
	return false
}

func (g *Geometry) Module(id int) (Module, bool) {
	i, ok := g.index[id]
	if !ok {
		return Module{}, false
	}
	return g.modules[i], true
}

// Modules returns a copy of all modules sorted by id.
func (g *Geometry) Modules() []Module {
	out := make([]Module, len(g.modules))
	copy(out, g.modules)
	return out
}

func (g *Geometry) Sectors() []Sector {
	out := make([]Sector, len(g.sectors))
	copy(out, g.sectors)
	return out
}

func (g *Geometry) NumSectors() int {
	return len(g.sectors)
}

// ModuleAt returns the module placed at a sector grid cell.
func (g *Geometry) ModuleAt(sector, col, row int) (Module, bool) {
	if sector < 0 || sector >= len(g.sectors) {
		return Module{}, false
	}
	s := g.sectors[sector]
	if col < 0 || row < 0 || col >= s.NCol || row >= s.NRow {
		return Module{}, false
	}
	i := g.cells[sector][row*s.NCol+col]
	if i < 0 {
		return Module{}, false
	}
	return g.modules[i], true
}

func (g *Geometry) DeadModules() []Module {
	out := make([]Module, len(g.dead))
	for i, idx := range g.dead {
		out[i] = g.modules[idx]
	}
	return out
}

// Calib returns the non-linearity constants of a module, zero when unknown.
func (g *Geometry) Calib(id int) CalibConst {
	c, ok := g.calib[id]
	if !ok {
		return CalibConst{ModuleID: id}
	}
	return c
}
