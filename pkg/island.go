package recon

import "sort"

type CellStatus int

const (
	CellAbsent CellStatus = iota
	CellAlive
	CellDead
)

// SectorGrid is the energy picture of one sector, row-major.
type SectorGrid struct {
	Sector int
	NCol   int
	NRow   int
	Energy []float64
	Status []CellStatus
	IDs    []int
}

func NewSectorGrid(sector, ncol, nrow int) *SectorGrid {
	n := ncol * nrow
	return &SectorGrid{
		Sector: sector,
		NCol:   ncol,
		NRow:   nrow,
		Energy: make([]float64, n),
		Status: make([]CellStatus, n),
		IDs:    make([]int, n),
	}
}

func (g *SectorGrid) Index(col, row int) int {
	return row*g.NCol + col
}

func (g *SectorGrid) Cell(index int) (col, row int) {
	return index % g.NCol, index / g.NCol
}

func (g *SectorGrid) Inside(col, row int) bool {
	return col >= 0 && row >= 0 && col < g.NCol && row < g.NRow
}

type IslandParams struct {
	MinHitEnergy    float64
	MinCenterEnergy float64
	Radius          int
}

// Island is a group of contiguous cells attached to one seed.
// Cells starts with the seed and follows the growth order.
type Island struct {
	Seed  int
	Cells []int
	Split bool
}

// FindIslands groups the cells of a sector grid around local maxima.
// It only reads the grid.
func FindIslands(grid *SectorGrid, params IslandParams) []Island {
	n := len(grid.Energy)
	active := make([]bool, n)
	for i := 0; i < n; i++ {
		active[i] = grid.Status[i] == CellAlive && grid.Energy[i] >= params.MinHitEnergy
	}

	seeds := findSeeds(grid, active, params)
	if len(seeds) == 0 {
		return nil
	}

	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}
	islands := make([]Island, len(seeds))
	frontier := make([]int, len(seeds))
	for k, s := range seeds {
		owner[s] = k
		islands[k] = Island{Seed: s, Cells: []int{s}}
		frontier[k] = s
	}

	for len(frontier) > 0 {
		candidates := make(map[int]bool)
		for _, cell := range frontier {
			forNeighbors(grid, cell, 1, func(nb int) {
				if active[nb] && owner[nb] < 0 {
					candidates[nb] = true
				}
			})
		}
		next := make([]int, 0, len(candidates))
		for cell := range candidates {
			next = append(next, cell)
		}
		sort.Ints(next)

		// decide every cell of this level before assigning any of them
		chosen := make([]int, len(next))
		for i, cell := range next {
			chosen[i] = bestOwner(grid, owner, cell)
		}
		for i, cell := range next {
			owner[cell] = chosen[i]
			islands[chosen[i]].Cells = append(islands[chosen[i]].Cells, cell)
		}
		frontier = next
	}

	markSplit(grid, active, islands)
	return islands
}

// findSeeds returns the local maxima ordered by decreasing energy, then by
// cell index.
func findSeeds(grid *SectorGrid, active []bool, params IslandParams) []int {
	radius := max(params.Radius, 1)
	var seeds []int
	for i, e := range grid.Energy {
		if !active[i] || e < params.MinCenterEnergy {
			continue
		}
		isMax := true
		forNeighbors(grid, i, radius, func(nb int) {
			if !active[nb] {
				return
			}
			ne := grid.Energy[nb]
			if ne > e || (ne == e && nb < i) {
				isMax = false
			}
		})
		if isMax {
			seeds = append(seeds, i)
		}
	}
	sort.SliceStable(seeds, func(a, b int) bool {
		ea, eb := grid.Energy[seeds[a]], grid.Energy[seeds[b]]
		if ea != eb {
			return ea > eb
		}
		return seeds[a] < seeds[b]
	})
	return seeds
}

// bestOwner picks the island whose assigned neighbors carry the most energy.
// Seeds are sorted by energy, so the lower island index wins a tie.
func bestOwner(grid *SectorGrid, owner []int, cell int) int {
	score := make(map[int]float64)
	forNeighbors(grid, cell, 1, func(nb int) {
		if k := owner[nb]; k >= 0 {
			score[k] = max(score[k], grid.Energy[nb])
		}
	})
	best := -1
	for k, s := range score {
		if best < 0 || s > score[best] || (s == score[best] && k < best) {
			best = k
		}
	}
	return best
}

func markSplit(grid *SectorGrid, active []bool, islands []Island) {
	component := make([]int, len(active))
	for i := range component {
		component[i] = -1
	}
	label := 0
	for start := range active {
		if !active[start] || component[start] >= 0 {
			continue
		}
		queue := []int{start}
		component[start] = label
		for len(queue) > 0 {
			cell := queue[0]
			queue = queue[1:]
			forNeighbors(grid, cell, 1, func(nb int) {
				if active[nb] && component[nb] < 0 {
					component[nb] = label
					queue = append(queue, nb)
				}
			})
		}
		label++
	}

	seedsPerComponent := make(map[int]int)
	for _, isl := range islands {
		seedsPerComponent[component[isl.Seed]]++
	}
	for k := range islands {
		islands[k].Split = seedsPerComponent[component[islands[k].Seed]] > 1
	}
}

func forNeighbors(grid *SectorGrid, cell int, radius int, fn func(nb int)) {
	col, row := grid.Cell(cell)
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			c, r := col+dc, row+dr
			if grid.Inside(c, r) {
				fn(grid.Index(c, r))
			}
		}
	}
}
