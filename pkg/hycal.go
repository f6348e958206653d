package recon

const (
	CrystalSize = 2.02  // cm
	GlassSize   = 3.815 // cm

	crystalGrid   = 34
	glassGrid     = 30
	crystalIDBase = 1001
)

// glass sectors as (ncol, nrow, col offset, row offset) on the 30x30 glass grid
var glassSectors = [4][4]int{
	{24, 6, 0, 0},
	{6, 24, 24, 0},
	{24, 6, 6, 24},
	{6, 24, 0, 6},
}

// DefaultDeadModules lists the modules known to be off in the standard runs.
var DefaultDeadModules = []int{16, 107, 900, 1835}

// DefaultHyCalGeometry builds the standard calorimeter: a 34x34 crystal
// sector (ids from 1001, with the 2x2 beam hole removed) surrounded by four
// lead glass sectors (ids 1..900) cut from a 30x30 grid.
func DefaultHyCalGeometry(dead ...int) (*Geometry, error) {
	deadSet := make(map[int]bool, len(dead))
	for _, id := range dead {
		deadSet[id] = true
	}

	modules := make([]Module, 0, 1152+576)
	for row := 0; row < crystalGrid; row++ {
		for col := 0; col < crystalGrid; col++ {
			if (col == 16 || col == 17) && (row == 16 || row == 17) {
				continue
			}
			m := Module{
				ID:     crystalIDBase + row*crystalGrid + col,
				Sector: 0,
				Row:    row,
				Col:    col,
				X:      (float64(col) - 0.5*(crystalGrid-1)) * CrystalSize,
				Y:      (float64(row) - 0.5*(crystalGrid-1)) * CrystalSize,
				SizeX:  CrystalSize,
				SizeY:  CrystalSize,
				Type:   Crystal,
			}
			modules = append(modules, m)
		}
	}

	for s, shape := range glassSectors {
		ncol, nrow, colOffset, rowOffset := shape[0], shape[1], shape[2], shape[3]
		for row := 0; row < nrow; row++ {
			for col := 0; col < ncol; col++ {
				gcol, grow := col+colOffset, row+rowOffset
				m := Module{
					ID:     grow*glassGrid + gcol + 1,
					Sector: s + 1,
					Row:    row,
					Col:    col,
					X:      (float64(gcol) - 0.5*(glassGrid-1)) * GlassSize,
					Y:      (float64(grow) - 0.5*(glassGrid-1)) * GlassSize,
					SizeX:  GlassSize,
					SizeY:  GlassSize,
					Type:   LeadGlass,
				}
				modules = append(modules, m)
			}
		}
	}

	for i := range modules {
		if deadSet[modules[i].ID] {
			modules[i].Status = Dead
		}
	}
	return NewGeometry(modules, nil)
}
