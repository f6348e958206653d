package recon

import "fmt"

// TrackHit is a two dimensional GEM hit in the lab frame (mm).
type TrackHit struct {
	Detector int
	X        float64
	Y        float64
	Z        float64
	ChargeX  float64
	ChargeY  float64
	SizeX    int
	SizeY    int
}

// Frame places a detector plane in the lab frame.
type Frame struct {
	OffsetX float64
	OffsetY float64
	Z       float64
}

func (f Frame) ToLab(x, y float64) (float64, float64) {
	return x + f.OffsetX, y + f.OffsetY
}

// ProjectTo scales a hit seen from the target onto the plane at z.
func (h TrackHit) ProjectTo(z float64) TrackHit {
	if h.Z <= 0 || z <= 0 {
		return h
	}
	ratio := z / h.Z
	h.X *= ratio
	h.Y *= ratio
	h.Z = z
	return h
}

type Detector struct {
	ID    int
	Name  string
	X     *Plane
	Y     *Plane
	Frame Frame
}

func NewDetector(config DetectorConfig) *Detector {
	return &Detector{
		ID:    config.ID,
		Name:  config.Name,
		X:     NewPlane(config.Name+"_X", PlaneX, config.PlaneX),
		Y:     NewPlane(config.Name+"_Y", PlaneY, config.PlaneY),
		Frame: Frame{OffsetX: config.OffsetX, OffsetY: config.OffsetY, Z: config.Z},
	}
}

func (d *Detector) Plane(t PlaneType) (*Plane, error) {
	switch t {
	case PlaneX:
		return d.X, nil
	case PlaneY:
		return d.Y, nil
	}
	return nil, fmt.Errorf("detector %s has no plane %v", d.Name, t)
}

func (d *Detector) ClearHits() {
	d.X.ClearPlaneHits()
	d.Y.ClearPlaneHits()
}

// ReconstructHits clusters both planes and combines the X and Y clusters
// chosen by the strategy.
func (d *Detector) ReconstructHits(strategy PairingStrategy) []TrackHit {
	xs := d.X.ClusterHits()
	ys := d.Y.ClusterHits()
	if len(xs) == 0 || len(ys) == 0 {
		return nil
	}

	pairs := strategy.Pair(xs, ys)
	hits := make([]TrackHit, 0, len(pairs))
	for _, p := range pairs {
		cx, cy := xs[p.X], ys[p.Y]
		x, y := d.Frame.ToLab(cx.Position, cy.Position)
		hits = append(hits, TrackHit{
			Detector: d.ID,
			X:        x,
			Y:        y,
			Z:        d.Frame.Z,
			ChargeX:  cx.TotalCharge(),
			ChargeY:  cy.TotalCharge(),
			SizeX:    cx.Size(),
			SizeY:    cy.Size(),
		})
	}
	if verbosity > 2 {
		message := fmt.Sprintf("%s: %d X clusters, %d Y clusters, %d hits", d.Name, len(xs), len(ys), len(hits))
		logger.Info(message, "gem")
	}
	return hits
}
