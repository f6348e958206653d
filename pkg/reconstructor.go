package recon

import (
	"fmt"
)

type StripData struct {
	Detector int
	Plane    PlaneType
	Strip    int
	Charges  []float64
}

type Event struct {
	RunNumber int
	EventID   int
	Energies  ChannelEnergyMap
	Strips    []StripData
}

type Result struct {
	RunNumber int
	EventID   int
	Clusters  []Cluster
	GEMHits   [][]TrackHit
	Matches   []MatchRecord
	Error     bool
}

// GEM returns the hits of the i-th configured detector.
func (r Result) GEM(i int) []TrackHit {
	if i < 0 || i >= len(r.GEMHits) {
		return nil
	}
	return r.GEMHits[i]
}

// Reconstructor runs the full event reconstruction. It keeps no per-event
// state, so one instance can serve every worker.
type Reconstructor struct {
	engine      *ClusterEngine
	matcher     *Matcher
	strategy    PairingStrategy
	detectors   []DetectorConfig
	projectionZ float64
}

func NewReconstructor(geometry *Geometry, config Configuration) (*Reconstructor, error) {
	engine, err := NewClusterEngine(geometry, config.Cluster)
	if err != nil {
		return nil, fmt.Errorf("error creating cluster engine: %w", err)
	}
	matcher, err := NewMatcher(config.Match)
	if err != nil {
		return nil, fmt.Errorf("error creating matcher: %w", err)
	}
	strategy, err := NewPairingStrategy(config.GEM.Pairing, config.GEM.MaxAsymmetry)
	if err != nil {
		return nil, fmt.Errorf("error creating pairing strategy: %w", err)
	}
	seen := make(map[int]bool)
	for _, det := range config.GEM.Detectors {
		if seen[det.ID] {
			return nil, &ErrInvalidOption{Name: "gem.detectors.id", Value: det.ID}
		}
		seen[det.ID] = true
		if err := det.Validate(); err != nil {
			return nil, fmt.Errorf("GEM %d: %w", det.ID, err)
		}
	}
	return &Reconstructor{
		engine:      engine,
		matcher:     matcher,
		strategy:    strategy,
		detectors:   config.GEM.Detectors,
		projectionZ: config.GEM.ProjectionZ,
	}, nil
}

func (r *Reconstructor) Engine() *ClusterEngine {
	return r.engine
}

func (r *Reconstructor) Matcher() *Matcher {
	return r.matcher
}

// WithMatcher returns a copy of the reconstructor using other match options.
func (r *Reconstructor) WithMatcher(options MatchOptions) (*Reconstructor, error) {
	matcher, err := NewMatcher(options)
	if err != nil {
		return nil, err
	}
	out := *r
	out.matcher = matcher
	return &out, nil
}

func (r *Reconstructor) Process(event Event) Result {
	result := Result{RunNumber: event.RunNumber, EventID: event.EventID}
	result.Clusters = r.engine.Reconstruct(event.Energies)
	result.GEMHits = r.reconstructGEM(event)
	result.Matches = r.matcher.Match(result.Clusters, result.GEM(0), result.GEM(1))
	return result
}

// Rematch recomputes the matches of an already reconstructed event.
func (r *Reconstructor) Rematch(result Result) Result {
	result.Matches = r.matcher.Match(result.Clusters, result.GEM(0), result.GEM(1))
	return result
}

func (r *Reconstructor) reconstructGEM(event Event) [][]TrackHit {
	detectors := make([]*Detector, len(r.detectors))
	byID := make(map[int]*Detector, len(r.detectors))
	for i, config := range r.detectors {
		detectors[i] = NewDetector(config)
		byID[config.ID] = detectors[i]
	}

	for _, s := range event.Strips {
		det, ok := byID[s.Detector]
		if !ok {
			warn("event %d: strip data for unknown GEM %d", event.EventID, s.Detector)
			continue
		}
		plane, err := det.Plane(s.Plane)
		if err != nil {
			warn("event %d: %v", event.EventID, err)
			continue
		}
		plane.AddPlaneHit(s.Strip, s.Charges)
	}

	hits := make([][]TrackHit, len(detectors))
	for i, det := range detectors {
		hits[i] = det.ReconstructHits(r.strategy)
		if r.projectionZ > 0 {
			for j := range hits[i] {
				hits[i][j] = hits[i][j].ProjectTo(r.projectionZ)
			}
		}
	}
	return hits
}
