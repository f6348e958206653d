package recon

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary accumulates reconstruction statistics over a run.
type Summary struct {
	Events    int
	Errors    int
	Clusters  []float64
	Matched   int
	Residual1 []float64
	Residual2 []float64
	Energies  []float64
}

func (s *Summary) Add(r Result) {
	s.Events++
	if r.Error {
		s.Errors++
		return
	}
	s.Clusters = append(s.Clusters, float64(len(r.Clusters)))
	gem1, gem2 := r.GEM(0), r.GEM(1)
	for _, rec := range r.Matches {
		if rec.Calo < 0 || rec.Calo >= len(r.Clusters) {
			continue
		}
		c := r.Clusters[rec.Calo]
		s.Energies = append(s.Energies, c.Energy)
		if !rec.Matched() {
			continue
		}
		s.Matched++
		if rec.GEM1 >= 0 {
			s.Residual1 = append(s.Residual1, math.Hypot(c.X-gem1[rec.GEM1].X, c.Y-gem1[rec.GEM1].Y))
		}
		if rec.GEM2 >= 0 {
			s.Residual2 = append(s.Residual2, math.Hypot(c.X-gem2[rec.GEM2].X, c.Y-gem2[rec.GEM2].Y))
		}
	}
}

type SummaryReport struct {
	Events           int
	Errors           int
	ClustersPerEvent float64
	MatchEfficiency  float64
	MeanResidual1    float64
	StdResidual1     float64
	MeanResidual2    float64
	StdResidual2     float64
	TotalEnergy      float64
}

func (s *Summary) Report() SummaryReport {
	report := SummaryReport{Events: s.Events, Errors: s.Errors}
	if len(s.Clusters) > 0 {
		report.ClustersPerEvent = stat.Mean(s.Clusters, nil)
	}
	if n := len(s.Energies); n > 0 {
		report.MatchEfficiency = float64(s.Matched) / float64(n)
		report.TotalEnergy = floats.Sum(s.Energies)
	}
	report.MeanResidual1, report.StdResidual1 = meanStd(s.Residual1)
	report.MeanResidual2, report.StdResidual2 = meanStd(s.Residual2)
	return report
}

func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

func (r SummaryReport) Log(logger Logger, module string) {
	logger.Info(fmt.Sprintf("Events: %d (%d with errors)", r.Events, r.Errors), module)
	logger.Info(fmt.Sprintf("Clusters per event: %.3f", r.ClustersPerEvent), module)
	logger.Info(fmt.Sprintf("Match efficiency: %.4f", r.MatchEfficiency), module)
	logger.Info(fmt.Sprintf("GEM1 residual: %.3f +- %.3f mm", r.MeanResidual1, r.StdResidual1), module)
	logger.Info(fmt.Sprintf("GEM2 residual: %.3f +- %.3f mm", r.MeanResidual2, r.StdResidual2), module)
}
