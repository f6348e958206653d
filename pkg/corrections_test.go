package recon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogWeight(t *testing.T) {
	assert.InDelta(t, 3.6, LogWeight(1, 3.6), 1e-12)
	assert.InDelta(t, 3.6+math.Log(0.1), LogWeight(0.1, 3.6), 1e-12)
	assert.Zero(t, LogWeight(0.01, 3.6))
	assert.Zero(t, LogWeight(0, 3.6))
}

func TestDoubleExpWeight(t *testing.T) {
	assert.InDelta(t, 1, DoubleExpWeight(1, 0.4, 0.01), 1e-4)
	assert.Zero(t, DoubleExpWeight(0.005, 0.4, 0.01))
	assert.Zero(t, DoubleExpWeight(0, 0.4, 0.01))

	high := DoubleExpWeight(0.5, 0.4, 0.01)
	low := DoubleExpWeight(0.1, 0.4, 0.01)
	assert.Greater(t, high, low)
	assert.Greater(t, low, 0.)
	assert.Less(t, high, 1.)
}

func TestProfileInverse(t *testing.T) {
	for _, y := range []float64{0.01, 0.1, 0.5, 1, 2} {
		x := profileInverse(y, 0.4)
		assert.InDelta(t, y, profile(x, 0.4), 1e-5*math.Max(1, y*3), "y=%v", y)
	}
}

func TestNonLinearityCorrection(t *testing.T) {
	cc := CalibConst{ModuleID: 1001, NonLinearFactor: 0.1, CalibEnergy: 1100}
	assert.InDelta(t, 1/0.99, NonLinearityCorrection(1.0, cc), 1e-12)

	// corrections of 60% or more are ignored
	large := CalibConst{ModuleID: 1001, NonLinearFactor: 1, CalibEnergy: 1100}
	assert.Equal(t, 2.0, NonLinearityCorrection(2.0, large))

	// no calibration energy: reference at 0.55 GeV
	noRef := CalibConst{ModuleID: 1001, NonLinearFactor: 0.2}
	assert.InDelta(t, 1.55/1.2, NonLinearityCorrection(1.55, noRef), 1e-12)

	assert.Equal(t, 1.3, NonLinearityCorrection(1.3, CalibConst{}))
}

func TestNonLinearityAppliedFromGeometry(t *testing.T) {
	base := testGeometry(t)
	geo, err := NewGeometry(base.Modules(), []CalibConst{{ModuleID: crystalID(5, 5), NonLinearFactor: 0.1, CalibEnergy: 1100}})
	if err != nil {
		t.Fatal(err)
	}
	engine := testEngine(t, geo, nil)
	energies := NewChannelEnergyMap(MeV)
	energies.Set(crystalID(5, 5), 1000)

	clusters := engine.Reconstruct(energies)

	if assert.Len(t, clusters, 1) {
		assert.InDelta(t, 1000/0.99, clusters[0].Energy, 1e-9)
	}
}

func TestShowerDepth(t *testing.T) {
	assert.InDelta(t, 0.86*math.Log(1+1/1.1e-3), ShowerDepth(Crystal, 1, -10.12), 1e-12)
	assert.InDelta(t, 2.67*math.Log(1+1/2.84e-3)-10.12, ShowerDepth(LeadGlass, 1, -10.12), 1e-12)
	assert.Zero(t, ShowerDepth(Crystal, 0, -10.12))
}

func TestEnergyResolution(t *testing.T) {
	crystal := math.Sqrt(0.81+6.25+1) / 100
	glass := math.Sqrt(5.29+29.16) / 100

	assert.InDelta(t, crystal, EnergyResolution(1, TypeCrystal, Crystal), 1e-12)
	assert.InDelta(t, glass, EnergyResolution(1, TypeGlass, LeadGlass), 1e-12)
	assert.InDelta(t, 1.5*crystal, EnergyResolution(1, TypeCrystalBoundary, Crystal), 1e-12)
	assert.InDelta(t, 1.5*glass, EnergyResolution(1, TypeGlassBoundary, LeadGlass), 1e-12)
	assert.InDelta(t, 1.25*crystal, EnergyResolution(1, TypeTransition, Crystal), 1e-12)
	assert.InDelta(t, 0.8*glass, EnergyResolution(1, TypeTransition, LeadGlass), 1e-12)
}

func TestClusterTypeFromFlags(t *testing.T) {
	assert.Equal(t, TypeCrystal, clusterType(FlagCrystal))
	assert.Equal(t, TypeGlass, clusterType(FlagGlass))
	assert.Equal(t, TypeTransition, clusterType(FlagCrystal|FlagTransition|FlagInnerBound))
	assert.Equal(t, TypeCrystalBoundary, clusterType(FlagCrystal|FlagInnerBound))
	assert.Equal(t, TypeGlassBoundary, clusterType(FlagGlass|FlagOuterBound))
}
