package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleGEMConfig places one chamber so that strips 515/516 (x) and
// 499/500 (y) reconstruct at the front of crystal (5, 5).
func singleGEMConfig() Configuration {
	config := DefaultConfiguration()
	plane := PlaneConfig{Size: 400, Pitch: 0.4, Direction: 1, MaxStrip: 2000, SplitMargin: 14, MinClusterSize: 1, MaxClusterSize: 20}
	center := (5 - 16.5) * CrystalSize * 10
	config.GEM.ProjectionZ = 0
	config.GEM.Detectors = []DetectorConfig{
		{ID: 0, Name: "GEM", OffsetX: -center, OffsetY: center, Z: 5400, PlaneX: plane, PlaneY: plane},
	}
	return config
}

func showerEvent(id int) Event {
	energies := NewChannelEnergyMap(MeV)
	shower3x3(&energies, 5, 5, 1000, 100)
	return Event{
		RunNumber: 1300,
		EventID:   id,
		Energies:  energies,
		Strips: []StripData{
			{Detector: 0, Plane: PlaneX, Strip: 515, Charges: []float64{20, 50, 30}},
			{Detector: 0, Plane: PlaneX, Strip: 516, Charges: []float64{50}},
			{Detector: 0, Plane: PlaneY, Strip: 499, Charges: []float64{50}},
			{Detector: 0, Plane: PlaneY, Strip: 500, Charges: []float64{50}},
			{Detector: 7, Plane: PlaneY, Strip: 500, Charges: []float64{80}},
		},
	}
}

func testReconstructor(t *testing.T) *Reconstructor {
	t.Helper()
	reco, err := NewReconstructor(testGeometry(t), singleGEMConfig())
	require.NoError(t, err)
	return reco
}

func TestReconstructorProcess(t *testing.T) {
	reco := testReconstructor(t)

	result := reco.Process(showerEvent(42))

	assert.Equal(t, 1300, result.RunNumber)
	assert.Equal(t, 42, result.EventID)
	assert.False(t, result.Error)
	require.Len(t, result.Clusters, 1)
	require.Len(t, result.GEMHits, 1)
	require.Len(t, result.GEM(0), 1)
	assert.Empty(t, result.GEM(1))

	c, h := result.Clusters[0], result.GEM(0)[0]
	assert.InDelta(t, c.X, h.X, 1e-6)
	assert.InDelta(t, c.Y, h.Y, 1e-6)
	assert.Equal(t, 5400., h.Z)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, MatchRecord{Calo: 0, GEM1: 0, GEM2: -1, GEM1Candidates: []int{0}}, result.Matches[0])
}

func TestReconstructorProjectsHits(t *testing.T) {
	config := singleGEMConfig()
	config.GEM.ProjectionZ = 5400 * 1.1
	reco, err := NewReconstructor(testGeometry(t), config)
	require.NoError(t, err)

	result := reco.Process(showerEvent(1))

	require.Len(t, result.GEM(0), 1)
	h := result.GEM(0)[0]
	assert.InDelta(t, 5940, h.Z, 1e-9)
	assert.InDelta(t, result.Clusters[0].X*1.1, h.X, 1e-6)
}

func TestReconstructorWithMatcher(t *testing.T) {
	reco := testReconstructor(t)
	result := reco.Process(showerEvent(1))
	require.Len(t, result.GEM(0), 1)
	result.GEMHits[0][0].X += 1

	options := reco.Matcher().Options()
	options.MatchSigma = 1e-9
	options.ScaleByEnergy = false
	options.GEMRes = 0
	options.CrystalRes = 0.001
	strict, err := reco.WithMatcher(options)
	require.NoError(t, err)

	assert.Equal(t, 5., reco.Matcher().Options().MatchSigma)
	assert.Same(t, reco.Engine(), strict.Engine())
	assert.Equal(t, result.Matches, reco.Rematch(result).Matches)

	rematched := strict.Rematch(result)
	require.Len(t, rematched.Matches, 1)
	assert.False(t, rematched.Matches[0].Matched())
	assert.Equal(t, result.Clusters, rematched.Clusters)

	_, err = reco.WithMatcher(MatchOptions{})
	assert.Error(t, err)
}

func TestNewReconstructorRejectsDuplicatedDetectors(t *testing.T) {
	config := singleGEMConfig()
	config.GEM.Detectors = append(config.GEM.Detectors, config.GEM.Detectors[0])

	_, err := NewReconstructor(testGeometry(t), config)

	var invalid *ErrInvalidOption
	assert.ErrorAs(t, err, &invalid)
}

func TestNewReconstructorRejectsInvalidPlanes(t *testing.T) {
	config := singleGEMConfig()
	config.GEM.Detectors[0].PlaneX = PlaneConfig{}

	_, err := NewReconstructor(testGeometry(t), config)

	var invalid *ErrInvalidOption
	assert.ErrorAs(t, err, &invalid)
}
