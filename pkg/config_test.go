package recon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigurationIsValid(t *testing.T) {
	config := DefaultConfiguration()

	require.NoError(t, config.Validate())
	assert.Equal(t, 0.005, config.Cluster.MinBlockEnergy)
	assert.Equal(t, 3.6, config.Cluster.WeightFreePar)
	assert.Equal(t, 1.1, config.Cluster.TransitionDistance)
	assert.Equal(t, -10.12, config.Cluster.ZLGToPWO)
	assert.Len(t, config.GEM.Detectors, 2)
	assert.Equal(t, 16, config.GEM.Detectors[0].PlaneX.MinStrip)
	assert.Equal(t, 1391, config.GEM.Detectors[0].PlaneX.MaxStrip)
}

func TestLoadConfiguration(t *testing.T) {
	path := writeConfig(t, `{
		"file_in": "events.h5",
		"verbosity": 2,
		"db_driver": "sqlite",
		"db_path": "calib.db",
		"cluster": {"weight_free_par": 4.2},
		"match": {"priority": 2},
		"reco_options": {"MIN_BLOCK_ENERGY": 0.01, "matchSigma": 4, "USE_DOUBLE_EXP_WEIGHT": 1}
	}`)

	config, err := LoadConfiguration(path)

	require.NoError(t, err)
	assert.Equal(t, "events.h5", config.FileIn)
	assert.Equal(t, 2, config.Verbosity)
	assert.Equal(t, "sqlite", config.DBDriver)
	assert.Equal(t, 4.2, config.Cluster.WeightFreePar)
	assert.Equal(t, 0.01, config.Cluster.MinBlockEnergy)
	assert.True(t, config.Cluster.UseDoubleExpWeight)
	// untouched values keep their defaults
	assert.Equal(t, 0.05, config.Cluster.MinClusterEnergy)
	assert.Equal(t, 2, config.Match.Priority)
	assert.Equal(t, 4., config.Match.MatchSigma)
	assert.Equal(t, 10., config.Match.OverlapSigma)
}

func TestLoadConfigurationErrors(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfiguration(writeConfig(t, `{"verbosity": `))
	assert.Error(t, err)

	_, err = LoadConfiguration(writeConfig(t, `{"reco_options": {"NOT_AN_OPTION": 1}}`))
	var unknown *ErrUnknownOption
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NOT_AN_OPTION", unknown.Name)

	_, err = LoadConfiguration(writeConfig(t, `{"match": {"priority": 5}}`))
	var invalid *ErrInvalidOption
	assert.ErrorAs(t, err, &invalid)
}

func TestApplyNamedOptions(t *testing.T) {
	config := DefaultConfiguration()

	err := config.ApplyNamedOptions(map[string]float64{
		"MIN_CENTER_E":      0.02,
		"MAX_CLUSTERS":      50,
		"CUT_OFF_THRESHOLD": 0.02,
		"DO_SHOWER_DEPTH":   0,
		"gemRes":            0.08,
		"splitMargin":       20,
	})

	require.NoError(t, err)
	assert.Equal(t, 0.02, config.Cluster.MinCenterEnergy)
	assert.Equal(t, 50, config.Cluster.MaxClusters)
	assert.Equal(t, 0.02, config.Cluster.CutOffThreshold)
	assert.False(t, config.Cluster.DoShowerDepth)
	assert.Equal(t, 0.08, config.Match.GEMRes)
	for _, det := range config.GEM.Detectors {
		assert.Equal(t, 20., det.PlaneX.SplitMargin)
		assert.Equal(t, 20., det.PlaneY.SplitMargin)
	}
}

func TestClusterOptionsValidate(t *testing.T) {
	cases := map[string]func(*ClusterOptions){
		"energy window":   func(o *ClusterOptions) { o.MaxClusterEnergy = o.MinClusterEnergy },
		"radius":          func(o *ClusterOptions) { o.ClusterRadius = 0 },
		"capacity":        func(o *ClusterOptions) { o.MaxClusterHits = 0 },
		"negative energy": func(o *ClusterOptions) { o.MinBlockEnergy = -1 },
		"cut off": func(o *ClusterOptions) {
			o.UseDoubleExpWeight = true
			o.CutOffThreshold = 1
		},
	}
	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			options := DefaultClusterOptions()
			modify(&options)
			assert.Error(t, options.Validate())
		})
	}
}

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(message string, module string) {
	l.infos = append(l.infos, module+": "+message)
}

func (l *recordingLogger) Error(message string) {
	l.errors = append(l.errors, message)
}

func TestPrintConfiguration(t *testing.T) {
	l := &recordingLogger{}

	PrintConfiguration(DefaultConfiguration(), l)

	assert.Contains(t, l.infos, "config: No DB: false")
	assert.Contains(t, l.infos, "config: Host: clondb1.jlab.org")
	assert.Empty(t, l.errors)
}

func TestLoadConfigurationRejectsIncompleteDetectors(t *testing.T) {
	path := writeConfig(t, `{"gem": {"detectors": [{"id": 0, "name": "GEM1", "z": 5407}]}}`)

	_, err := LoadConfiguration(path)

	var invalid *ErrInvalidOption
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "GEM1.plane_x.size", invalid.Name)
}

func TestPlaneConfigValidate(t *testing.T) {
	cases := map[string]func(*PlaneConfig){
		"pitch":        func(p *PlaneConfig) { p.Pitch = 0 },
		"strip range":  func(p *PlaneConfig) { p.MaxStrip = p.MinStrip - 1 },
		"cluster size": func(p *PlaneConfig) { p.MaxClusterSize = 0 },
		"split margin": func(p *PlaneConfig) { p.SplitMargin = -1 },
	}
	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			det := DefaultGEMOptions().Detectors[0]
			modify(&det.PlaneY)
			var invalid *ErrInvalidOption
			require.ErrorAs(t, det.Validate(), &invalid)
			assert.Contains(t, invalid.Name, "plane_y")
		})
	}
	assert.NoError(t, DefaultGEMOptions().Detectors[1].Validate())
}
