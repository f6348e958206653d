package recon

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

type Configuration struct {
	MaxEvents        int                `json:"max_events"`
	Verbosity        int                `json:"verbosity"`
	FileIn           string             `json:"file_in"`
	FileOut          string             `json:"file_out"`
	RunNumber        int                `json:"run_number"`
	EnergyUnit       string             `json:"energy_unit"`
	NoDB             bool               `json:"no_db"`
	Discard          bool               `json:"discard"`
	Skip             int                `json:"skip"`
	DBDriver         string             `json:"db_driver"`
	DBPath           string             `json:"db_path"`
	Host             string             `json:"host"`
	User             string             `json:"user"`
	Passwd           string             `json:"pass"`
	DBName           string             `json:"dbname"`
	NumWorkers       int                `json:"num_workers"`
	WriteData        bool               `json:"write_data"`
	CompressionLevel int                `json:"compression_level"`
	Cluster          ClusterOptions     `json:"cluster"`
	Match            MatchOptions       `json:"match"`
	GEM              GEMOptions         `json:"gem"`
	RecoOptions      map[string]float64 `json:"reco_options"`
}

// ClusterOptions control the calorimeter reconstruction. Energies are in
// GeV and distances in module sizes.
type ClusterOptions struct {
	MinBlockEnergy        float64 `json:"min_block_energy"`
	MinCenterEnergy       float64 `json:"min_center_energy"`
	MinClusterEnergy      float64 `json:"min_cluster_energy"`
	MaxClusterEnergy      float64 `json:"max_cluster_energy"`
	MinClusterSize        int     `json:"min_cluster_size"`
	ClusterRadius         int     `json:"cluster_radius"`
	WeightFreePar         float64 `json:"weight_free_par"`
	UseDoubleExpWeight    bool    `json:"use_double_exp_weight"`
	DoubleExpFreeWeight   float64 `json:"double_exp_free_weight"`
	CutOffThreshold       float64 `json:"cut_off_threshold"`
	DoShowerDepth         bool    `json:"do_shower_depth"`
	ZLGToPWO              float64 `json:"z_lg_to_pwo"`
	DoNonLinearCorrection bool    `json:"do_non_linear_correction"`
	DoTransitionMerge     bool    `json:"do_transition_merge"`
	TransitionDistance    float64 `json:"transition_distance"`
	MaxClusters           int     `json:"max_clusters"`
	MaxClusterHits        int     `json:"max_cluster_hits"`
	Parallel              bool    `json:"parallel"`
}

// MatchOptions control the calorimeter to GEM association. Resolutions are
// in mm.
type MatchOptions struct {
	GEMRes        float64 `json:"gem_res"`
	CrystalRes    float64 `json:"crystal_res"`
	LeadGlassRes  float64 `json:"lead_glass_res"`
	TransitionRes float64 `json:"transition_res"`
	MatchSigma    float64 `json:"match_sigma"`
	OverlapSigma  float64 `json:"overlap_sigma"`
	Priority      int     `json:"priority"`
	Exclusive     bool    `json:"exclusive"`
	ScaleByEnergy bool    `json:"scale_by_energy"`
}

type GEMOptions struct {
	Pairing      string           `json:"pairing"`
	MaxAsymmetry float64          `json:"max_asymmetry"`
	ProjectionZ  float64          `json:"projection_z"`
	Detectors    []DetectorConfig `json:"detectors"`
}

// DetectorConfig places a GEM chamber in the lab frame (mm).
type DetectorConfig struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	OffsetX float64     `json:"offset_x"`
	OffsetY float64     `json:"offset_y"`
	Z       float64     `json:"z"`
	PlaneX  PlaneConfig `json:"plane_x"`
	PlaneY  PlaneConfig `json:"plane_y"`
}

type PlaneConfig struct {
	Size           float64 `json:"size"`
	Pitch          float64 `json:"pitch"`
	Direction      float64 `json:"direction"`
	MinStrip       int     `json:"min_strip"`
	MaxStrip       int     `json:"max_strip"`
	SplitMargin    float64 `json:"split_margin"`
	MinClusterSize int     `json:"min_cluster_size"`
	MaxClusterSize int     `json:"max_cluster_size"`
}

func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		MinBlockEnergy:        0.005,
		MinCenterEnergy:       0.01,
		MinClusterEnergy:      0.05,
		MaxClusterEnergy:      9.9,
		MinClusterSize:        1,
		ClusterRadius:         1,
		WeightFreePar:         3.6,
		UseDoubleExpWeight:    false,
		DoubleExpFreeWeight:   0.4,
		CutOffThreshold:       0.01,
		DoShowerDepth:         true,
		ZLGToPWO:              -10.12,
		DoNonLinearCorrection: true,
		DoTransitionMerge:     true,
		TransitionDistance:    1.1,
		MaxClusters:           300,
		MaxClusterHits:        100,
		Parallel:              true,
	}
}

func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		GEMRes:        0.1,
		CrystalRes:    2.5,
		LeadGlassRes:  6.5,
		TransitionRes: 5.0,
		MatchSigma:    5,
		OverlapSigma:  10,
		Priority:      1,
		Exclusive:     true,
		ScaleByEnergy: true,
	}
}

func DefaultXPlane() PlaneConfig {
	return PlaneConfig{
		Size:           550.4,
		Pitch:          0.4,
		Direction:      1,
		MinStrip:       16,
		MaxStrip:       1391,
		SplitMargin:    14,
		MinClusterSize: 1,
		MaxClusterSize: 20,
	}
}

func DefaultYPlane() PlaneConfig {
	return PlaneConfig{
		Size:           1228.8,
		Pitch:          0.4,
		Direction:      1,
		MinStrip:       0,
		MaxStrip:       3071,
		SplitMargin:    14,
		MinClusterSize: 1,
		MaxClusterSize: 20,
	}
}

func DefaultGEMOptions() GEMOptions {
	return GEMOptions{
		Pairing:      "charge_asymmetry",
		MaxAsymmetry: 0.5,
		ProjectionZ:  5817,
		Detectors: []DetectorConfig{
			{ID: 0, Name: "PRadGEM1", OffsetX: -253.2, Z: 5407, PlaneX: DefaultXPlane(), PlaneY: DefaultYPlane()},
			{ID: 1, Name: "PRadGEM2", OffsetX: 253.2, Z: 5366, PlaneX: DefaultXPlane(), PlaneY: DefaultYPlane()},
		},
	}
}

func DefaultConfiguration() Configuration {
	var config Configuration
	config.MaxEvents = 1000000000
	config.Verbosity = 0
	config.EnergyUnit = "MeV"
	config.NoDB = false
	config.Discard = true
	config.Skip = 0
	config.DBDriver = "mysql"
	config.Host = "clondb1.jlab.org"
	config.User = "pradreader"
	config.Passwd = "readonly"
	config.DBName = "PRAD"
	config.NumWorkers = 1
	config.WriteData = true
	config.CompressionLevel = 4
	config.Cluster = DefaultClusterOptions()
	config.Match = DefaultMatchOptions()
	config.GEM = DefaultGEMOptions()
	return config
}

// LoadConfiguration reads a JSON file on top of the default values, then
// applies the flat reco_options map.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	// a detector list replaces the defaults instead of patching them
	var detectors struct {
		GEM struct {
			Detectors json.RawMessage `json:"detectors"`
		} `json:"gem"`
	}
	if err := json.Unmarshal(data, &detectors); err != nil {
		return config, err
	}
	if detectors.GEM.Detectors != nil {
		config.GEM.Detectors = nil
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	if err := config.ApplyNamedOptions(config.RecoOptions); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

var namedOptions = map[string]func(c *Configuration, v float64){
	"MIN_BLOCK_ENERGY":            func(c *Configuration, v float64) { c.Cluster.MinBlockEnergy = v },
	"MIN_CENTER_E":                func(c *Configuration, v float64) { c.Cluster.MinCenterEnergy = v },
	"MIN_CLUSTER_E":               func(c *Configuration, v float64) { c.Cluster.MinClusterEnergy = v },
	"MAX_CLUSTER_E":               func(c *Configuration, v float64) { c.Cluster.MaxClusterEnergy = v },
	"MIN_CLUSTER_SIZE":            func(c *Configuration, v float64) { c.Cluster.MinClusterSize = int(v) },
	"CLUSTER_RADIUS":              func(c *Configuration, v float64) { c.Cluster.ClusterRadius = int(v) },
	"WEIGHT_FREE_PAR":             func(c *Configuration, v float64) { c.Cluster.WeightFreePar = v },
	"USE_DOUBLE_EXP_WEIGHT":       func(c *Configuration, v float64) { c.Cluster.UseDoubleExpWeight = v != 0 },
	"DOUBLE_EXP_FREE_WEIGHT":      func(c *Configuration, v float64) { c.Cluster.DoubleExpFreeWeight = v },
	"CUT_OFF_THRESHOLD":           func(c *Configuration, v float64) { c.Cluster.CutOffThreshold = v },
	"DO_SHOWER_DEPTH":             func(c *Configuration, v float64) { c.Cluster.DoShowerDepth = v != 0 },
	"Z_LG_TO_PWO":                 func(c *Configuration, v float64) { c.Cluster.ZLGToPWO = v },
	"DO_NON_LINEARITY_CORRECTION": func(c *Configuration, v float64) { c.Cluster.DoNonLinearCorrection = v != 0 },
	"DO_TRANSITION_MERGE":         func(c *Configuration, v float64) { c.Cluster.DoTransitionMerge = v != 0 },
	"TRANSITION_DISTANCE":         func(c *Configuration, v float64) { c.Cluster.TransitionDistance = v },
	"MAX_CLUSTERS":                func(c *Configuration, v float64) { c.Cluster.MaxClusters = int(v) },
	"MAX_CLUSTER_HITS":            func(c *Configuration, v float64) { c.Cluster.MaxClusterHits = int(v) },
	"gemRes":                      func(c *Configuration, v float64) { c.Match.GEMRes = v },
	"crystalRes":                  func(c *Configuration, v float64) { c.Match.CrystalRes = v },
	"leadGlassRes":                func(c *Configuration, v float64) { c.Match.LeadGlassRes = v },
	"transitionRes":               func(c *Configuration, v float64) { c.Match.TransitionRes = v },
	"matchSigma":                  func(c *Configuration, v float64) { c.Match.MatchSigma = v },
	"overlapSigma":                func(c *Configuration, v float64) { c.Match.OverlapSigma = v },
	"matchPriority":               func(c *Configuration, v float64) { c.Match.Priority = int(v) },
	"splitMargin": func(c *Configuration, v float64) {
		for i := range c.GEM.Detectors {
			c.GEM.Detectors[i].PlaneX.SplitMargin = v
			c.GEM.Detectors[i].PlaneY.SplitMargin = v
		}
	},
}

// ApplyNamedOptions sets options by their historical names, e.g.
// "MIN_BLOCK_ENERGY" or "matchSigma". Unknown names are rejected.
func (c *Configuration) ApplyNamedOptions(options map[string]float64) error {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		set, ok := namedOptions[name]
		if !ok {
			return &ErrUnknownOption{Name: name}
		}
		set(c, options[name])
	}
	return nil
}

func (c Configuration) Validate() error {
	if _, err := ParseEnergyUnit(c.EnergyUnit); err != nil {
		return err
	}
	if c.NumWorkers < 1 {
		return &ErrInvalidOption{Name: "num_workers", Value: c.NumWorkers}
	}
	if err := c.Cluster.Validate(); err != nil {
		return err
	}
	if err := c.Match.Validate(); err != nil {
		return err
	}
	if _, err := NewPairingStrategy(c.GEM.Pairing, c.GEM.MaxAsymmetry); err != nil {
		return err
	}
	for _, det := range c.GEM.Detectors {
		if err := det.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (d DetectorConfig) Validate() error {
	if err := d.PlaneX.validate(d.Name + ".plane_x"); err != nil {
		return err
	}
	return d.PlaneY.validate(d.Name + ".plane_y")
}

func (p PlaneConfig) validate(name string) error {
	switch {
	case p.Size <= 0:
		return &ErrInvalidOption{Name: name + ".size", Value: p.Size}
	case p.Pitch <= 0:
		return &ErrInvalidOption{Name: name + ".pitch", Value: p.Pitch}
	case p.MinStrip < 0 || p.MaxStrip < p.MinStrip:
		return &ErrInvalidOption{Name: name + ".max_strip", Value: p.MaxStrip}
	case p.MinClusterSize < 1 || p.MaxClusterSize < p.MinClusterSize:
		return &ErrInvalidOption{Name: name + ".max_cluster_size", Value: p.MaxClusterSize}
	case p.SplitMargin < 0:
		return &ErrInvalidOption{Name: name + ".split_margin", Value: p.SplitMargin}
	}
	return nil
}

func (o ClusterOptions) Validate() error {
	switch {
	case o.MinBlockEnergy < 0:
		return &ErrInvalidOption{Name: "MIN_BLOCK_ENERGY", Value: o.MinBlockEnergy}
	case o.MaxClusterEnergy <= o.MinClusterEnergy:
		return &ErrInvalidOption{Name: "MAX_CLUSTER_E", Value: o.MaxClusterEnergy}
	case o.ClusterRadius < 1:
		return &ErrInvalidOption{Name: "CLUSTER_RADIUS", Value: o.ClusterRadius}
	case o.TransitionDistance <= 0:
		return &ErrInvalidOption{Name: "TRANSITION_DISTANCE", Value: o.TransitionDistance}
	case o.MaxClusters < 1:
		return &ErrInvalidOption{Name: "MAX_CLUSTERS", Value: o.MaxClusters}
	case o.MaxClusterHits < 1:
		return &ErrInvalidOption{Name: "MAX_CLUSTER_HITS", Value: o.MaxClusterHits}
	case o.UseDoubleExpWeight && (o.CutOffThreshold <= 0 || o.CutOffThreshold >= 1):
		return &ErrInvalidOption{Name: "CUT_OFF_THRESHOLD", Value: o.CutOffThreshold}
	}
	return nil
}

func (o MatchOptions) Validate() error {
	switch {
	case o.MatchSigma <= 0:
		return &ErrInvalidOption{Name: "matchSigma", Value: o.MatchSigma}
	case o.OverlapSigma < 0:
		return &ErrInvalidOption{Name: "overlapSigma", Value: o.OverlapSigma}
	case o.GEMRes < 0 || o.CrystalRes < 0 || o.LeadGlassRes < 0 || o.TransitionRes < 0:
		return &ErrInvalidOption{Name: "resolution", Value: fmt.Sprintf("%v", o)}
	case o.Priority != 1 && o.Priority != 2:
		return &ErrInvalidOption{Name: "matchPriority", Value: o.Priority}
	}
	return nil
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Energy unit: %s", config.EnergyUnit), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	if config.DBDriver == "sqlite" {
		logger.Info(fmt.Sprintf("DB path: %s", config.DBPath), "config")
	} else {
		logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
		logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	}
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Cluster options: %+v", config.Cluster), "config")
	logger.Info(fmt.Sprintf("Match options: %+v", config.Match), "config")
	logger.Info(fmt.Sprintf("GEM pairing: %s (max asymmetry %.2f)", config.GEM.Pairing, config.GEM.MaxAsymmetry), "config")
	for _, det := range config.GEM.Detectors {
		logger.Info(fmt.Sprintf("GEM %d %s at z=%.1f mm offset (%.1f, %.1f)", det.ID, det.Name, det.Z, det.OffsetX, det.OffsetY), "config")
	}
}
