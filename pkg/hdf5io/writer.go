package hdf5io

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmbenlloch/go-hdf5"
	recon "github.com/prad-exp/recon_go/pkg"
)

type Writer struct {
	File            *hdf5.File
	Filename        string
	RecoTag         uuid.UUID
	RunGroup        *hdf5.Group
	RecoGroup       *hdf5.Group
	EventTable      *hdf5.Dataset
	RunInfoTable    *hdf5.Dataset
	ClusterTable    *hdf5.Dataset
	ClusterHitTable *hdf5.Dataset
	GEMHitTable     *hdf5.Dataset
	MatchTable      *hdf5.Dataset
	EvtCounter      int
	ClusterCounter  int
	HitCounter      int
	GEMCounter      int
	MatchCounter    int
	runNumber       int
	runInfoWritten  bool
}

// NewWriter creates the output file and its tables. Every file gets a new
// reconstruction tag stored in /Run/runInfo.
func NewWriter(filename string, compressionLevel int, runNumber int) (*Writer, error) {
	writer := &Writer{
		Filename:  filename,
		RecoTag:   uuid.New(),
		runNumber: runNumber,
	}
	logInfo(1, fmt.Sprintf("Creating file %s (reco tag %s)", filename, writer.RecoTag))

	var err error
	writer.File, err = createFile(filename)
	if err != nil {
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "Run"); err != nil {
		return nil, writer.abort(err)
	}
	if writer.RecoGroup, err = createGroup(writer.File, "Reco"); err != nil {
		return nil, writer.abort(err)
	}

	tables := []struct {
		dset     **hdf5.Dataset
		group    *hdf5.Group
		name     string
		datatype interface{}
	}{
		{&writer.EventTable, writer.RunGroup, "events", EventDataHDF5{}},
		{&writer.RunInfoTable, writer.RunGroup, "runInfo", RunInfoHDF5{}},
		{&writer.ClusterTable, writer.RecoGroup, "clusters", ClusterHDF5{}},
		{&writer.ClusterHitTable, writer.RecoGroup, "clusterHits", ClusterHitHDF5{}},
		{&writer.GEMHitTable, writer.RecoGroup, "gemHits", GEMHitHDF5{}},
		{&writer.MatchTable, writer.RecoGroup, "matches", MatchHDF5{}},
	}
	for _, t := range tables {
		*t.dset, err = createTable(t.group, t.name, t.datatype, compressionLevel)
		if err != nil {
			return nil, writer.abort(err)
		}
	}
	return writer, nil
}

func (w *Writer) abort(err error) error {
	if closeErr := w.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// WriteResult appends one reconstructed event. Positions are written in mm
// and energies in MeV, as produced by the reconstruction.
func (w *Writer) WriteResult(result recon.Result) error {
	if !w.runInfoWritten {
		runNumber := w.runNumber
		if runNumber == 0 {
			runNumber = result.RunNumber
		}
		runInfo := RunInfoHDF5{run_number: int32(runNumber), reco_tag: convertToRecoTag(w.RecoTag.String())}
		if err := writeEntryToTable(w.RunInfoTable, "runInfo", runInfo, 0); err != nil {
			return err
		}
		w.runInfoWritten = true
	}

	evt := int32(result.EventID)
	status := int32(0)
	if result.Error {
		status = 1
	}
	eventData := EventDataHDF5{
		evt_number: evt,
		n_clusters: int32(len(result.Clusters)),
		n_gem1:     int32(len(result.GEM(0))),
		n_gem2:     int32(len(result.GEM(1))),
		status:     status,
	}
	if err := writeEntryToTable(w.EventTable, "events", eventData, w.EvtCounter); err != nil {
		return err
	}
	w.EvtCounter++

	clusters, hits := clusterRows(evt, result.Clusters)
	if err := writeArrayToTable(w.ClusterTable, "clusters", &clusters, w.ClusterCounter); err != nil {
		return err
	}
	w.ClusterCounter += len(clusters)
	if err := writeArrayToTable(w.ClusterHitTable, "clusterHits", &hits, w.HitCounter); err != nil {
		return err
	}
	w.HitCounter += len(hits)

	gemHits := gemHitRows(evt, result.GEMHits)
	if err := writeArrayToTable(w.GEMHitTable, "gemHits", &gemHits, w.GEMCounter); err != nil {
		return err
	}
	w.GEMCounter += len(gemHits)

	matches := matchRows(evt, result)
	if err := writeArrayToTable(w.MatchTable, "matches", &matches, w.MatchCounter); err != nil {
		return err
	}
	w.MatchCounter += len(matches)
	return nil
}

func clusterRows(evt int32, clusters []recon.Cluster) ([]ClusterHDF5, []ClusterHitHDF5) {
	nHits := 0
	for _, c := range clusters {
		nHits += len(c.Hits)
	}
	rows := make([]ClusterHDF5, len(clusters))
	hits := make([]ClusterHitHDF5, 0, nHits)
	for i, c := range clusters {
		rows[i] = ClusterHDF5{
			evt_number:    evt,
			cluster_id:    int32(i),
			energy:        float32(c.Energy),
			energy_res:    float32(c.EnergyResolution),
			x:             float32(c.X),
			y:             float32(c.Y),
			z:             float32(c.Z),
			center_id:     int32(c.CenterID),
			center_energy: float32(c.CenterEnergy),
			sector:        int32(c.Sector),
			nhits:         int32(len(c.Hits)),
			flags:         uint32(c.Flags),
			cluster_type:  int32(c.Type),
		}
		for _, h := range c.Hits {
			hits = append(hits, ClusterHitHDF5{
				evt_number: evt,
				cluster_id: int32(i),
				module_id:  int32(h.ID),
				energy:     float32(h.Energy),
				x:          float32(h.X),
				y:          float32(h.Y),
			})
		}
	}
	return rows, hits
}

func gemHitRows(evt int32, gemHits [][]recon.TrackHit) []GEMHitHDF5 {
	n := 0
	for _, hits := range gemHits {
		n += len(hits)
	}
	rows := make([]GEMHitHDF5, 0, n)
	for _, hits := range gemHits {
		for j, h := range hits {
			rows = append(rows, GEMHitHDF5{
				evt_number: evt,
				detector:   int32(h.Detector),
				hit_id:     int32(j),
				x:          float32(h.X),
				y:          float32(h.Y),
				z:          float32(h.Z),
				charge_x:   float32(h.ChargeX),
				charge_y:   float32(h.ChargeY),
				size_x:     int32(h.SizeX),
				size_y:     int32(h.SizeY),
			})
		}
	}
	return rows
}

func matchRows(evt int32, result recon.Result) []MatchHDF5 {
	rows := make([]MatchHDF5, 0, len(result.Matches))
	gem1, gem2 := result.GEM(0), result.GEM(1)
	for _, rec := range result.Matches {
		if !rec.Matched() || rec.Calo < 0 || rec.Calo >= len(result.Clusters) {
			continue
		}
		x, y := recon.MatchedPosition(rec, result.Clusters[rec.Calo], gem1, gem2)
		rows = append(rows, MatchHDF5{
			evt_number: evt,
			cluster_id: int32(rec.Calo),
			gem1:       int32(rec.GEM1),
			gem2:       int32(rec.GEM2),
			x:          float32(x),
			y:          float32(y),
		})
	}
	return rows
}

func (w *Writer) Close() error {
	logInfo(1, fmt.Sprintf("Closing file %s: %d events, %d clusters", w.Filename, w.EvtCounter, w.ClusterCounter))
	var errs []error

	datasets := []struct {
		dset *hdf5.Dataset
		name string
	}{
		{w.EventTable, "event table"},
		{w.RunInfoTable, "run info table"},
		{w.ClusterTable, "cluster table"},
		{w.ClusterHitTable, "cluster hit table"},
		{w.GEMHitTable, "GEM hit table"},
		{w.MatchTable, "match table"},
	}
	for _, d := range datasets {
		if d.dset == nil {
			continue
		}
		if err := d.dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", d.name, err))
		}
	}
	if w.RunGroup != nil {
		if err := w.RunGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run group: %w", err))
		}
	}
	if w.RecoGroup != nil {
		if err := w.RecoGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing reco group: %w", err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
