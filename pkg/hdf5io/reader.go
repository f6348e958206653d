package hdf5io

import (
	"fmt"
	"io"

	"github.com/jmbenlloch/go-hdf5"
	recon "github.com/prad-exp/recon_go/pkg"
)

// Reader serves the events of a decoded file in file order. The HyCal
// energies are mandatory, the GEM strips are read when present.
type Reader struct {
	File      *hdf5.File
	Filename  string
	RunNumber int
	unit      recon.EnergyUnit
	events    []InputEventHDF5
	energies  map[int32][]EnergyHDF5
	strips    map[int32][]StripHDF5
	next      int
}

func NewReader(filename string, unit recon.EnergyUnit) (*Reader, error) {
	f, err := openFile(filename)
	if err != nil {
		return nil, err
	}
	reader := &Reader{File: f, Filename: filename, unit: unit}
	if err := reader.load(); err != nil {
		f.Close()
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}
	return reader, nil
}

func (r *Reader) load() error {
	var err error
	r.events, err = readTable[InputEventHDF5](r.File, "/Run/events")
	if err != nil {
		return err
	}

	runInfo, err := readTable[InputRunInfoHDF5](r.File, "/Run/runInfo")
	if err != nil {
		return err
	}
	if len(runInfo) > 0 {
		r.RunNumber = int(runInfo[0].run_number)
	}

	energies, err := readTable[EnergyHDF5](r.File, "/HyCal/energies")
	if err != nil {
		return err
	}
	r.energies = make(map[int32][]EnergyHDF5)
	for _, e := range energies {
		r.energies[e.evt_number] = append(r.energies[e.evt_number], e)
	}

	r.strips = make(map[int32][]StripHDF5)
	if !r.File.LinkExists("GEM") {
		logInfo(1, fmt.Sprintf("%s has no GEM data", r.Filename))
		return nil
	}
	strips, err := readTable[StripHDF5](r.File, "/GEM/strips")
	if err != nil {
		return err
	}
	for _, s := range strips {
		r.strips[s.evt_number] = append(r.strips[s.evt_number], s)
	}

	logInfo(1, fmt.Sprintf("Read %d events, %d module energies and %d strips from %s",
		len(r.events), len(energies), len(strips), r.Filename))
	return nil
}

func (r *Reader) NumEvents() int {
	return len(r.events)
}

// Skip discards the next n events.
func (r *Reader) Skip(n int) {
	r.next = min(r.next+max(n, 0), len(r.events))
}

// NextEvent returns io.EOF once every event has been served.
func (r *Reader) NextEvent() (recon.Event, error) {
	if r.next >= len(r.events) {
		return recon.Event{}, io.EOF
	}
	evt := r.events[r.next].evt_number
	r.next++

	event := recon.Event{
		RunNumber: r.RunNumber,
		EventID:   int(evt),
		Energies:  recon.NewChannelEnergyMap(r.unit),
	}
	for _, e := range r.energies[evt] {
		event.Energies.Set(int(e.module_id), float64(e.energy))
	}
	for _, s := range r.strips[evt] {
		plane := recon.PlaneX
		if s.plane != 0 {
			plane = recon.PlaneY
		}
		charges := make([]float64, len(s.charges))
		for i, q := range s.charges {
			charges[i] = float64(q)
		}
		event.Strips = append(event.Strips, recon.StripData{
			Detector: int(s.det),
			Plane:    plane,
			Strip:    int(s.strip),
			Charges:  charges,
		})
	}
	return event, nil
}

func (r *Reader) Close() error {
	if err := r.File.Close(); err != nil {
		return fmt.Errorf("error closing file %s: %w", r.Filename, err)
	}
	return nil
}
