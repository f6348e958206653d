package recon

import (
	"sort"

	"golang.org/x/exp/maps"
)

type EnergyUnit int

const (
	MeV EnergyUnit = iota
	GeV
)

func (u EnergyUnit) String() string {
	switch u {
	case MeV:
		return "MeV"
	case GeV:
		return "GeV"
	default:
		return "Unknown"
	}
}

func ParseEnergyUnit(s string) (EnergyUnit, error) {
	switch s {
	case "MeV", "mev", "":
		return MeV, nil
	case "GeV", "gev":
		return GeV, nil
	}
	return MeV, &ErrInvalidOption{Name: "energy_unit", Value: s}
}

// ChannelEnergyMap holds the calibrated energy deposited in every fired
// calorimeter module of one event.
type ChannelEnergyMap struct {
	Unit     EnergyUnit
	energies map[int]float64
}

func NewChannelEnergyMap(unit EnergyUnit) ChannelEnergyMap {
	return ChannelEnergyMap{Unit: unit, energies: make(map[int]float64)}
}

func (m *ChannelEnergyMap) Set(id int, energy float64) {
	if m.energies == nil {
		m.energies = make(map[int]float64)
	}
	m.energies[id] = energy
}

func (m ChannelEnergyMap) Energy(id int) (float64, bool) {
	e, ok := m.energies[id]
	return e, ok
}

func (m ChannelEnergyMap) Len() int {
	return len(m.energies)
}

// IDs returns the module ids in increasing order.
func (m ChannelEnergyMap) IDs() []int {
	ids := make([]int, 0, len(m.energies))
	for id := range m.energies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AboveThreshold keeps the modules with energy >= min, in the map unit.
func (m ChannelEnergyMap) AboveThreshold(min float64) ChannelEnergyMap {
	out := NewChannelEnergyMap(m.Unit)
	for id, e := range m.energies {
		if e >= min {
			out.energies[id] = e
		}
	}
	return out
}

// InGeV returns a copy of the map expressed in GeV.
func (m ChannelEnergyMap) InGeV() ChannelEnergyMap {
	if m.Unit == GeV {
		return ChannelEnergyMap{Unit: GeV, energies: maps.Clone(m.energies)}
	}
	out := NewChannelEnergyMap(GeV)
	for id, e := range m.energies {
		out.energies[id] = e / 1000
	}
	return out
}

func (m ChannelEnergyMap) Total() float64 {
	total := 0.
	for _, id := range m.IDs() {
		total += m.energies[id]
	}
	return total
}
