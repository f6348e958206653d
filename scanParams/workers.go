package main

import (
	"errors"
	"io"

	recon "github.com/prad-exp/recon_go/pkg"
	"github.com/prad-exp/recon_go/pkg/hdf5io"
)

// readEvents loads the selected events in memory so every scan point runs
// over the same sample.
func readEvents(filename string, unit recon.EnergyUnit) ([]recon.Event, int, error) {
	reader, err := hdf5io.NewReader(filename, unit)
	if err != nil {
		return nil, 0, err
	}
	defer reader.Close()

	runNumber := reader.RunNumber
	if configuration.RunNumber > 0 {
		runNumber = configuration.RunNumber
		reader.RunNumber = runNumber
	}

	reader.Skip(configuration.Skip)
	events := make([]recon.Event, 0, min(reader.NumEvents(), configuration.MaxEvents))
	for len(events) < configuration.MaxEvents {
		event, err := reader.NextEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	return events, runNumber, nil
}

func processEvents(reco *recon.Reconstructor, events []recon.Event) []recon.Result {
	jobs := make(chan recon.Event, 100)
	go func() {
		defer close(jobs)
		for _, event := range events {
			jobs <- event
		}
	}()

	results := make([]recon.Result, 0, len(events))
	for result := range recon.RunWorkers(configuration.NumWorkers, reco, jobs) {
		if result.Error && configuration.Discard {
			continue
		}
		results = append(results, result)
	}
	return results
}

func rematch(reco *recon.Reconstructor, results []recon.Result) recon.SummaryReport {
	var summary recon.Summary
	for _, result := range results {
		summary.Add(reco.Rematch(result))
	}
	return summary.Report()
}
