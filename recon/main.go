package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	recon "github.com/prad-exp/recon_go/pkg"
	"github.com/prad-exp/recon_go/pkg/hdf5io"
)

var configuration recon.Configuration

var (
	logger         recon.SlogLogger
	VerbosityLevel int
	DiscardErrors  bool
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := recon.NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = recon.SlogLogger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	if err := run(*configFilename); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(configFilename string) error {
	var err error
	configuration, err = recon.LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("Error reading configuration file: %w", err)
	}
	VerbosityLevel = configuration.Verbosity
	DiscardErrors = configuration.Discard
	recon.SetLogger(logger)
	recon.SetVerbosity(VerbosityLevel)
	hdf5io.SetLogger(logger, VerbosityLevel)

	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", configFilename)
		logger.Info(message, "main")
		recon.PrintConfiguration(configuration, logger)
	}

	unit, err := recon.ParseEnergyUnit(configuration.EnergyUnit)
	if err != nil {
		return err
	}
	reader, err := hdf5io.NewReader(configuration.FileIn, unit)
	if err != nil {
		return fmt.Errorf("Error opening input file: %w", err)
	}
	defer reader.Close()

	runNumber := reader.RunNumber
	if configuration.RunNumber > 0 {
		runNumber = configuration.RunNumber
	}
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Run %d, number of events: %d", runNumber, reader.NumEvents()), "main")
	}

	geometry, err := loadGeometry(runNumber)
	if err != nil {
		return err
	}
	reco, err := recon.NewReconstructor(geometry, configuration)
	if err != nil {
		return fmt.Errorf("Error creating reconstructor: %w", err)
	}

	var writer *hdf5io.Writer
	if configuration.WriteData {
		writer, err = hdf5io.NewWriter(configuration.FileOut, configuration.CompressionLevel, runNumber)
		if err != nil {
			return fmt.Errorf("Error creating output file: %w", err)
		}
	}

	start := time.Now()
	jobs := make(chan recon.Event, 100)
	go sendEventsToWorkers(reader, runNumber, jobs)

	var summary recon.Summary
	var writeErr error
	for result := range recon.RunWorkers(configuration.NumWorkers, reco, jobs) {
		summary.Add(result)
		if writer == nil || writeErr != nil {
			continue
		}
		if result.Error && DiscardErrors {
			message := fmt.Sprintf("discarding event %d", result.EventID)
			logger.Error(message)
			continue
		}
		writeErr = writer.WriteResult(result)
	}

	if writer != nil {
		writeErr = errors.Join(writeErr, writer.Close())
	}
	summary.Report().Log(logger, "summary")
	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Total time: %d ms", duration.Milliseconds()), "main")
	return writeErr
}

func loadGeometry(runNumber int) (*recon.Geometry, error) {
	if configuration.NoDB {
		if VerbosityLevel > 0 {
			logger.Info("Using the default HyCal geometry", "main")
		}
		return recon.DefaultHyCalGeometry(recon.DefaultDeadModules...)
	}

	dbConn, err := recon.ConnectToDatabase(configuration.DBDriver, configuration.User, configuration.Passwd,
		configuration.Host, configuration.DBName, configuration.DBPath)
	if err != nil {
		return nil, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()

	geometry, err := recon.LoadGeometryFromDB(dbConn, runNumber)
	if err != nil {
		return nil, fmt.Errorf("Error loading geometry for run %d: %w", runNumber, err)
	}
	return geometry, nil
}

type eventSource interface {
	Skip(n int)
	NextEvent() (recon.Event, error)
}

// sendEventsToWorkers stamps every event with runNumber, which may override
// the one stored in the input file.
func sendEventsToWorkers(source eventSource, runNumber int, jobs chan<- recon.Event) {
	defer close(jobs)
	source.Skip(configuration.Skip)
	for count := 0; count < configuration.MaxEvents; count++ {
		event, err := source.NextEvent()
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			return
		}
		event.RunNumber = runNumber
		jobs <- event
	}
}
