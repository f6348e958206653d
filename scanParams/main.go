package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	recon "github.com/prad-exp/recon_go/pkg"
	"github.com/prad-exp/recon_go/pkg/hdf5io"
)

var configuration recon.Configuration

var (
	logger         recon.SlogLogger
	VerbosityLevel int
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
	sigmas := flag.String("match-sigma", "3,4,5,6,8", "Comma separated matchSigma values")
	weights := flag.String("weight-free-par", "3.2,3.6,4.0,4.4", "Comma separated WEIGHT_FREE_PAR values")
	flag.Parse()

	var err error
	configuration, err = recon.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	matchSigmas, err := parseValues(*sigmas)
	if err != nil {
		logger.Error(fmt.Sprintf("Invalid -match-sigma: %v", err))
		os.Exit(1)
	}
	weightPars, err := parseValues(*weights)
	if err != nil {
		logger.Error(fmt.Sprintf("Invalid -weight-free-par: %v", err))
		os.Exit(1)
	}

	VerbosityLevel = configuration.Verbosity
	recon.SetLogger(logger)
	recon.SetVerbosity(VerbosityLevel)
	hdf5io.SetLogger(logger, VerbosityLevel)
	if VerbosityLevel > 0 {
		recon.PrintConfiguration(configuration, logger)
	}

	unit, err := recon.ParseEnergyUnit(configuration.EnergyUnit)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	events, runNumber, err := readEvents(configuration.FileIn, unit)
	if err != nil {
		logger.Error(fmt.Sprintf("Error reading events: %v", err))
		os.Exit(1)
	}
	fmt.Println("Total events read: ", len(events))

	geometry, err := loadGeometry(runNumber)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	start := time.Now()
	for _, weight := range weightPars {
		config := configuration
		if err := config.ApplyNamedOptions(map[string]float64{"WEIGHT_FREE_PAR": weight}); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		reco, err := recon.NewReconstructor(geometry, config)
		if err != nil {
			logger.Error(fmt.Sprintf("Error creating reconstructor: %v", err))
			os.Exit(1)
		}

		recoStart := time.Now()
		results := processEvents(reco, events)
		fmt.Printf("(WEIGHT_FREE_PAR %.2f) Reconstruction time: %d ms\n", weight, time.Since(recoStart).Milliseconds())

		for _, sigma := range matchSigmas {
			options := config.Match
			options.MatchSigma = sigma
			scan, err := reco.WithMatcher(options)
			if err != nil {
				logger.Error(fmt.Sprintf("Skipping matchSigma %.2f: %v", sigma, err))
				continue
			}
			matchStart := time.Now()
			report := rematch(scan, results)
			fmt.Printf("(WEIGHT_FREE_PAR %.2f, matchSigma %.2f) Time: %d ms, efficiency %.4f, GEM1 residual %.3f +- %.3f mm, GEM2 residual %.3f +- %.3f mm\n",
				weight, sigma, time.Since(matchStart).Milliseconds(), report.MatchEfficiency,
				report.MeanResidual1, report.StdResidual1, report.MeanResidual2, report.StdResidual2)
		}
	}

	duration := time.Since(start)
	fmt.Printf("Total time: %d ms\n", duration.Milliseconds())
}

func parseValues(s string) ([]float64, error) {
	var values []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func loadGeometry(runNumber int) (*recon.Geometry, error) {
	if configuration.NoDB {
		return recon.DefaultHyCalGeometry(recon.DefaultDeadModules...)
	}
	dbConn, err := recon.ConnectToDatabase(configuration.DBDriver, configuration.User, configuration.Passwd,
		configuration.Host, configuration.DBName, configuration.DBPath)
	if err != nil {
		return nil, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()
	return recon.LoadGeometryFromDB(dbConn, runNumber)
}
