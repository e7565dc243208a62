package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	sdexport "github.com/auger-sd/uubdump/pkg"
	"github.com/auger-sd/uubdump/pkg/hdf5out"
	"github.com/auger-sd/uubdump/pkg/rootio"
	sqlx "github.com/jmoiron/sqlx"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Will dump UUB traces into files of the structure gpssecond_eventid_statid.txt")
	fmt.Fprintf(w, "Usage: %s [options] <files>\n", fs.Name())
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	return runWith(rootio.Opener, args, stdout, stderr)
}

func runWith(open sdexport.Opener, args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("uubdump", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFilename := fs.String("config", "", "Configuration file path")
	outDir := fs.String("out", "", "Output directory (overrides out_dir)")
	verbosity := fs.Int("v", -1, "Verbosity level (overrides verbosity)")
	envFile := fs.String("env", ".env", "Environment file with database credentials")
	if err := fs.Parse(args); err != nil {
		usage(stderr, fs)
		return 1
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return 1
	}

	logger := NewLogger(stdout, stderr)

	configuration, err := LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return 1
	}
	if *outDir != "" {
		configuration.OutDir = *outDir
	}
	if *verbosity >= 0 {
		configuration.Verbosity = *verbosity
	}
	if err := sdexport.ApplyEnvironment(&configuration, *envFile); err != nil {
		message := fmt.Errorf("Error reading environment file: %w", err)
		logger.Error(message.Error())
		return 1
	}
	sdexport.SetLogger(logger)
	defer sdexport.SetLogger(nil)

	if configuration.Verbosity > 0 {
		if *configFilename != "" {
			logger.Info(fmt.Sprintf("Reading configuration file: %s", *configFilename), "main")
		}
		printConfiguration(configuration, logger)
	}

	src, err := open(fs.Args())
	if err != nil {
		message := fmt.Errorf("Error opening input files: %w", err)
		logger.Error(message.Error())
		return 1
	}
	defer src.Close()

	exporter := sdexport.NewExporter(configuration, stderr)

	var dbConn *sqlx.DB
	if !configuration.NoDB {
		dbConn, err = sdexport.ConnectToDatabase(configuration)
		if err != nil {
			message := fmt.Errorf("Error connection to database: %w", err)
			logger.Error(message.Error())
			return 1
		}
		defer dbConn.Close()
		exporter.StationLookup = func(gpsSecond uint32) ([]uint32, error) {
			return sdexport.LoadLegacyStations(dbConn, gpsSecond, configuration.Verbosity)
		}
	}

	if configuration.WriteHDF5 {
		if configuration.CreateDirs {
			if err := os.MkdirAll(configuration.OutDir, 0o755); err != nil {
				logger.Error(fmt.Sprintf("Error creating output directory: %v", err))
				return 1
			}
		}
		filename := filepath.Join(configuration.OutDir, configuration.FileOut)
		writer, err := hdf5out.NewWriter(filename, configuration.CompressionLevel)
		if err != nil {
			message := fmt.Errorf("Error creating HDF5 file: %w", err)
			logger.Error(message.Error())
			return 1
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error(err.Error())
			}
		}()
		exporter.AddSink(writer)
	}

	if err := exporter.Run(src); err != nil {
		message := fmt.Errorf("Error exporting events: %w", err)
		logger.Error(message.Error())
		return 1
	}
	exporter.Report(stderr)

	if configuration.Verbosity > 0 {
		stats := exporter.Stats
		logger.Info(fmt.Sprintf("Events: %d, UUB lines: %d, legacy lines: %d, traces: %d, histograms: %d",
			stats.Events, stats.UUBLines, stats.LegacyLines, stats.Traces, stats.Histograms), "main")
	}

	if dbConn != nil && configuration.RecordStations && exporter.Stats.Events > 0 {
		if err := sdexport.EnsureStationSchema(dbConn); err != nil {
			logger.Error(err.Error())
			return 1
		}
		err := sdexport.RecordUUBStations(dbConn, exporter.Stats.FirstGPSSecond,
			exporter.Stats.FirstEventID, exporter.Stats.UUBStations.IDs())
		if err != nil {
			logger.Error(err.Error())
			return 1
		}
	}
	return 0
}
