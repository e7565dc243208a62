package main

import (
	"encoding/json"
	"fmt"
	"os"

	sdexport "github.com/auger-sd/uubdump/pkg"
)

// LoadConfiguration reads a JSON configuration on top of the defaults. An
// empty filename gives the defaults.
func LoadConfiguration(filename string) (sdexport.Configuration, error) {
	config := sdexport.DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config sdexport.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Output directory: %s", config.OutDir), "config")
	logger.Info(fmt.Sprintf("Dump traces: %t", config.DumpTraces), "config")
	logger.Info(fmt.Sprintf("Dump histograms: %t", config.DumpHistos), "config")
	logger.Info(fmt.Sprintf("UUB error code: %d", config.UUBErrorCode), "config")
	logger.Info(fmt.Sprintf("Legacy stations: %v", config.LegacyStations), "config")
	logger.Info(fmt.Sprintf("Max UUB histograms: %d", config.MaxUUBHistos), "config")
	logger.Info(fmt.Sprintf("Max legacy histograms: %d", config.MaxOldHistos), "config")
	logger.Info(fmt.Sprintf("Progress every: %d", config.ProgressEvery), "config")
	logger.Info(fmt.Sprintf("Create dirs: %t", config.CreateDirs), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Record stations: %t", config.RecordStations), "config")
	logger.Info(fmt.Sprintf("Write HDF5: %t", config.WriteHDF5), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
