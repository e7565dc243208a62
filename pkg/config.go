package sdexport

import (
	"os"

	"github.com/joho/godotenv"
)

type Configuration struct {
	Verbosity        int      `json:"verbosity"`
	OutDir           string   `json:"out_dir"`
	DumpTraces       bool     `json:"dump_traces"`
	DumpHistos       bool     `json:"dump_histos"`
	UUBErrorCode     uint32   `json:"uub_error_code"`
	LegacyStations   []uint32 `json:"legacy_stations"`
	MaxUUBHistos     int      `json:"max_uub_histos"`
	MaxOldHistos     int      `json:"max_old_histos"`
	ProgressEvery    int      `json:"progress_every"`
	CreateDirs       bool     `json:"create_dirs"`
	PreviewHistos    bool     `json:"preview_histos"`
	NoDB             bool     `json:"no_db"`
	DBDriver         string   `json:"db_driver"`
	Host             string   `json:"host"`
	Port             string   `json:"port"`
	User             string   `json:"user"`
	Passwd           string   `json:"pass"`
	DBName           string   `json:"dbname"`
	RecordStations   bool     `json:"record_stations"`
	WriteHDF5        bool     `json:"write_hdf5"`
	FileOut          string   `json:"file_out"`
	CompressionLevel int      `json:"compression_level"`
}

// DefaultConfiguration returns the settings used when no configuration
// file is given.
func DefaultConfiguration() Configuration {
	return Configuration{
		Verbosity:        0,
		OutDir:           ".",
		DumpTraces:       true,
		DumpHistos:       true,
		UUBErrorCode:     UUBNoError,
		LegacyStations:   []uint32{1764, 1739, 1733},
		MaxUUBHistos:     4,
		MaxOldHistos:     3,
		ProgressEvery:    100,
		CreateDirs:       false,
		PreviewHistos:    false,
		NoDB:             true,
		DBDriver:         "mysql",
		Host:             "localhost",
		Port:             "3306",
		User:             "sdreader",
		Passwd:           "readonly",
		DBName:           "SDMonitoring",
		RecordStations:   false,
		WriteHDF5:        false,
		FileOut:          "uubdump.h5",
		CompressionLevel: 4,
	}
}

const (
	envDBUser = "UUBDUMP_DB_USER"
	envDBPass = "UUBDUMP_DB_PASS"
	envDBHost = "UUBDUMP_DB_HOST"
	envDBName = "UUBDUMP_DB_NAME"
)

// ApplyEnvironment overrides the database settings with the UUBDUMP_DB_*
// variables. envFile is loaded first when it exists; variables already set
// in the environment take precedence over the file.
func ApplyEnvironment(config *Configuration, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return &ErrOpenFile{Filename: envFile, Err: err}
			}
		}
	}
	if v, ok := os.LookupEnv(envDBUser); ok {
		config.User = v
	}
	if v, ok := os.LookupEnv(envDBPass); ok {
		config.Passwd = v
	}
	if v, ok := os.LookupEnv(envDBHost); ok {
		config.Host = v
	}
	if v, ok := os.LookupEnv(envDBName); ok {
		config.DBName = v
	}
	return nil
}
