package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdexport "github.com/auger-sd/uubdump/pkg"
	"github.com/auger-sd/uubdump/pkg/rootio"
	sqlx "github.com/jmoiron/sqlx"
	"go-hep.org/x/hep/hbook"
)

func writeInput(t *testing.T, path string) {
	t.Helper()
	uub := sdexport.Station{ID: 500, IsUUB: true, Error: 256}
	uub.Fadc = sdexport.NewFadc(2)
	h := hbook.NewH1D(3, 0, 3)
	h.Ann["name"] = "hq0"
	h.Fill(1.5, 1)
	uub.Charge[0] = h
	legacy := sdexport.Station{ID: 1764}
	legacy.Charge[0] = h

	event := sdexport.EventType{ID: 42, GPSSecond: 1000, Stations: []sdexport.Station{uub, legacy}}
	w, err := rootio.Create(path)
	if err != nil {
		t.Fatalf("Failed to create input: %v", err)
	}
	if err := w.WriteEvent(&event); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close input: %v", err)
	}
}

func writeConfig(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestRun_NoArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("Expected usage, got %q", stderr.String())
	}
}

func TestRun_MissingInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-env", "", filepath.Join(t.TempDir(), "missing.root")}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		outputs []string
	}{
		{
			name:   "text",
			config: `{"create_dirs": true}`,
		},
		{
			name:    "hdf5",
			config:  `{"create_dirs": true, "write_hdf5": true, "file_out": "stations.h5"}`,
			outputs: []string{"stations.h5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, "sd_1000.root")
			writeInput(t, input)
			out := filepath.Join(dir, "out")
			config := writeConfig(t, dir, tt.config)

			var stdout, stderr bytes.Buffer
			code := run([]string{"-config", config, "-out", out, "-env", "", input}, &stdout, &stderr)
			if code != 0 {
				t.Fatalf("Expected exit code 0, got %d: %s", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), "# Found 1 stations with UUB:\n#   500\n") {
				t.Errorf("Unexpected report %q", stderr.String())
			}

			outputs := append([]string{
				"eventinfo_uub_1000_42.txt",
				"eventinfo_old_1000_42.txt",
				filepath.Join("eventdumps", "1000_42_500.txt"),
				filepath.Join("calibrations", "1000_42_500_0.calib"),
				filepath.Join("calibrations_old", "1000_42_1764_0.calib"),
			}, tt.outputs...)
			for _, name := range outputs {
				if _, err := os.Stat(filepath.Join(out, name)); err != nil {
					t.Errorf("Missing output %s: %v", name, err)
				}
			}
		})
	}
}

func TestRunWith_Opener(t *testing.T) {
	station := sdexport.Station{ID: 700, IsUUB: true, Error: 256}
	events := []sdexport.EventType{
		{ID: 7, GPSSecond: 2000, Stations: []sdexport.Station{station}},
		{ID: 8, GPSSecond: 2001, Stations: []sdexport.Station{station}},
	}
	var opened []string
	open := func(paths []string) (sdexport.EventSource, error) {
		opened = paths
		return sdexport.NewMemorySource(events...), nil
	}

	out := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := runWith(open, []string{"-out", out, "-env", "", "a.root", "b.root"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, stderr.String())
	}
	if len(opened) != 2 || opened[0] != "a.root" || opened[1] != "b.root" {
		t.Errorf("Unexpected opened paths %v", opened)
	}
	data, err := os.ReadFile(filepath.Join(out, "eventinfo_uub_2000_7.txt"))
	if err != nil {
		t.Fatalf("Missing summary: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("Expected 2 summary lines, got %d", n)
	}
}

func TestRun_RecordStations(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sd.root")
	writeInput(t, input)
	dbPath := filepath.Join(dir, "stations.db")

	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	db.MustExec(`CREATE TABLE LegacyStations (StationID INTEGER, MinGPS INTEGER, MaxGPS INTEGER)`)
	db.MustExec(`INSERT INTO LegacyStations VALUES (1764, 0, 5000)`)
	db.Close()

	config := writeConfig(t, dir, `{"create_dirs": true, "no_db": false, "db_driver": "sqlite",
		"dbname": "`+filepath.ToSlash(dbPath)+`", "record_stations": true}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", config, "-out", filepath.Join(dir, "out"), "-env", "", input}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, stderr.String())
	}

	db, err = sqlx.Connect("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()
	entries, err := sdexport.LoadUUBStations(db, 1000, 42)
	if err != nil {
		t.Fatalf("LoadUUBStations failed: %v", err)
	}
	if len(entries) != 1 || entries[0].StationID != 500 {
		t.Errorf("Unexpected recorded stations %+v", entries)
	}
}

func TestLoadConfiguration(t *testing.T) {
	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	if config.UUBErrorCode != 256 || config.OutDir != "." {
		t.Errorf("Unexpected defaults %+v", config)
	}

	dir := t.TempDir()
	path := writeConfig(t, dir, `{"verbosity": 2, "legacy_stations": [12], "dump_traces": false}`)
	config, err = LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if config.Verbosity != 2 || len(config.LegacyStations) != 1 || config.DumpTraces {
		t.Errorf("Configuration not applied: %+v", config)
	}
	if !config.DumpHistos || config.MaxUUBHistos != 4 {
		t.Errorf("Defaults must survive partial files: %+v", config)
	}

	bad := writeConfig(t, t.TempDir(), `{"verbosity": "high"}`)
	if _, err := LoadConfiguration(bad); err == nil {
		t.Error("Expected error for invalid configuration")
	}
}

func TestLogger(t *testing.T) {
	var info, errs bytes.Buffer
	logger := NewLogger(&info, &errs)
	logger.Info("hello", "test")
	logger.Error("boom")
	if !strings.HasSuffix(info.String(), "[test] hello\n") {
		t.Errorf("Unexpected info output %q", info.String())
	}
	if !strings.Contains(errs.String(), `"msg":"boom"`) {
		t.Errorf("Unexpected error output %q", errs.String())
	}
}

func TestHandler_Format(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(NewHandler(&out, nil))
	log.Warn("careful", "module", "")
	log.Debug("hidden")

	line := out.String()
	if !strings.HasSuffix(line, "] WARN: careful\n") {
		t.Errorf("Unexpected warning line %q", line)
	}
	if strings.Contains(line, "[]") {
		t.Errorf("Empty attributes must be skipped: %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Errorf("Debug records must be filtered at Info level: %q", line)
	}
}
