package sdexport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"
)

const (
	TracesDir       = "eventdumps"
	CalibDir        = "calibrations"
	CalibLegacyDir  = "calibrations_old"
	summaryUUB      = "uub"
	summaryLegacy   = "old"
	moduleExporter  = "exporter"
	moduleHistogram = "histograms"
)

type Selection int

const (
	SelectUUB Selection = iota
	SelectLegacy
)

func (s Selection) String() string {
	switch s {
	case SelectUUB:
		return "UUB"
	case SelectLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// RecordSink receives every station record that passes a filter, in
// addition to the text summaries.
type RecordSink interface {
	WriteStation(selection Selection, gpsSecond uint32, eventID uint32, station *Station) error
}

// Stats holds the counters of one run.
type Stats struct {
	FirstEventID   uint32
	FirstGPSSecond uint32
	Events         int
	TotalEvents    int
	UUBLines       int
	LegacyLines    int
	Traces         int
	Histograms     int
	EmptyHistos    int
	UUBStations    StationSet
}

type Exporter struct {
	config Configuration
	// Diagnostics receives the progress lines and the final report
	Diagnostics io.Writer
	// StationLookup, when set, replaces the legacy station list using the
	// GPS second of the first event
	StationLookup func(gpsSecond uint32) ([]uint32, error)
	Stats         Stats

	sinks   []RecordSink
	uubFile *SummaryFile
	oldFile *SummaryFile
}

func NewExporter(config Configuration, diagnostics io.Writer) *Exporter {
	if diagnostics == nil {
		diagnostics = io.Discard
	}
	if config.OutDir == "" {
		config.OutDir = "."
	}
	return &Exporter{config: config, Diagnostics: diagnostics}
}

func (e *Exporter) AddSink(sink RecordSink) {
	e.sinks = append(e.sinks, sink)
}

func (e *Exporter) outPath(elem ...string) string {
	return filepath.Join(append([]string{e.config.OutDir}, elem...)...)
}

func (e *Exporter) createDirs() error {
	for _, dir := range []string{TracesDir, CalibDir, CalibLegacyDir} {
		path := e.outPath(dir)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return &ErrOpenFile{Filename: path, Err: err}
		}
	}
	return nil
}

// Run iterates over every event of src, from First to Last, and writes the
// selected stations. Summary files are named after the first event.
func (e *Exporter) Run(src EventSource) (err error) {
	first, last := src.First(), src.Last()
	if first >= last {
		logger.Info("No events in input files", moduleExporter)
		return nil
	}
	e.Stats.TotalEvents = int(last - first)

	firstEvent, err := src.Read(first)
	if err != nil {
		return err
	}
	e.Stats.FirstEventID = firstEvent.ID
	e.Stats.FirstGPSSecond = firstEvent.GPSSecond

	if e.StationLookup != nil {
		stations, err := e.StationLookup(firstEvent.GPSSecond)
		if err != nil {
			return fmt.Errorf("error looking up legacy stations: %w", err)
		}
		e.config.LegacyStations = stations
		if e.config.Verbosity > 0 {
			logger.Info(fmt.Sprintf("Legacy stations: %v", stations), moduleExporter)
		}
	}

	if e.config.CreateDirs {
		if err := e.createDirs(); err != nil {
			return err
		}
	}

	e.uubFile, err = CreateSummaryFile(e.outPath(SummaryFilename(summaryUUB, firstEvent.GPSSecond, firstEvent.ID)))
	if err != nil {
		return err
	}
	e.oldFile, err = CreateSummaryFile(e.outPath(SummaryFilename(summaryLegacy, firstEvent.GPSSecond, firstEvent.ID)))
	if err != nil {
		e.uubFile.Close()
		return err
	}
	defer func() {
		closeErr := errors.Join(e.oldFile.Close(), e.uubFile.Close())
		if err == nil {
			err = closeErr
		}
	}()

	for pos := first; pos < last; pos = src.Next(pos) {
		event, err := src.Read(pos)
		if err != nil {
			return err
		}
		if err := e.ProcessEvent(event); err != nil {
			return err
		}
		e.Stats.Events++
		if e.config.ProgressEvery > 0 && e.Stats.Events%e.config.ProgressEvery == 0 {
			fmt.Fprintf(e.Diagnostics, "# read %d events out of %d\n", e.Stats.Events, e.Stats.TotalEvents)
		}
	}
	return nil
}

func (e *Exporter) isLegacy(stationID uint32) bool {
	return slices.Contains(e.config.LegacyStations, stationID)
}

// ProcessEvent applies the UUB and legacy filters to every station of the
// event. Both filters are evaluated for each station.
func (e *Exporter) ProcessEvent(event *EventType) error {
	if e.uubFile == nil || e.oldFile == nil {
		return errors.New("summary files are not open")
	}
	for i := range event.Stations {
		station := &event.Stations[i]

		if station.IsUUB {
			if e.config.Verbosity > 0 {
				logger.Info(fmt.Sprintf("Event %d Station %d is a UUB", event.ID, station.ID), moduleExporter)
				logger.Info(fmt.Sprintf("Data error %d (%d means has FADC traces)", station.Error, e.config.UUBErrorCode), moduleExporter)
			}
			if station.Error == e.config.UUBErrorCode {
				if err := e.processUUB(event, station); err != nil {
					return err
				}
				if e.Stats.UUBStations.Add(station.ID) && e.config.Verbosity > 1 {
					logger.Info(fmt.Sprintf("New UUB station %d", station.ID), moduleExporter)
				}
			}
		}

		if e.isLegacy(station.ID) {
			if err := e.processLegacy(event, station); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Exporter) writeSinks(selection Selection, event *EventType, station *Station) error {
	for _, sink := range e.sinks {
		if err := sink.WriteStation(selection, event.GPSSecond, event.ID, station); err != nil {
			return fmt.Errorf("error writing %v station %d to sink: %w", selection, station.ID, err)
		}
	}
	return nil
}

func (e *Exporter) processUUB(event *EventType, station *Station) error {
	if err := e.uubFile.WriteStation(event.GPSSecond, event.ID, station); err != nil {
		return err
	}
	e.Stats.UUBLines++
	if e.config.Verbosity > 1 {
		logger.Info(fmt.Sprintf("UUB station %d in event %d, data error %d", station.ID, event.ID, station.Error), moduleExporter)
	}
	if err := e.writeSinks(SelectUUB, event, station); err != nil {
		return err
	}

	if e.config.DumpTraces && station.Fadc != nil {
		filename := e.outPath(TracesDir, TraceFilename(event.GPSSecond, event.ID, station.ID))
		if e.config.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Writing out to file %s", filename), moduleExporter)
		}
		if err := DumpTraces(filename, station.Fadc); err != nil {
			return err
		}
		e.Stats.Traces++
	}

	if e.config.DumpHistos {
		return e.exportHistograms(event, station, e.config.MaxUUBHistos, e.outPath(CalibDir))
	}
	return nil
}

func (e *Exporter) processLegacy(event *EventType, station *Station) error {
	if err := e.oldFile.WriteStation(event.GPSSecond, event.ID, station); err != nil {
		return err
	}
	e.Stats.LegacyLines++
	if err := e.writeSinks(SelectLegacy, event, station); err != nil {
		return err
	}
	if e.config.DumpHistos {
		return e.exportHistograms(event, station, e.config.MaxOldHistos, e.outPath(CalibLegacyDir))
	}
	return nil
}

// exportHistograms writes the charge histograms of the first channels. The
// first missing histogram ends the export for the station.
func (e *Exporter) exportHistograms(event *EventType, station *Station, maxChannels int, folder string) error {
	for j := 0; j < maxChannels && j < MaxHCharge; j++ {
		h := station.HCharge(j)
		if h == nil {
			break
		}
		filename := CalibFilename(event.GPSSecond, event.ID, station.ID, j)
		result, err := ExportHistogram(h, filename, folder)
		if err != nil {
			return err
		}
		switch result {
		case ExportWritten:
			e.Stats.Histograms++
			if e.config.Verbosity > 1 {
				logger.Info(fmt.Sprintf("Histogram %s written to %s", h.Name(), filepath.Join(folder, filename)), moduleHistogram)
			}
			if e.config.PreviewHistos {
				if preview := PreviewHistogram(h); preview != "" {
					logger.Info("\n"+preview, moduleHistogram)
				}
			}
		case ExportEmpty:
			e.Stats.EmptyHistos++
			logger.Error(fmt.Sprintf("histogram %s of station %d channel %d has no bins", h.Name(), station.ID, j))
		case ExportUnsupported:
			if e.config.Verbosity > 0 {
				logger.Info(fmt.Sprintf("Skipping histogram %s of rank %d", h.Name(), h.Rank()), moduleHistogram)
			}
		}
	}
	return nil
}

// Report writes the number and list of UUB stations found.
func (e *Exporter) Report(w io.Writer) {
	n := e.Stats.UUBStations.Len()
	fmt.Fprintf(w, "# Found %d stations with UUB", n)
	if n > 0 {
		fmt.Fprint(w, ":")
	}
	fmt.Fprintln(w)
	for _, id := range e.Stats.UUBStations.IDs() {
		fmt.Fprintf(w, "#   %d\n", id)
	}
}
