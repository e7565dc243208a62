// Package hdf5out mirrors the exported station records into an HDF5 file.
package hdf5out

import (
	"errors"
	"fmt"

	sdexport "github.com/auger-sd/uubdump/pkg"
	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// traceChannels is the number of (channel, gain) traces of a UUB station
const traceChannels = sdexport.NChannels * sdexport.NGains

type Writer struct {
	File           *hdf5.File
	Filename       string
	StationsGroup  *hdf5.Group
	RDGroup        *hdf5.Group
	UUBTable       *hdf5.Dataset
	OldTable       *hdf5.Dataset
	TraceInfoTable *hdf5.Dataset
	Traces         *hdf5.Dataset
	UUBRows        int
	OldRows        int
	TraceCounter   int
	nSamples       int
	compression    int
}

// NewWriter creates the file with its Stations and RD groups. The trace
// array is created with the first trace, its length fixes the number of
// samples per record.
func NewWriter(filename string, compression int) (*Writer, error) {
	f, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &sdexport.ErrOpenFile{Filename: filename, Err: err}
	}
	w := &Writer{File: f, Filename: filename, compression: compression}

	if w.StationsGroup, err = createGroup(f, "Stations"); err != nil {
		w.Close()
		return nil, err
	}
	if w.RDGroup, err = createGroup(f, "RD"); err != nil {
		w.Close()
		return nil, err
	}
	if w.UUBTable, err = createTable(w.StationsGroup, "uub", StationHDF5{}, compression); err != nil {
		w.Close()
		return nil, err
	}
	if w.OldTable, err = createTable(w.StationsGroup, "old", StationHDF5{}, compression); err != nil {
		w.Close()
		return nil, err
	}
	if w.TraceInfoTable, err = createTable(w.RDGroup, "traceinfo", TraceInfoHDF5{}, compression); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func stationRows(gpsSecond uint32, eventID uint32, station *sdexport.Station) []StationHDF5 {
	// The array MUST be allocated at creation, if not, HDF5 will panic
	rows := make([]StationHDF5, sdexport.NPMT)
	for l := 0; l < sdexport.NPMT; l++ {
		pmt := station.Pmt[l]
		rows[l] = StationHDF5{
			gpsSecond:  gpsSecond,
			evtNumber:  eventID,
			stationID:  station.ID,
			pmt:        int32(l),
			calibrated: pmt.CalibratedState,
			hgSat:      pmt.HighGainSat,
			lgSat:      pmt.LowGainSat,
			vemPeak:    pmt.VemPeak,
			vemCharge:  pmt.VemCharge,
			peakInVEM:  pmt.PeakInVEM,
			sigInVEM:   pmt.SigInVEM,
		}
	}
	return rows
}

// traceData flattens the traces as (channel, gain, sample). Traces longer
// than nSamples are truncated, shorter ones padded with zeros.
func traceData(fadc *sdexport.Fadc, nSamples int) []int16 {
	data := make([]int16, traceChannels*nSamples)
	for ch := 0; ch < sdexport.NChannels; ch++ {
		for g := 0; g < sdexport.NGains; g++ {
			offset := (ch*sdexport.NGains + g) * nSamples
			for k := 0; k < nSamples && k < fadc.NSample; k++ {
				data[offset+k] = int16(fadc.Value(ch, g, k))
			}
		}
	}
	return data
}

func (w *Writer) WriteStation(selection sdexport.Selection, gpsSecond uint32, eventID uint32, station *sdexport.Station) error {
	rows := stationRows(gpsSecond, eventID, station)
	switch selection {
	case sdexport.SelectUUB:
		if err := writeArrayToTable(w.UUBTable, &rows, w.UUBRows); err != nil {
			return fmt.Errorf("error writing UUB station %d: %w", station.ID, err)
		}
		w.UUBRows += len(rows)
		if station.Fadc != nil {
			return w.writeTraces(gpsSecond, eventID, station)
		}
	case sdexport.SelectLegacy:
		if err := writeArrayToTable(w.OldTable, &rows, w.OldRows); err != nil {
			return fmt.Errorf("error writing legacy station %d: %w", station.ID, err)
		}
		w.OldRows += len(rows)
	}
	return nil
}

func (w *Writer) writeTraces(gpsSecond uint32, eventID uint32, station *sdexport.Station) error {
	if w.Traces == nil {
		if station.Fadc.NSample == 0 {
			return nil
		}
		w.nSamples = station.Fadc.NSample
		traces, err := create3dArray(w.RDGroup, "uubtraces", traceChannels, w.nSamples, w.compression)
		if err != nil {
			return err
		}
		w.Traces = traces
	}

	data := traceData(station.Fadc, w.nSamples)
	if err := write3dArray(w.Traces, &data, w.TraceCounter, traceChannels, w.nSamples); err != nil {
		return fmt.Errorf("error writing traces of station %d: %w", station.ID, err)
	}
	info := []TraceInfoHDF5{{
		gpsSecond: gpsSecond,
		evtNumber: eventID,
		stationID: station.ID,
		nSamples:  int32(station.Fadc.NSample),
	}}
	if err := writeArrayToTable(w.TraceInfoTable, &info, w.TraceCounter); err != nil {
		return fmt.Errorf("error writing trace info of station %d: %w", station.ID, err)
	}
	w.TraceCounter++
	return nil
}

func (w *Writer) Close() error {
	var errs []error

	closers := []struct {
		name   string
		closer interface{ Close() error }
	}{
		{"UUB table", w.UUBTable},
		{"legacy table", w.OldTable},
		{"trace info table", w.TraceInfoTable},
		{"traces", w.Traces},
		{"stations group", w.StationsGroup},
		{"RD group", w.RDGroup},
	}
	for _, c := range closers {
		if isNil(c.closer) {
			continue
		}
		if err := c.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", c.name, err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func isNil(c interface{ Close() error }) bool {
	switch v := c.(type) {
	case *hdf5.Dataset:
		return v == nil
	case *hdf5.Group:
		return v == nil
	default:
		return c == nil
	}
}
