package sdexport

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SummaryFields is the number of fields of every summary line
const SummaryFields = 3 + 7*NPMT

// formatFloat prints v with six significant digits. Non-finite values use
// the nan/inf spelling of the existing summary files.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// FormatSummaryLine returns the summary line of a station: gps second,
// event id, station id and seven calibration fields per PMT, each field
// followed by a space.
func FormatSummaryLine(gpsSecond uint32, eventID uint32, station *Station) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(gpsSecond), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(eventID), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(station.ID), 10))
	b.WriteByte(' ')
	for l := 0; l < NPMT; l++ {
		pmt := station.Pmt[l]
		fields := []string{
			strconv.FormatInt(int64(pmt.CalibratedState), 10),
			strconv.FormatInt(int64(pmt.HighGainSat), 10),
			strconv.FormatInt(int64(pmt.LowGainSat), 10),
			formatFloat(pmt.VemPeak),
			formatFloat(pmt.VemCharge),
			formatFloat(pmt.PeakInVEM),
			formatFloat(pmt.SigInVEM),
		}
		for _, f := range fields {
			b.WriteString(f)
			b.WriteByte(' ')
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func SummaryFilename(kind string, gpsSecond uint32, eventID uint32) string {
	return "eventinfo_" + kind + "_" + strconv.FormatUint(uint64(gpsSecond), 10) +
		"_" + strconv.FormatUint(uint64(eventID), 10) + ".txt"
}

// SummaryFile is a summary output kept open for the whole run.
type SummaryFile struct {
	Filename string
	file     *os.File
	w        *bufio.Writer
	Lines    int
}

func CreateSummaryFile(filename string) (*SummaryFile, error) {
	f, err := os.Create(filepath.Clean(filename))
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	return &SummaryFile{Filename: filename, file: f, w: bufio.NewWriter(f)}, nil
}

func (s *SummaryFile) WriteStation(gpsSecond uint32, eventID uint32, station *Station) error {
	if _, err := s.w.WriteString(FormatSummaryLine(gpsSecond, eventID, station)); err != nil {
		return &ErrWriteFile{Filename: s.Filename, Err: err}
	}
	s.Lines++
	return nil
}

func (s *SummaryFile) Close() error {
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return &ErrWriteFile{Filename: s.Filename, Err: err}
	}
	if err := s.file.Close(); err != nil {
		return &ErrWriteFile{Filename: s.Filename, Err: err}
	}
	return nil
}
