package sdexport

import (
	"bufio"
	"io"
	"os"
	"strconv"
)

const traceSeparator = "  "

func TraceFilename(gpsSecond uint32, eventID uint32, stationID uint32) string {
	return strconv.FormatUint(uint64(gpsSecond), 10) + "_" +
		strconv.FormatUint(uint64(eventID), 10) + "_" +
		strconv.FormatUint(uint64(stationID), 10) + ".txt"
}

// WriteTraces writes one line per sample with, for every channel, the
// high and low gain values: ch0-g0 ch0-g1 ch1-g0 ch1-g1 ...
func WriteTraces(w io.Writer, fadc *Fadc) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 16)
	for k := 0; k < fadc.NSample; k++ {
		for j := 0; j < NChannels; j++ {
			for g := 0; g < NGains; g++ {
				buf = strconv.AppendInt(buf[:0], int64(fadc.Value(j, g, k)), 10)
				buf = append(buf, traceSeparator...)
				if _, err := bw.Write(buf); err != nil {
					return err
				}
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func DumpTraces(filename string, fadc *Fadc) error {
	f, err := os.Create(filename)
	if err != nil {
		return &ErrOpenFile{Filename: filename, Err: err}
	}
	if err := WriteTraces(f, fadc); err != nil {
		f.Close()
		return &ErrWriteFile{Filename: filename, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ErrWriteFile{Filename: filename, Err: err}
	}
	return nil
}
