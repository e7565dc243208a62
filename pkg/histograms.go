package sdexport

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"go-hep.org/x/hep/hbook"
)

type ExportResult int

const (
	ExportWritten ExportResult = iota
	// ExportEmpty is returned for histograms without bins. The header is
	// still written.
	ExportEmpty
	// ExportUnsupported is returned for histograms that are neither 1-D
	// nor 2-D. Nothing is written.
	ExportUnsupported
	// ExportFailed comes with a non-nil error.
	ExportFailed
)

func (r ExportResult) String() string {
	switch r {
	case ExportWritten:
		return "written"
	case ExportEmpty:
		return "empty"
	case ExportUnsupported:
		return "unsupported"
	case ExportFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const histSeparator = "  "

func CalibFilename(gpsSecond uint32, eventID uint32, stationID uint32, channel int) string {
	return fmt.Sprintf("%d_%d_%d_%d.calib", gpsSecond, eventID, stationID, channel)
}

func histogramTitle(h hbook.Histogram) string {
	if title, ok := h.Annotation()["title"].(string); ok {
		return title
	}
	return ""
}

func histogramClass(h hbook.Histogram) string {
	switch h.(type) {
	case *hbook.H1D:
		return "H1D"
	case *hbook.H2D:
		return "H2D"
	default:
		return fmt.Sprintf("%T", h)
	}
}

// binError follows ROOT's GetBinError: sqrt of the sum of squared weights.
func binError(sumW2 float64) float64 {
	return math.Sqrt(sumW2)
}

// WriteHistogramASCII writes h as text columns. 1-D histograms give one row
// per bin, 2-D histograms one block per x bin with one row per y bin,
// each block followed by a blank line.
func WriteHistogramASCII(w io.Writer, h hbook.Histogram) (ExportResult, error) {
	switch h.(type) {
	case *hbook.H1D, *hbook.H2D:
	default:
		return ExportUnsupported, nil
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Output %s: %s (%s)\n", histogramClass(h), h.Name(), histogramTitle(h))

	var nBins int
	switch hist := h.(type) {
	case *hbook.H1D:
		nBins = writeH1D(bw, hist)
	case *hbook.H2D:
		nBins = writeH2D(bw, hist)
	}
	if err := bw.Flush(); err != nil {
		return ExportFailed, err
	}
	if nBins == 0 {
		return ExportEmpty, nil
	}
	return ExportWritten, nil
}

func writeColumns(w *bufio.Writer, values ...float64) {
	for i, v := range values {
		if i > 0 {
			w.WriteString(histSeparator)
		}
		w.WriteString(formatFloat(v))
	}
	w.WriteByte('\n')
}

func writeH1D(w *bufio.Writer, h *hbook.H1D) int {
	w.WriteString("# BinCenter" + histSeparator + "Content" + histSeparator +
		"BinHalfWidth" + histSeparator + "Error\n")
	for i := range h.Binning.Bins {
		bin := &h.Binning.Bins[i]
		writeColumns(w, bin.XMid(), bin.SumW(), bin.XWidth()/2, binError(bin.SumW2()))
	}
	return len(h.Binning.Bins)
}

func writeH2D(w *bufio.Writer, h *hbook.H2D) int {
	w.WriteString("# xBinCenter" + histSeparator + "yBinCenter" + histSeparator +
		"Content" + histSeparator + "xBinHalfWidth" + histSeparator +
		"yBinHalfWidth" + histSeparator + "Error\n")

	// x-major order whatever the internal bin layout is
	bins := make([]*hbook.Bin2D, len(h.Binning.Bins))
	for i := range h.Binning.Bins {
		bins[i] = &h.Binning.Bins[i]
	}
	sort.SliceStable(bins, func(i, j int) bool {
		if bins[i].XMid() != bins[j].XMid() {
			return bins[i].XMid() < bins[j].XMid()
		}
		return bins[i].YMid() < bins[j].YMid()
	})

	for i, bin := range bins {
		if i > 0 && bin.XMid() != bins[i-1].XMid() {
			w.WriteByte('\n')
		}
		writeColumns(w, bin.XMid(), bin.YMid(), bin.SumW(),
			bin.XWidth()/2, bin.YWidth()/2, binError(bin.SumW2()))
	}
	if len(bins) > 0 {
		w.WriteByte('\n')
	}
	return len(bins)
}

// ExportHistogram writes h to folder/filename. Unsupported histograms do
// not create a file.
func ExportHistogram(h hbook.Histogram, filename string, folder string) (ExportResult, error) {
	switch h.(type) {
	case *hbook.H1D, *hbook.H2D:
	default:
		return ExportUnsupported, nil
	}
	path := filepath.Join(folder, filename)
	f, err := os.Create(path)
	if err != nil {
		return ExportFailed, &ErrOpenFile{Filename: path, Err: err}
	}
	result, err := WriteHistogramASCII(f, h)
	if err != nil {
		f.Close()
		return ExportFailed, &ErrWriteFile{Filename: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return ExportFailed, &ErrWriteFile{Filename: path, Err: err}
	}
	return result, nil
}

// PreviewHistogram renders the contents of a 1-D histogram as an ASCII
// plot. Other histograms give an empty string.
func PreviewHistogram(h hbook.Histogram) string {
	h1, ok := h.(*hbook.H1D)
	if !ok || len(h1.Binning.Bins) == 0 {
		return ""
	}
	contents := make([]float64, len(h1.Binning.Bins))
	for i := range h1.Binning.Bins {
		contents[i] = h1.Binning.Bins[i].SumW()
	}
	caption := h1.Name()
	if caption == "" {
		caption = "bins " + strconv.Itoa(len(contents))
	}
	return asciigraph.Plot(contents, asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption(caption))
}
