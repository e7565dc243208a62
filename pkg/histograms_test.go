package sdexport

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-hep.org/x/hep/hbook"
)

type rank3Histogram struct{}

func (rank3Histogram) Annotation() hbook.Annotation { return hbook.Annotation{"name": "h3"} }
func (rank3Histogram) Name() string                 { return "h3" }
func (rank3Histogram) Rank() int                    { return 3 }
func (rank3Histogram) Entries() int64               { return 0 }

func dataLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func TestWriteHistogramASCII_1D(t *testing.T) {
	h := hbook.NewH1D(2, 0, 2)
	h.Ann["name"] = "hq"
	h.Ann["title"] = "charge"
	h.Fill(0.5, 1)
	h.Fill(1.5, 2)

	var out bytes.Buffer
	result, err := WriteHistogramASCII(&out, h)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result != ExportWritten {
		t.Fatalf("Expected written, got %v", result)
	}

	want := "# Output H1D: hq (charge)\n" +
		"# BinCenter  Content  BinHalfWidth  Error\n" +
		"0.5  1  0.5  1\n" +
		"1.5  2  0.5  2\n"
	if out.String() != want {
		t.Errorf("Expected\n%q\ngot\n%q", want, out.String())
	}
}

func TestWriteHistogramASCII_1DRowCount(t *testing.T) {
	for _, n := range []int{1, 7, 100} {
		var out bytes.Buffer
		if _, err := WriteHistogramASCII(&out, newH1D("h", n)); err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if rows := len(dataLines(out.String())); rows != n {
			t.Errorf("Histogram with %d bins gave %d rows", n, rows)
		}
	}
}

func TestWriteHistogramASCII_2D(t *testing.T) {
	h := hbook.NewH2D(3, 0, 3, 2, 0, 4)
	h.Ann["name"] = "h2"
	h.Fill(0.5, 1, 2)
	h.Fill(2.5, 3, 1)

	var out bytes.Buffer
	result, err := WriteHistogramASCII(&out, h)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result != ExportWritten {
		t.Fatalf("Expected written, got %v", result)
	}

	lines := strings.Split(out.String(), "\n")
	if lines[1] != "# xBinCenter  yBinCenter  Content  xBinHalfWidth  yBinHalfWidth  Error" {
		t.Errorf("Unexpected column header %q", lines[1])
	}
	body := lines[2:]
	// 3 blocks of 2 rows + blank line, then the final empty string from Split
	want := []string{
		"0.5  1  2  0.5  1  2",
		"0.5  3  0  0.5  1  0",
		"",
		"1.5  1  0  0.5  1  0",
		"1.5  3  0  0.5  1  0",
		"",
		"2.5  1  0  0.5  1  0",
		"2.5  3  1  0.5  1  1",
		"",
		"",
	}
	if len(body) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(body), body)
	}
	for i := range want {
		if body[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], body[i])
		}
	}
}

func TestWriteHistogramASCII_Empty(t *testing.T) {
	var out bytes.Buffer
	result, err := WriteHistogramASCII(&out, &hbook.H1D{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result != ExportEmpty {
		t.Errorf("Expected empty, got %v", result)
	}
	if len(dataLines(out.String())) != 0 {
		t.Errorf("Expected header only, got %q", out.String())
	}
}

func TestExportHistogram_Unsupported(t *testing.T) {
	dir := t.TempDir()
	result, err := ExportHistogram(rank3Histogram{}, "h3.calib", dir)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result != ExportUnsupported {
		t.Errorf("Expected unsupported, got %v", result)
	}
	if _, err := os.Stat(filepath.Join(dir, "h3.calib")); !os.IsNotExist(err) {
		t.Error("Unsupported histograms must not create a file")
	}
}

func TestExportHistogram_File(t *testing.T) {
	dir := t.TempDir()
	name := CalibFilename(1000, 42, 500, 3)
	if name != "1000_42_500_3.calib" {
		t.Errorf("Unexpected calibration file name %s", name)
	}
	result, err := ExportHistogram(newH1D("hq", 4), name, dir)
	if err != nil || result != ExportWritten {
		t.Fatalf("Export failed: %v %v", result, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if rows := len(dataLines(string(data))); rows != 4 {
		t.Errorf("Expected 4 rows, got %d", rows)
	}
}

func TestExportHistogram_MissingFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	result, err := ExportHistogram(newH1D("hq", 4), "hq.calib", dir)
	if result != ExportFailed {
		t.Errorf("Expected failed, got %v", result)
	}
	var openErr *ErrOpenFile
	if !errors.As(err, &openErr) {
		t.Fatalf("Expected ErrOpenFile, got %v", err)
	}
}

func TestPreviewHistogram(t *testing.T) {
	preview := PreviewHistogram(newH1D("hq0", 10))
	if !strings.Contains(preview, "hq0") {
		t.Errorf("Expected caption in preview, got %q", preview)
	}
	if PreviewHistogram(hbook.NewH2D(2, 0, 1, 2, 0, 1)) != "" {
		t.Error("Expected no preview for 2-D histograms")
	}
	if PreviewHistogram(&hbook.H1D{}) != "" {
		t.Error("Expected no preview for empty histograms")
	}
}
