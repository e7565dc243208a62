package rootio

import (
	"errors"
	"fmt"

	sdexport "github.com/auger-sd/uubdump/pkg"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/root"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/hbook"
)

// Writer creates files readable by Open.
type Writer struct {
	Filename string
	file     *riofs.File
	tree     rtree.Writer
	rec      record
	Entries  int
}

func Create(filename string) (*Writer, error) {
	f, err := groot.Create(filename)
	if err != nil {
		return nil, &sdexport.ErrOpenFile{Filename: filename, Err: err}
	}
	w := &Writer{Filename: filename, file: f}
	w.tree, err = rtree.NewWriter(f, TreeName, w.rec.writeVars())
	if err != nil {
		f.Close()
		return nil, &sdexport.ErrOpenFile{Filename: filename, Err: fmt.Errorf("could not create tree: %w", err)}
	}
	return w, nil
}

// WriteEvent appends one entry per station and stores its histograms.
// Events without stations leave no trace in the file.
func (w *Writer) WriteEvent(event *sdexport.EventType) error {
	for i := range event.Stations {
		st := &event.Stations[i]
		w.rec.fromStation(event.GPSSecond, event.ID, st)
		if _, err := w.tree.Write(); err != nil {
			return &sdexport.ErrWriteFile{Filename: w.Filename, Err: err}
		}
		w.Entries++

		for ch := 0; ch < sdexport.MaxHCharge; ch++ {
			h := st.HCharge(ch)
			if h == nil {
				continue
			}
			obj, err := toROOT(h)
			if err != nil {
				return &sdexport.ErrWriteFile{Filename: w.Filename, Err: err}
			}
			key := HistogramKey(event.GPSSecond, event.ID, st.ID, ch)
			if err := w.file.Put(key, obj); err != nil {
				return &sdexport.ErrWriteFile{Filename: w.Filename, Err: fmt.Errorf("could not store %s: %w", key, err)}
			}
		}
	}
	return nil
}

func toROOT(h hbook.Histogram) (root.Object, error) {
	switch hist := h.(type) {
	case *hbook.H1D:
		return rhist.NewH1DFrom(hist), nil
	case *hbook.H2D:
		return rhist.NewH2DFrom(hist), nil
	default:
		return nil, fmt.Errorf("unsupported histogram %T of rank %d", h, h.Rank())
	}
}

func (w *Writer) Close() error {
	var errs []error
	if err := w.tree.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing tree: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}
