package rootio

import (
	"errors"
	"fmt"

	sdexport "github.com/auger-sd/uubdump/pkg"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/rootcnv"
)

type inputFile struct {
	name  string
	file  *riofs.File
	tree  rtree.Tree
	hkeys map[string]bool
}

// eventSpan locates the entries of one event
type eventSpan struct {
	file      int
	beg, end  int64
	eventID   uint32
	gpsSecond uint32
}

// Source is an EventSource over a list of ROOT files. Events are served in
// file order, then entry order.
type Source struct {
	files []*inputFile
	spans []eventSpan
}

// Open opens all the files and indexes their events.
func Open(paths []string) (*Source, error) {
	s := &Source{}
	for _, path := range paths {
		in, err := openInput(path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.files = append(s.files, in)
		if err := s.index(len(s.files) - 1); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Opener adapts Open to sdexport.Opener.
func Opener(paths []string) (sdexport.EventSource, error) {
	s, err := Open(paths)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openInput(path string) (*inputFile, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, &sdexport.ErrOpenFile{Filename: path, Err: err}
	}
	obj, err := f.Get(TreeName)
	if err != nil {
		f.Close()
		return nil, &sdexport.ErrOpenFile{Filename: path, Err: fmt.Errorf("could not get tree %q: %w", TreeName, err)}
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, &sdexport.ErrOpenFile{Filename: path, Err: fmt.Errorf("object %q is a %T, not a tree", TreeName, obj)}
	}
	hkeys := make(map[string]bool)
	for _, key := range f.Keys() {
		hkeys[key.Name()] = true
	}
	return &inputFile{name: path, file: f, tree: tree, hkeys: hkeys}, nil
}

func (s *Source) index(fileIdx int) error {
	in := s.files[fileIdx]
	if in.tree.Entries() == 0 {
		return nil
	}
	var eventID, gpsSecond uint32
	rvars := []rtree.ReadVar{
		{Name: "EventId", Value: &eventID},
		{Name: "GPSSecond", Value: &gpsSecond},
	}
	r, err := rtree.NewReader(in.tree, rvars)
	if err != nil {
		return &sdexport.ErrOpenFile{Filename: in.name, Err: fmt.Errorf("could not create index reader: %w", err)}
	}
	defer r.Close()

	err = r.Read(func(ctx rtree.RCtx) error {
		n := len(s.spans)
		if n > 0 {
			last := &s.spans[n-1]
			if last.file == fileIdx && last.eventID == eventID && last.gpsSecond == gpsSecond {
				last.end = ctx.Entry + 1
				return nil
			}
		}
		s.spans = append(s.spans, eventSpan{
			file:      fileIdx,
			beg:       ctx.Entry,
			end:       ctx.Entry + 1,
			eventID:   eventID,
			gpsSecond: gpsSecond,
		})
		return nil
	})
	if err != nil {
		return &sdexport.ErrOpenFile{Filename: in.name, Err: fmt.Errorf("could not index events: %w", err)}
	}
	return nil
}

func (s *Source) First() sdexport.Position {
	return 0
}

func (s *Source) Last() sdexport.Position {
	return sdexport.Position(len(s.spans))
}

func (s *Source) Next(pos sdexport.Position) sdexport.Position {
	return pos + 1
}

func (s *Source) Read(pos sdexport.Position) (*sdexport.EventType, error) {
	if pos < s.First() || pos >= s.Last() {
		return nil, &sdexport.ErrReadEvent{Position: pos, Err: errors.New("position out of range")}
	}
	span := s.spans[pos]
	in := s.files[span.file]
	event := &sdexport.EventType{ID: span.eventID, GPSSecond: span.gpsSecond}

	var rec record
	r, err := rtree.NewReader(in.tree, rec.readVars(), rtree.WithRange(span.beg, span.end))
	if err != nil {
		return nil, &sdexport.ErrReadEvent{Position: pos, Err: err}
	}
	defer r.Close()

	err = r.Read(func(ctx rtree.RCtx) error {
		st := rec.station()
		for ch := 0; ch < sdexport.MaxHCharge; ch++ {
			h, err := in.histogram(HistogramKey(span.gpsSecond, span.eventID, st.ID, ch))
			if err != nil {
				return err
			}
			if h != nil {
				st.Charge[ch] = h
			}
		}
		event.Stations = append(event.Stations, st)
		return nil
	})
	if err != nil {
		return nil, &sdexport.ErrReadEvent{Position: pos, Err: err}
	}
	return event, nil
}

// histogram returns the histogram stored under key, nil when absent.
func (in *inputFile) histogram(key string) (hbook.Histogram, error) {
	if !in.hkeys[key] {
		return nil, nil
	}
	obj, err := in.file.Get(key)
	if err != nil {
		return nil, fmt.Errorf("could not get histogram %q: %w", key, err)
	}
	switch h := obj.(type) {
	case rhist.H2:
		return rootcnv.H2D(h), nil
	case rhist.H1:
		return rootcnv.H1D(h), nil
	default:
		// not a histogram: treated as absent
		return nil, nil
	}
}

func (s *Source) Close() error {
	var errs []error
	for _, in := range s.files {
		if err := in.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file %s: %w", in.name, err))
		}
	}
	s.files = nil
	s.spans = nil
	return errors.Join(errs...)
}
