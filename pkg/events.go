package sdexport

import "go-hep.org/x/hep/hbook"

const (
	// NPMT is the number of photomultipliers with calibration fields
	NPMT = 3
	// NChannels and NGains describe the FADC trace layout of a UUB station
	NChannels = 5
	NGains    = 2
	// MaxHCharge is the number of charge histograms a station can carry
	MaxHCharge = 4
	// MaxStationID bounds the ids tracked by StationSet
	MaxStationID = 2000
	// UUBNoError is the error code of a UUB station without errors.
	// UUB error codes are the usual ones + 256.
	UUBNoError = 256
)

type EventType struct {
	ID        uint32
	GPSSecond uint32
	Stations  []Station
}

type Station struct {
	ID    uint32
	IsUUB bool
	Error uint32
	Pmt   [NPMT]PmtCalib
	// Fadc is nil when the record carries no traces
	Fadc *Fadc
	// Charge histograms per PMT, nil when absent
	Charge [MaxHCharge]hbook.Histogram
}

// HCharge returns the charge histogram of channel j or nil.
func (s *Station) HCharge(j int) hbook.Histogram {
	if j < 0 || j >= MaxHCharge {
		return nil
	}
	return s.Charge[j]
}

type PmtCalib struct {
	CalibratedState int32
	HighGainSat     int32
	LowGainSat      int32
	VemPeak         float64
	VemCharge       float64
	PeakInVEM       float64
	SigInVEM        float64
}

type Fadc struct {
	NSample int
	Trace   [NChannels][NGains][]int32
}

func NewFadc(nSample int) *Fadc {
	f := &Fadc{NSample: nSample}
	for ch := 0; ch < NChannels; ch++ {
		for g := 0; g < NGains; g++ {
			f.Trace[ch][g] = make([]int32, nSample)
		}
	}
	return f
}

// Value returns the sample k of the given channel and gain.
// Samples outside the stored trace read as zero.
func (f *Fadc) Value(channel, gain, k int) int32 {
	if channel < 0 || channel >= NChannels || gain < 0 || gain >= NGains {
		return 0
	}
	trace := f.Trace[channel][gain]
	if k < 0 || k >= len(trace) {
		return 0
	}
	return trace[k]
}
