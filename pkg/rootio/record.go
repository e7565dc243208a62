// Package rootio stores CDAS station records in ROOT files.
//
// A file holds a flat tree named "sd" with one entry per station record.
// Consecutive entries sharing the GPS second and event id form an event.
// Charge histograms are stored next to the tree as TH1/TH2 objects named
// HCharge_{gps}_{event}_{station}_{channel}.
package rootio

import (
	"fmt"

	sdexport "github.com/auger-sd/uubdump/pkg"
	"go-hep.org/x/hep/groot/rtree"
)

const TreeName = "sd"

func HistogramKey(gpsSecond uint32, eventID uint32, stationID uint32, channel int) string {
	return fmt.Sprintf("HCharge_%d_%d_%d_%d", gpsSecond, eventID, stationID, channel)
}

// record is one entry of the sd tree
type record struct {
	EventID         uint32
	GPSSecond       uint32
	StationID       uint32
	IsUUB           bool
	Error           uint32
	CalibratedState [sdexport.NPMT]int32
	HighGainSat     [sdexport.NPMT]int32
	LowGainSat      [sdexport.NPMT]int32
	VemPeak         [sdexport.NPMT]float64
	VemCharge       [sdexport.NPMT]float64
	PeakInVEM       [sdexport.NPMT]float64
	SigInVEM        [sdexport.NPMT]float64
	NSample         int32
	NFadc           int32
	Fadc            []int32
}

func (r *record) writeVars() []rtree.WriteVar {
	return []rtree.WriteVar{
		{Name: "EventId", Value: &r.EventID},
		{Name: "GPSSecond", Value: &r.GPSSecond},
		{Name: "StationId", Value: &r.StationID},
		{Name: "IsUUB", Value: &r.IsUUB},
		{Name: "Error", Value: &r.Error},
		{Name: "CalibratedState", Value: &r.CalibratedState},
		{Name: "HighGainSat", Value: &r.HighGainSat},
		{Name: "LowGainSat", Value: &r.LowGainSat},
		{Name: "VemPeak", Value: &r.VemPeak},
		{Name: "VemCharge", Value: &r.VemCharge},
		{Name: "PeakInVEM", Value: &r.PeakInVEM},
		{Name: "SigInVEM", Value: &r.SigInVEM},
		{Name: "NSample", Value: &r.NSample},
		{Name: "NFadc", Value: &r.NFadc},
		{Name: "Fadc", Value: &r.Fadc, Count: "NFadc"},
	}
}

func (r *record) readVars() []rtree.ReadVar {
	return []rtree.ReadVar{
		{Name: "EventId", Value: &r.EventID},
		{Name: "GPSSecond", Value: &r.GPSSecond},
		{Name: "StationId", Value: &r.StationID},
		{Name: "IsUUB", Value: &r.IsUUB},
		{Name: "Error", Value: &r.Error},
		{Name: "CalibratedState", Value: &r.CalibratedState},
		{Name: "HighGainSat", Value: &r.HighGainSat},
		{Name: "LowGainSat", Value: &r.LowGainSat},
		{Name: "VemPeak", Value: &r.VemPeak},
		{Name: "VemCharge", Value: &r.VemCharge},
		{Name: "PeakInVEM", Value: &r.PeakInVEM},
		{Name: "SigInVEM", Value: &r.SigInVEM},
		{Name: "NSample", Value: &r.NSample},
		{Name: "NFadc", Value: &r.NFadc},
		{Name: "Fadc", Value: &r.Fadc},
	}
}

func (r *record) fromStation(gpsSecond uint32, eventID uint32, st *sdexport.Station) {
	r.EventID = eventID
	r.GPSSecond = gpsSecond
	r.StationID = st.ID
	r.IsUUB = st.IsUUB
	r.Error = st.Error
	for l := 0; l < sdexport.NPMT; l++ {
		pmt := st.Pmt[l]
		r.CalibratedState[l] = pmt.CalibratedState
		r.HighGainSat[l] = pmt.HighGainSat
		r.LowGainSat[l] = pmt.LowGainSat
		r.VemPeak[l] = pmt.VemPeak
		r.VemCharge[l] = pmt.VemCharge
		r.PeakInVEM[l] = pmt.PeakInVEM
		r.SigInVEM[l] = pmt.SigInVEM
	}

	r.Fadc = r.Fadc[:0]
	r.NSample = 0
	if st.Fadc != nil {
		n := st.Fadc.NSample
		r.NSample = int32(n)
		for ch := 0; ch < sdexport.NChannels; ch++ {
			for g := 0; g < sdexport.NGains; g++ {
				for k := 0; k < n; k++ {
					r.Fadc = append(r.Fadc, st.Fadc.Value(ch, g, k))
				}
			}
		}
	}
	r.NFadc = int32(len(r.Fadc))
}

// station converts the current entry. The FADC buffer is copied since the
// reader reuses it.
func (r *record) station() sdexport.Station {
	st := sdexport.Station{
		ID:    r.StationID,
		IsUUB: r.IsUUB,
		Error: r.Error,
	}
	for l := 0; l < sdexport.NPMT; l++ {
		st.Pmt[l] = sdexport.PmtCalib{
			CalibratedState: r.CalibratedState[l],
			HighGainSat:     r.HighGainSat[l],
			LowGainSat:      r.LowGainSat[l],
			VemPeak:         r.VemPeak[l],
			VemCharge:       r.VemCharge[l],
			PeakInVEM:       r.PeakInVEM[l],
			SigInVEM:        r.SigInVEM[l],
		}
	}

	n := int(r.NSample)
	if n > 0 && len(r.Fadc) >= sdexport.NChannels*sdexport.NGains*n {
		fadc := sdexport.NewFadc(n)
		for ch := 0; ch < sdexport.NChannels; ch++ {
			for g := 0; g < sdexport.NGains; g++ {
				offset := (ch*sdexport.NGains + g) * n
				copy(fadc.Trace[ch][g], r.Fadc[offset:offset+n])
			}
		}
		st.Fadc = fadc
	}
	return st
}
