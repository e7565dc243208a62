package sdexport

// StationSet records station ids in [0, MaxStationID).
// Ids outside that range are ignored and never counted.
type StationSet struct {
	seen  [MaxStationID]bool
	count int
}

// Add marks id as seen and reports whether it was new.
func (s *StationSet) Add(id uint32) bool {
	if id >= MaxStationID || s.seen[id] {
		return false
	}
	s.seen[id] = true
	s.count++
	return true
}

func (s *StationSet) Contains(id uint32) bool {
	return id < MaxStationID && s.seen[id]
}

func (s *StationSet) Len() int {
	return s.count
}

// IDs returns the recorded ids in ascending order.
func (s *StationSet) IDs() []uint32 {
	ids := make([]uint32, 0, s.count)
	for i := range s.seen {
		if s.seen[i] {
			ids = append(ids, uint32(i))
		}
	}
	return ids
}
