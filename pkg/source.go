package sdexport

// Position identifies an event inside an EventSource. Positions are ordered:
// iteration goes from First() up to, but excluding, Last().
type Position int64

// EventSource gives sequential read-only access to the events stored in a
// set of input files.
type EventSource interface {
	First() Position
	Last() Position
	Next(pos Position) Position
	Read(pos Position) (*EventType, error)
	Close() error
}

// Opener opens an EventSource over all the given files.
type Opener func(paths []string) (EventSource, error)

// MemorySource serves events kept in memory, in slice order.
type MemorySource struct {
	Events []EventType
	closed bool
}

func NewMemorySource(events ...EventType) *MemorySource {
	return &MemorySource{Events: events}
}

func (m *MemorySource) First() Position {
	return 0
}

func (m *MemorySource) Last() Position {
	return Position(len(m.Events))
}

func (m *MemorySource) Next(pos Position) Position {
	return pos + 1
}

func (m *MemorySource) Read(pos Position) (*EventType, error) {
	if m.closed {
		return nil, &ErrReadEvent{Position: pos, Err: errSourceClosed}
	}
	if pos < m.First() || pos >= m.Last() {
		return nil, &ErrReadEvent{Position: pos, Err: errOutOfRange}
	}
	event := m.Events[pos]
	return &event, nil
}

func (m *MemorySource) Close() error {
	m.closed = true
	return nil
}
