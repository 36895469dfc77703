package yamux

import (
	"sync"

	"github.com/ngrok/yamux/frame"
)

// streamMap is a concurrency-safe id -> *Stream table. Each is guarded by
// its own RWMutex rather than sharing the session's: lookups happen on
// every inbound frame and must not contend with whatever else the
// session is doing.
type streamMap struct {
	mu    sync.RWMutex
	table map[frame.StreamID]*Stream
}

func newStreamMap() *streamMap {
	return &streamMap{table: make(map[frame.StreamID]*Stream)}
}

func (m *streamMap) Get(id frame.StreamID) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.table[id]
	return s, ok
}

func (m *streamMap) Set(id frame.StreamID, s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[id] = s
}

func (m *streamMap) Delete(id frame.StreamID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table, id)
}

func (m *streamMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}

// Each snapshots the table under a read lock and invokes fn for every
// entry without holding the lock, so fn is free to call back into the
// map (e.g. to delete itself) without deadlocking.
func (m *streamMap) Each(fn func(frame.StreamID, *Stream)) {
	m.mu.RLock()
	snapshot := make([]*Stream, 0, len(m.table))
	ids := make([]frame.StreamID, 0, len(m.table))
	for id, s := range m.table {
		ids = append(ids, id)
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for i, s := range snapshot {
		fn(ids[i], s)
	}
}
