package store

import (
	"sync"

	"tradepilot/internal/types"
)

const defaultHistoryCap = 512

// MemoryRecorder is a bounded in-memory history recorder. Oldest records
// are dropped once capacity is reached, which also bounds digest rebuild
// cost.
type MemoryRecorder struct {
	mu      sync.Mutex
	cap     int
	records []types.HistoryRecord
}

func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &MemoryRecorder{cap: capacity}
}

func (r *MemoryRecorder) Record(record types.HistoryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if len(r.records) > r.cap {
		r.records = r.records[len(r.records)-r.cap:]
	}
}

func (r *MemoryRecorder) Tail(n int) []types.HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.records) {
		n = len(r.records)
	}
	out := make([]types.HistoryRecord, n)
	copy(out, r.records[len(r.records)-n:])
	return out
}
