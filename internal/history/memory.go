package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is an in-process Log for tests and local runs.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
	nextID  int64
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextID: 1}
}

func (l *MemoryLog) Append(_ context.Context, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.ID = l.nextID
	l.nextID++
	l.entries = append(l.entries, e)
}

func (l *MemoryLog) QueryGlobal(_ context.Context, f Filters, limit, offset int) ([]Entry, error) {
	limit, offset = clampPage(limit, offset)

	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if f.CampaignKey != "" && e.CampaignKey != f.CampaignKey {
			continue
		}
		if f.Channel != "" && string(e.Channel) != f.Channel {
			continue
		}
		if f.Status != "" && string(e.Status) != f.Status {
			continue
		}
		matched = append(matched, e)
	}

	return page(matched, limit, offset), nil
}

func (l *MemoryLog) QueryForPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Entry, error) {
	limit, offset = clampPage(limit, offset)

	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].PatientID == patientID {
			matched = append(matched, l.entries[i])
		}
	}

	return page(matched, limit, offset), nil
}

func (l *MemoryLog) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var kept []Entry
	var purged int64
	for _, e := range l.entries {
		if e.Timestamp.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept

	return purged, nil
}

func page(entries []Entry, limit, offset int) []Entry {
	if offset >= len(entries) {
		return nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}
