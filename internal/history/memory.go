package history

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryCapacity = 1000

// MemoryRepository keeps the most recent entries in process. Once capacity is reached the oldest
// entry is dropped on every append.
type MemoryRepository struct {
	mu       sync.Mutex
	capacity int
	nextID   int64
	entries  []Entry
	now      func() time.Time
}

func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRepository{
		capacity: capacity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) HealthCheck(context.Context) error {
	return nil
}

func (m *MemoryRepository) Append(_ context.Context, entry Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	entry.ID = m.nextID
	entry.CreatedAt = m.now()
	m.entries = append(m.entries, entry)
	if overflow := len(m.entries) - m.capacity; overflow > 0 {
		m.entries = append([]Entry(nil), m.entries[overflow:]...)
	}
	return entry, nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (m *MemoryRepository) List(_ context.Context, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, min(limit, len(m.entries)))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
