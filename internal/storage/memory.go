package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps alerts and favorites in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	alerts    map[string]Alert
	favorites map[string]Favorite
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:    make(map[string]Alert),
		favorites: make(map[string]Favorite),
	}
}

// InsertAlert stores a new alert.
func (m *MemoryStore) InsertAlert(_ context.Context, alert Alert) (Alert, error) {
	alert = prepareAlert(alert)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
	return alert, nil
}

// ListAlerts returns alerts oldest first.
func (m *MemoryStore) ListAlerts(_ context.Context) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteAlert removes an alert by id.
func (m *MemoryStore) DeleteAlert(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[id]; !ok {
		return ErrNotFound
	}
	delete(m.alerts, id)
	return nil
}

// AddFavorite bookmarks a product; repeated adds are no-ops.
func (m *MemoryStore) AddFavorite(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.favorites[productID]; ok {
		return nil
	}
	m.favorites[productID] = Favorite{ProductID: productID, CreatedAt: time.Now().UTC()}
	return nil
}

// RemoveFavorite drops a bookmark if present.
func (m *MemoryStore) RemoveFavorite(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, productID)
	return nil
}

// ListFavorites returns bookmarks ordered by product id.
func (m *MemoryStore) ListFavorites(_ context.Context) ([]Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Favorite, 0, len(m.favorites))
	for _, f := range m.favorites {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() {}

var _ Store = (*MemoryStore)(nil)
