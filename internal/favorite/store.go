package favorite

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/geo"
	"github.com/LauraMoney42/derrite/internal/kvstore"
)

// Store owns the set of favorite places. Every mutation persists the whole
// set and is visible to subsequent reads. Removing a place cascades into the
// alert engine before the removal is reported as successful.
type Store struct {
	mu     sync.Mutex
	kv     kvstore.Store
	log    *zap.Logger
	now    func() time.Time
	alerts *AlertEngine
	places []*Place
}

// NewStore creates a favorite store wired to the alert engine that owns the
// derived favorite alerts, restoring persisted places.
func NewStore(kv kvstore.Store, log *zap.Logger, now func() time.Time, alerts *AlertEngine) *Store {
	s := &Store{
		kv:     kv,
		log:    log,
		now:    now,
		alerts: alerts,
	}
	s.load()
	return s
}

// Add creates a place with a fresh id and persists the set.
func (s *Store) Add(name, description string, location geo.Point, alertDistance float64, notifySafety, notifyFun, notifyLost bool) (*Place, error) {
	if !ValidAlertDistance(alertDistance) {
		return nil, ErrInvalidAlertDistance
	}

	p := &Place{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   description,
		Location:      location,
		AlertDistance: alertDistance,
		NotifySafety:  notifySafety,
		NotifyFun:     notifyFun,
		NotifyLost:    notifyLost,
		CreatedAt:     s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.places = append(s.places, p)
	s.persist()

	s.log.Info("Favorite added", zap.String("favoriteId", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Update replaces the record with the same id. Updating an unknown id is a
// no-op; the id and creation time are preserved.
func (s *Store) Update(updated *Place) error {
	if !ValidAlertDistance(updated.AlertDistance) {
		return ErrInvalidAlertDistance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.places {
		if p.ID != updated.ID {
			continue
		}

		replacement := *updated
		replacement.CreatedAt = p.CreatedAt
		s.places[i] = &replacement
		s.persist()

		s.log.Info("Favorite updated", zap.String("favoriteId", p.ID))
		return nil
	}
	return nil
}

// Remove deletes the place and cascades all of its favorite alerts and
// viewed keys. Returns false if the id is unknown.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()

	found := false
	remaining := s.places[:0]
	for _, p := range s.places {
		if p.ID == id {
			found = true
		} else {
			remaining = append(remaining, p)
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}

	s.places = remaining
	s.persist()
	s.mu.Unlock()

	// Cascade outside our own lock; the alert engine has its own.
	s.alerts.RemoveForDeletedFavorite(id)

	s.log.Info("Favorite removed", zap.String("favoriteId", id))
	return true
}

// List returns a snapshot of all places.
func (s *Store) List() []*Place {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Place, len(s.places))
	copy(out, s.places)
	return out
}

// Get returns the place with the given id, or nil.
func (s *Store) Get(id string) *Place {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.places {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// persist writes the place set as one JSON blob. Caller holds s.mu.
func (s *Store) persist() {
	data, err := json.Marshal(s.places)
	if err != nil {
		s.log.Error("Failed to marshal favorites", zap.Error(err))
		return
	}
	if err := s.kv.Put(kvstore.KeyFavorites, data); err != nil {
		s.log.Error("Failed to persist favorites", zap.Error(err))
	}
}

// load restores the place set, skipping individually malformed records.
func (s *Store) load() {
	data, err := s.kv.Get(kvstore.KeyFavorites)
	if err != nil {
		s.log.Error("Failed to load favorites", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("Discarding corrupt favorites blob", zap.Error(err))
		return
	}

	for _, entry := range raw {
		var p Place
		if err := json.Unmarshal(entry, &p); err != nil || p.ID == "" {
			s.log.Warn("Skipping malformed favorite record", zap.Error(err))
			continue
		}
		s.places = append(s.places, &p)
	}

	s.log.Info("Restored favorites", zap.Int("count", len(s.places)))
}
