package report

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/geo"
	"github.com/LauraMoney42/derrite/internal/kvstore"
)

// Store owns the set of live reports. All mutations persist the whole set
// as a single JSON blob; a persistence failure keeps the in-memory state
// and is logged, never surfaced to matching logic.
type Store struct {
	mu      sync.Mutex
	kv      kvstore.Store
	log     *zap.Logger
	now     func() time.Time
	reports []*Report
}

// NewStore creates a store and restores persisted reports. Reports already
// past expiry are dropped on load, and individually malformed records are
// skipped rather than aborting the whole load.
func NewStore(kv kvstore.Store, log *zap.Logger, now func() time.Time) *Store {
	s := &Store{
		kv:  kv,
		log: log,
		now: now,
	}
	s.load()
	return s
}

// Create adds a new report expiring TTL after now and persists the set.
// The photo payload stays in memory only.
func (s *Store) Create(location geo.Point, text, language string, photo []byte, category Category) (*Report, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	now := s.now()
	r := &Report{
		ID:        uuid.NewString(),
		Location:  location,
		Text:      text,
		Language:  language,
		Category:  category,
		HasPhoto:  len(photo) > 0,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
		Photo:     photo,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, r)
	s.persist()

	s.log.Info("Report created",
		zap.String("reportId", r.ID),
		zap.String("category", string(r.Category)),
		zap.Time("expiresAt", r.ExpiresAt))

	return r, nil
}

// Active returns a snapshot of all non-expired reports.
func (s *Store) Active() []*Report {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]*Report, 0, len(s.reports))
	for _, r := range s.reports {
		if !r.Expired(now) {
			active = append(active, r)
		}
	}
	return active
}

// Get returns the active report with the given id, or nil.
func (s *Store) Get(id string) *Report {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.ID == id && !r.Expired(now) {
			return r
		}
	}
	return nil
}

// SweepExpired removes every report past expiry at now, persists the new
// state, and returns exactly the removed set so derived alerts can be
// cascaded. Running it twice in a row returns an empty list the second time.
func (s *Store) SweepExpired(now time.Time) []*Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*Report
	remaining := s.reports[:0]
	for _, r := range s.reports {
		if r.Expired(now) {
			expired = append(expired, r)
		} else {
			remaining = append(remaining, r)
		}
	}

	if len(expired) == 0 {
		return nil
	}

	s.reports = remaining
	s.persist()

	s.log.Info("Swept expired reports", zap.Int("expired", len(expired)), zap.Int("remaining", len(remaining)))
	return expired
}

// persist writes the report set as one JSON blob. Caller holds s.mu.
func (s *Store) persist() {
	data, err := json.Marshal(s.reports)
	if err != nil {
		s.log.Error("Failed to marshal reports", zap.Error(err))
		return
	}
	if err := s.kv.Put(kvstore.KeyReports, data); err != nil {
		s.log.Error("Failed to persist reports", zap.Error(err))
	}
}

// load restores the report set from the store.
func (s *Store) load() {
	data, err := s.kv.Get(kvstore.KeyReports)
	if err != nil {
		s.log.Error("Failed to load reports", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("Discarding corrupt report store blob", zap.Error(err))
		return
	}

	now := s.now()
	restored := 0
	dropped := 0
	for _, entry := range raw {
		var r Report
		if err := json.Unmarshal(entry, &r); err != nil || r.ID == "" {
			s.log.Warn("Skipping malformed report record", zap.Error(err))
			continue
		}
		if r.Expired(now) {
			dropped++
			continue
		}
		s.reports = append(s.reports, &r)
		restored++
	}

	s.log.Info("Restored reports", zap.Int("restored", restored), zap.Int("expiredDropped", dropped))
}
