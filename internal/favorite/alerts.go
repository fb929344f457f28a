package favorite

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/alert"
	"github.com/LauraMoney42/derrite/internal/kvstore"
	"github.com/LauraMoney42/derrite/internal/report"
)

// PairKey identifies a (report, favorite) pair. It is a typed key rather
// than a concatenated string so ids of any length can never collide.
type PairKey struct {
	ReportID   string `json:"reportId"`
	FavoriteID string `json:"favoriteId"`
}

// Alert is a notification that an active report is inside a favorite
// place's radius and matches its enabled categories. At most one exists per
// (report, favorite) pair.
type Alert struct {
	ID         string         `json:"id"`
	FavoriteID string         `json:"favoriteId"`
	Report     *report.Report `json:"report"`
	Distance   float64        `json:"distance"`
	IsViewed   bool           `json:"isViewed"`
	Created    time.Time      `json:"created"`
}

// AlertEngine matches every active report against every favorite place and
// owns the resulting alerts and their per-pair viewed state.
type AlertEngine struct {
	mu     sync.Mutex
	kv     kvstore.Store
	log    *zap.Logger
	now    func() time.Time
	gate   alert.SuppressionGate
	alerts map[PairKey]*Alert
	viewed map[PairKey]struct{} // persisted
}

// NewAlertEngine creates a favorite alert engine, restoring the persisted
// viewed-pair set.
func NewAlertEngine(kv kvstore.Store, log *zap.Logger, now func() time.Time, gate alert.SuppressionGate) *AlertEngine {
	e := &AlertEngine{
		kv:     kv,
		log:    log,
		now:    now,
		gate:   gate,
		alerts: make(map[PairKey]*Alert),
		viewed: make(map[PairKey]struct{}),
	}
	e.loadViewed()
	return e
}

// CheckForFavoriteAlerts scans every (report, place) combination and creates
// an alert for each new in-radius, category-enabled pair. It returns only
// the newly created alerts that are unviewed. During the post-creation
// cooldown it returns nil without changing state.
func (e *AlertEngine) CheckForFavoriteAlerts(reports []*report.Report, places []*Place) []*Alert {
	now := e.now()
	if e.gate != nil && e.gate.IsSuppressed(now) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var fresh []*Alert
	for _, p := range places {
		for _, r := range reports {
			if !p.CategoryEnabled(r.Category) {
				continue
			}

			key := PairKey{ReportID: r.ID, FavoriteID: p.ID}
			if _, exists := e.alerts[key]; exists {
				continue
			}

			d := p.Location.DistanceTo(r.Location)
			if d > p.AlertDistance {
				continue
			}

			_, alreadyViewed := e.viewed[key]
			a := &Alert{
				ID:         uuid.NewString(),
				FavoriteID: p.ID,
				Report:     r,
				Distance:   d,
				IsViewed:   alreadyViewed,
				Created:    now,
			}
			e.alerts[key] = a

			if !alreadyViewed {
				fresh = append(fresh, a)
			}

			e.log.Debug("Favorite alert raised",
				zap.String("favoriteId", p.ID),
				zap.String("reportId", r.ID),
				zap.Float64("distance", d))
		}
	}

	return fresh
}

// HasUnviewed reports whether any favorite alert is still unviewed.
func (e *AlertEngine) HasUnviewed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.alerts {
		if !a.IsViewed {
			return true
		}
	}
	return false
}

// Alerts returns a snapshot of all current favorite alerts, newest first.
func (e *AlertEngine) Alerts() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out
}

// AlertsFor returns the current alerts for one favorite.
func (e *AlertEngine) AlertsFor(favoriteID string) []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*Alert
	for _, a := range e.alerts {
		if a.FavoriteID == favoriteID {
			out = append(out, a)
		}
	}
	return out
}

// MarkViewed marks every alert for the favorite as viewed and persists the
// viewed-pair set.
func (e *AlertEngine) MarkViewed(favoriteID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for key, a := range e.alerts {
		if key.FavoriteID != favoriteID {
			continue
		}
		a.IsViewed = true
		if _, ok := e.viewed[key]; !ok {
			e.viewed[key] = struct{}{}
			changed = true
		}
	}
	if changed {
		e.persistViewed()
	}
}

// RemoveForExpiredReports deletes alerts and viewed keys for every report in
// the expired set, across all favorites.
func (e *AlertEngine) RemoveForExpiredReports(expired []*report.Report) {
	if len(expired) == 0 {
		return
	}

	expiredIDs := make(map[string]struct{}, len(expired))
	for _, r := range expired {
		expiredIDs[r.ID] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for key := range e.alerts {
		if _, gone := expiredIDs[key.ReportID]; gone {
			delete(e.alerts, key)
		}
	}
	for key := range e.viewed {
		if _, gone := expiredIDs[key.ReportID]; gone {
			delete(e.viewed, key)
			changed = true
		}
	}
	if changed {
		e.persistViewed()
	}
}

// RemoveForDeletedFavorite deletes all alerts and viewed keys referencing
// the favorite. A later scan cannot resurrect them for that id.
func (e *AlertEngine) RemoveForDeletedFavorite(favoriteID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for key := range e.alerts {
		if key.FavoriteID == favoriteID {
			delete(e.alerts, key)
		}
	}
	for key := range e.viewed {
		if key.FavoriteID == favoriteID {
			delete(e.viewed, key)
			changed = true
		}
	}
	if changed {
		e.persistViewed()
	}
}

// persistViewed writes the viewed-pair set. Caller holds e.mu.
func (e *AlertEngine) persistViewed() {
	keys := make([]PairKey, 0, len(e.viewed))
	for key := range e.viewed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ReportID != keys[j].ReportID {
			return keys[i].ReportID < keys[j].ReportID
		}
		return keys[i].FavoriteID < keys[j].FavoriteID
	})

	data, err := json.Marshal(keys)
	if err != nil {
		e.log.Error("Failed to marshal viewed favorite alert keys", zap.Error(err))
		return
	}
	if err := e.kv.Put(kvstore.KeyViewedFavoriteAlert, data); err != nil {
		e.log.Error("Failed to persist viewed favorite alert keys", zap.Error(err))
	}
}

// loadViewed restores the viewed-pair set from the store.
func (e *AlertEngine) loadViewed() {
	data, err := e.kv.Get(kvstore.KeyViewedFavoriteAlert)
	if err != nil {
		e.log.Error("Failed to load viewed favorite alert keys", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	var keys []PairKey
	if err := json.Unmarshal(data, &keys); err != nil {
		e.log.Warn("Discarding corrupt viewed favorite alert keys", zap.Error(err))
		return
	}
	for _, key := range keys {
		e.viewed[key] = struct{}{}
	}
}
