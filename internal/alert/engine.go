package alert

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/geo"
	"github.com/LauraMoney42/derrite/internal/kvstore"
	"github.com/LauraMoney42/derrite/internal/report"
)

// Alert is a user-level notification that an active report entered the
// user's configured radius. At most one alert exists per report.
type Alert struct {
	ID       string         `json:"id"`
	Report   *report.Report `json:"report"`
	Distance float64        `json:"distance"`
	IsViewed bool           `json:"isViewed"`
	Created  time.Time      `json:"created"`
}

// SuppressionGate decides whether alert scanning is currently suppressed,
// typically right after the local user created a report.
type SuppressionGate interface {
	IsSuppressed(now time.Time) bool
}

// Engine matches active reports against the user's position and owns the
// resulting alerts and their viewed state. The viewed-id set is persisted so
// a report the user already dismissed does not re-alert after a restart.
type Engine struct {
	mu     sync.Mutex
	kv     kvstore.Store
	log    *zap.Logger
	now    func() time.Time
	gate   SuppressionGate
	alerts map[string]*Alert   // keyed by report ID
	viewed map[string]struct{} // viewed report IDs, persisted
}

// NewEngine creates an alert engine, restoring the persisted viewed-id set.
func NewEngine(kv kvstore.Store, log *zap.Logger, now func() time.Time, gate SuppressionGate) *Engine {
	e := &Engine{
		kv:     kv,
		log:    log,
		now:    now,
		gate:   gate,
		alerts: make(map[string]*Alert),
		viewed: make(map[string]struct{}),
	}
	e.loadViewed()
	return e
}

// CheckForNewAlerts scans the active reports against userLocation and
// creates an alert for every report within alertDistance meters that has no
// alert yet. It returns only the newly created alerts that are unviewed.
// During the post-creation cooldown it returns nil without changing state.
func (e *Engine) CheckForNewAlerts(reports []*report.Report, userLocation geo.Point, alertDistance float64) []*Alert {
	now := e.now()
	if e.gate != nil && e.gate.IsSuppressed(now) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var fresh []*Alert
	for _, r := range reports {
		if _, exists := e.alerts[r.ID]; exists {
			continue
		}

		d := userLocation.DistanceTo(r.Location)
		if d > alertDistance {
			continue
		}

		_, alreadyViewed := e.viewed[r.ID]
		a := &Alert{
			ID:       uuid.NewString(),
			Report:   r,
			Distance: d,
			IsViewed: alreadyViewed,
			Created:  now,
		}
		e.alerts[r.ID] = a

		if !alreadyViewed {
			fresh = append(fresh, a)
		}

		e.log.Debug("Alert raised",
			zap.String("reportId", r.ID),
			zap.Float64("distance", d),
			zap.Bool("previouslyViewed", alreadyViewed))
	}

	return fresh
}

// HasUnviewed reports whether any alert is still unviewed.
func (e *Engine) HasUnviewed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.alerts {
		if !a.IsViewed {
			return true
		}
	}
	return false
}

// Alerts returns a snapshot of all current alerts.
func (e *Engine) Alerts() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		out = append(out, a)
	}
	return out
}

// MarkViewed records the report as viewed and persists the viewed-id set.
// Marking an already-viewed report is a no-op.
func (e *Engine) MarkViewed(reportID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if a, ok := e.alerts[reportID]; ok {
		a.IsViewed = true
	}
	if _, ok := e.viewed[reportID]; ok {
		return
	}
	e.viewed[reportID] = struct{}{}
	e.persistViewed()
}

// MarkAllViewed marks every current alert's report as viewed.
func (e *Engine) MarkAllViewed() {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for id, a := range e.alerts {
		a.IsViewed = true
		if _, ok := e.viewed[id]; !ok {
			e.viewed[id] = struct{}{}
			changed = true
		}
	}
	if changed {
		e.persistViewed()
	}
}

// RemoveForExpiredReports deletes alerts and viewed keys for every report in
// the expired set.
func (e *Engine) RemoveForExpiredReports(expired []*report.Report) {
	if len(expired) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	removedViewed := false
	for _, r := range expired {
		delete(e.alerts, r.ID)
		if _, ok := e.viewed[r.ID]; ok {
			delete(e.viewed, r.ID)
			removedViewed = true
		}
	}
	if removedViewed {
		e.persistViewed()
	}
}

// NearbyUnviewed returns the unviewed alerts currently within radius meters
// of userLocation, sorted nearest first. Distances are recomputed live, not
// taken from alert-creation time. This is a read-only query.
func (e *Engine) NearbyUnviewed(userLocation geo.Point, radius float64) []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	type entry struct {
		alert    *Alert
		distance float64
	}

	var entries []entry
	for _, a := range e.alerts {
		if a.IsViewed {
			continue
		}
		d := userLocation.DistanceTo(a.Report.Location)
		if d <= radius {
			entries = append(entries, entry{alert: a, distance: d})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].distance < entries[j].distance
	})

	out := make([]*Alert, 0, len(entries))
	for _, en := range entries {
		out = append(out, en.alert)
	}
	return out
}

// persistViewed writes the viewed-id set. Caller holds e.mu.
func (e *Engine) persistViewed() {
	ids := make([]string, 0, len(e.viewed))
	for id := range e.viewed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		e.log.Error("Failed to marshal viewed alert ids", zap.Error(err))
		return
	}
	if err := e.kv.Put(kvstore.KeyViewedAlerts, data); err != nil {
		e.log.Error("Failed to persist viewed alert ids", zap.Error(err))
	}
}

// loadViewed restores the viewed-id set from the store.
func (e *Engine) loadViewed() {
	data, err := e.kv.Get(kvstore.KeyViewedAlerts)
	if err != nil {
		e.log.Error("Failed to load viewed alert ids", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		e.log.Warn("Discarding corrupt viewed alert ids", zap.Error(err))
		return
	}
	for _, id := range ids {
		e.viewed[id] = struct{}{}
	}
}
