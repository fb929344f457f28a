package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/alert"
	"github.com/LauraMoney42/derrite/internal/cooldown"
	"github.com/LauraMoney42/derrite/internal/favorite"
	"github.com/LauraMoney42/derrite/internal/geo"
	"github.com/LauraMoney42/derrite/internal/kvstore"
	"github.com/LauraMoney42/derrite/internal/report"
)

// DefaultAlertDistance is the user's alert radius until changed: one mile.
const DefaultAlertDistance = 1609.0

// DefaultSweepInterval is how often the expiry sweeper runs.
const DefaultSweepInterval = time.Minute

// Clock supplies the current time. Injectable for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

// LocationSource supplies the user's current position when one is known.
type LocationSource interface {
	Current() (geo.Point, bool)
}

// Listener receives the events the core emits toward the UI/notification
// layer. Callbacks are invoked synchronously from the engine; implementations
// must not call back into the engine.
type Listener interface {
	OnNewAlerts(alerts []*alert.Alert)
	OnAlertsUpdated(hasUnviewed bool)
	OnNewFavoriteAlerts(alerts []*favorite.Alert)
	OnFavoriteAlertsUpdated(alerts []*favorite.Alert, hasUnviewed bool)
	OnFavoritesUpdated(places []*favorite.Place)
	OnReportCreated(r *report.Report)
	OnReportsExpired(reports []*report.Report)
}

// Options configures an Engine.
type Options struct {
	// AlertDistance is the user-level alert radius in meters. Zero means
	// DefaultAlertDistance.
	AlertDistance float64

	// SweepInterval is how often the expiry sweeper runs when started.
	// Zero means DefaultSweepInterval.
	SweepInterval time.Duration

	// Location optionally supplies the user position for Refresh.
	Location LocationSource

	// Clock defaults to the system clock.
	Clock Clock
}

// Engine is the single owner of the report, alert, favorite and cooldown
// state. Every externally triggered mutation is serialized through one
// mutex, so a matching scan never observes a half-applied change.
type Engine struct {
	mu sync.Mutex

	log      *zap.Logger
	clock    Clock
	location LocationSource

	gate      *cooldown.Gate
	reports   *report.Store
	alerts    *alert.Engine
	favorites *favorite.Store
	favAlerts *favorite.AlertEngine

	alertDistance float64
	sweepInterval time.Duration

	listeners []Listener

	stopSweep chan struct{}
	sweepDone chan struct{}
}

// New creates an engine over the given persistence store, restoring all
// persisted state.
func New(kv kvstore.Store, log *zap.Logger, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	distance := opts.AlertDistance
	if distance <= 0 {
		distance = DefaultAlertDistance
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	gate := cooldown.NewGate(kv, log)
	favAlerts := favorite.NewAlertEngine(kv, log, clock.Now, gate)

	return &Engine{
		log:           log,
		clock:         clock,
		location:      opts.Location,
		gate:          gate,
		reports:       report.NewStore(kv, log, clock.Now),
		alerts:        alert.NewEngine(kv, log, clock.Now, gate),
		favorites:     favorite.NewStore(kv, log, clock.Now, favAlerts),
		favAlerts:     favAlerts,
		alertDistance: distance,
		sweepInterval: interval,
	}
}

// AddListener registers a listener for core events.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// CreateReport creates a report at location and records the creation in the
// cooldown gate so the creator is not alerted about their own submission.
func (e *Engine) CreateReport(location geo.Point, text, language string, photo []byte, category report.Category) (*report.Report, error) {
	e.mu.Lock()

	r, err := e.reports.Create(location, text, language, photo, category)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	e.gate.RecordReportCreated(e.clock.Now())
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnReportCreated(r)
	}
	return r, nil
}

// PositionTick feeds a new user position into the engine: both alert scans
// run and any newly raised, unviewed alerts are emitted to listeners and
// returned.
func (e *Engine) PositionTick(userLocation geo.Point) []*alert.Alert {
	e.mu.Lock()

	active := e.reports.Active()
	fresh := e.alerts.CheckForNewAlerts(active, userLocation, e.alertDistance)
	freshFav := e.favAlerts.CheckForFavoriteAlerts(active, e.favorites.List())

	hasUnviewed := e.alerts.HasUnviewed()
	favAll := e.favAlerts.Alerts()
	favUnviewed := e.favAlerts.HasUnviewed()
	listeners := e.snapshotListeners()

	e.mu.Unlock()

	for _, l := range listeners {
		if len(fresh) > 0 {
			l.OnNewAlerts(fresh)
		}
		l.OnAlertsUpdated(hasUnviewed)
		if len(freshFav) > 0 {
			l.OnNewFavoriteAlerts(freshFav)
		}
		l.OnFavoriteAlertsUpdated(favAll, favUnviewed)
	}

	return fresh
}

// ConsumeUpdates feeds position updates from ch into the engine, one scan
// per update, until ch closes or ctx is canceled. Updates are applied by
// this single consumer, so scans never interleave with each other.
func (e *Engine) ConsumeUpdates(ctx context.Context, ch <-chan geo.Point) {
	for {
		select {
		case <-ctx.Done():
			return
		case loc, ok := <-ch:
			if !ok {
				return
			}
			e.PositionTick(loc)
		}
	}
}

// Refresh pulls the current position from the configured location source and
// feeds it through PositionTick. Without a source or a fix it does nothing.
func (e *Engine) Refresh() []*alert.Alert {
	if e.location == nil {
		return nil
	}
	loc, ok := e.location.Current()
	if !ok {
		return nil
	}
	return e.PositionTick(loc)
}

// Sweep removes expired reports and cascades the removal into both alert
// engines, emitting updated-state events when anything changed.
func (e *Engine) Sweep() []*report.Report {
	e.mu.Lock()

	expired := e.reports.SweepExpired(e.clock.Now())
	if len(expired) == 0 {
		e.mu.Unlock()
		return nil
	}

	e.alerts.RemoveForExpiredReports(expired)
	e.favAlerts.RemoveForExpiredReports(expired)

	hasUnviewed := e.alerts.HasUnviewed()
	favAll := e.favAlerts.Alerts()
	favUnviewed := e.favAlerts.HasUnviewed()
	listeners := e.snapshotListeners()

	e.mu.Unlock()

	for _, l := range listeners {
		l.OnReportsExpired(expired)
		l.OnAlertsUpdated(hasUnviewed)
		l.OnFavoriteAlertsUpdated(favAll, favUnviewed)
	}

	return expired
}

// StartSweeping runs the expiry sweeper on a ticker until StopSweeping.
func (e *Engine) StartSweeping() {
	e.mu.Lock()
	if e.stopSweep != nil {
		e.mu.Unlock()
		return
	}
	e.stopSweep = make(chan struct{})
	e.sweepDone = make(chan struct{})
	stop, done := e.stopSweep, e.sweepDone
	interval := e.sweepInterval
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(done)

		for {
			select {
			case <-ticker.C:
				e.Sweep()
			case <-stop:
				return
			}
		}
	}()

	e.log.Info("Expiry sweeper started", zap.Duration("interval", interval))
}

// StopSweeping stops the sweeper and waits for it to finish.
func (e *Engine) StopSweeping() {
	e.mu.Lock()
	stop, done := e.stopSweep, e.sweepDone
	e.stopSweep = nil
	e.sweepDone = nil
	e.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// MarkAlertViewed marks the report's alert as viewed and emits the new
// aggregate unviewed state.
func (e *Engine) MarkAlertViewed(reportID string) {
	e.mu.Lock()
	e.alerts.MarkViewed(reportID)
	hasUnviewed := e.alerts.HasUnviewed()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnAlertsUpdated(hasUnviewed)
	}
}

// MarkAllAlertsViewed marks every user alert as viewed.
func (e *Engine) MarkAllAlertsViewed() {
	e.mu.Lock()
	e.alerts.MarkAllViewed()
	hasUnviewed := e.alerts.HasUnviewed()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnAlertsUpdated(hasUnviewed)
	}
}

// MarkFavoriteViewed marks every alert for the favorite as viewed.
func (e *Engine) MarkFavoriteViewed(favoriteID string) {
	e.mu.Lock()
	e.favAlerts.MarkViewed(favoriteID)
	favAll := e.favAlerts.Alerts()
	favUnviewed := e.favAlerts.HasUnviewed()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnFavoriteAlertsUpdated(favAll, favUnviewed)
	}
}

// AddFavorite creates a favorite place and emits the updated list.
func (e *Engine) AddFavorite(name, description string, location geo.Point, alertDistance float64, notifySafety, notifyFun, notifyLost bool) (*favorite.Place, error) {
	e.mu.Lock()
	p, err := e.favorites.Add(name, description, location, alertDistance, notifySafety, notifyFun, notifyLost)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	places := e.favorites.List()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnFavoritesUpdated(places)
	}
	return p, nil
}

// UpdateFavorite replaces the favorite with the same id.
func (e *Engine) UpdateFavorite(p *favorite.Place) error {
	e.mu.Lock()
	if err := e.favorites.Update(p); err != nil {
		e.mu.Unlock()
		return err
	}
	places := e.favorites.List()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnFavoritesUpdated(places)
	}
	return nil
}

// RemoveFavorite deletes the favorite, cascading its alerts and viewed
// keys. Returns false if the id is unknown.
func (e *Engine) RemoveFavorite(id string) bool {
	e.mu.Lock()
	removed := e.favorites.Remove(id)
	if !removed {
		e.mu.Unlock()
		return false
	}
	places := e.favorites.List()
	favAll := e.favAlerts.Alerts()
	favUnviewed := e.favAlerts.HasUnviewed()
	listeners := e.snapshotListeners()
	e.mu.Unlock()

	for _, l := range listeners {
		l.OnFavoritesUpdated(places)
		l.OnFavoriteAlertsUpdated(favAll, favUnviewed)
	}
	return true
}

// NearbyUnviewed returns unviewed alerts within the user's alert radius of
// userLocation, nearest first.
func (e *Engine) NearbyUnviewed(userLocation geo.Point) []*alert.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.NearbyUnviewed(userLocation, e.alertDistance)
}

// ActiveReports returns a snapshot of all non-expired reports.
func (e *Engine) ActiveReports() []*report.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reports.Active()
}

// Favorites returns a snapshot of all favorite places.
func (e *Engine) Favorites() []*favorite.Place {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.favorites.List()
}

// Favorite returns the place with the given id, or nil.
func (e *Engine) Favorite(id string) *favorite.Place {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.favorites.Get(id)
}

// FavoriteAlerts returns a snapshot of all favorite alerts, newest first.
func (e *Engine) FavoriteAlerts() []*favorite.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.favAlerts.Alerts()
}

// Status summarizes the engine state for the status surface.
type Status struct {
	ActiveReports             int  `json:"activeReports"`
	Alerts                    int  `json:"alerts"`
	FavoriteAlerts            int  `json:"favoriteAlerts"`
	Favorites                 int  `json:"favorites"`
	HasUnviewedAlerts         bool `json:"hasUnviewedAlerts"`
	HasUnviewedFavoriteAlerts bool `json:"hasUnviewedFavoriteAlerts"`
	CooldownActive            bool `json:"cooldownActive"`
}

// CurrentStatus returns a consistent snapshot of the engine state.
func (e *Engine) CurrentStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		ActiveReports:             len(e.reports.Active()),
		Alerts:                    len(e.alerts.Alerts()),
		FavoriteAlerts:            len(e.favAlerts.Alerts()),
		Favorites:                 len(e.favorites.List()),
		HasUnviewedAlerts:         e.alerts.HasUnviewed(),
		HasUnviewedFavoriteAlerts: e.favAlerts.HasUnviewed(),
		CooldownActive:            e.gate.IsSuppressed(e.clock.Now()),
	}
}

// snapshotListeners copies the listener slice. Caller holds e.mu.
func (e *Engine) snapshotListeners() []Listener {
	out := make([]Listener, len(e.listeners))
	copy(out, e.listeners)
	return out
}
