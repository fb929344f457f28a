package cooldown

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/kvstore"
)

// Window is how long alert scanning stays suppressed after the local user
// creates a report. Without it the creator's own position is usually still
// inside the radius of their own report and they would be alerted about it.
const Window = 60 * time.Second

// Gate suppresses alert scanning for a short window after the local user
// creates a report. The last creation timestamp survives restarts.
type Gate struct {
	mu   sync.Mutex
	kv   kvstore.Store
	log  *zap.Logger
	last time.Time
}

// NewGate creates a gate, restoring the last creation timestamp from the
// store. A corrupt or missing timestamp starts the gate unsuppressed.
func NewGate(kv kvstore.Store, log *zap.Logger) *Gate {
	g := &Gate{
		kv:  kv,
		log: log,
	}

	data, err := kv.Get(kvstore.KeyLastReportTimestamp)
	if err != nil {
		log.Error("Failed to load last report timestamp", zap.Error(err))
		return g
	}
	if data == nil {
		return g
	}

	var last time.Time
	if err := json.Unmarshal(data, &last); err != nil {
		log.Warn("Skipping malformed last report timestamp", zap.Error(err))
		return g
	}
	g.last = last

	return g
}

// RecordReportCreated marks now as the most recent local report creation
// and persists it.
func (g *Gate) RecordReportCreated(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.last = now

	data, err := json.Marshal(now)
	if err != nil {
		g.log.Error("Failed to marshal last report timestamp", zap.Error(err))
		return
	}
	if err := g.kv.Put(kvstore.KeyLastReportTimestamp, data); err != nil {
		g.log.Error("Failed to persist last report timestamp", zap.Error(err))
	}
}

// IsSuppressed reports whether alert scanning should be skipped at now.
func (g *Gate) IsSuppressed(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last.IsZero() {
		return false
	}
	return now.Sub(g.last) < Window
}
