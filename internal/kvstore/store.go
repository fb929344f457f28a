package kvstore

import "github.com/pkg/errors"

// Well-known keys under which the core serializes its state.
const (
	KeyReports             = "reports"
	KeyFavorites           = "favorites"
	KeyViewedAlerts        = "viewed_alerts"
	KeyViewedFavoriteAlert = "viewed_favorite_alerts"
	KeyLastReportTimestamp = "last_report_timestamp"
)

// ErrStoreUnavailable indicates the persistence backend could not be
// reached. Callers keep their in-memory state and may retry later.
var ErrStoreUnavailable = errors.New("kv store unavailable")

// Store is the persistence contract for the core: opaque blobs keyed by
// logical name. Writes replace the whole blob atomically so a crash
// mid-write never corrupts previously persisted state.
type Store interface {
	// Get returns the blob stored under key, or nil if nothing is stored.
	Get(key string) ([]byte, error)

	// Put replaces the blob stored under key.
	Put(key string, value []byte) error

	// Delete removes the blob stored under key. Deleting a missing key is
	// not an error.
	Delete(key string) error
}
