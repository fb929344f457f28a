package report

import (
	"time"

	"github.com/pkg/errors"

	"github.com/LauraMoney42/derrite/internal/geo"
)

// TTL is how long a report stays active after creation.
const TTL = 8 * time.Hour

// Category classifies a report. The set is closed; anything else is
// rejected at creation time.
type Category string

const (
	CategorySafety      Category = "SAFETY"
	CategoryFun         Category = "FUN"
	CategoryLostMissing Category = "LOST_MISSING"
)

// ErrInvalidCategory indicates a category outside the closed set.
var ErrInvalidCategory = errors.New("invalid report category")

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySafety, CategoryFun, CategoryLostMissing:
		return true
	}
	return false
}

// Report is a time-limited anonymous incident pin. Reports are never
// mutated after creation; they leave the system only through expiry.
type Report struct {
	ID        string    `json:"id"`
	Location  geo.Point `json:"location"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Category  Category  `json:"category"`
	HasPhoto  bool      `json:"hasPhoto"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Photo is session-only and never serialized. It evaporates on restart;
	// HasPhoto stays true so the UI can say a photo existed.
	Photo []byte `json:"-"`
}

// Expired reports whether the report is past its expiry at now.
func (r *Report) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
