package favorite

import (
	"time"

	"github.com/pkg/errors"

	"github.com/LauraMoney42/derrite/internal/geo"
	"github.com/LauraMoney42/derrite/internal/report"
)

// AlertDistances are the selectable per-place radii in meters. The values
// mirror the app's distance picker, including the one-mile step.
var AlertDistances = []float64{100, 250, 500, 1000, 1609, 5000}

// ErrInvalidAlertDistance indicates a radius outside the step values.
var ErrInvalidAlertDistance = errors.New("alert distance is not one of the allowed steps")

// ValidAlertDistance reports whether d is one of the allowed step values.
func ValidAlertDistance(d float64) bool {
	for _, step := range AlertDistances {
		if d == step {
			return true
		}
	}
	return false
}

// Place is a named user-saved location with its own alert radius and an
// independent on/off switch per report category. Edits replace the whole
// record; the id is stable across edits.
type Place struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Location      geo.Point `json:"location"`
	AlertDistance float64   `json:"alertDistance"`
	NotifySafety  bool      `json:"notifySafety"`
	NotifyFun     bool      `json:"notifyFun"`
	NotifyLost    bool      `json:"notifyLost"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CategoryEnabled reports whether reports of category c should alert for
// this place.
func (p *Place) CategoryEnabled(c report.Category) bool {
	switch c {
	case report.CategorySafety:
		return p.NotifySafety
	case report.CategoryFun:
		return p.NotifyFun
	case report.CategoryLostMissing:
		return p.NotifyLost
	}
	return false
}
