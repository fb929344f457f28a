package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/LauraMoney42/derrite/internal/alert"
	"github.com/LauraMoney42/derrite/internal/geo"
)

// alertJSON is the wire shape of a user alert: the report travels by id
// plus the fields the notification layer renders.
type alertJSON struct {
	ID       string    `json:"id"`
	ReportID string    `json:"reportId"`
	Category string    `json:"category"`
	Text     string    `json:"text"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Distance float64   `json:"distance"`
	IsViewed bool      `json:"isViewed"`
	Created  time.Time `json:"created"`
}

func toAlertJSON(alerts []*alert.Alert) []*alertJSON {
	out := make([]*alertJSON, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, &alertJSON{
			ID:       a.ID,
			ReportID: a.Report.ID,
			Category: string(a.Report.Category),
			Text:     a.Report.Text,
			Lat:      a.Report.Location.Lat,
			Lng:      a.Report.Location.Lng,
			Distance: a.Distance,
			IsViewed: a.IsViewed,
			Created:  a.Created,
		})
	}
	return out
}

func parsePoint(r *http.Request) (geo.Point, bool) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr == "" || lngStr == "" {
		return geo.Point{}, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Point{}, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lng: lng}, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
