package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/engine"
	"github.com/LauraMoney42/derrite/internal/favorite"
	"github.com/LauraMoney42/derrite/internal/geo"
	"github.com/LauraMoney42/derrite/internal/report"
)

// Handler exposes the core engine over HTTP.
type Handler struct {
	engine *engine.Engine
	log    *zap.Logger
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(e *engine.Engine, log *zap.Logger) *Handler {
	return &Handler{
		engine: e,
		log:    log,
	}
}

// Router builds the /api/v1 route table.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/reports", h.createReport).Methods(http.MethodPost)
	api.HandleFunc("/reports", h.listReports).Methods(http.MethodGet)
	api.HandleFunc("/position", h.positionTick).Methods(http.MethodPost)
	api.HandleFunc("/alerts/nearby", h.nearbyAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/viewed", h.markAllAlertsViewed).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{reportID}/viewed", h.markAlertViewed).Methods(http.MethodPost)
	api.HandleFunc("/favorites", h.listFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites", h.createFavorite).Methods(http.MethodPost)
	api.HandleFunc("/favorites/{id}", h.updateFavorite).Methods(http.MethodPut)
	api.HandleFunc("/favorites/{id}", h.deleteFavorite).Methods(http.MethodDelete)
	api.HandleFunc("/favorites/{id}/viewed", h.markFavoriteViewed).Methods(http.MethodPost)
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)

	return router
}

type createReportRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Photo    []byte  `json:"photo,omitempty"`
	Category string  `json:"category"`
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.engine.CreateReport(
		geo.Point{Lat: req.Lat, Lng: req.Lng},
		req.Text, req.Language, req.Photo,
		report.Category(req.Category))
	if errors.Is(err, report.ErrInvalidCategory) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error("Failed to create report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ActiveReports())
}

type positionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type positionResponse struct {
	NewAlerts []*alertJSON `json:"newAlerts"`
}

func (h *Handler) positionTick(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fresh := h.engine.PositionTick(geo.Point{Lat: req.Lat, Lng: req.Lng})
	writeJSON(w, http.StatusOK, positionResponse{NewAlerts: toAlertJSON(fresh)})
}

func (h *Handler) nearbyAlerts(w http.ResponseWriter, r *http.Request) {
	point, ok := parsePoint(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}
	writeJSON(w, http.StatusOK, toAlertJSON(h.engine.NearbyUnviewed(point)))
}

func (h *Handler) markAlertViewed(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["reportID"]
	h.engine.MarkAlertViewed(reportID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllAlertsViewed(w http.ResponseWriter, _ *http.Request) {
	h.engine.MarkAllAlertsViewed()
	w.WriteHeader(http.StatusNoContent)
}

type favoriteRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	AlertDistance float64 `json:"alertDistance"`
	NotifySafety  bool    `json:"notifySafety"`
	NotifyFun     bool    `json:"notifyFun"`
	NotifyLost    bool    `json:"notifyLost"`
}

func (h *Handler) listFavorites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Favorites())
}

func (h *Handler) createFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.engine.AddFavorite(req.Name, req.Description,
		geo.Point{Lat: req.Lat, Lng: req.Lng},
		req.AlertDistance, req.NotifySafety, req.NotifyFun, req.NotifyLost)
	if errors.Is(err, favorite.ErrInvalidAlertDistance) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error("Failed to create favorite", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create favorite")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing := h.engine.Favorite(id)
	if existing == nil {
		writeError(w, http.StatusNotFound, "favorite not found")
		return
	}

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated := &favorite.Place{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Location:      geo.Point{Lat: req.Lat, Lng: req.Lng},
		AlertDistance: req.AlertDistance,
		NotifySafety:  req.NotifySafety,
		NotifyFun:     req.NotifyFun,
		NotifyLost:    req.NotifyLost,
	}
	if err := h.engine.UpdateFavorite(updated); err != nil {
		if errors.Is(err, favorite.ErrInvalidAlertDistance) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("Failed to update favorite", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update favorite")
		return
	}

	writeJSON(w, http.StatusOK, h.engine.Favorite(id))
}

func (h *Handler) deleteFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.engine.RemoveFavorite(id) {
		writeError(w, http.StatusNotFound, "favorite not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markFavoriteViewed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.engine.Favorite(id) == nil {
		writeError(w, http.StatusNotFound, "favorite not found")
		return
	}
	h.engine.MarkFavoriteViewed(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.CurrentStatus())
}
