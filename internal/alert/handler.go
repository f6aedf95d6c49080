package alert

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elevate-app/elevate-backend/internal/auth"
	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/geocode"
	"github.com/elevate-app/elevate-backend/internal/httputil"
	"github.com/elevate-app/elevate-backend/internal/logging"
	"github.com/elevate-app/elevate-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// AlertRequest is the client-supplied alert body for create and update.
// Exactly one of place or (latitude, longitude) must be set.
type AlertRequest struct {
	AlertType     string   `json:"alertType"`
	Description   *string  `json:"description,omitempty"`
	Place         *string  `json:"place,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	DisplayEmail  bool     `json:"displayEmail"`
	DisplayPhone  bool     `json:"displayPhone"`
	TrackLocation bool     `json:"trackLocation"`
}

func (req *AlertRequest) toInput() CreateInput {
	return CreateInput{
		AlertType:     req.AlertType,
		Description:   req.Description,
		Place:         req.Place,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		DisplayEmail:  req.DisplayEmail,
		DisplayPhone:  req.DisplayPhone,
		TrackLocation: req.TrackLocation,
	}
}

// Create reports a new alert and notifies nearby users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req AlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	view, notified, err := h.service.Create(r.Context(), req.toInput(), acting)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, map[string]any{
		"alert":    view,
		"notified": notified,
	}, http.StatusCreated)
}

// Update replaces an alert's mutable fields. Creator only.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := alertID(w, r)
	if !ok {
		return
	}

	var req AlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	view, err := h.service.Update(r.Context(), id, req.toInput(), acting)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, view, http.StatusOK)
}

// Resolve marks an alert resolved. Creator only.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := alertID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Resolve(r.Context(), id, acting)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, view, http.StatusOK)
}

// Delete removes an alert and returns its last state. Creator only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := alertID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Delete(r.Context(), id, acting)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, view, http.StatusOK)
}

// ByViewport returns the alerts inside a map viewport.
func (h *Handler) ByViewport(w http.ResponseWriter, r *http.Request) {
	neLat, err1 := queryFloat(r, "neLat")
	neLng, err2 := queryFloat(r, "neLng")
	swLat, err3 := queryFloat(r, "swLat")
	swLng, err4 := queryFloat(r, "swLng")
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		httputil.RespondErrorWithCode(w, "viewport corners are required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	views, err := h.service.ByViewport(r.Context(), neLat, neLng, swLat, swLng)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, views, http.StatusOK)
}

// Types returns the alert-type reference table.
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.Types(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, types, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrInputAmbiguous):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInputAmbiguous, http.StatusBadRequest)
	case errors.Is(err, geocode.ErrNoAPIKey), errors.Is(err, geocode.ErrNoResult), errors.Is(err, geocode.ErrNoValue):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeGeocodeFailed, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrForbidden):
		httputil.RespondErrorWithCode(w, "only the creator may modify this alert", httputil.CodeForbidden, http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "alert not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrTypeNotFound):
		httputil.RespondErrorWithCode(w, "unknown alert type", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
	case errors.Is(err, user.ErrNotFound):
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
	case database.IsUnavailable(err):
		httputil.RespondErrorWithCode(w, "the server is currently unavailable", httputil.CodeStoreUnavailable, http.StatusServiceUnavailable)
	default:
		logger.Error("alert operation failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func alertID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid alert id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryFloat(r *http.Request, name string) (float64, error) {
	return strconv.ParseFloat(r.URL.Query().Get(name), 64)
}
