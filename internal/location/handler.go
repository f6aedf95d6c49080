package location

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/elevate-app/elevate-backend/internal/auth"
	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/geocode"
	"github.com/elevate-app/elevate-backend/internal/httputil"
	"github.com/elevate-app/elevate-backend/internal/logging"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type UpdateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DeviceTokenRequest struct {
	Token string `json:"token"`
}

// Update writes the caller's latest position.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	loc, err := h.service.Update(r.Context(), acting, req.Latitude, req.Longitude)
	if err != nil {
		if database.IsUnavailable(err) {
			httputil.RespondErrorWithCode(w, "the server is currently unavailable", httputil.CodeStoreUnavailable, http.StatusServiceUnavailable)
			return
		}
		logger.Error("failed to update location", "error", err.Error())
		httputil.RespondErrorWithCode(w, "could not update location", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]any{
		"message":  "location updated successfully",
		"location": loc,
	}, http.StatusOK)
}

// Get returns the caller's last known position.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	loc, err := h.service.Get(r.Context(), acting)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "no location stored", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get location", "error", err.Error())
		httputil.RespondErrorWithCode(w, "could not get location", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, loc, http.StatusOK)
}

// Address reverse-geocodes the caller's stored position.
func (h *Handler) Address(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	address, err := h.service.Address(r.Context(), acting)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.RespondErrorWithCode(w, "no location stored", httputil.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, geocode.ErrNoAPIKey), errors.Is(err, geocode.ErrNoResult), errors.Is(err, geocode.ErrNoValue):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeGeocodeFailed, http.StatusBadRequest)
		default:
			logger.Error("failed to resolve address", "error", err.Error())
			httputil.RespondErrorWithCode(w, "could not resolve address", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, map[string]string{"address": address}, http.StatusOK)
}

// RegisterDeviceToken stores the caller's push token.
func (h *Handler) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req DeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	token, err := h.service.RegisterDeviceToken(r.Context(), acting, req.Token)
	if err != nil {
		logger.Error("failed to register device token", "error", err.Error())
		httputil.RespondErrorWithCode(w, "could not register device token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, token, http.StatusOK)
}
