package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/httputil"
	"github.com/elevate-app/elevate-backend/internal/logging"
	"github.com/elevate-app/elevate-backend/internal/ratelimit"
	"github.com/elevate-app/elevate-backend/internal/user"
)

// Handler exposes the credential endpoints.
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Register handles account creation.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitExceeded(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case errors.Is(err, ErrNameRequired), errors.Is(err, ErrEmailRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		default:
			logger.Error("registration failed", "error", err.Error())
			respondInternal(w, err)
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)
	httputil.RespondJSON(w, map[string]any{
		"user":    newUser,
		"message": "Registration successful. Please check your email to verify your account.",
	}, http.StatusCreated)
}

// Login authenticates and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitExceeded(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httputil.RespondErrorWithCode(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed", "error", err.Error())
		respondInternal(w, err)
		return
	}

	logger.Info("user logged in", "email", result.User.Email)
	httputil.RespondJSON(w, result, http.StatusOK)
}

// VerifyEmail consumes a verification token.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "token is invalid or was already used", httputil.CodeTokenConsumed, http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed", "error", err.Error())
		respondInternal(w, err)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "email verified"}, http.StatusOK)
}

// SendVerification issues a fresh verification email for the authenticated
// user.
func (h *Handler) SendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := UserFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.service.SendVerificationEmail(r.Context(), acting); err != nil {
		logger.Error("failed to send verification email", "error", err.Error())
		respondInternal(w, err)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "verification email sent"}, http.StatusOK)
}

// ForgotPassword starts the reset flow. The response never reveals whether
// the address is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if h.limitExceeded(w, r, "forgot-password") {
		return
	}

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	httputil.RespondJSON(w, map[string]string{
		"message": "if the email is registered, a reset link has been sent",
	}, http.StatusOK)
}

// ResetPassword consumes a reset token and sets the new password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, "token is invalid or was already used", httputil.CodeTokenConsumed, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("password reset failed", "error", err.Error())
			respondInternal(w, err)
		}
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "password updated"}, http.StatusOK)
}

// limitExceeded applies the per-IP fixed window for the given purpose and
// writes the 429 when the caller is over it.
func (h *Handler) limitExceeded(w http.ResponseWriter, r *http.Request, purpose string) bool {
	ip := clientIP(r)

	exceeded, err := h.rateLimiter.Exceeded(r.Context(), ip, purpose)
	if err != nil {
		h.logger.Error("failed to check rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		h.logger.Warn("rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.Record(r.Context(), ip, purpose); err != nil {
		h.logger.Error("failed to record rate limit hit", "error", err.Error())
	}
	return false
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware has already rewritten RemoteAddr when the
	// request came through a proxy.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondInternal(w http.ResponseWriter, err error) {
	if database.IsUnavailable(err) {
		httputil.RespondErrorWithCode(w, "the server is currently unavailable", httputil.CodeStoreUnavailable, http.StatusServiceUnavailable)
		return
	}
	httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}
