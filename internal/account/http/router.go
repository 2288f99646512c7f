package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akentev/account-service/internal/account/domain"
	"github.com/akentev/account-service/internal/account/service"
	commonhttp "github.com/akentev/account-service/internal/common/http"
	"github.com/akentev/account-service/internal/common/logger"
)

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
	IsAdmin  bool   `json:"isAdmin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	users    *service.UserService
	sessions *service.SessionService
	chain    *AuthChain
	validate *validator.Validate
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
	timeout  time.Duration
}

func NewHandler(
	users *service.UserService,
	sessions *service.SessionService,
	chain *AuthChain,
	timeout time.Duration,
	log *logger.Logger,
) http.Handler {
	h := &Handler{
		users:    users,
		sessions: sessions,
		chain:    chain,
		validate: validator.New(),
		errors:   commonhttp.NewErrorHandler(log),
		log:      log,
		timeout:  timeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.HandleFunc("/login", h.login)
	mux.HandleFunc("/users", h.usersCollection)
	mux.HandleFunc("/users/", h.userItem)
	return mux
}

func (h *Handler) usersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUser(w, r)
	case http.MethodGet:
		Chain(h.listUsers,
			h.chain.RequireToken,
			h.chain.RequireExistingUser,
			h.chain.RequireAdmin,
		)(w, r)
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
	}
}

func (h *Handler) userItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	if rest == "" || strings.Contains(rest, "/") {
		commonhttp.WriteErrorEnvelope(w, http.StatusNotFound, commonhttp.CodeInvalidPath, "not found", nil, "")
		return
	}

	if rest == "profile" {
		if r.Method != http.MethodGet {
			commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
			return
		}
		Chain(h.profile,
			h.chain.RequireToken,
			h.chain.RequireExistingUser,
		)(w, r)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		Chain(h.updateUser(domain.ID(rest)),
			h.chain.RequireToken,
			h.chain.RequireExistingUser,
		)(w, r)
	case http.MethodDelete:
		Chain(h.deleteUser(domain.ID(rest)),
			h.chain.RequireToken,
		)(w, r)
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("create user failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	profile, err := h.users.Create(ctx, service.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, profile)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteErrorEnvelope(w, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed", nil, "")
		return
	}

	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	sessionToken, err := h.sessions.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{Token: sessionToken})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	profiles, err := h.users.List(ctx)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, profiles)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	profile, err := h.users.RetrieveSelf(ctx, BearerToken(r))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) updateUser(targetID domain.ID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, ok := AuthFromContext(r.Context())
		if !ok || !auth.Resolved {
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", nil, "")
			return
		}

		var patch service.Patch
		if err := commonhttp.DecodeJSON(r, &patch); err != nil {
			h.log.Warnf("update user failed: invalid json: %v", err)
			commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json", nil, "")
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		profile, err := h.users.Update(ctx, targetID, auth.User, patch)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}

		commonhttp.WriteJSON(w, http.StatusOK, profile)
	}
}

func (h *Handler) deleteUser(targetID domain.ID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, ok := AuthFromContext(r.Context())
		if !ok {
			commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", nil, "")
			return
		}

		ctx, cancel := h.requestContext(r)
		defer cancel()

		if err := h.users.Delete(ctx, targetID, auth.Subject); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	details := map[string]any{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeValidationFailed, "validation failed", details, "")
}
