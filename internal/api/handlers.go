/**
 * @description
 * HTTP handlers for the AllRails API. Handlers decode the request, call the
 * owner or public service and translate domain error kinds into status codes.
 */
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanstheMan1981/allrails/internal/app"
	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/registry"
	"github.com/DanstheMan1981/allrails/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers holds the services the HTTP layer calls into.
type Handlers struct {
	service *app.Service
	public  *app.PublicPageService
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers.
func NewHandlers(service *app.Service, public *app.PublicPageService, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, public: public, logger: logger}
}

// GetProfileHandler returns the caller's profile, or an empty object when none exists yet.
func (h *Handlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if profile == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// UpsertProfileHandler creates or replaces the caller's profile.
func (h *Handlers) UpsertProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req domain.UpsertProfileInput
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.service.UpsertProfile(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// ListPaymentMethodsHandler returns all of the caller's methods, active or not.
func (h *Handlers) ListPaymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	methods, err := h.service.ListPaymentMethods(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, methods)
}

// CreatePaymentMethodHandler appends a method to the caller's list.
func (h *Handlers) CreatePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req domain.CreatePaymentMethodInput
	if !h.decode(w, r, &req) {
		return
	}

	method, err := h.service.CreatePaymentMethod(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, method)
}

// UpdatePaymentMethodHandler applies a partial update to one method.
func (h *Handlers) UpdatePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req domain.PaymentMethodPatch
	if !h.decode(w, r, &req) {
		return
	}

	method, err := h.service.UpdatePaymentMethod(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, method)
}

// DeletePaymentMethodHandler removes one method. Survivors keep their ranks.
func (h *Handlers) DeletePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePaymentMethod(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReorderPaymentMethodsHandler replaces the caller's ranks in one transaction.
func (h *Handlers) ReorderPaymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req domain.ReorderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Order == nil {
		h.writeError(w, http.StatusBadRequest, "order is required")
		return
	}

	methods, err := h.service.ReorderPaymentMethods(r.Context(), userID, req.Order)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, methods)
}

// PublicPageHandler serves the visitor view of a username. No authentication.
func (h *Handlers) PublicPageHandler(w http.ResponseWriter, r *http.Request) {
	page, err := h.public.GetPublicPage(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// PaymentTypesHandler lists the registered payment types. With ?view=options it
// returns the compact value/label/icon entries used by type pickers.
func (h *Handlers) PaymentTypesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "options" {
		h.writeJSON(w, http.StatusOK, registry.Options())
		return
	}
	h.writeJSON(w, http.StatusOK, registry.Configs())
}

func (h *Handlers) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, "Authorization required")
		return "", false
	}
	return userID, true
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationError *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validationError):
		h.writeError(w, http.StatusBadRequest, validationError.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "Authorization required")
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"message": message, "code": status})
}
