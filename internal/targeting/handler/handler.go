// Package handler exposes the administrative targeting surface.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assent/internal/targeting"
	"assent/internal/targeting/service"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
	adminmw "assent/pkg/platform/middleware/admin"
	"assent/pkg/platform/middleware/request"
	"assent/pkg/platform/middleware/requesttime"
)

// Service defines the targeting operations the admin surface needs.
type Service interface {
	Create(ctx context.Context, input service.CreateOverrideInput) (*targeting.Override, error)
	Deactivate(ctx context.Context, id domain.OverrideID) (*targeting.Override, error)
	ListForIdentity(ctx context.Context, rawIdentity string) ([]*targeting.Override, error)
}

type Handler struct {
	targeting Service
	validator adminmw.TokenValidator
	logger    *slog.Logger
}

func New(targetingSvc Service, validator adminmw.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{targeting: targetingSvc, validator: validator, logger: logger}
}

// Register mounts the admin targeting routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(request.Recovery(h.logger))
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(request.Logger(h.logger))
	router.Use(request.Timeout(15 * time.Second))
	router.Use(request.ContentTypeJSON)
	router.Use(adminmw.RequireAdmin(h.validator, h.logger))

	router.Post("/overrides", h.handleCreateOverride)
	router.Post("/overrides/{id}/deactivate", h.handleDeactivateOverride)
	router.Post("/overrides/list", h.handleListOverrides)

	r.Mount("/admin/targeting", router)
}

type createOverrideRequest struct {
	Identity        string     `json:"identity"`
	PolicyVersionID string     `json:"policyVersionId"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
}

// listOverridesRequest is a POST body rather than a query parameter so the
// cleartext identity never lands in access logs.
type listOverridesRequest struct {
	Identity string `json:"identity"`
}

type overrideResponse struct {
	ID              string     `json:"id"`
	PolicyVersionID string     `json:"policyVersionId"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"createdAt"`
	CreatedBy       string     `json:"createdBy,omitempty"`
	DeactivatedAt   *time.Time `json:"deactivatedAt,omitempty"`
}

func toResponse(o *targeting.Override) overrideResponse {
	return overrideResponse{
		ID:              o.ID.String(),
		PolicyVersionID: o.PolicyVersion.String(),
		StartDate:       o.StartDate,
		EndDate:         o.EndDate,
		Active:          o.Active,
		CreatedAt:       o.CreatedAt,
		CreatedBy:       o.CreatedBy,
		DeactivatedAt:   o.DeactivatedAt,
	}
}

func (h *Handler) handleCreateOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	versionID, err := domain.ParsePolicyVersionID(req.PolicyVersionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.targeting.Create(ctx, service.CreateOverrideInput{
		RawIdentity:   req.Identity,
		PolicyVersion: versionID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create override failed",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleDeactivateOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseOverrideID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	deactivated, err := h.targeting.Deactivate(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(deactivated))
}

func (h *Handler) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req listOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	overrides, err := h.targeting.ListForIdentity(ctx, req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]overrideResponse, 0, len(overrides))
	for _, o := range overrides {
		responses = append(responses, toResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"overrides": responses})
}
