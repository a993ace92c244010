// Package handler exposes the administrative catalog surface. Every route is
// behind admin JWT auth; the public read path lives in internal/consent.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assent/internal/catalog"
	"assent/internal/catalog/service"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
	adminmw "assent/pkg/platform/middleware/admin"
	"assent/pkg/platform/middleware/request"
	"assent/pkg/platform/middleware/requesttime"
)

// Service defines the catalog operations the admin surface needs.
type Service interface {
	Create(ctx context.Context, input service.CreateVersionInput) (*catalog.PolicyVersion, error)
	Publish(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error)
	Unpublish(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error)
	Get(ctx context.Context, id domain.PolicyVersionID) (*catalog.PolicyVersion, error)
	List(ctx context.Context, scope domain.Scope) ([]*catalog.PolicyVersion, error)
}

type Handler struct {
	catalog   Service
	validator adminmw.TokenValidator
	logger    *slog.Logger
}

func New(catalogSvc Service, validator adminmw.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalogSvc, validator: validator, logger: logger}
}

// Register mounts the admin catalog routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(request.Recovery(h.logger))
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(request.Logger(h.logger))
	router.Use(request.Timeout(15 * time.Second))
	router.Use(request.ContentTypeJSON)
	router.Use(adminmw.RequireAdmin(h.validator, h.logger))

	router.Post("/versions", h.handleCreateVersion)
	router.Get("/versions", h.handleListVersions)
	router.Get("/versions/{id}", h.handleGetVersion)
	router.Post("/versions/{id}/publish", h.handlePublishVersion)
	router.Post("/versions/{id}/unpublish", h.handleUnpublishVersion)

	r.Mount("/admin/catalog", router)
}

func (h *Handler) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input, err := toCreateInput(req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.catalog.Create(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "create policy version failed",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toResponse(created, true))
}

func toCreateInput(req createVersionRequest) (service.CreateVersionInput, error) {
	scope, err := domain.ParseScope(req.Tenant, req.Kind, req.Audience, req.Language)
	if err != nil {
		return service.CreateVersionInput{}, err
	}
	mode, err := catalog.ParseEnforceMode(req.EnforceMode)
	if err != nil {
		return service.CreateVersionInput{}, err
	}
	trigger, err := catalog.ParseReconsentTrigger(req.ReconsentTrigger)
	if err != nil {
		return service.CreateVersionInput{}, err
	}
	return service.CreateVersionInput{
		Scope:            scope,
		Version:          req.Version,
		Title:            req.Title,
		Body:             req.Body,
		EffectiveFrom:    req.EffectiveFrom,
		EffectiveTo:      req.EffectiveTo,
		Mandatory:        req.Mandatory,
		GraceDays:        req.GraceDays,
		EnforceMode:      mode,
		ReconsentTrigger: trigger,
		Publish:          req.Publish,
	}, nil
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	scope, err := domain.ParseScope(q.Get("tenant"), q.Get("kind"), q.Get("audience"), q.Get("language"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	versions, err := h.catalog.List(ctx, scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]policyVersionResponse, 0, len(versions))
	for _, v := range versions {
		responses = append(responses, toResponse(v, false))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"versions": responses})
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePolicyVersionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	version, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(version, true))
}

func (h *Handler) handlePublishVersion(w http.ResponseWriter, r *http.Request) {
	h.setPublication(w, r, h.catalog.Publish)
}

func (h *Handler) handleUnpublishVersion(w http.ResponseWriter, r *http.Request) {
	h.setPublication(w, r, h.catalog.Unpublish)
}

func (h *Handler) setPublication(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, domain.PolicyVersionID) (*catalog.PolicyVersion, error),
) {
	ctx := r.Context()
	id, err := domain.ParsePolicyVersionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	version, err := op(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "publication change failed",
			"request_id", request.GetRequestID(ctx),
			"policy_version_id", id.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(version, false))
}
