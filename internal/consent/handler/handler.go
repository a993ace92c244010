// Package handler exposes the public consent surface: resolve the effective
// document, check compliance, submit an acceptance, read history. Every
// identity-bearing call is a POST with a JSON body so cleartext identities
// never appear in URLs or access logs.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assent/internal/catalog"
	"assent/internal/compliance"
	"assent/internal/ledger"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
	"assent/pkg/platform/middleware/metadata"
	"assent/pkg/platform/middleware/request"
	"assent/pkg/platform/middleware/requesttime"
)

// Service defines the consent operations the public surface needs.
type Service interface {
	ResolveEffective(ctx context.Context, scope domain.Scope, rawIdentity string) (*catalog.PolicyVersion, error)
	Status(ctx context.Context, scope domain.Scope, rawIdentity string) (*compliance.Result, error)
	Accept(ctx context.Context, scope domain.Scope, rawIdentity, claimedVersionID string) (*ledger.ConsentRecord, bool, error)
	History(ctx context.Context, rawIdentity string) ([]*ledger.ConsentRecord, error)
}

type Handler struct {
	consent Service
	logger  *slog.Logger
}

func New(consentSvc Service, logger *slog.Logger) *Handler {
	return &Handler{consent: consentSvc, logger: logger}
}

// Register mounts the public consent routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(request.Recovery(h.logger))
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(request.Logger(h.logger))
	router.Use(request.Timeout(10 * time.Second))
	router.Use(request.ContentTypeJSON)

	router.Post("/versions/resolve", h.handleResolve)
	router.Post("/status", h.handleStatus)
	router.Post("/acceptances", h.handleAccept)
	router.Post("/history", h.handleHistory)

	r.Mount("/consent", router)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, ok := h.parseScope(w, req.Tenant, req.Kind, req.Audience, req.Language)
	if !ok {
		return
	}

	version, err := h.consent.ResolveEffective(ctx, scope, req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVersionResponse(version))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, ok := h.parseScope(w, req.Tenant, req.Kind, req.Audience, req.Language)
	if !ok {
		return
	}

	result, err := h.consent.Status(ctx, scope, req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toComplianceResponse(result))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req acceptRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, ok := h.parseScope(w, req.Tenant, req.Kind, req.Audience, req.Language)
	if !ok {
		return
	}

	record, already, err := h.consent.Accept(ctx, scope, req.Identity, req.PolicyVersionID)
	if err != nil {
		h.logger.WarnContext(ctx, "acceptance rejected",
			"request_id", request.GetRequestID(ctx),
			"scope", scope.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if already {
		// A replay is answered with the original record, not a new row.
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, acceptResponse{
		consentRecordResponse: toRecordResponse(record),
		AlreadyConsented:      already,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req historyRequest
	if !h.decode(w, r, &req) {
		return
	}

	records, err := h.consent.History(ctx, req.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]consentRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": responses})
}

// decode unmarshals and sanitizes a request body. A false return means the
// error response is already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	sanitize(req)
	return true
}

func (h *Handler) parseScope(w http.ResponseWriter, tenant, kind, audience, language string) (domain.Scope, bool) {
	scope, err := domain.ParseScope(tenant, kind, audience, language)
	if err != nil {
		httputil.WriteError(w, err)
		return domain.Scope{}, false
	}
	return scope, true
}
