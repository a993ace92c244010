package handler

//go:generate mockgen -source=handler.go -destination=mocks/catalog-mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"assent/internal/catalog"
	"assent/internal/catalog/handler/mocks"
	"assent/internal/catalog/service"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	adminmw "assent/pkg/platform/middleware/admin"
)

// staticValidator accepts the fixed token "admin-token" for tests.
type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*adminmw.Claims, error) {
	if token != "admin-token" {
		return nil, errors.New("unknown token")
	}
	return &adminmw.Claims{ActorID: "legal-ops@acme"}, nil
}

type CatalogHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *CatalogHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestCatalogHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlerSuite))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, staticValidator{}, logger).Register(r)
	return r, mockService
}

func adminRequest(method, target string, body []byte) *http.Request {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sampleVersion() *catalog.PolicyVersion {
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return &catalog.PolicyVersion{
		ID: domain.NewPolicyVersionID(),
		Scope: domain.Scope{
			Tenant:   "acme",
			Kind:     domain.DocKindPrivacy,
			Audience: domain.AudienceCustomer,
			Language: "en",
		},
		Version:          "2.0",
		Title:            "Privacy Policy 2.0",
		Body:             "body",
		EffectiveFrom:    from,
		Mandatory:        true,
		GraceDays:        5,
		EnforceMode:      catalog.EnforceModeActionGate,
		ReconsentTrigger: catalog.TriggerVersionChange,
		Published:        true,
		CreatedAt:        from.AddDate(0, 0, -7),
		UpdatedAt:        from.AddDate(0, 0, -7),
	}
}

func (s *CatalogHandlerSuite) TestCreateVersion() {
	router, mockService := newTestRouter(s.T())
	version := sampleVersion()

	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input service.CreateVersionInput) (*catalog.PolicyVersion, error) {
			s.Equal("acme", string(input.Scope.Tenant))
			s.Equal(catalog.EnforceModeActionGate, input.EnforceMode)
			s.True(input.Publish)
			return version, nil
		})

	body, err := json.Marshal(map[string]any{
		"tenant":           "acme",
		"kind":             "privacy",
		"audience":         "customer",
		"language":         "en",
		"version":          "2.0",
		"title":            "Privacy Policy 2.0",
		"body":             "body",
		"effectiveFrom":    "2026-04-01T00:00:00Z",
		"mandatory":        true,
		"graceDays":        5,
		"enforceMode":      "action_gate",
		"reconsentTrigger": "version_change",
		"publish":          true,
	})
	require.NoError(s.T(), err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/admin/catalog/versions", body))

	s.Equal(http.StatusCreated, rec.Code)
	var resp policyVersionResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(version.ID.String(), resp.ID)
	s.Equal("body", resp.Body)
}

func (s *CatalogHandlerSuite) TestCreateVersionRejectsBadScope() {
	router, _ := newTestRouter(s.T())

	body := []byte(`{"tenant":"acme","kind":"horoscope","audience":"customer","language":"en",` +
		`"version":"1.0","title":"t","effectiveFrom":"2026-04-01T00:00:00Z",` +
		`"enforceMode":"none","reconsentTrigger":"manual"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/admin/catalog/versions", body))

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), string(dErrors.CodeInvalidInput))
}

func (s *CatalogHandlerSuite) TestCreateVersionRequiresAuth() {
	router, _ := newTestRouter(s.T())

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/versions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/catalog/versions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *CatalogHandlerSuite) TestGetVersion() {
	router, mockService := newTestRouter(s.T())
	version := sampleVersion()

	mockService.EXPECT().Get(gomock.Any(), version.ID).Return(version, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/catalog/versions/"+version.ID.String(), nil))

	s.Equal(http.StatusOK, rec.Code)
	var resp policyVersionResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("2.0", resp.Version)
}

func (s *CatalogHandlerSuite) TestGetVersionNotFound() {
	router, mockService := newTestRouter(s.T())
	id := domain.NewPolicyVersionID()

	mockService.EXPECT().Get(gomock.Any(), id).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "policy version not found"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/catalog/versions/"+id.String(), nil))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *CatalogHandlerSuite) TestListVersions() {
	router, mockService := newTestRouter(s.T())
	version := sampleVersion()

	mockService.EXPECT().List(gomock.Any(), version.Scope).
		Return([]*catalog.PolicyVersion{version}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet,
		"/admin/catalog/versions?tenant=acme&kind=privacy&audience=customer&language=en", nil))

	s.Equal(http.StatusOK, rec.Code)
	var resp struct {
		Versions []policyVersionResponse `json:"versions"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Versions, 1)
	// List omits bodies to keep responses small.
	assert.Empty(s.T(), resp.Versions[0].Body)
}

func (s *CatalogHandlerSuite) TestPublishConflict() {
	router, mockService := newTestRouter(s.T())
	id := domain.NewPolicyVersionID()

	mockService.EXPECT().Publish(gomock.Any(), id).
		Return(nil, dErrors.New(dErrors.CodeConflict, "publishing would overlap another published version's window"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost,
		"/admin/catalog/versions/"+id.String()+"/publish", nil))
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *CatalogHandlerSuite) TestUnpublish() {
	router, mockService := newTestRouter(s.T())
	version := sampleVersion()
	version.Published = false

	mockService.EXPECT().Unpublish(gomock.Any(), version.ID).Return(version, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost,
		"/admin/catalog/versions/"+version.ID.String()+"/unpublish", nil))

	s.Equal(http.StatusOK, rec.Code)
	var resp policyVersionResponse
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Published)
}
