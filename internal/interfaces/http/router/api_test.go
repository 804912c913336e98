package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/application/download"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/domain/segment"
	"github.com/otahub/backend/internal/infrastructure/auth"
	"github.com/otahub/backend/internal/infrastructure/store"
	"github.com/otahub/backend/internal/interfaces/http/handler"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type fakeVerifier map[string]identity.Principal

func (f fakeVerifier) Verify(_ context.Context, token string) (identity.Principal, error) {
	p, ok := f[token]
	if !ok {
		return identity.Principal{}, auth.ErrInvalidToken
	}
	return p, nil
}

type fakeRights map[uuid.UUID]identity.Right

func (f fakeRights) CheckOrgRight(_ context.Context, p identity.Principal, orgID uuid.UUID, required identity.Right, _ *identity.Scope) bool {
	return f[p.ID] >= required
}

type fakeBackend struct {
	reports int
	synced  int
}

func (f *fakeBackend) Authorize(_ context.Context, req download.Request) (string, error) {
	if req.Authorization == "" {
		return "", &download.Rejection{Reason: download.ReasonNoAuthorization}
	}
	return "https://cdn.example.com/" + req.AppID, nil
}

func (f *fakeBackend) RecordDeviceReport(context.Context, billingapp.DeviceReport) error {
	f.reports++
	return nil
}

func (f *fakeBackend) RecordBandwidth(context.Context, *billing.BandwidthUsage) error { return nil }

func (f *fakeBackend) Report(context.Context, *store.Client, uuid.UUID) billingapp.UsageReport {
	return billingapp.UsageReport{Plan: "Solo", GoodPlan: true}
}

func (f *fakeBackend) Status(_ context.Context, _ *store.Client, orgID uuid.UUID) (*billing.OrgBilling, error) {
	return &billing.OrgBilling{OrgID: orgID, Status: billing.StatusSucceeded}, nil
}

func (f *fakeBackend) SyncOrg(context.Context, uuid.UUID) (segment.Segments, error) {
	f.synced++
	return segment.Segments{Segments: []string{"Paying"}, DeleteSegments: []string{}}, nil
}

func (f *fakeBackend) HandleWebhook(context.Context, []byte, string) (*billingapp.WebhookResult, error) {
	return &billingapp.WebhookResult{EventID: "evt_1", Processed: true}, nil
}

func (f *fakeBackend) Ping(context.Context) error { return nil }

type apiFixture struct {
	engine  *gin.Engine
	backend *fakeBackend
	reader  identity.Principal
	admin   identity.Principal
	orgID   uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("edge-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	f := &apiFixture{
		backend: &fakeBackend{},
		reader:  identity.Principal{ID: uuid.New()},
		admin:   identity.Principal{ID: uuid.New()},
		orgID:   uuid.New(),
	}
	api := &API{
		Download: handler.NewDownloadHandler(f.backend),
		Ingest:   handler.NewIngestHandler(f.backend),
		Org: handler.NewOrgHandler(handler.OrgHandlerConfig{
			Clients:  store.NewFactory(nil),
			Usage:    f.backend,
			Billing:  f.backend,
			Segments: f.backend,
		}),
		Webhook:        handler.NewBillingWebhookHandler(f.backend),
		Health:         handler.NewHealthHandler(f.backend, "test"),
		Verifier:       fakeVerifier{"reader-token": f.reader, "admin-token": f.admin},
		Rights:         fakeRights{f.reader.ID: identity.RightRead, f.admin.ID: identity.RightAdmin},
		StatsLimiter:   middleware.NewMemoryRateLimiter(2, time.Minute),
		ServiceKeyHash: string(hash),
		Logger:         log,
	}
	f.engine = NewEngine(EngineConfig{
		Logger:      log,
		CORS:        middleware.DefaultCORSConfig(),
		MaxBodySize: 1 << 20,
	})
	api.Mount(f.engine)
	return f
}

func (f *apiFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAPI_DownloadLink(t *testing.T) {
	f := newAPIFixture(t)
	body := `{"app_id":"com.demo.app","storage_provider":"r2","id":1}`

	w := f.do(http.MethodPost, "/api/v1/bundles/download-link", body, map[string]string{"Authorization": "Bearer anything"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://cdn.example.com/com.demo.app"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/bundles/download-link", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"Cannot find authorization"}`, w.Body.String())
}

func TestAPI_StatsRateLimited(t *testing.T) {
	f := newAPIFixture(t)
	body := `{"app_id":"com.demo.app","device_id":"dev-1","action":"get"}`

	for range 2 {
		w := f.do(http.MethodPost, "/api/v1/stats", body, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := f.do(http.MethodPost, "/api/v1/stats", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 2, f.backend.reports)
}

func TestAPI_BandwidthNeedsServiceKey(t *testing.T) {
	f := newAPIFixture(t)
	body := `{"app_id":"com.demo.app","device_id":"dev-1","file_size":10}`

	w := f.do(http.MethodPost, "/api/v1/usage/bandwidth", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/v1/usage/bandwidth", body, map[string]string{middleware.ServiceKeyHeader: "edge-secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_OrgRoutes(t *testing.T) {
	f := newAPIFixture(t)
	base := "/api/v1/orgs/" + f.orgID.String()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"usage without token", http.MethodGet, "/usage", "", http.StatusUnauthorized},
		{"usage with bad token", http.MethodGet, "/usage", "nope", http.StatusUnauthorized},
		{"usage as reader", http.MethodGet, "/usage", "reader-token", http.StatusOK},
		{"billing as reader", http.MethodGet, "/billing", "reader-token", http.StatusOK},
		{"sync as reader", http.MethodPost, "/segments/sync", "reader-token", http.StatusForbidden},
		{"sync as admin", http.MethodPost, "/segments/sync", "admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.token != "" {
				headers["Authorization"] = "Bearer " + tt.token
			}
			w := f.do(tt.method, base+tt.path, "", headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}
	assert.Equal(t, 1, f.backend.synced)

	w := f.do(http.MethodGet, "/api/v1/orgs/not-a-uuid/usage", "", map[string]string{"Authorization": "Bearer reader-token"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_StripeWebhook(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodPost, "/api/v1/billing/stripe/webhook", `{"id":"evt_1"}`, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"event_id":"evt_1"}`, w.Body.String())
}
