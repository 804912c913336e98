//go:build integration

package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/bootstrap"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/otahub/backend/internal/infrastructure/migration"
	"github.com/otahub/backend/internal/infrastructure/persistence"
	"github.com/otahub/backend/internal/infrastructure/persistence/models"
	"github.com/otahub/backend/internal/interfaces/http/handler"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
	"github.com/otahub/backend/internal/interfaces/http/router"
	"github.com/otahub/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

const jwtSecret = "integration-secret-0123456789abcdef"

type env struct {
	c      *bootstrap.Container
	engine http.Handler
	org    uuid.UUID
	member identity.Principal
	bundle int64
}

func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ota_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:          host,
		Port:          p,
		User:          "postgres",
		Password:      "postgres",
		AdminUser:     "postgres",
		AdminPassword: "postgres",
		DBName:        "ota_test",
		SSLMode:       "disable",
		MaxOpenConns:  5,
		MaxIdleConns:  2,
	}
}

func migrate(t *testing.T, cfg *config.DatabaseConfig) {
	t.Helper()
	db, err := persistence.NewElevatedDatabase(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.NewFromFS(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())
	st, err := m.Status()
	require.NoError(t, err)
	assert.False(t, st.Dirty)
	require.NoError(t, m.Close())
}

func setup(t *testing.T) *env {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Setenv("OTA_JWT_SECRET", jwtSecret)
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Database = startPostgres(t)
	cfg.Storage.Endpoint = "https://cdn.example.test/bundles"
	migrate(t, &cfg.Database)

	log := zaptest.NewLogger(t)
	c, err := bootstrap.Build(context.Background(), cfg, log, bootstrap.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	e := &env{c: c, org: uuid.New(), member: identity.Principal{ID: uuid.New(), Email: "dev@acme.test"}}
	db := c.ElevatedDB.DB
	require.NoError(t, db.Create(&models.OrgModel{ID: e.org, Name: "Acme", CreatedBy: e.member.ID, ManagementEmail: "ops@acme.test"}).Error)
	require.NoError(t, db.Create(&models.OrgUserModel{OrgID: e.org, UserID: e.member.ID, UserRight: "admin"}).Error)
	require.NoError(t, db.Create(&models.AppModel{AppID: "com.acme.app", OwnerOrg: e.org, Name: "Acme"}).Error)
	v := &models.AppVersionModel{AppID: "com.acme.app", Name: "1.0.0", StorageProvider: "r2", R2Path: "1.0.0.zip", Size: 2048}
	require.NoError(t, db.Create(v).Error)
	e.bundle = v.ID

	engine := router.NewEngine(router.EngineConfig{Logger: log, CORS: middleware.DefaultCORSConfig()})
	api := &router.API{
		Download: handler.NewDownloadHandler(c.Authorizer),
		Ingest:   handler.NewIngestHandler(c.Recorder),
		Org: handler.NewOrgHandler(handler.OrgHandlerConfig{
			Clients:  c.Clients,
			Usage:    c.Quota,
			Billing:  c.Billing,
			Segments: c.Segments,
		}),
		Webhook:  handler.NewBillingWebhookHandler(c.Billing),
		Health:   handler.NewHealthHandler(c, "test"),
		Verifier: c.Verifier,
		Rights:   c.Rights,
		Logger:   log,
	}
	api.Mount(engine)
	e.engine = engine
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *env) token(t *testing.T, p identity.Principal) string {
	t.Helper()
	tok, _, err := e.c.JWT.Issue(p, time.Minute)
	require.NoError(t, err)
	return tok
}

func TestEndToEnd(t *testing.T) {
	e := setup(t)
	member := e.token(t, e.member)
	stranger := e.token(t, identity.Principal{ID: uuid.New()})

	t.Run("health", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("member gets a download link", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/bundles/download-link", member,
			map[string]any{"app_id": "com.acme.app", "storage_provider": "r2", "id": e.bundle})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, strings.HasPrefix(body["url"],
			"https://cdn.example.test/bundles/orgs/"+e.org.String()+"/apps/com.acme.app/1.0.0.zip?"))
	})

	t.Run("stranger is refused", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/v1/bundles/download-link", stranger,
			map[string]any{"app_id": "com.acme.app", "storage_provider": "r2", "id": e.bundle})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"You can't access this app","app_id":"com.acme.app"}`, w.Body.String())
	})

	t.Run("device stats feed the usage report", func(t *testing.T) {
		for _, dev := range []string{"device-a", "device-b"} {
			w := e.do(t, http.MethodPost, "/api/v1/stats", "", map[string]any{
				"app_id": "com.acme.app", "device_id": dev, "action": "get",
				"version_name": "1.0.0", "version_id": e.bundle, "platform": "ios",
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}

		w := e.do(t, http.MethodGet, "/api/v1/orgs/"+e.org.String()+"/usage", member, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var report struct {
			Stats    billing.TotalStats `json:"stats"`
			Plan     string             `json:"plan"`
			GoodPlan bool               `json:"good_plan"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, int64(2), report.Stats.MAU)
		assert.Equal(t, int64(2), report.Stats.Get)
		assert.Equal(t, int64(2048), report.Stats.Storage)
		assert.Equal(t, billing.SoloPlanName, report.Plan)
		// the seeded Solo ceilings are far above two devices
		assert.True(t, report.GoodPlan)
	})

	t.Run("usage needs org membership", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/v1/orgs/"+e.org.String()+"/usage", stranger, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
