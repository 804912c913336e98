package download

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/catalog"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/auth"
	"github.com/otahub/backend/internal/infrastructure/persistence"
	"github.com/otahub/backend/internal/infrastructure/persistence/models"
	"github.com/otahub/backend/internal/infrastructure/storage"
	"github.com/otahub/backend/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testApp = "app123"

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (identity.Principal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(identity.Principal), args.Error(1)
}

type mockRights struct {
	mock.Mock
}

func (m *mockRights) CheckAppRight(ctx context.Context, p identity.Principal, appID string, required identity.Right) bool {
	return m.Called(ctx, p, appID, required).Bool(0)
}

type failingSigner struct{}

func (failingSigner) SignDownload(context.Context, catalog.OwnedBundle) (string, error) {
	return "", errors.New("presign: credentials expired")
}

type fixture struct {
	db       *gorm.DB
	clients  *store.Factory
	org      uuid.UUID
	user     identity.Principal
	verifier *mockVerifier
	rights   *mockRights
	reader   *sdkmetric.ManualReader
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	gw, err := store.NewGateway(db, db, store.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	persistence.RegisterProcedures(gw)

	f := &fixture{
		db:       db,
		clients:  store.NewFactory(gw),
		org:      uuid.New(),
		user:     identity.Principal{ID: uuid.New(), Email: "dev@acme.test"},
		verifier: new(mockVerifier),
		rights:   new(mockRights),
		reader:   sdkmetric.NewManualReader(),
	}
	require.NoError(t, db.Create(&models.OrgModel{ID: f.org, Name: "Acme", CreatedBy: uuid.New()}).Error)
	require.NoError(t, db.Create(&models.AppModel{AppID: testApp, OwnerOrg: f.org, Name: "Acme"}).Error)
	return f
}

func (f *fixture) authorizer(t *testing.T, signer storage.Signer) *Authorizer {
	t.Helper()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(f.reader)).Meter("download-test")
	a, err := NewAuthorizer(AuthorizerConfig{
		Verifier: f.verifier,
		Rights:   f.rights,
		Clients:  f.clients,
		Signer:   signer,
		Logger:   zaptest.NewLogger(t),
		Meter:    meter,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) addBundle(t *testing.T, appID string) int64 {
	t.Helper()
	m := &models.AppVersionModel{AppID: appID, Name: "1.0.0", StorageProvider: "r2", R2Path: "v1.zip"}
	require.NoError(t, f.db.Create(m).Error)
	return m.ID
}

func rejection(t *testing.T, err error) *Rejection {
	t.Helper()
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	return rej
}

func TestAuthorize_Success(t *testing.T) {
	f := setupFixture(t)
	id := f.addBundle(t, testApp)
	f.verifier.On("Verify", mock.Anything, "tok").Return(f.user, nil)
	f.rights.On("CheckAppRight", mock.Anything, f.user, testApp, identity.RightRead).Return(true)

	url, err := f.authorizer(t, storage.NewStubSigner("https://cdn.test")).Authorize(context.Background(), Request{
		Authorization: "Bearer tok", AppID: testApp, StorageProvider: catalog.ProviderR2, BundleID: id,
	})
	require.NoError(t, err)
	assert.Contains(t, url, "orgs/"+f.org.String()+"/apps/"+testApp+"/v1.zip")
}

func TestAuthorize_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		setup  func(f *fixture)
		app    string
		reason Reason
		stage  Stage
	}{
		{
			name:   "no header",
			header: "",
			setup:  func(*fixture) {},
			reason: ReasonNoAuthorization,
			stage:  StageUnauthenticated,
		},
		{
			name:   "not a bearer header",
			header: "Basic dXNlcjpwYXNz",
			setup:  func(*fixture) {},
			reason: ReasonNoAuthorization,
			stage:  StageUnauthenticated,
		},
		{
			name:   "invalid token",
			header: "Bearer forged",
			setup: func(f *fixture) {
				f.verifier.On("Verify", mock.Anything, "forged").Return(identity.Principal{}, auth.ErrInvalidToken)
			},
			reason: ReasonNotAuthorized,
			stage:  StageUnauthenticated,
		},
		{
			name:   "read right denied",
			header: "bearer tok",
			setup: func(f *fixture) {
				f.verifier.On("Verify", mock.Anything, "tok").Return(f.user, nil)
				f.rights.On("CheckAppRight", mock.Anything, f.user, testApp, identity.RightRead).Return(false)
			},
			app:    testApp,
			reason: ReasonInsufficientRight,
			stage:  StageTokenValidated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t)
			id := f.addBundle(t, testApp)
			tt.setup(f)

			_, err := f.authorizer(t, storage.NewStubSigner("https://cdn.test")).Authorize(context.Background(), Request{
				Authorization: tt.header, AppID: testApp, BundleID: id,
			})
			rej := rejection(t, err)
			assert.Equal(t, tt.reason, rej.Reason)
			assert.Equal(t, tt.stage, rej.Stage)
			assert.Equal(t, tt.app, rej.AppID)
			assert.False(t, rej.Reason.ServerSide())
		})
	}
}

func TestAuthorize_ServerFaults(t *testing.T) {
	t.Run("bundle without owner", func(t *testing.T) {
		f := setupFixture(t)
		id := f.addBundle(t, "com.orphan")
		f.verifier.On("Verify", mock.Anything, "tok").Return(f.user, nil)
		f.rights.On("CheckAppRight", mock.Anything, f.user, "com.orphan", identity.RightRead).Return(true)

		_, err := f.authorizer(t, storage.NewStubSigner("https://cdn.test")).Authorize(context.Background(), Request{
			Authorization: "Bearer tok", AppID: "com.orphan", BundleID: id,
		})
		rej := rejection(t, err)
		assert.Equal(t, ReasonInvariantViolation, rej.Reason)
		assert.True(t, rej.Reason.ServerSide())
	})

	t.Run("missing bundle", func(t *testing.T) {
		f := setupFixture(t)
		f.verifier.On("Verify", mock.Anything, "tok").Return(f.user, nil)
		f.rights.On("CheckAppRight", mock.Anything, f.user, testApp, identity.RightRead).Return(true)

		_, err := f.authorizer(t, storage.NewStubSigner("https://cdn.test")).Authorize(context.Background(), Request{
			Authorization: "Bearer tok", AppID: testApp, BundleID: 999,
		})
		assert.Equal(t, ReasonInvariantViolation, rejection(t, err).Reason)
	})

	t.Run("signer failure", func(t *testing.T) {
		f := setupFixture(t)
		id := f.addBundle(t, testApp)
		f.verifier.On("Verify", mock.Anything, "tok").Return(f.user, nil)
		f.rights.On("CheckAppRight", mock.Anything, f.user, testApp, identity.RightRead).Return(true)

		_, err := f.authorizer(t, failingSigner{}).Authorize(context.Background(), Request{
			Authorization: "Bearer tok", AppID: testApp, BundleID: id,
		})
		rej := rejection(t, err)
		assert.Equal(t, ReasonSignerFailure, rej.Reason)
		assert.Equal(t, StageBundleResolved, rej.Stage)
	})
}

func TestAuthorize_IsRepeatable(t *testing.T) {
	f := setupFixture(t)
	id := f.addBundle(t, testApp)
	f.verifier.On("Verify", mock.Anything, "tok").Return(f.user, nil)
	f.rights.On("CheckAppRight", mock.Anything, f.user, testApp, identity.RightRead).Return(true)
	a := f.authorizer(t, storage.NewStubSigner("https://cdn.test"))
	req := Request{Authorization: "Bearer tok", AppID: testApp, BundleID: id}

	first, err := a.Authorize(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Authorize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, strings.Split(first, "?")[0], strings.Split(second, "?")[0])

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "download_link_requests_total" {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), total)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"  bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
		assert.Equal(t, tt.ok, HasBearer(tt.header), tt.header)
	}
}
