package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/segment"
	infrabilling "github.com/otahub/backend/internal/infrastructure/billing"
	"github.com/otahub/backend/internal/infrastructure/marketing"
	"github.com/otahub/backend/internal/infrastructure/persistence"
	"github.com/otahub/backend/internal/infrastructure/persistence/models"
	"github.com/otahub/backend/internal/infrastructure/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testApp = "com.acme.app"

type fixture struct {
	db      *gorm.DB
	gw      *store.Gateway
	clients *store.Factory
	org     uuid.UUID
	owner   uuid.UUID
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

	f := &fixture{db: db, gw: gw, clients: store.NewFactory(gw), org: uuid.New(), owner: uuid.New()}
	require.NoError(t, db.Create(&models.OrgModel{
		ID: f.org, Name: "Acme", CreatedBy: f.owner, ManagementEmail: "billing@acme.test",
	}).Error)
	require.NoError(t, db.Create(&models.AppModel{AppID: testApp, OwnerOrg: f.org, Name: "Acme"}).Error)
	return f
}

func (f *fixture) addPlan(t *testing.T, p *billing.Plan) {
	t.Helper()
	require.NoError(t, f.db.Create(models.PlanModelFromDomain(p)).Error)
}

func (f *fixture) addSolo(t *testing.T, mau, bandwidth, storage int64) {
	f.addPlan(t, (&billing.Plan{Name: billing.SoloPlanName}).WithCeilings(mau, bandwidth, storage))
}

func (f *fixture) addBundle(t *testing.T, size int64) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.AppVersionModel{
		AppID: testApp, Name: "1.0.0", StorageProvider: "r2", R2Path: "b.zip", Size: size,
	}).Error)
}

func (f *fixture) addDevices(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		d, err := billing.NewDeviceRecord(testApp, id, 1, "1.0.0")
		require.NoError(t, err)
		_, err = store.Call(context.Background(), f.clients.Elevated(), store.UpsertDevice, d)
		require.NoError(t, err)
	}
}

func (f *fixture) setBilling(t *testing.T, mutate func(b *billing.OrgBilling)) {
	t.Helper()
	b, err := billing.NewOrgBilling(f.org, "cus_acme")
	require.NoError(t, err)
	mutate(b)
	_, err = store.Call(context.Background(), f.clients.Elevated(), store.UpdateOrgBilling, b)
	require.NoError(t, err)
}

func daysFromNow(days int) *time.Time {
	t := time.Now().UTC().Add(time.Duration(days)*24*time.Hour - time.Hour)
	return &t
}

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) PushSegments(ctx context.Context, contact marketing.Contact, s segment.Segments) error {
	args := m.Called(ctx, contact, s)
	return args.Error(0)
}

type mockCustomers struct {
	mock.Mock
}

func (m *mockCustomers) CreateCustomer(ctx context.Context, input infrabilling.CreateCustomerInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

type mockWebhooks struct {
	mock.Mock
}

func (m *mockWebhooks) ParseWebhook(payload []byte, signature string) (*infrabilling.SubscriptionChange, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infrabilling.SubscriptionChange), args.Error(1)
}
