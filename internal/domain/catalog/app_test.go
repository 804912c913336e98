package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageProvider(t *testing.T) {
	p, err := ParseStorageProvider(" R2 ")
	require.NoError(t, err)
	assert.Equal(t, ProviderR2, p)

	p, err = ParseStorageProvider("external")
	require.NoError(t, err)
	assert.Equal(t, ProviderExternal, p)

	_, err = ParseStorageProvider("ftp")
	assert.Error(t, err)
}

func TestOwnedBundle_ObjectKey(t *testing.T) {
	org := uuid.MustParse("6f1c7a34-5d2e-4f7b-9a0c-1b2d3e4f5a6b")
	prefix := "orgs/6f1c7a34-5d2e-4f7b-9a0c-1b2d3e4f5a6b/apps/com.demo.app/"

	tests := []struct {
		name        string
		appID       string
		storagePath string
		want        string
	}{
		{"stored path", "com.demo.app", "/1.2.0.zip", prefix + "1.2.0.zip"},
		{"falls back to bundle name", "com.demo.app", "", prefix + "1.2.0.zip"},
		{"nested path", "com.demo.app", "builds/ios/1.2.0.zip", prefix + "builds/ios/1.2.0.zip"},
		{"dot segments inside the prefix", "com.demo.app", "builds/../1.2.0.zip", prefix + "1.2.0.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := OwnedBundle{
				Bundle:   Bundle{AppID: tt.appID, Name: "1.2.0", StoragePath: tt.storagePath},
				OwnerOrg: org,
			}
			key, err := b.ObjectKey()
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestOwnedBundle_ObjectKey_StaysUnderItsApp(t *testing.T) {
	org := uuid.New()
	tests := []struct {
		name        string
		appID       string
		storagePath string
	}{
		{"climbs to another org", "com.demo.app", "../../../other-org/apps/x/1.0.0.zip"},
		{"climbs to a sibling app", "com.demo.app", "../com.other.app/1.0.0.zip"},
		{"climbs after a segment", "com.demo.app", "builds/../../x.zip"},
		{"parent only", "com.demo.app", ".."},
		{"app directory itself", "com.demo.app", "./"},
		{"app id with a slash", "com.demo/../x", "1.0.0.zip"},
		{"dot app id", "..", "1.0.0.zip"},
		{"empty app id", "", "1.0.0.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := OwnedBundle{
				Bundle:   Bundle{AppID: tt.appID, Name: "1.0.0", StoragePath: tt.storagePath},
				OwnerOrg: org,
			}
			key, err := b.ObjectKey()
			assert.Empty(t, key)
			assert.ErrorIs(t, err, ErrUnsafeObjectKey)
			assert.Equal(t, shared.KindIntegrity, shared.KindOf(err))
		})
	}
}
