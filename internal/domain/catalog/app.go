// Package catalog holds the apps and the versioned bundles they ship.
package catalog

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/shared"
)

// App belongs to exactly one organization
type App struct {
	AppID     string
	OwnerOrg  uuid.UUID
	Name      string
	CreatedAt time.Time
}

// StorageProvider names where a bundle's artifact lives
type StorageProvider string

const (
	ProviderR2       StorageProvider = "r2"
	ProviderS3       StorageProvider = "s3"
	ProviderExternal StorageProvider = "external"
)

// ParseStorageProvider validates a provider name from a request
func ParseStorageProvider(s string) (StorageProvider, error) {
	switch p := StorageProvider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderR2, ProviderS3, ProviderExternal:
		return p, nil
	default:
		return "", shared.NewDomainError(shared.KindValidation, "INVALID_STORAGE_PROVIDER", "unknown storage provider: "+s)
	}
}

// Bundle is a versioned build artifact of an app
type Bundle struct {
	ID              int64
	AppID           string
	Name            string
	StorageProvider StorageProvider
	StoragePath     string
	ExternalURL     string
	Size            int64
	Checksum        string
	Deleted         bool
	CreatedAt       time.Time
}

// OwnedBundle is a bundle together with the organization owning its app
type OwnedBundle struct {
	Bundle
	OwnerOrg uuid.UUID
}

// ErrUnsafeObjectKey is returned when a bundle's stored path would leave its app's prefix
var ErrUnsafeObjectKey = shared.NewDomainError(shared.KindIntegrity, "UNSAFE_OBJECT_KEY", "Bundle storage path leaves its app prefix")

// ObjectKey returns the object-storage key of the bundle, scoped under its owning org
// and app. Stored paths that climb out of that prefix are refused.
func (b OwnedBundle) ObjectKey() (string, error) {
	if b.AppID == "" || b.AppID == "." || b.AppID == ".." || strings.ContainsAny(b.AppID, `/\`) {
		return "", ErrUnsafeObjectKey.WithResource(b.AppID)
	}
	p := strings.TrimPrefix(b.StoragePath, "/")
	if p == "" {
		p = b.Name + ".zip"
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrUnsafeObjectKey.WithResource(b.StoragePath)
	}
	return path.Join("orgs", b.OwnerOrg.String(), "apps", b.AppID, p), nil
}
