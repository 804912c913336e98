package storage

import (
	"context"
	"fmt"

	"github.com/otahub/backend/internal/domain/catalog"
)

// Registry dispatches signing to the signer of the bundle's storage provider
type Registry struct {
	signers map[catalog.StorageProvider]Signer
}

// NewRegistry serves r2 and s3 bundles with objects and external bundles with their own URL
func NewRegistry(objects Signer) *Registry {
	return &Registry{signers: map[catalog.StorageProvider]Signer{
		catalog.ProviderR2:       objects,
		catalog.ProviderS3:       objects,
		catalog.ProviderExternal: ExternalSigner{},
	}}
}

// SignDownload implements Signer
func (r *Registry) SignDownload(ctx context.Context, b catalog.OwnedBundle) (string, error) {
	s, ok := r.signers[b.StorageProvider]
	if !ok || s == nil {
		return "", fmt.Errorf("no signer for storage provider %q", b.StorageProvider)
	}
	return s.SignDownload(ctx, b)
}

var _ Signer = (*Registry)(nil)
