package store

import "github.com/otahub/backend/internal/domain/identity"

// Client is a per-request handle on the gateway bound to one credential scope
type Client struct {
	gw        *Gateway
	scope     Scope
	principal identity.Principal
}

// Scope returns the credential scope of the client
func (c *Client) Scope() Scope {
	return c.scope
}

// Principal returns the principal a user client acts for; zero for elevated clients
func (c *Client) Principal() identity.Principal {
	return c.principal
}

// Factory builds store clients. There is no default client: every caller asks for the
// scope it needs.
type Factory struct {
	gw *Gateway
}

// NewFactory creates a client factory over gw
func NewFactory(gw *Gateway) *Factory {
	return &Factory{gw: gw}
}

// ForPrincipal returns a least-privilege client acting for p
func (f *Factory) ForPrincipal(p identity.Principal) *Client {
	return &Client{gw: f.gw, scope: ScopeUser, principal: p}
}

// Elevated returns a service client. Only trusted server-side operations may use it.
func (f *Factory) Elevated() *Client {
	return &Client{gw: f.gw, scope: ScopeElevated}
}
