// Package oauth builds identity-provider authorization URLs.
package oauth

import (
	"sync"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
)

// Ensure URLBuilder implements the interface.
var _ driven.AuthURLBuilder = (*URLBuilder)(nil)

// URLBuilder builds the consent URL for the PKCE parameters issued by the
// remote service. The provider redirects to the remote callback, which
// exchanges the code and then redirects to this process.
type URLBuilder struct {
	mu     sync.RWMutex
	config oauth2.Config
}

// NewURLBuilder creates a builder from the identity-provider settings.
func NewURLBuilder(settings domain.OAuthSettings) *URLBuilder {
	b := &URLBuilder{}
	b.Configure(settings)
	return b
}

// Configure replaces the provider settings.
func (b *URLBuilder) Configure(settings domain.OAuthSettings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = oauth2.Config{
		ClientID:    settings.ClientID,
		RedirectURL: settings.RedirectURL,
		Scopes:      append([]string(nil), settings.Scopes...),
		Endpoint: oauth2.Endpoint{
			AuthURL: settings.AuthURL,
		},
	}
}

// AuthCodeURL returns the URL that asks for offline access with forced consent.
func (b *URLBuilder) AuthCodeURL(start domain.OAuthStart) string {
	b.mu.RLock()
	cfg := b.config
	b.mu.RUnlock()

	return cfg.AuthCodeURL(start.State,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("code_challenge", start.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", start.Method()),
	)
}
