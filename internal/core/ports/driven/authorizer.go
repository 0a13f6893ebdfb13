package driven

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// Authorizer runs the interactive part of the OAuth flow.
type Authorizer interface {
	// Begin prepares a listener for the redirect back to this process.
	Begin(ctx context.Context) (AuthorizationSession, error)
}

// AuthorizationSession is one pending interactive sign-in.
type AuthorizationSession interface {
	// ReturnURL is where the remote service should redirect to.
	ReturnURL() string

	// Await sends the user to authURL and blocks for the redirect.
	// A closed window or expired wait returns domain.ErrUserDeclined.
	Await(ctx context.Context, authURL string) (*domain.CallbackResult, error)

	// Close releases the listener.
	Close() error
}

// AuthURLBuilder builds the identity provider authorization URL.
type AuthURLBuilder interface {
	AuthCodeURL(start domain.OAuthStart) string
}
