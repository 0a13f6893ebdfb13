package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/logger"
)

// Ensure the authorizer implements the interfaces.
var (
	_ driven.Authorizer           = (*BrowserAuthorizer)(nil)
	_ driven.AuthorizationSession = (*pendingAuthorization)(nil)
)

// BrowserAuthorizer sends the user to the consent page in their browser
// and waits on a loopback listener for the redirect.
type BrowserAuthorizer struct {
	// Port is the loopback port, 0 for a random one.
	Port int

	// Timeout bounds the wait for the redirect. Zero waits until ctx is done.
	Timeout time.Duration

	// Open launches the browser. Defaults to OpenBrowser.
	Open func(url string) error

	// Prompt shows the URL when the browser is skipped or fails to open.
	Prompt func(url string)

	// NoBrowser skips Open and only calls Prompt.
	NoBrowser bool
}

// NewBrowserAuthorizer creates an authorizer from the OAuth settings.
func NewBrowserAuthorizer(settings domain.OAuthSettings) *BrowserAuthorizer {
	return &BrowserAuthorizer{
		Port:    settings.CallbackPort,
		Timeout: settings.Timeout,
		Open:    OpenBrowser,
	}
}

// Begin starts the loopback listener.
func (a *BrowserAuthorizer) Begin(_ context.Context) (driven.AuthorizationSession, error) {
	server := NewCallbackServer(a.Port)
	if err := server.Start(); err != nil {
		return nil, err
	}
	logger.Debug("oauth: callback listener on %s", server.ReturnURL())
	return &pendingAuthorization{authorizer: a, server: server}, nil
}

type pendingAuthorization struct {
	authorizer *BrowserAuthorizer
	server     *CallbackServer
}

func (p *pendingAuthorization) ReturnURL() string {
	return p.server.ReturnURL()
}

// Await opens the consent page and blocks for the redirect.
// Running out of time counts as the user walking away.
func (p *pendingAuthorization) Await(ctx context.Context, authURL string) (*domain.CallbackResult, error) {
	a := p.authorizer
	p.present(authURL)

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	result, err := p.server.Wait(ctx)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("%w: no redirect received: %w", domain.ErrUserDeclined, err)
	}
	return nil, err
}

func (p *pendingAuthorization) present(authURL string) {
	a := p.authorizer
	if !a.NoBrowser && a.Open != nil {
		err := a.Open(authURL)
		if err == nil {
			return
		}
		logger.Warn("oauth: could not open browser: %v", err)
	}
	if a.Prompt != nil {
		a.Prompt(authURL)
	}
}

func (p *pendingAuthorization) Close() error {
	return p.server.Stop()
}
