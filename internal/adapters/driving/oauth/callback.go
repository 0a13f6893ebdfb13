// Package oauth provides the loopback callback server and browser utilities
// for the interactive sign-in.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// CallbackPath is where the remote service redirects after sign-in.
const CallbackPath = "/callback"

// CallbackServer receives the redirect from the remote service.
// It captures the query parameters as they arrive; verifying them is the
// caller's job.
type CallbackServer struct {
	mu         sync.Mutex
	port       int
	resultChan chan *domain.CallbackResult
	errChan    chan error
	server     *http.Server
	listener   net.Listener
}

// NewCallbackServer creates a callback server.
// If port is 0, a random available port is chosen on Start.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:       port,
		resultChan: make(chan *domain.CallbackResult, 1),
		errChan:    make(chan error, 1),
	}
}

// Start listens on the loopback interface.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = srv

	// Store the actual port (important when port was 0)
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	go func() {
		// Stop may clear s.server before this runs.
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	return nil
}

// handleCallback records the first redirect and answers with a status page.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := &domain.CallbackResult{
		JWTToken:         q.Get("jwt_token"),
		UserID:           q.Get("user_id"),
		RefreshToken:     q.Get("refresh_token"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		ErrorCode:        q.Get("error_code"),
	}

	select {
	case s.resultChan <- result:
	default:
		// Only the first redirect counts.
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := result.ProviderError(); err != nil {
		desc := result.ErrorDescription
		if desc == "" {
			desc = domain.UserMessage(err)
		}
		_, _ = fmt.Fprint(w, resultHTML("Sign-in failed", desc))
		return
	}
	_, _ = fmt.Fprint(w, resultHTML("Signed in", "You can close this window and return to saai."))
}

// Wait blocks until a redirect arrives, the server fails, or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context) (*domain.CallbackResult, error) {
	select {
	case result := <-s.resultChan:
		return result, nil
	case err := <-s.errChan:
		return nil, fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the callback server.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// ReturnURL returns the loopback URL the remote service should redirect to.
func (s *CallbackServer) ReturnURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", s.Port(), CallbackPath)
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>saai - %[1]s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #F6F7FB;
        }
        .card {
            text-align: center;
            background: white;
            padding: 40px 56px;
            border-radius: 12px;
            box-shadow: 0 4px 24px rgba(0,0,0,0.08);
        }
        h1 { color: #1F2937; margin: 0 0 8px 0; font-size: 22px; }
        p { color: #6B7280; margin: 0; font-size: 15px; }
    </style>
</head>
<body>
    <div class="card">
        <h1>%[1]s</h1>
        <p>%[2]s</p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
