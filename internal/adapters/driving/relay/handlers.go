package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/logger"
)

// envelope mirrors the message shape browser front-ends already expect.
type envelope struct {
	Success        bool   `json:"success"`
	Data           any    `json:"data,omitempty"`
	Error          string `json:"error,omitempty"`
	ReauthRequired bool   `json:"reauthRequired,omitempty"`
}

// chatBody is the chat request accepted on the relay endpoint.
type chatBody struct {
	Query       string `json:"query"`
	ThreadID    string `json:"threadId"`
	SubjectLine string `json:"subjectLine"`
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	endpoint, err := domain.ParseEndpoint(chi.URLParam(r, "endpoint"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: unknown endpoint", domain.ErrInvalidInput))
		return
	}

	payload, err := decodeObject(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var reply *domain.Reply
	switch endpoint {
	case domain.EndpointChat:
		var body chatBody
		if err := remarshal(payload, &body); err != nil {
			writeError(w, err)
			return
		}
		reply, err = s.deps.Relay.Chat(r.Context(), domain.ChatRequest{
			Query:       body.Query,
			ThreadID:    body.ThreadID,
			SubjectLine: body.SubjectLine,
		})
	default:
		reply, err = s.deps.Relay.Send(r.Context(), domain.RelayRequest{Endpoint: endpoint, Payload: payload})
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: reply})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Sessions.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: status})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Sessions.Recover(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, domain.ErrNotImplemented)
		return
	}
	if _, err := s.deps.Auth.Connect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Disconnect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// decodeObject reads a JSON object body. An empty body is an empty object.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	payload := map[string]any{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: body must be a JSON object: %w", domain.ErrInvalidInput, err)
	}
	return payload, nil
}

func remarshal(in map[string]any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrReauthRequired), errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserDeclined):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrProtocolViolation), errors.Is(err, domain.ErrOAuthFailed):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(err, "relay request failed")
	}
	writeJSON(w, status, envelope{
		Success:        false,
		Error:          domain.UserMessage(err),
		ReauthRequired: errors.Is(err, domain.ErrReauthRequired),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("relay: encoding response: %v", err)
	}
}
