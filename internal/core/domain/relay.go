package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Endpoint names a downstream business webhook.
type Endpoint string

// Known business endpoints.
const (
	EndpointChat Endpoint = "chat"
	EndpointTask Endpoint = "task"
)

// IsValid reports whether e is a known endpoint.
func (e Endpoint) IsValid() bool {
	return e == EndpointChat || e == EndpointTask
}

// ParseEndpoint converts a string to an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	e := Endpoint(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", ErrInvalidInput
	}
	return e, nil
}

// ChatContext is sent with every chat request.
const ChatContext = "GmailChat"

// ActionSummarizeThread asks the chat webhook for a thread summary.
const ActionSummarizeThread = "summarize_thread"

// ChatRequest is a question for the assistant, optionally about a thread.
type ChatRequest struct {
	Query       string
	ThreadID    string
	SubjectLine string
}

// Payload builds the chat webhook body for userID.
func (r ChatRequest) Payload(userID string) map[string]any {
	p := map[string]any{
		"query":   r.Query,
		"userId":  userID,
		"context": ChatContext,
	}
	if r.ThreadID != "" {
		p["action"] = ActionSummarizeThread
		p["threadId"] = r.ThreadID
		if r.SubjectLine != "" {
			p["subjectLine"] = r.SubjectLine
		}
	}
	return p
}

// RelayRequest is one authenticated call to a business endpoint.
type RelayRequest struct {
	Endpoint Endpoint
	Payload  map[string]any
}

// WebhookResponse is a raw response from a business endpoint.
type WebhookResponse struct {
	Status int
	Body   []byte
}

// Reply is a normalized webhook answer.
type Reply struct {
	Text     string          `json:"text"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`

	// WebhookStatus is "unavailable" for fallback replies.
	WebhookStatus string `json:"webhookStatus,omitempty"`
}

// replyFields are checked in order for the display text.
var replyFields = []string{"message", "replyText", "reply", "response", "text", "content", "summary"}

// itemFields are joined when a reply field holds a list.
var itemFields = []string{"summary", "message", "text"}

// NormalizeReply turns any webhook body into a Reply.
// Accepted shapes: an object, a one-level array of objects (first item
// wins), a JSON document encoded as a string, or plain text.
func NormalizeReply(raw []byte) Reply {
	trimmed := bytes.TrimSpace(raw)
	reply := Reply{}
	if len(trimmed) == 0 {
		return reply
	}
	if json.Valid(trimmed) {
		reply.Raw = json.RawMessage(trimmed)
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		reply.Text = string(trimmed)
		return reply
	}

	v = unwrapReply(v)

	switch t := v.(type) {
	case string:
		reply.Text = t
	case map[string]any:
		reply.Text = pickText(t, true)
		if fb, ok := t["fallback"].(bool); ok {
			reply.Fallback = fb
		}
		if ws, ok := t["webhookStatus"].(string); ok {
			reply.WebhookStatus = ws
		}
		if reply.Text == "" {
			reply.Text = string(trimmed)
		}
	default:
		reply.Text = string(trimmed)
	}
	return reply
}

// unwrapReply strips one array level and one level of string-encoded JSON.
func unwrapReply(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return ""
		}
		v = arr[0]
	}
	if s, ok := v.(string); ok {
		st := strings.TrimSpace(s)
		if strings.HasPrefix(st, "{") || strings.HasPrefix(st, "[") {
			var inner any
			if err := json.Unmarshal([]byte(st), &inner); err == nil {
				if arr, ok := inner.([]any); ok && len(arr) > 0 {
					return arr[0]
				}
				return inner
			}
		}
	}
	return v
}

func pickText(m map[string]any, descend bool) string {
	for _, key := range replyFields {
		switch val := m[key].(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return val
			}
		case map[string]any:
			if descend {
				if s := pickText(val, false); s != "" {
					return s
				}
			}
		case []any:
			if s := joinItems(val); s != "" {
				return s
			}
		}
	}
	return ""
}

func joinItems(items []any) string {
	var parts []string
	for _, item := range items {
		switch it := item.(type) {
		case string:
			if it != "" {
				parts = append(parts, it)
			}
		case map[string]any:
			for _, key := range itemFields {
				if s, ok := it[key].(string); ok && s != "" {
					parts = append(parts, s)
					break
				}
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
