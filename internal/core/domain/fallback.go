package domain

import (
	"fmt"
	"strings"
)

// WebhookUnavailable marks a reply produced locally because the webhook could not be reached.
const WebhookUnavailable = "unavailable"

// fallbackKeywords is scanned in order; the first keyword contained in the query wins.
var fallbackKeywords = []struct {
	keyword string
	reply   string
}{
	{"hello", "Hi there! I'm your mail assistant. How can I help you today?"},
	{"help", "I can help you with:\n• Summarizing your inbox\n• Finding important emails\n" +
		"• Managing your tasks\n• Answering questions about your emails\n" +
		"• Summarizing specific email threads (open the thread first)"},
	{"summarize", "I'd be happy to summarize your inbox, but the assistant service is unavailable right now."},
	{"inbox", "I can help with your inbox once the assistant service is reachable again."},
	{"email", "I'm here to help with your emails. The assistant service is unavailable right now."},
	{"thread", "To summarize a specific email thread, open the thread first, then ask me to summarize it."},
}

// FallbackReply builds the canned answer used when a business webhook is unreachable.
func FallbackReply(req RelayRequest) Reply {
	reply := Reply{Fallback: true, WebhookStatus: WebhookUnavailable}

	if req.Endpoint != EndpointChat {
		reply.Text = "Service temporarily unavailable. Please try again later."
		return reply
	}

	query, _ := req.Payload["query"].(string)
	if query == "" {
		query = "Hello"
	}

	if action, _ := req.Payload["action"].(string); action == ActionSummarizeThread {
		threadID, _ := req.Payload["threadId"].(string)
		subject := ""
		if s, _ := req.Payload["subjectLine"].(string); s != "" {
			subject = fmt.Sprintf(" (Subject: %q)", s)
		}
		reply.Text = fmt.Sprintf("I can see you want a summary of thread %s%s, "+
			"but the assistant service is unavailable so I cannot read it. Please try again later.",
			threadID, subject)
		return reply
	}

	lower := strings.ToLower(query)
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw.keyword) {
			reply.Text = kw.reply
			return reply
		}
	}

	reply.Text = fmt.Sprintf("I understand you're asking about %q. "+
		"The assistant service is unavailable right now, please try again later.", query)
	return reply
}
