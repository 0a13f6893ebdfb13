// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/saai/internal/core/domain"
)

// QuestionSent is emitted when the user submits a question.
type QuestionSent struct {
	Query string
}

// ReplyReceived carries the assistant's answer back to the model.
type ReplyReceived struct {
	Query string
	Reply *domain.Reply
	Err   error
}

// StatusLoaded carries the session status.
type StatusLoaded struct {
	Status *domain.SessionStatus
	Err    error
}

// SessionRecovered signals a forced recovery finished.
type SessionRecovered struct {
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
