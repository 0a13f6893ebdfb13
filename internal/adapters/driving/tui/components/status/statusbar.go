// Package status provides the session status bar for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/saai/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/saai/internal/core/domain"
)

// Activity is what the app is doing right now.
type Activity string

const (
	ActivityIdle       Activity = "idle"
	ActivityThinking   Activity = "thinking"
	ActivityRecovering Activity = "recovering"
)

// Bar shows the session summary, the current activity and key hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	status   *domain.SessionStatus
	activity Activity
	message  string
	spinner  string
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles:   s,
		keymap:   km,
		activity: ActivityIdle,
		width:    80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	inner := b.width - b.styles.StatusBar.GetHorizontalFrameSize()
	padding := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	switch b.activity {
	case ActivityThinking:
		return b.styles.Muted.Render(strings.TrimSpace(b.spinner + " Waiting for the assistant..."))
	case ActivityRecovering:
		return b.styles.Warning.Render(strings.TrimSpace(b.spinner + " Refreshing session..."))
	case ActivityIdle:
	}
	if b.message != "" {
		return b.styles.Error.Render(b.message)
	}
	return b.renderSession()
}

// renderSession summarises the session without tokens.
func (b *Bar) renderSession() string {
	st := b.status
	if st == nil {
		return b.styles.Muted.Render("Loading session...")
	}

	prefix := b.styles.Muted.Render("[" + st.Profile + "] ")
	switch {
	case !st.SignedIn:
		return prefix + b.styles.Error.Render("Signed out, run 'saai login'")
	case st.State == domain.StateAwaitingInteractiveAuth.String():
		return prefix + b.styles.Error.Render("Sign-in required, run 'saai login'")
	case st.IsTemporaryExtension:
		return prefix + b.styles.Warning.Render(fmt.Sprintf("Signed in as %s (temporary)", st.UserID))
	case !st.TokenUsable:
		return prefix + b.styles.Warning.Render(fmt.Sprintf("Signed in as %s (token expiring)", st.UserID))
	default:
		return prefix + b.styles.Success.Render(fmt.Sprintf("Signed in as %s", st.UserID))
	}
}

func (b *Bar) renderRight() string {
	bindings := b.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		hints = append(hints, hint(kb))
	}
	return b.styles.Help.Render(strings.Join(hints, " | "))
}

func hint(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("%s: %s", h.Key, h.Desc)
}

// SetStatus replaces the session summary.
func (b *Bar) SetStatus(status *domain.SessionStatus) {
	b.status = status
}

// Status returns the session summary.
func (b *Bar) Status() *domain.SessionStatus {
	return b.status
}

// SetActivity sets the current activity.
func (b *Bar) SetActivity(activity Activity) {
	b.activity = activity
}

// Activity returns the current activity.
func (b *Bar) Activity() Activity {
	return b.activity
}

// SetSpinner sets the spinner frame shown while busy.
func (b *Bar) SetSpinner(frame string) {
	b.spinner = frame
}

// SetMessage shows an error message in place of the session summary.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets activity and message.
func (b *Bar) Clear() {
	b.activity = ActivityIdle
	b.message = ""
}
