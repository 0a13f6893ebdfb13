// Package chat provides the conversation view: a scrolling transcript above
// a question input.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/saai/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
)

// Role tells who wrote a transcript entry.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
	RoleError
)

// Entry is one transcript line.
type Entry struct {
	Role     Role
	Text     string
	Fallback bool
}

// inputHeight is the bordered input plus the transcript border.
const inputHeight = 4

// View is the chat view.
type View struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	relay    driving.RelayService
	ctx      context.Context
	input    *input.QuestionInput
	viewport viewport.Model
	entries  []Entry
	pending  bool
	width    int
	height   int
}

// NewView creates a chat view backed by the relay service.
func NewView(s *styles.Styles, km *keymap.KeyMap, relay driving.RelayService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:   s,
		keymap:   km,
		relay:    relay,
		ctx:      context.Background(),
		input:    input.NewQuestionInput(s),
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
	v.refresh()
	return v
}

// WithContext sets the context used for relay calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles key presses and relay replies.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case messages.ReplyReceived:
		v.pending = false
		if msg.Err != nil {
			v.entries = append(v.entries, Entry{Role: RoleError, Text: domain.UserMessage(msg.Err)})
		} else if msg.Reply != nil {
			v.entries = append(v.entries, Entry{Role: RoleAssistant, Text: msg.Reply.Text, Fallback: msg.Reply.Fallback})
		}
		v.refresh()
		return v, v.input.Focus()
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Send):
		return v, v.submit()

	case keymap.Matches(key, v.keymap.Clear):
		v.entries = nil
		v.refresh()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp):
		v.viewport.HalfViewUp()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollDown):
		v.viewport.HalfViewDown()
		return v, nil
	}

	if v.pending {
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question. Only one question is in flight at a time.
func (v *View) submit() tea.Cmd {
	query := v.input.Value()
	if v.pending || query == "" {
		return nil
	}

	v.pending = true
	v.entries = append(v.entries, Entry{Role: RoleUser, Text: query})
	v.input.Reset()
	v.input.Blur()
	v.refresh()

	relay, ctx := v.relay, v.ctx
	return func() tea.Msg {
		reply, err := relay.Chat(ctx, domain.ChatRequest{Query: query})
		return messages.ReplyReceived{Query: query, Reply: reply, Err: err}
	}
}

// refresh re-renders the transcript and scrolls to the newest entry.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 {
		return v.styles.Muted.Render("Ask about your inbox, or summarise a thread.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 10))
	blocks := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		var label, body string
		switch e.Role {
		case RoleUser:
			label = v.styles.UserLabel.Render("you")
			body = v.styles.Normal.Render(e.Text)
		case RoleAssistant:
			label = v.styles.AssistantLabel.Render("saai")
			body = v.styles.Normal.Render(e.Text)
			if e.Fallback {
				body = v.styles.Fallback.Render(e.Text)
			}
		case RoleError:
			label = v.styles.Error.Render("error")
			body = v.styles.Error.Render(e.Text)
		}
		blocks = append(blocks, wrap.Render(label+"\n"+body))
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the transcript above the input.
func (v *View) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Transcript.Render(v.viewport.View()),
		v.input.View(),
	)
}

// SetDimensions sizes the transcript and input.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-inputHeight, 1)
	v.input.SetWidth(width)
	v.refresh()
}

// Pending reports whether a question is waiting for its reply.
func (v *View) Pending() bool {
	return v.pending
}

// Entries returns the transcript.
func (v *View) Entries() []Entry {
	return v.entries
}
