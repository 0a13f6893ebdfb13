package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/saai/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/saai/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/saai/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	chatView  *chat.View
	statusBar *status.Bar
	spinner   spinner.Model

	// recovering is set while a forced recover chain runs.
	recovering bool

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		chatView:  chat.NewView(s, km, ports.Relay),
		statusBar: status.NewBar(s, km),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Title)),
	}, nil
}

// WithContext sets the context for the app and its service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("saai"),
		a.chatView.Init(),
		a.loadStatus(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		switch {
		case keymap.Matches(key, a.keymap.Quit):
			return a, tea.Quit
		case keymap.Matches(key, a.keymap.Recover):
			return a, a.recover()
		}

		wasPending := a.chatView.Pending()
		a.chatView, cmd = a.chatView.Update(msg)
		if !wasPending && a.chatView.Pending() {
			a.err = nil
			a.statusBar.SetMessage("")
			a.statusBar.SetActivity(status.ActivityThinking)
			return a, tea.Batch(cmd, a.spinner.Tick)
		}
		return a, cmd

	case messages.ReplyReceived:
		a.chatView, cmd = a.chatView.Update(msg)
		a.settle(msg.Err)
		// A reply may have rotated the credential.
		return a, tea.Batch(cmd, a.loadStatus())

	case messages.SessionRecovered:
		a.recovering = false
		a.settle(msg.Err)
		return a, a.loadStatus()

	case messages.StatusLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.statusBar.SetMessage(domain.UserMessage(msg.Err))
			return a, nil
		}
		a.statusBar.SetStatus(msg.Status)
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusBar.SetMessage(domain.UserMessage(msg.Err))
		return a, nil

	case messages.Quit:
		return a, tea.Quit

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		a.statusBar.SetSpinner(a.spinner.View())
		return a, cmd
	}

	a.chatView, cmd = a.chatView.Update(msg)
	return a, cmd
}

// settle returns the status bar to idle once nothing is in flight.
func (a *App) settle(err error) {
	if !a.busy() {
		a.statusBar.SetActivity(status.ActivityIdle)
	} else if a.recovering {
		a.statusBar.SetActivity(status.ActivityRecovering)
	}
	a.err = err
	a.statusBar.SetMessage(domain.UserMessage(err))
}

func (a *App) busy() bool {
	return a.recovering || a.chatView.Pending()
}

// recover forces the recovery chain. Presses while one runs are ignored.
func (a *App) recover() tea.Cmd {
	if a.recovering {
		return nil
	}
	a.recovering = true
	a.statusBar.SetMessage("")
	a.statusBar.SetActivity(status.ActivityRecovering)

	sessions, ctx := a.ports.Sessions, a.ctx
	return tea.Batch(func() tea.Msg {
		_, err := sessions.Recover(ctx)
		return messages.SessionRecovered{Err: err}
	}, a.spinner.Tick)
}

func (a *App) loadStatus() tea.Cmd {
	sessions, ctx := a.ports.Sessions, a.ctx
	return func() tea.Msg {
		st, err := sessions.Status(ctx)
		return messages.StatusLoaded{Status: st, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.chatView.View(),
		a.statusBar.View(),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// Recovering reports whether a forced recovery is running.
func (a *App) Recovering() bool {
	return a.recovering
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.statusBar.SetWidth(width)
	a.chatView.SetDimensions(width, height-1)
}
