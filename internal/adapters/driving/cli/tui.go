package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/saai/internal/adapters/driving/tui"
	"github.com/custodia-labs/saai/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal chat with the mail assistant.

The status line shows whether the session is usable. The heartbeat runs in
the background while the chat is open.

Controls:
  enter      - Send the question
  pgup/pgdn  - Scroll the transcript
  ctrl+l     - Clear the transcript
  ctrl+r     - Refresh the session now
  esc/ctrl+c - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if relayService == nil || sessionService == nil {
		return errors.New("relay service not configured")
	}

	// The TUI owns the screen; log lines would tear it.
	logger.SetOutput(io.Discard)

	stopScheduler := startScheduler(cmd.Context())
	defer stopScheduler()

	app, err := tui.NewApp(tui.NewPorts(relayService, sessionService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
