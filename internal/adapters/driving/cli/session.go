package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/saai/internal/core/domain"
)

var (
	loginNoBrowser bool
	statusJSON     bool
	statusTasks    bool
)

// taskHistoryLimit is how many runs 'status --tasks' shows per task.
const taskHistoryLimit = 3

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your mail account",
	Long: `Sign in through the browser.

saai asks the service for a sign-in request, opens the consent page and
waits on a local port for the redirect. The session is stored only when the
redirect carries the same state value that was issued.

Use --no-browser on a machine without a desktop: the consent URL is printed
and can be opened anywhere that can reach this machine's loopback port.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the session now",
	Long: `Run the recovery chain now: refresh, then silent re-authentication,
then session extension. Stops at the first that succeeds.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "print the consent URL instead of opening a browser")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	statusCmd.Flags().BoolVar(&statusTasks, "tasks", false, "also show the background tasks and their recent runs")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	if authorizer != nil {
		// Without a terminal there is nobody to look at a browser either.
		authorizer.NoBrowser = loginNoBrowser || !term.IsTerminal(int(os.Stdout.Fd()))
		authorizer.Prompt = func(url string) {
			cmd.Println("Open this URL to sign in:")
			cmd.Println()
			cmd.Printf("  %s\n", url)
			cmd.Println()
		}
	}

	cmd.Println("Waiting for sign-in to complete...")
	session, err := authService.Connect(cmd.Context())
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", describe(err))
	}

	cmd.Printf("Signed in as %s (profile %s)\n", session.Identity.UserID, session.Profile)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}
	if err := sessionService.Disconnect(cmd.Context()); err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}
	cmd.Println("Signed out.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}
	status, err := sessionService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printStatus(cmd, status)
	if statusTasks {
		return printTasks(cmd)
	}
	return nil
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}
	if _, err := sessionService.Recover(cmd.Context()); err != nil {
		return fmt.Errorf("refresh failed: %w", describe(err))
	}

	status, err := sessionService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	cmd.Println("Session refreshed.")
	printStatus(cmd, status)
	return nil
}

func printStatus(cmd *cobra.Command, s *domain.SessionStatus) {
	cmd.Printf("Profile:      %s\n", s.Profile)
	if !s.SignedIn {
		cmd.Println("Signed in:    no")
		if s.SessionID != "" {
			cmd.Printf("Session ID:   %s\n", s.SessionID)
		}
		cmd.Println()
		cmd.Println("Run 'saai login' to sign in.")
		return
	}

	cmd.Println("Signed in:    yes")
	cmd.Printf("User ID:      %s\n", s.UserID)
	cmd.Printf("Session ID:   %s\n", s.SessionID)
	cmd.Printf("State:        %s\n", s.State)
	cmd.Printf("Token usable: %s\n", yesNo(s.TokenUsable))
	if !s.TokenExpiresAt.IsZero() {
		cmd.Printf("Expires:      %s\n", formatTime(s.TokenExpiresAt))
	}
	if !s.IssuedAt.IsZero() {
		cmd.Printf("Issued:       %s\n", formatTime(s.IssuedAt))
	}
	cmd.Printf("Refreshes:    %d\n", s.RefreshCount)
	if s.IsTemporaryExtension {
		cmd.Println("Temporary:    yes (extended session, sign in again soon)")
	}
	if !s.LastHeartbeat.IsZero() {
		cmd.Printf("Heartbeat:    %s\n", formatTime(s.LastHeartbeat))
	}
}

func printTasks(cmd *cobra.Command) error {
	cmd.Println()
	if scheduler == nil {
		cmd.Println("Background tasks are not available.")
		return nil
	}
	tasks, err := scheduler.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No background tasks yet, they are created when 'saai serve' starts.")
		return nil
	}

	for _, t := range tasks {
		state := "off"
		if t.Enabled {
			state = "every " + t.Interval.String()
		}
		cmd.Printf("%s (%s)\n", t.Name, state)
		if t.LastError != "" {
			cmd.Printf("  last error: %s\n", t.LastError)
		}

		runs, err := scheduler.History(cmd.Context(), t.ID, taskHistoryLimit)
		if err != nil {
			return fmt.Errorf("reading history of %s: %w", t.ID, err)
		}
		for _, r := range runs {
			outcome := r.Detail
			if !r.Success {
				outcome = "failed: " + r.Error
			}
			cmd.Printf("  %s  %s\n", formatTime(r.StartedAt), outcome)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
