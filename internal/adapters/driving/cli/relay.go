package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/saai/internal/core/domain"
)

var (
	chatThread  string
	chatSubject string
	chatJSON    bool
	taskJSON    bool
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the mail assistant",
	Long: `Ask the mail assistant about your inbox.

With a question argument the answer is printed and saai exits. Without one,
saai reads questions line by line from an interactive terminal until 'exit',
or reads a single question from piped input.

Examples:
  saai chat "anything urgent today?"
  saai chat --thread 18c2f0 --subject "Q3 planning" "summarise this"
  echo "who wrote to me yesterday?" | saai chat`,
	RunE: runChat,
}

var taskCmd = &cobra.Command{
	Use:   "task [json]",
	Short: "Send a request to the task assistant",
	Long: `Send a JSON object to the task-management assistant. The object is
read from the argument or from standard input; your user id is added.

Example:
  saai task '{"action":"list","status":"open"}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTask,
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", "", "mail thread to summarise")
	chatCmd.Flags().StringVar(&chatSubject, "subject", "", "subject of the thread")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output the reply as JSON")
	taskCmd.Flags().BoolVar(&taskJSON, "json", false, "output the reply as JSON")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(taskCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if relayService == nil {
		return errors.New("relay service not configured")
	}

	if len(args) > 0 {
		return ask(cmd, strings.Join(args, " "))
	}
	if stdinIsTerminal() {
		return chatREPL(cmd)
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading question: %w", err)
	}
	return ask(cmd, string(data))
}

func ask(cmd *cobra.Command, question string) error {
	question = strings.TrimSpace(question)
	if question == "" && chatThread == "" {
		return errors.New("question is empty")
	}

	reply, err := relayService.Chat(cmd.Context(), domain.ChatRequest{
		Query:       question,
		ThreadID:    chatThread,
		SubjectLine: chatSubject,
	})
	if err != nil {
		return describe(err)
	}
	return printReply(cmd, reply, chatJSON)
}

// chatREPL reads one question per line. Errors are printed and the loop goes on.
func chatREPL(cmd *cobra.Command) error {
	cmd.Println("Ask about your inbox. Type 'exit' to leave.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := relayService.Chat(cmd.Context(), domain.ChatRequest{Query: line})
		if err != nil {
			cmd.PrintErrln("Error:", describe(err))
			if errors.Is(err, domain.ErrReauthRequired) {
				return describe(err)
			}
			continue
		}
		if err := printReply(cmd, reply, false); err != nil {
			return err
		}
	}
}

func runTask(cmd *cobra.Command, args []string) error {
	if relayService == nil {
		return errors.New("relay service not configured")
	}

	var raw []byte
	if len(args) == 1 {
		raw = []byte(args[0])
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}
		raw = data
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return errors.New("payload must be a JSON object")
	}

	reply, err := relayService.Task(cmd.Context(), payload)
	if err != nil {
		return describe(err)
	}
	return printReply(cmd, reply, taskJSON)
}

func printReply(cmd *cobra.Command, reply *domain.Reply, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reply: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(reply.Text)
	if reply.Fallback {
		cmd.PrintErrln("(the assistant is unreachable, this is a canned reply)")
	}
	return nil
}
