package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdrive/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question and answer session",
	Long: `Opens a terminal chat over the indexed documents. Each answer cites
its sources. Press ctrl-c or esc to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if answerer == nil {
		return errors.New("answer service not configured")
	}

	model := tui.New(answerer, answerTopK)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}
