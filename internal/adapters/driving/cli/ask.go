package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Answers a single question using the indexed documents as context.
The answer cites the documents it is based on. Run 'askdrive sync'
first to build the index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if answerer == nil {
		return errors.New("answer service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	question := strings.Join(args, " ")

	result, err := answerer.Answer(ctx, question, answerTopK)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCorpus) {
			return errors.New("no documents indexed yet, run 'askdrive sync' first")
		}
		return err
	}

	cmd.Println(result.Text)
	printSources(cmd, result.Sources)
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.SourceRef) {
	if len(sources) == 0 {
		return
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	cmd.Printf("\nSources: %s\n", strings.Join(names, ", "))
}
