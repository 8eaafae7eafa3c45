package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List tracked documents and their ingestion state",
	RunE:  runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if corpusSyncer == nil {
		return errors.New("sync service not configured")
	}

	state := corpusSyncer.State()
	ids := state.IDs()
	if len(ids) == 0 {
		cmd.Println("No documents tracked yet. Run 'askdrive sync' first.")
		return nil
	}

	for _, id := range ids {
		st, ok := state.Get(id)
		if !ok {
			continue
		}
		switch st.Status {
		case domain.StatusFailed:
			cmd.Printf("%-10s %s (%s)\n", st.Status, id, st.Reason)
		default:
			cmd.Printf("%-10s %s\n", st.Status, id)
		}
	}
	return nil
}
