package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a document to the configured folder",
	Long: `Uploads a local file into the configured folder so the next sync
picks it up. Only pdf, docx and txt files can be indexed.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if uploader == nil {
		return errors.New("the configured provider does not support uploads")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := args[0]
	name := filepath.Base(path)
	if domain.FormatFromName(name) == "" {
		cmd.PrintErrf("warning: %q is not an indexable format, it will be stored but not answered from\n", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	id, err := uploader.Upload(ctx, name, data)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded %s (id %s).\n", name, id)
	return nil
}
