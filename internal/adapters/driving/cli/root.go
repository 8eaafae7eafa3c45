// Package cli implements the askdrive command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
	"github.com/custodia-labs/askdrive/internal/core/ports/driving"
	"github.com/custodia-labs/askdrive/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main before Execute. Tests swap these for mocks.
var (
	corpusSyncer driving.CorpusSyncer
	answerer     driving.Answerer
	uploader     driven.FileUploader
	watcher      driven.FileWatcher

	// saveSnapshot persists the index after a successful sync.
	// Nil when persistence is not configured.
	saveSnapshot func(ctx context.Context) error

	// answerTopK is how many chunks back each answer.
	answerTopK int
)

var (
	verboseFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "askdrive",
	Short: "Ask questions about documents in a Drive folder",
	Long: `askdrive indexes the documents in a Google Drive folder and answers
natural-language questions about them, citing the documents each
answer is based on.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config directory (default ~/.askdrive)")
}

// Services bundles everything the commands need.
type Services struct {
	Syncer       driving.CorpusSyncer
	Answerer     driving.Answerer
	Uploader     driven.FileUploader
	Watcher      driven.FileWatcher
	SaveSnapshot func(ctx context.Context) error
	TopK         int
}

// serviceBuilder builds the services once the --config flag is known.
// Set by main; nil in tests that inject services directly.
var (
	serviceBuilder func(configDir string) (Services, error)
	servicesReady  bool
)

// SetBuilder registers the wiring function main provides. The builder
// runs lazily on the first command that needs services, after flag
// parsing, so it sees the --config value.
func SetBuilder(f func(configDir string) (Services, error)) {
	serviceBuilder = f
	servicesReady = false
}

// Configure injects wired services directly.
func Configure(s Services) {
	corpusSyncer = s.Syncer
	answerer = s.Answerer
	uploader = s.Uploader
	watcher = s.Watcher
	saveSnapshot = s.SaveSnapshot
	answerTopK = s.TopK
	servicesReady = true
}

// ensureServices builds the services on first use.
func ensureServices() error {
	if servicesReady || serviceBuilder == nil {
		return nil
	}
	s, err := serviceBuilder(configFlag)
	if err != nil {
		return err
	}
	Configure(s)
	return nil
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
