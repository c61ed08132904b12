// Package cli implements the askdoc command line on top of the driving ports.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdoc/internal/core/ports/driving"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// version is set by Execute from build information.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
	ownerFlag string
)

// Services used by the commands. They are populated by the bootstrap
// function before a command runs.
var (
	documentService  driving.DocumentService
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
	settingsService  driving.SettingsService
)

// Options carries the global flags to the bootstrap function.
type Options struct {
	// ConfigDir overrides ~/.askdoc.
	ConfigDir string

	// Verbose enables debug logging.
	Verbose bool

	// SettingsOnly asks for the settings service alone. Storage and AI
	// providers are not touched, so a broken configuration can be fixed.
	SettingsOnly bool
}

// Services is the set of driving ports built by a bootstrap function.
type Services struct {
	Document  driving.DocumentService
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Settings  driving.SettingsService

	// Close releases stores and provider clients. May be nil.
	Close func()
}

// BootstrapFunc builds the services for a command invocation.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc
	closeFn   func()
)

var rootCmd = &cobra.Command{
	Use:   "askdoc",
	Short: "Ask questions about your documents",
	Long: `askdoc answers questions about uploaded documents.

Documents are split into chunks, embedded, and stored. A question is
embedded the same way, matched against the chunks of one document, and
the best matches are handed to a language model as context.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.askdoc)")
	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "acting user (default user.name from config)")
}

// Execute runs the root command. Cancelling ctx aborts the running command.
func Execute(ctx context.Context, v string, fn BootstrapFunc) error {
	if v != "" {
		version = v
	}
	bootstrap = fn
	err := rootCmd.ExecuteContext(ctx)
	// Post-run hooks are skipped when a command fails.
	_ = teardownServices(rootCmd, nil)
	return err
}

func setupServices(cmd *cobra.Command, _ []string) error {
	return initServices(cmd, false)
}

func setupSettingsOnly(cmd *cobra.Command, _ []string) error {
	return initServices(cmd, true)
}

func initServices(cmd *cobra.Command, settingsOnly bool) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil {
		return nil
	}

	svc, err := bootstrap(cmd.Context(), Options{
		ConfigDir:    configDir,
		Verbose:      verbose,
		SettingsOnly: settingsOnly,
	})
	if err != nil {
		return err
	}
	documentService = svc.Document
	ingestService = svc.Ingest
	retrievalService = svc.Retrieval
	settingsService = svc.Settings
	closeFn = svc.Close
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if closeFn != nil {
		closeFn()
		closeFn = nil
	}
	logger.Sync()
	return nil
}

// resolveOwner returns --owner when given, otherwise user.name from config.
func resolveOwner() string {
	if ownerFlag != "" {
		return ownerFlag
	}
	if settingsService == nil {
		return ""
	}
	settings, err := settingsService.Get()
	if err != nil {
		return ""
	}
	return settings.User
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
