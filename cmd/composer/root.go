package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-composer/internal/cli"
	"github.com/dpshade/prompt-composer/internal/config"
	"github.com/dpshade/prompt-composer/internal/store"
)

var (
	cfgFile      string
	outputFormat string
	verbose      bool

	// composer verbs share one lazily opened session
	session *cli.CLI
)

var rootCmd = &cobra.Command{
	Use:   "composer",
	Short: "Compose AI prompts from categorized, reusable snippets",
	Long: `Prompt Composer builds prompts from templates made of ordered snippets.

Snippets carry a category and text with {placeholders}. Filling a placeholder
updates every snippet of the template that uses it. Template types reuse the
category vocabulary of a master template.

Run "composer tui" for the interactive editor or "composer serve" for the HTTP API.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		session.SetFormat(outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.composer/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", cli.OutputTable, "output format: table or json",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show error details")

	session = cli.NewCLI(openSession, os.Stdout)
	rootCmd.AddCommand(session.Commands()...)
	rootCmd.AddCommand(versionCmd, serveCmd, tuiCmd)
}

// openSession opens the configured user's store for CLI verbs
func openSession(ctx context.Context) (*store.Store, error) {
	a, err := newApp(true)
	if err != nil {
		return nil, err
	}
	return a.openStore(ctx)
}

// shutdown flushes the CLI session and closes the backend
func shutdown() {
	session.Close()
	closeApp()
}

// loadConfig reads the configuration. Interactive commands log warnings only
// unless --verbose is set.
func loadConfig(interactive bool) (*config.Config, *logrus.Entry, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case verbose:
		cfg.Log.Level = "debug"
	case interactive:
		cfg.Log.Level = "warn"
	}
	return cfg, config.NewLogger(cfg.Log, os.Stderr), nil
}
