package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/logging"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	getenv     func(string) string
	configPath string
	verbose    bool
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: getenv}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabula",
		Short: "Browse, query and edit nested JSON documents as tables",
		Long: `tabula loads the documents its editors describe (JSON and text files,
HTTP APIs, SQL queries), scopes into them and shows them as tables that
can be searched, filtered, sorted, paginated and exported as CSV.

Config resolution:
  1. --config flag
  2. TABULA_CONFIG environment variable
  3. ./tabula.yaml
  4. ~/.config/tabula/tabula.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		a.serveCmd(),
		a.viewCmd(),
		a.exportCmd(),
		a.shellCmd(),
		a.versionCmd(),
	)
	return root
}

// loadConfig reads and validates the configuration, reporting warnings.
func (a *app) loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadWithPath(a.configPath, a.getenv)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, path, nil
}

// logger builds the configured logger. Commands that print results keep
// their stdout clean, so logs there always go to stderr.
func (a *app) logger(cfg *config.Config) (*zap.Logger, func() error, error) {
	lc := cfg.Logging
	if lc.Output == "stdout" {
		lc.Output = "stderr"
	}
	return logging.New(lc, a.stdout, a.stderr)
}

func (a *app) warn(cfg *config.Config) {
	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(a.stderr, "warning: %s\n", warning)
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "tabula version %s (%s)\n", Version, Commit)
			return nil
		},
	}
}
