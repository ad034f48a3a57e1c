package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/qaplatform/qaglue/internal/config"
	"github.com/qaplatform/qaglue/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
   ┌─┐┌─┐┌─┐┬  ┬ ┬┌─┐
   │─┼┤├─┤│ ┬│  │ │├┤
   └─┘└┴ ┴└─┘┴─┘└─┘└─┘
`

func main() {
	if err := execute(newRootCmd()); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// execute runs cmd. Usage errors reported by cobra become Q150.
func execute(cmd *cobra.Command) error {
	if err := cmd.Execute(); err != nil {
		return errors.FromError(err, "Q150")
	}
	return nil
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "qaglue",
		Short: "Page glue for the Q&A platform",
		Long: `qaglue drives the interactive parts of Q&A pages from Go.

It includes a local development backend and tools to exercise
the vote endpoint and the content enhancer from the shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to qaglue.json or qaglue.yaml (default: search the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		serveCmd(g),
		voteCmd(g),
		enhanceCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig reads --config, or the working directory's config file, or
// the defaults.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.LoadOrDefault(".")
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printBanner prints the qaglue ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// cmdContext returns the command context, or Background when run outside
// Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
