package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	errs "iggraph/pkg/errors"
	"iggraph/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iggraph",
	Short: "Crawl the Instagram follows graph around a seed account",
	Long: `iggraph builds the graph of who-follows-whom around a seed account.

Starting from the seed, it repeatedly expands the most central account that
has not been expanded yet, fetching the accounts it follows, until every
account within the configured centrality rank has been expanded. State is
persisted after every expansion, so a stopped crawl resumes where it left off.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if t := errs.TypeOf(err); t != errs.ErrorTypeUnknown {
			ui.PrintError(fmt.Sprintf("Error (%s)", t), err)
		} else {
			ui.PrintError("Error", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file, YAML or TOML (default: search ./config.yaml, ./iggraph.toml, ~/.config/iggraph)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`iggraph {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commonFlags returns the global flags in the shape config.Load expects
func commonFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}
