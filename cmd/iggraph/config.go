package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"iggraph/pkg/config"
	"iggraph/pkg/ui"
)

var forceOverwrite bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage iggraph configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (IGGRAPH_*)
  - .env files (./.env, ~/.iggraph.env)
  - Configuration file (YAML, or TOML when the name ends in .toml)
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration, with every option, to a file.

The file is written as TOML when its name ends in .toml and as YAML otherwise.
Without a path, --config or ./config.yaml is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging every source. Session cookies are masked.`,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)

	initCmd.Flags().BoolVarP(&forceOverwrite, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil && !forceOverwrite {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Out, "\nNext steps:")
	fmt.Fprintln(ui.Out, "1. Store your session cookies with 'iggraph auth login'")
	fmt.Fprintln(ui.Out, "2. Adjust the pacing ranges if needed and run 'iggraph config validate'")
	fmt.Fprintln(ui.Out, "3. Start a crawl with 'iggraph crawl <data-dir> -u <username>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commonFlags())
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found, defaults)"
	}
	fmt.Fprintln(ui.Out)
	ui.PrintInfo("Configuration file", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return fmt.Errorf("no configuration file found; specify one with --config")
	}
	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, commonFlags())
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.Instagram.SessionID == "" || cfg.Instagram.CSRFToken == "" {
		warnings = append(warnings, "no session cookies configured; stored credentials will be used")
	}
	if cfg.Instagram.RequestsPerMinute == 0 {
		warnings = append(warnings, "instagram.requests_per_minute is 0, requests are not capped")
	}
	if cfg.Sleep.BetweenAccounts.Maximum < 5 {
		warnings = append(warnings, "sleep.between_accounts below 5 seconds is likely to be rate limited")
	}
	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintBox("Summary", [][2]string{
		{"Rate limit retries", fmt.Sprintf("%d", cfg.RateLimitRetries)},
		{"Backoff", fmt.Sprintf("%g^n + %g seconds", cfg.ExponentialSleepBase, cfg.ExponentialSleepOffset)},
		{"Followed per account", fmt.Sprintf("%d (pages of %d)", cfg.MaxFollowedScraped, cfg.FollowsPageSize)},
		{"Accounts per batch", fmt.Sprintf("%d-%d", cfg.AccountsPerBatch.Minimum, cfg.AccountsPerBatch.Maximum)},
		{"Sleep between accounts", fmt.Sprintf("%g-%gs", cfg.Sleep.BetweenAccounts.Minimum, cfg.Sleep.BetweenAccounts.Maximum)},
		{"Sleep between batches", fmt.Sprintf("%g-%gs", cfg.Sleep.BetweenAccountBatches.Minimum, cfg.Sleep.BetweenAccountBatches.Maximum)},
		{"Log level", cfg.Logging.Level},
	})
	return nil
}
