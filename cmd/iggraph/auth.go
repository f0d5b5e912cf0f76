package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"iggraph/pkg/auth"
	"iggraph/pkg/ui"
)

var skipGuide bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram session cookies",
	Long: `Manage the Instagram session cookies used by the crawler.

Credentials are stored in the system keychain when available, otherwise in an
AES-GCM encrypted file in the user configuration directory. IGGRAPH_SESSION_ID
and IGGRAPH_CSRF_TOKEN are read as a last resort.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store session cookies",
	Example: `  # Store cookies under the name "default"
  iggraph auth login

  # Store cookies for a second account
  iggraph auth login research`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove stored session cookies",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials with masked cookies",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&skipGuide, "no-guide", false, "do not print the cookie guide")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := "default"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)
	if !skipGuide {
		auth.WriteCookieGuide(ui.Out)
		fmt.Fprintln(ui.Out)
	}

	if existing, _ := manager.Retrieve(name); existing != nil && !existing.LastModified.IsZero() {
		fmt.Fprintf(ui.Out, "Credentials '%s' already exist. Replace them? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	sessionID, err := promptSecret(reader, "sessionid cookie value: ")
	if err != nil {
		return err
	}
	if len(sessionID) < 20 || !strings.Contains(sessionID, "%") {
		return errors.New("that does not look like a sessionid cookie; it is a long value containing %3A")
	}

	csrfToken, err := promptSecret(reader, "csrftoken cookie value: ")
	if err != nil {
		return err
	}
	if len(csrfToken) < 20 || len(csrfToken) > 64 {
		return errors.New("that does not look like a csrftoken cookie; it is about 32 characters long")
	}

	fmt.Fprint(ui.Out, "User agent (Enter for the default): ")
	userAgent, _ := reader.ReadString('\n')

	creds := &auth.Credentials{
		Name:      name,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := manager.Store(creds); err != nil {
		return err
	}

	masked := creds.Masked()
	ui.PrintSuccess("Credentials stored: " + name)
	ui.PrintInfo("Session ID", masked.SessionID)
	ui.PrintInfo("CSRF token", masked.CSRFToken)
	fmt.Fprintln(ui.Out, "\nStart a crawl with:")
	fmt.Fprintf(ui.Out, "  iggraph crawl <data-dir> -u <username> --account %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Credentials removed: " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager("")
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	list, err := manager.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ui.PrintInfo("No stored credentials", "use 'iggraph auth login' to add some")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, c := range list {
		m := c.Masked()
		modified := "environment"
		if !m.LastModified.IsZero() {
			modified = m.LastModified.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{m.Name, m.SessionID, m.CSRFToken, modified})
	}
	ui.PrintTable([]string{"NAME", "SESSION ID", "CSRF TOKEN", "MODIFIED"}, rows)
	return nil
}

// promptSecret reads a value without echo when stdin is a terminal
func promptSecret(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(ui.Out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}
