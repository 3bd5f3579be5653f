package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hirafetch/pkg/auth"
	"hirafetch/pkg/ui"
)

var setKeyGuide bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage data.go.kr service keys",
	Long: `Manage stored data.go.kr service keys.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - HIRAFETCH_SERVICE_KEY environment variable (read only)`,
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key [name]",
	Short: "Store a service key",
	Long: `Store a data.go.kr service key. The key is read without echo from the
terminal, or from standard input when it is not a terminal.`,
	Example: `  hirafetch auth set-key
  hirafetch auth set-key office --auth-mode query
  echo "$KEY" | hirafetch auth set-key ci`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetKey,
}

var showKeyCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored service keys (masked)",
	Args:  cobra.NoArgs,
	RunE:  runShowKeys,
}

var deleteKeyCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove a stored service key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDeleteKey,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(showKeyCmd)
	authCmd.AddCommand(deleteKeyCmd)

	setKeyCmd.Flags().BoolVar(&setKeyGuide, "guide", false, "print how to obtain a key before prompting")
}

func runSetKey(cmd *cobra.Command, args []string) error {
	name := auth.DefaultName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if setKeyGuide {
		auth.ShowServiceKeyGuide(os.Stdout)
	}

	key, err := readServiceKey()
	if err != nil {
		return err
	}
	if key == "" {
		return errors.New("service key is required")
	}

	// --auth-mode is global; the key's form decides when it is omitted
	mode := strings.ToLower(authMode)
	if mode == "" {
		mode = auth.GuessAuthMode(key)
	}
	if mode != "url" && mode != "query" {
		return fmt.Errorf("auth mode must be url or query, got %q", authMode)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Store(&auth.Credential{Name: name, ServiceKey: key, AuthMode: mode}); err != nil {
		return fmt.Errorf("failed to store service key: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Service key %q stored", name))
	ui.PrintInfo("Key", auth.MaskKey(key))
	ui.PrintInfo("Auth mode", mode)
	return nil
}

// readServiceKey prompts without echo on a terminal and reads a line otherwise
func readServiceKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Service key: ")
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read service key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read service key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runShowKeys(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintWarning("No service keys stored; run 'hirafetch auth set-key'")
		return nil
	}

	for _, cred := range creds {
		c := auth.Sanitize(cred)
		ui.PrintInfo(c.Name, fmt.Sprintf("%s  mode=%s  updated=%s",
			c.ServiceKey, c.AuthMode, c.LastModified.Format("2006-01-02 15:04")))
	}
	return nil
}

func runDeleteKey(cmd *cobra.Command, args []string) error {
	name := auth.DefaultName
	if len(args) > 0 {
		name = args[0]
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Service key %q removed", name))
	return nil
}
