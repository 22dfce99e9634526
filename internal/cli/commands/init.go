package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hankatuur/englishpod/internal/cli/config"
	"github.com/Hankatuur/englishpod/internal/cli/userconfig"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var setDefault bool

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Point this directory at an EnglishPod server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], setDefault)
		},
	}

	cmd.Flags().BoolVar(&setDefault, "default", false, "Also save as the global default server")

	return cmd
}

func runInit(serverURL string, setDefault bool) error {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		serverURL = "https://" + serverURL
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		existing, loadErr := config.Load(configPath)
		if loadErr == nil && existing.ServerURL == serverURL {
			fmt.Printf("Server %s is already configured in %s\n", serverURL, config.ConfigFileName)
			return nil
		}
		fmt.Printf("Found existing %s, updating server\n", config.ConfigFileName)
	}

	cfg := &config.Config{ServerURL: serverURL}
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote ./%s pointing at %s\n", config.ConfigFileName, serverURL)

	if setDefault {
		if err := userconfig.SetDefaultServer(serverURL); err != nil {
			return fmt.Errorf("failed to save global default: %w", err)
		}
		fmt.Println("✓ Saved as global default server")
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'englishpod login' to authenticate")
	fmt.Println("  2. Run 'englishpod catalog' to browse the course material")

	return nil
}
