package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Hankatuur/englishpod/internal/cli/auth"
	"github.com/Hankatuur/englishpod/internal/cli/client"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with an EnglishPod server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set ENGLISHPOD_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set ENGLISHPOD_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("ENGLISHPOD_EMAIL")
	}
	if password == "" {
		password = os.Getenv("ENGLISHPOD_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or ENGLISHPOD_EMAIL env var)")
	}

	serverURL, err := resolveServerURL()
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		// Check if stdin is a terminal (not piped)
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or ENGLISHPOD_PASSWORD env var)")
		}
	}

	apiClient := client.New(serverURL)

	fmt.Printf("Logging in to %s...\n", serverURL)

	loginResp, err := apiClient.Login(email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	// Save token
	if err := auth.Default.SaveToken(serverURL, loginResp.Token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s (%s)\n", loginResp.User.Name, loginResp.User.Email)
	if loginResp.User.IsAdmin {
		fmt.Println("  Role: Admin")
	}

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored authentication token",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, err := resolveServerURL()
			if err != nil {
				return err
			}

			if err := auth.Default.DeleteToken(serverURL); err != nil {
				return err
			}

			fmt.Printf("✓ Logged out of %s\n", serverURL)
			return nil
		},
	}
}
