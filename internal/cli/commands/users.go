package commands

import (
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Hankatuur/englishpod/internal/cli/auth"
	"github.com/Hankatuur/englishpod/internal/cli/client"
)

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer user accounts (admin only)",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersAddCmd())

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, err := resolveServerURL()
			if err != nil {
				return err
			}

			token, err := auth.Default.LoadToken(serverURL)
			if err != nil {
				return err
			}

			users, err := client.New(serverURL).ListUsers(token)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tNAME\tROLE")
			fmt.Fprintln(w, "─────\t────\t────")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.Email, u.Name, u.Role)
			}
			w.Flush()

			return nil
		},
	}
}

func newUsersAddCmd() *cobra.Command {
	var email, name, password string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersAdd(email, name, password, isAdmin)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant admin rights")

	return cmd
}

func runUsersAdd(email, name, password string, isAdmin bool) error {
	if email == "" {
		return fmt.Errorf("email is required (use --email)")
	}

	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password)")
		}
		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Println()
	}

	serverURL, err := resolveServerURL()
	if err != nil {
		return err
	}

	token, err := auth.Default.LoadToken(serverURL)
	if err != nil {
		return err
	}

	user, err := client.New(serverURL).CreateUser(token, client.CreateUserRequest{
		Email:           email,
		Name:            name,
		Password:        password,
		ConfirmPassword: password,
		IsAdmin:         isAdmin,
	})
	if err != nil {
		return err
	}

	fmt.Println("✓ Account created!")
	fmt.Printf("  User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("  Role: %s\n", user.Role)

	return nil
}
