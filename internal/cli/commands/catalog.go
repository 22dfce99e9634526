package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Hankatuur/englishpod/internal/cli/client"
)

// NewCatalogCmd creates the catalog command
func NewCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"ls"},
		Short:   "List the course catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog()
		},
	}
}

func runCatalog() error {
	serverURL, err := resolveServerURL()
	if err != nil {
		return err
	}

	apiClient := client.New(serverURL)

	entries, err := apiClient.Catalog()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("The catalog is empty.")
		fmt.Println("\nUpload material with: englishpod upload <file>")
		return nil
	}

	fmt.Printf("Catalog on %s:\n\n", serverURL)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tACCESS")
	fmt.Fprintln(w, "──\t─────\t────\t──────")

	for _, entry := range entries {
		access := "locked"
		if entry.IsFree {
			access = "free"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.ID,
			entry.Title,
			entry.MediaType,
			access,
		)
	}

	w.Flush()

	return nil
}
