package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hankatuur/englishpod/internal/cli/auth"
	"github.com/Hankatuur/englishpod/internal/cli/client"
)

// NewUploadCmd creates the upload command
func NewUploadCmd() *cobra.Command {
	var title, description, mediaType string
	var isFree bool

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a content item (admin only)",
		Long: `Upload a content item to the server.

Videos and PDFs need a file argument; exercises are created empty and
filled with questions through the API. The media type is inferred from
the file extension unless --type is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := ""
			if len(args) > 0 {
				filePath = args[0]
			}
			return runUpload(filePath, title, description, mediaType, isFree)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&mediaType, "type", "", "Media type: video, pdf or exercise")
	cmd.Flags().BoolVar(&isFree, "free", false, "Make the item freely accessible")

	return cmd
}

func inferMediaType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4", ".mov", ".webm":
		return "video"
	case ".pdf":
		return "pdf"
	default:
		return ""
	}
}

func runUpload(filePath, title, description, mediaType string, isFree bool) error {
	if mediaType == "" && filePath != "" {
		mediaType = inferMediaType(filePath)
	}
	if mediaType == "" {
		return fmt.Errorf("cannot infer media type, use --type video|pdf|exercise")
	}
	if mediaType != "exercise" && filePath == "" {
		return fmt.Errorf("%s uploads need a file argument", mediaType)
	}

	if title == "" {
		if filePath == "" {
			return fmt.Errorf("--title is required for exercise items")
		}
		base := filepath.Base(filePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	serverURL, err := resolveServerURL()
	if err != nil {
		return err
	}

	token, err := auth.Default.LoadToken(serverURL)
	if err != nil {
		return err
	}

	apiClient := client.New(serverURL)

	var item *client.ContentItem
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", filePath, err)
		}
		defer f.Close()

		fmt.Printf("Uploading %s to %s...\n", filepath.Base(filePath), serverURL)
		item, err = apiClient.UploadContent(token, title, description, mediaType, isFree, filepath.Base(filePath), f)
		if err != nil {
			return err
		}
	} else {
		item, err = apiClient.UploadContent(token, title, description, mediaType, isFree, "", nil)
		if err != nil {
			return err
		}
	}

	access := "locked"
	if item.IsFree {
		access = "free"
	}
	fmt.Println("✓ Upload complete!")
	fmt.Printf("  ID: %s\n", item.ID)
	fmt.Printf("  Title: %s (%s, %s)\n", item.Title, item.MediaType, access)
	if item.MediaType == "video" {
		fmt.Println("  Duration will be probed in the background")
	}

	return nil
}
