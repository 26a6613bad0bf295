// Package gallery implements the 'imgbed gallery' command family.
package gallery

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/cli/helpers"
)

// NewGalleryCmd creates the gallery command group.
func NewGalleryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Browse shared and public galleries",
		Long: `Browse galleries.

'show' opens a gallery through its share token; password-protected
galleries need --password on the first request, after which the unlock
session is reused. 'list' and 'get' browse the public gallery site.`,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newGetCmd())

	return cmd
}

// imageRow is the gallery image output shape.
type imageRow struct {
	FileName  string `json:"original_filename" header:"NAME"`
	Size      int64  `json:"file_size" header:"SIZE"`
	URL       string `json:"url" header:"URL"`
	CreatedAt string `json:"created_at" header:"UPLOADED"`
}

func newShowCmd() *cobra.Command {
	var (
		password string
		page     int
		limit    int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "show <share-token>",
		Short: "Show a shared gallery and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			shareToken := args[0]

			gallery, err := app.Client.GetSharedGallery(ctx, shareToken, page, limit)
			if apiErr := api.AsError(err); apiErr != nil && apiErr.RequiresPassword {
				if password == "" {
					name := apiErr.GalleryName
					if name == "" {
						name = "gallery"
					}
					return fmt.Errorf("%s is password-protected (use --password)", name)
				}
				if err := app.Client.UnlockSharedGallery(ctx, shareToken, password); err != nil {
					return fmt.Errorf("unlock failed: %w", err)
				}
				gallery, err = app.Client.GetSharedGallery(ctx, shareToken, page, limit)
			}
			if err != nil {
				return err
			}

			if format == string(helpers.FormatTable) {
				fmt.Printf("%s (%d images)\n", gallery.Gallery.Name, gallery.Gallery.ImageCount)
				if gallery.Gallery.Description != "" {
					fmt.Println(gallery.Gallery.Description)
				}
				fmt.Println()
			}

			rows := make([]imageRow, 0, len(gallery.Images))
			for _, img := range gallery.Images {
				rows = append(rows, imageRow{
					FileName:  img.OriginalFilename,
					Size:      img.FileSize,
					URL:       img.ImageURL,
					CreatedAt: img.CreatedAt,
				})
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			return formatter.Format(rows, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password for protected galleries")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Images per page")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{
		helpers.FormatTable,
		helpers.FormatJSON,
		helpers.FormatCSV,
	})

	return cmd
}

// galleryRow is the gallery site listing output shape.
type galleryRow struct {
	ID        int64  `json:"id" header:"ID"`
	Name      string `json:"name" header:"NAME"`
	Images    int    `json:"image_count" header:"IMAGES"`
	CreatedAt string `json:"created_at" header:"CREATED"`
}

func newListCmd() *cobra.Command {
	var (
		page   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the public gallery site",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}

			list, err := app.Client.ListPublicGalleries(cmd.Context(), page)
			if err != nil {
				return err
			}

			if len(list.Items) == 0 && format == string(helpers.FormatTable) {
				fmt.Println("No galleries.")
				return nil
			}

			rows := make([]galleryRow, 0, len(list.Items))
			for _, g := range list.Items {
				rows = append(rows, galleryRow{
					ID:        g.ID,
					Name:      g.Name,
					Images:    g.ImageCount,
					CreatedAt: g.CreatedAt,
				})
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			if err := formatter.Format(rows, os.Stdout); err != nil {
				return err
			}
			if format == string(helpers.FormatTable) && list.HasMore {
				fmt.Printf("\nMore galleries available (--page %d).\n", list.Page+1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{
		helpers.FormatTable,
		helpers.FormatJSON,
		helpers.FormatCSV,
	})

	return cmd
}

func newGetCmd() *cobra.Command {
	var (
		page   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "get <gallery-id>",
		Short: "Show a public gallery and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			galleryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid gallery id %q", args[0])
			}

			app, err := helpers.NewApp()
			if err != nil {
				return err
			}

			detail, err := app.Client.GetPublicGallery(cmd.Context(), galleryID, page)
			if err != nil {
				return err
			}

			if format == string(helpers.FormatTable) {
				fmt.Printf("%s (%d images)\n", detail.Gallery.Name, detail.Gallery.ImageCount)
				if detail.Gallery.Description != "" {
					fmt.Println(detail.Gallery.Description)
				}
				fmt.Println()
			}

			rows := make([]imageRow, 0, len(detail.Images.Items))
			for _, img := range detail.Images.Items {
				rows = append(rows, imageRow{
					FileName:  img.OriginalFilename,
					Size:      img.FileSize,
					URL:       img.URL,
					CreatedAt: img.CreatedAt,
				})
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			if err := formatter.Format(rows, os.Stdout); err != nil {
				return err
			}
			if format == string(helpers.FormatTable) && detail.Images.HasMore {
				fmt.Printf("\nMore images available (--page %d).\n", detail.Images.Page+1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{
		helpers.FormatTable,
		helpers.FormatJSON,
		helpers.FormatCSV,
	})

	return cmd
}
