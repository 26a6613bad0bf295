// Package upload implements the 'imgbed upload' command.
package upload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/cli/helpers"
	imgberrors "github.com/imgbed/imgbed/internal/errors"
	"github.com/imgbed/imgbed/internal/upload"
)

// NewUploadCmd creates the upload command.
func NewUploadCmd() *cobra.Command {
	var (
		anonymous bool
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload files",
		Long: `Upload files sequentially, in the order given.

The upload is attributed automatically: the active vault token wins (the
files land in its album), then an admin session, then anonymous. Use
--anonymous to skip attribution entirely.

A failed file does not stop the batch; the summary lists every outcome.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			mode, token := upload.ResolveMode(app.Vault, app.Admin)
			if anonymous {
				mode, token = api.UploadModeAnonymous, ""
			}
			if mode == api.UploadModeAdmin {
				// Confirm the cookie is still live before streaming files.
				if !app.Admin.RestoreAuth(ctx) {
					mode = api.UploadModeAnonymous
				}
			}

			files := make([]upload.File, 0, len(args))
			handles := make([]*os.File, 0, len(args))
			defer func() {
				for _, h := range handles {
					imgberrors.DeferClose(app.Logger, h, "failed to close upload file")
				}
			}()

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("cannot open %s: %w", path, err)
				}
				handles = append(handles, f)

				info, err := f.Stat()
				if err != nil {
					return fmt.Errorf("cannot stat %s: %w", path, err)
				}
				files = append(files, upload.File{
					Name:    filepath.Base(path),
					Size:    info.Size(),
					Content: f,
				})
			}

			opts := []upload.Option{
				upload.WithMode(mode, token),
				upload.WithLogger(app.Logger),
			}
			if mode == api.UploadModeToken {
				opts = append(opts, upload.WithQuotaRefresher(app.Vault))
			}
			if !quiet {
				opts = append(opts, upload.WithProgress(func(p upload.Progress) {
					switch p.Status {
					case upload.StatusUploading:
						if p.BytesSent == 0 {
							fmt.Printf("[%d/%d] %s...\n", p.Index+1, p.Total, p.FileName)
						}
					case upload.StatusFailed:
						fmt.Printf("[%d/%d] %s: FAILED: %v\n", p.Index+1, p.Total, p.FileName, p.Err)
					}
				}))
			}

			batch := upload.NewBatch(app.Client, files, opts...)
			results := batch.Run(ctx)

			failed := 0
			for _, r := range results {
				switch r.Status {
				case upload.StatusDone:
					fmt.Printf("%s -> %s\n", r.FileName, r.Upload.URL)
				case upload.StatusFailed:
					failed++
				case upload.StatusCanceled:
					fmt.Printf("%s: canceled\n", r.FileName)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Upload without token or admin attribution")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print resulting URLs")

	return cmd
}
