package cmd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-wine-scanner/internal/ai"
	"github.com/tbourn/go-wine-scanner/internal/imaging"
	"github.com/tbourn/go-wine-scanner/internal/repo"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

type scanOptions struct {
	image     string
	mediaType string
	venue     string
	seed      string
	json      bool
}

// newClient is swapped in tests.
var newClient = ai.New

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}
	c := &cobra.Command{
		Use:   "scan --image label.jpg",
		Short: "Run the label pipeline once on a photo",
		Long: `Run the label pipeline once on a photo: validate, classify, read,
enrich and (with --venue) match against that venue's list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.image == "" {
				return errors.New("--image is required")
			}
			raw, err := os.ReadFile(opts.image)
			if err != nil {
				return err
			}
			mt := opts.mediaType
			if mt == "" {
				mt = mediaTypeFor(opts.image)
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			seed := opts.seed
			if seed == "" {
				seed = cfg.SeedPath
			}
			db, err := openStore(ctx, cfg, seed, opts.seed != "")
			if err != nil {
				return err
			}
			var venueID string
			if opts.venue != "" {
				v, err := resolveVenue(ctx, db, opts.venue)
				if err != nil {
					return err
				}
				venueID = v.ID
			}

			client, err := newClient(ctx, cfg.AI)
			if err != nil {
				return err
			}
			set := services.Wire(db, repo.Inventory{}, client, cfg)
			out, err := set.Pipeline.Run(ctx, services.ScanRequest{
				Image: imaging.Payload{
					Data:      base64.StdEncoding.EncodeToString(raw),
					MediaType: mt,
				},
				VenueID: venueID,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.json {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			_, err = fmt.Fprint(w, renderOutcome(out))
			return err
		},
	}

	f := c.Flags()
	f.StringVarP(&opts.image, "image", "i", "", "path to the label photo")
	f.StringVar(&opts.mediaType, "media-type", "", "image media type (default: from the file extension)")
	f.StringVar(&opts.venue, "venue", "", "venue id or name to match the label against")
	f.StringVar(&opts.seed, "seed", "", "wine list file (.md, .yaml) to use instead of the database")
	f.BoolVar(&opts.json, "json", false, "print JSON instead of tables")
	return c
}

// mediaTypeFor guesses the media type from the file extension.
func mediaTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	mt, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	return mt
}
