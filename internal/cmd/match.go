package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-wine-scanner/internal/repo"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

type matchOptions struct {
	venue    string
	query    string
	seed     string
	limit    int
	minScore float64
	json     bool
}

func newMatchCmd(root *rootOptions) *cobra.Command {
	opts := &matchOptions{}
	c := &cobra.Command{
		Use:   "match [query]",
		Short: "Rank a venue's wine list against a free-text descriptor",
		Long: `Rank a venue's wine list against a free-text descriptor.

The list comes from the configured database, or from --seed (markdown table
or YAML) loaded into a throwaway in-memory database.`,
		Example: `  winescan match --seed wines.yaml --venue "Enoteca Roma" "Conterno Barolo 2018"`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && opts.query == "" {
				opts.query = args[0]
			}
			opts.query = strings.TrimSpace(opts.query)
			if opts.query == "" {
				return errors.New("query required (--query or argument)")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if opts.limit > 0 {
				cfg.Match.Limit = opts.limit
			}
			if cmd.Flags().Changed("min-score") {
				cfg.Match.MinScore = opts.minScore
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
			venue, err := resolveVenue(ctx, db, opts.venue)
			if err != nil {
				return err
			}

			set := services.Wire(db, repo.Inventory{}, nil, cfg)
			matches, err := set.Matches.Match(ctx, venue.ID, opts.query)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.json {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(matches)
			}
			_, err = fmt.Fprintln(w, renderMatches(venue.Name, matches))
			return err
		},
	}

	f := c.Flags()
	f.StringVar(&opts.venue, "venue", "", "venue id or name (optional when only one venue is loaded)")
	f.StringVarP(&opts.query, "query", "q", "", "descriptor to match, e.g. producer, name and vintage")
	f.StringVar(&opts.seed, "seed", "", "wine list file (.md, .yaml) to match against instead of the database")
	f.IntVar(&opts.limit, "limit", 0, "maximum matches (default MATCH_LIMIT)")
	f.Float64Var(&opts.minScore, "min-score", 0, "minimum score in [0,1] (default MATCH_MIN_SCORE)")
	f.BoolVar(&opts.json, "json", false, "print JSON instead of a table")
	return c
}
