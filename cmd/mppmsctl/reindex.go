package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merit-ol/mppms/internal/catalog"
	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/repository"
)

func init() {
	ReindexCommand.Flags().Bool("dry-run", false, "report stale papers without writing")
	RootCmd.AddCommand(&ReindexCommand)
}

var ReindexCommand = cobra.Command{
	Use:   "reindex",
	Short: "Rebuild search keywords",
	Long:  "Recompute the keyword index of every paper whose stored keywords no longer match its title, subject and year.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}

		repos, err := repository.Open(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer repos.Close()

		scanned, fixed, err := reindex(cmd.Context(), repos.Reindexer, dryRun)
		if err != nil {
			return err
		}
		cmd.Printf("%d papers scanned, %d reindexed\n", scanned, fixed)
		return nil
	},
}

// reindex rewrites stale keyword sets and returns how many papers were
// scanned and how many were (or, in a dry run, would be) rewritten.
func reindex(ctx context.Context, r repository.Reindexer, dryRun bool) (int, int, error) {
	var scanned, fixed int
	err := r.ListAll(ctx, func(p *domain.Paper) error {
		scanned++
		if !catalog.Stale(p) {
			return nil
		}
		fixed++
		if dryRun {
			logger.Info().Str("paper_id", p.ID.String()).Msg("stale keywords")
			return nil
		}
		keywords := catalog.Keywords(p.Title, p.Subject, p.Year)
		if err := r.SetKeywords(ctx, p.ID, keywords); err != nil {
			return fmt.Errorf("reindex paper %s: %w", p.ID, err)
		}
		return nil
	})
	return scanned, fixed, err
}
