package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javierballesterjack/crop-health-engine/internal/fields"
	"github.com/javierballesterjack/crop-health-engine/internal/store"
)

func newScanCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Compute and store the health of every field of an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if a.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}

			pg, err := store.OpenPostgres(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()

			flds, err := pg.Fields(ctx, owner)
			if err != nil && len(flds) == 0 {
				return err
			}
			if err != nil {
				log.WithField("owner", owner).Warnf("Skipping unreadable fields: %v", err)
			}
			if len(flds) == 0 {
				return fmt.Errorf("owner %s has no fields", owner)
			}

			end := today()
			start := fields.StartDate(flds, a.cfg.Lookback())
			if fields.OldestCreatedAt(flds).IsZero() {
				start = end.Add(-a.cfg.Lookback())
			}

			reports, runErr := a.runScenes(ctx, flds, start, end, pg)
			summary := printSummary(cmd.OutOrStdout(), reports)
			a.notify(ctx, fmt.Sprintf("%s: %s", owner, summary), runErr)
			return runErr
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner whose fields are scanned")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
