package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javierballesterjack/crop-health-engine/internal/store"
)

func newSeriesCmd(a *app) *cobra.Command {
	var owner, field, out string
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Export the stored health time series of a field as CSV",
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

			rows, err := pg.Series(ctx, owner, field)
			if err != nil {
				return err
			}
			if out == "" {
				return store.WriteCSV(cmd.OutOrStdout(), rows)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			if err := store.WriteCSV(f, rows); err != nil {
				return err
			}
			return f.Close()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&owner, "owner", "", "field owner")
	flags.StringVar(&field, "field", "", "field id")
	flags.StringVar(&out, "out", "", "output file, stdout when empty")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}
