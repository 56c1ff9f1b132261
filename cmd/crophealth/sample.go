package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javierballesterjack/crop-health-engine/internal/acquisition"
	"github.com/javierballesterjack/crop-health-engine/internal/fields"
	"github.com/javierballesterjack/crop-health-engine/internal/store"
)

func newSampleCmd(a *app) *cobra.Command {
	var geojsonPath, owner, date, out string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Compute the health of the fields of a GeoJSON file for one date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acquired, err := time.Parse(time.DateOnly, date)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", date, err)
			}
			flds, err := fields.LoadGeoJSON(geojsonPath, owner)
			if err != nil && len(flds) == 0 {
				return err
			}
			if err != nil {
				log.Warnf("Skipping unreadable fields: %v", err)
			}

			reports, err := a.runScenes(cmd.Context(), flds, acquired, acquired, store.NewCSVSink(out))
			printSummary(cmd.OutOrStdout(), reports)
			if err != nil {
				return err
			}
			for _, r := range reports {
				for _, d := range r.Dates {
					if d.Status != acquisition.StatusAggregated {
						return fmt.Errorf("%s on %s is %s: %w", r.ScenePath, date, d.Status, d.Err)
					}
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&geojsonPath, "geojson", "", "GeoJSON feature collection of fields")
	flags.StringVar(&owner, "owner", "local", "owner recorded on every row")
	flags.StringVar(&date, "date", "", "acquisition date, YYYY-MM-DD")
	flags.StringVar(&out, "out", "crop_health.csv", "CSV file the rows are appended to")
	_ = cmd.MarkFlagRequired("geojson")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
