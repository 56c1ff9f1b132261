package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/javierballesterjack/crop-health-engine/internal/acquisition"
	"github.com/javierballesterjack/crop-health-engine/internal/cache"
	"github.com/javierballesterjack/crop-health-engine/internal/fields"
	"github.com/javierballesterjack/crop-health-engine/internal/gdalraster"
	"github.com/javierballesterjack/crop-health-engine/internal/objectstore"
	"github.com/javierballesterjack/crop-health-engine/internal/utils"
	"github.com/javierballesterjack/crop-health-engine/internal/zonal"
)

const day = 24 * time.Hour

func (a *app) fetcher(ctx context.Context) (objectstore.Fetcher, error) {
	if a.cfg.SceneMirrorDir != "" {
		log.Debugf("Reading scenes from mirror %s", a.cfg.SceneMirrorDir)
		return objectstore.DirFetcher{Root: a.cfg.SceneMirrorDir}, nil
	}
	return objectstore.NewS3Fetcher(ctx, a.cfg.S3Bucket, a.cfg.AWSRegion)
}

// runScenes runs one scheduler per Sentinel-2 tile covering flds, tiles in
// lexical order. A failing tile does not stop the others unless the context
// is done.
func (a *app) runScenes(ctx context.Context, flds []fields.Field, start, end time.Time, sink acquisition.Sink) ([]*acquisition.Report, error) {
	fetcher, err := a.fetcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create scene fetcher: %w", err)
	}

	gdalraster.Register()
	projector, err := gdalraster.NewProjector()
	if err != nil {
		return nil, err
	}
	defer projector.Close()

	pipeline := &zonal.Pipeline{
		Projector: projector,
		Workers:   a.cfg.Workers,
		Options: zonal.Options{
			CloudProbability: a.cfg.CloudProbability,
			MaskClouds:       a.cfg.MaskClouds,
		},
	}
	verdicts := cache.NewFileCache[acquisition.Verdict](a.cfg.CacheDir(), a.cfg.VerdictMaxAge())
	runID := uuid.NewString()
	log.WithField("run", runID).Infof("Processing %d fields from %s to %s", len(flds), start.Format(time.DateOnly), end.Format(time.DateOnly))

	groups := fields.GroupByScene(flds)
	var (
		reports []*acquisition.Report
		errs    []error
	)
	for _, scenePath := range utils.GetSortedKeys(groups) {
		group := groups[scenePath]
		bar := progressbar.Default(int64(end.Sub(start)/day)+1, fmt.Sprintf("%s (%d fields)", scenePath, len(group)))

		scheduler, err := acquisition.New(acquisition.Config{
			ScenePath:     scenePath,
			Start:         start,
			End:           end,
			MaxDates:      a.cfg.MaxDates,
			SuccessStep:   a.cfg.SuccessStep(),
			RetryStep:     a.cfg.RetryStep(),
			WorkDir:       a.cfg.ScenesDir(),
			KeepAssets:    a.cfg.KeepAssets,
			CloudFraction: a.cfg.CloudFraction,
		}, fetcher, gdalraster.Opener{}, pipeline, sink,
			acquisition.WithGate(a.cfg.Gate()),
			acquisition.WithVerdictCache(verdicts),
			acquisition.WithProgress(bar),
			acquisition.WithRunID(runID),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("scene %s: %w", scenePath, err))
			continue
		}

		report, err := scheduler.Run(ctx, group)
		_ = bar.Finish()
		if report != nil {
			reports = append(reports, report)
			log.Info(report.String())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("scene %s: %w", scenePath, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return reports, errors.Join(errs...)
}

func printSummary(w io.Writer, reports []*acquisition.Report) string {
	var all []zonal.Result
	for _, r := range reports {
		fmt.Fprintln(w, r.String())
		all = append(all, r.Results()...)
	}

	mean, err := zonal.WeightedMean(all)
	if err != nil {
		summary := "No field could be aggregated"
		fmt.Fprintln(w, summary)
		return summary
	}
	summary := fmt.Sprintf("%d rows over %d pixels: NDWI %.3f, NDVI %.3f, SAVI %.3f, EVI %.3f",
		len(all), mean.Count, mean.NDWI, mean.NDVI, mean.SAVI, mean.EVI)
	fmt.Fprintln(w, summary)
	return summary
}

func (a *app) notify(ctx context.Context, summary string, runErr error) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = a.notifier.SendError(ctx, runErr.Error())
	} else {
		err = a.notifier.SendSuccess(ctx, summary)
	}
	if err != nil {
		log.Warnf("Failed to send notification: %v", err)
	}
}

func today() time.Time {
	return time.Now().UTC().Truncate(day)
}
