// Package acquisition walks the date axis of one Sentinel-2 tile, fetches and
// validates each candidate scene and stores the health of every field it
// covers.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javierballesterjack/crop-health-engine/internal/cache"
	"github.com/javierballesterjack/crop-health-engine/internal/fields"
	"github.com/javierballesterjack/crop-health-engine/internal/geo"
	"github.com/javierballesterjack/crop-health-engine/internal/objectstore"
	"github.com/javierballesterjack/crop-health-engine/internal/raster"
	"github.com/javierballesterjack/crop-health-engine/internal/sentinel"
	"github.com/javierballesterjack/crop-health-engine/internal/store"
	"github.com/javierballesterjack/crop-health-engine/internal/zonal"
)

// ErrDateBudgetExhausted is returned when MaxDates candidate dates were
// processed before the end date was reached.
var ErrDateBudgetExhausted = errors.New("date budget exhausted before the end date")

// Sink persists one row per field and date.
type Sink interface {
	InsertHealth(ctx context.Context, row store.HealthRow) error
}

// Progress receives the number of days covered by each step.
type Progress interface {
	Add(num int) error
}

type Config struct {
	// ScenePath is the tile prefix, e.g. "tiles/30/T/VK/".
	ScenePath string
	Start     time.Time
	// End is the last candidate date, inclusive. Required.
	End time.Time
	// MaxDates caps the candidate dates of one run; 0 means no cap.
	MaxDates    int
	SuccessStep time.Duration
	RetryStep   time.Duration
	WorkDir     string
	KeepAssets  bool
	// CloudFraction is the share of cloudy pixels above which a row is
	// labelled cloudy.
	CloudFraction float64
}

// State is the position of a run on the date axis.
type State struct {
	Date       time.Time
	Step       time.Duration
	Downloaded []string
}

type Scheduler struct {
	cfg      Config
	zone     geo.Zone
	fetcher  objectstore.Fetcher
	opener   raster.Opener
	pipeline *zonal.Pipeline
	sink     Sink

	gate     sentinel.Gate
	verdicts cache.CacheService[Verdict]
	progress Progress
	log      logrus.FieldLogger
	runID    string
}

type Option func(*Scheduler)

func WithGate(g sentinel.Gate) Option {
	return func(s *Scheduler) { s.gate = g }
}

// WithVerdictCache remembers dates whose scene failed the quality gate so
// later runs with the same thresholds skip them.
func WithVerdictCache(c cache.CacheService[Verdict]) Option {
	return func(s *Scheduler) { s.verdicts = c }
}

func WithProgress(p Progress) Option {
	return func(s *Scheduler) { s.progress = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = l }
}

func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

func New(cfg Config, fetcher objectstore.Fetcher, opener raster.Opener, pipeline *zonal.Pipeline, sink Sink, opts ...Option) (*Scheduler, error) {
	if cfg.End.IsZero() {
		return nil, errors.New("an end date is required")
	}
	if cfg.End.Before(cfg.Start) {
		return nil, fmt.Errorf("end date %s is before start date %s", cfg.End.Format(time.DateOnly), cfg.Start.Format(time.DateOnly))
	}
	if cfg.SuccessStep <= 0 || cfg.RetryStep <= 0 {
		return nil, fmt.Errorf("steps must be positive, got success=%s retry=%s", cfg.SuccessStep, cfg.RetryStep)
	}
	if cfg.MaxDates < 0 {
		return nil, fmt.Errorf("max dates must not be negative, got %d", cfg.MaxDates)
	}
	zone, err := geo.ZoneFromScenePath(cfg.ScenePath)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:      cfg,
		zone:     zone,
		fetcher:  fetcher,
		opener:   opener,
		pipeline: pipeline,
		sink:     sink,
		gate:     sentinel.DefaultGate(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.log = s.log.WithFields(logrus.Fields{"run": s.runID, "scene": cfg.ScenePath})
	return s, nil
}

// AssetDir is the download directory of a tile below workDir.
func AssetDir(workDir, scenePath string) string {
	return filepath.Join(workDir, strings.ReplaceAll(strings.Trim(scenePath, "/"), "/", "_"))
}

// Run walks from Start to End. Dates are processed one at a time; a failed
// or rejected date moves on by RetryStep and an aggregated one by
// SuccessStep, whatever happened to individual fields.
func (s *Scheduler) Run(ctx context.Context, flds []fields.Field) (*Report, error) {
	targets := make([]zonal.Target, len(flds))
	for i, f := range flds {
		targets[i] = zonal.Target{Key: f.FieldID, Polygon: f.Polygon}
	}

	report := &Report{RunID: s.runID, ScenePath: s.cfg.ScenePath}
	state := State{Date: s.cfg.Start, Step: s.cfg.SuccessStep}

	for processed := 0; !state.Date.After(s.cfg.End); processed++ {
		if err := ctx.Err(); err != nil {
			report.Next = state.Date
			return report, err
		}
		if s.cfg.MaxDates > 0 && processed >= s.cfg.MaxDates {
			report.Next = state.Date
			return report, fmt.Errorf("%w: %d dates processed, stopped at %s", ErrDateBudgetExhausted, processed, state.Date.Format(time.DateOnly))
		}

		outcome := s.processDate(ctx, &state, flds, targets)
		report.Dates = append(report.Dates, outcome)

		state.Step = s.cfg.RetryStep
		if outcome.Status == StatusAggregated {
			state.Step = s.cfg.SuccessStep
		}
		state.Date = state.Date.Add(state.Step)

		if s.progress != nil {
			_ = s.progress.Add(max(1, int(state.Step/(24*time.Hour))))
		}
	}

	report.Next = state.Date
	return report, nil
}

func (s *Scheduler) processDate(ctx context.Context, state *State, flds []fields.Field, targets []zonal.Target) DateOutcome {
	date := state.Date
	log := s.log.WithField("date", date.Format(time.DateOnly))
	outcome := DateOutcome{Date: date}

	verdictKey := ""
	if s.verdicts != nil {
		verdictKey = s.verdicts.GenerateKey(s.cfg.ScenePath, date.Format(time.DateOnly), s.gate.MaxNoData, s.gate.MaxSaturated)
		if v, ok := s.verdicts.Get(verdictKey); ok {
			log.Debugf("Skipping date, cached verdict %s: %s", v.Status, v.Reason)
			outcome.Status = StatusSkipped
			outcome.Err = fmt.Errorf("cached verdict %s: %s", v.Status, v.Reason)
			return outcome
		}
	}

	assetDir := AssetDir(s.cfg.WorkDir, s.cfg.ScenePath)
	dir := filepath.Join(assetDir, date.Format(time.DateOnly))
	state.Downloaded = nil
	defer func() {
		if outcome.Status != StatusAggregated || !s.cfg.KeepAssets {
			if err := os.RemoveAll(dir); err != nil {
				log.Warnf("Failed to delete assets: %v", err)
			}
			state.Downloaded = nil
		}
	}()

	rememberRejection := func(err error) {
		if s.verdicts == nil {
			return
		}
		if err := s.verdicts.Set(verdictKey, Verdict{Status: StatusRejected, Reason: err.Error()}); err != nil {
			log.Warnf("Failed to cache verdict: %v", err)
		}
	}

	var mu sync.Mutex
	fetch := func(ctx context.Context, asset sentinel.Asset) (string, error) {
		dst := sentinel.LocalPath(assetDir, date, asset)
		if err := s.fetcher.Fetch(ctx, sentinel.AssetKey(s.cfg.ScenePath, date, asset), dst); err != nil {
			return "", err
		}
		mu.Lock()
		state.Downloaded = append(state.Downloaded, dst)
		mu.Unlock()
		return dst, nil
	}

	fetchFailed := func(err error) DateOutcome {
		outcome.Status = StatusFetchFailed
		outcome.Err = err
		var ferr *objectstore.FetchError
		if errors.As(err, &ferr) && ferr.NotFound {
			// not remembered: recent scenes are published late
			log.Debugf("Scene not available: %v", err)
		} else {
			log.Warnf("Failed to fetch scene: %v", err)
		}
		return outcome
	}

	unreadable := func(err error) DateOutcome {
		log.Warnf("Scene is unreadable: %v", err)
		outcome.Status = StatusUnreadable
		outcome.Err = err
		return outcome
	}

	visualPath, err := fetch(ctx, sentinel.Visual)
	if err != nil {
		return fetchFailed(err)
	}
	visual, err := s.opener.Open(visualPath)
	if err != nil {
		return unreadable(err)
	}

	stats, err := s.gate.Inspect(visual)
	if err != nil {
		visual.Close()
		var qerr *sentinel.QualityRejectedError
		if errors.As(err, &qerr) {
			log.Infof("Scene rejected: %v", err)
			outcome.Status = StatusRejected
			outcome.Err = err
			rememberRejection(err)
			return outcome
		}
		return unreadable(err)
	}
	log.Debugf("Scene passed the quality gate with %d no-data and %d saturated pixels", stats.NoData, stats.Saturated)

	paths := make([]string, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range []sentinel.Asset{sentinel.NIR, sentinel.Cloud} {
		g.Go(func() error {
			p, err := fetch(gctx, asset)
			paths[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		visual.Close()
		return fetchFailed(err)
	}

	scene := zonal.Scene{Visual: visual}
	if scene.NIR, err = s.opener.Open(paths[0]); err != nil {
		scene.Close()
		return unreadable(err)
	}
	if scene.Cloud, err = s.opener.Open(paths[1]); err != nil {
		scene.Close()
		return unreadable(err)
	}
	defer scene.Close()

	outcome.Status = StatusAggregated
	results := s.pipeline.Run(scene, s.zone, targets)
	for i, res := range results {
		f := flds[i]
		field := FieldOutcome{FieldID: f.FieldID, Result: res.Result, Err: res.Err}
		if res.Err != nil {
			log.WithField("field", f.FieldID).Warnf("Failed to aggregate field: %v", res.Err)
			outcome.Fields = append(outcome.Fields, field)
			continue
		}

		row := store.HealthRow{
			Date:     date,
			Owner:    f.Owner,
			FieldID:  f.FieldID,
			NDWI:     res.Result.NDWI,
			NDVI:     res.Result.NDVI,
			SAVI:     res.Result.SAVI,
			EVI:      res.Result.EVI,
			Area:     res.Result.Count,
			CropType: f.CropType,
			Cloud:    res.Result.CloudLabel(s.cfg.CloudFraction),
		}
		if err := s.sink.InsertHealth(ctx, row); err != nil {
			log.WithField("field", f.FieldID).Errorf("Failed to store row: %v", err)
			field.Err = err
		} else {
			field.Stored = true
		}
		outcome.Fields = append(outcome.Fields, field)
	}
	log.Infof("Aggregated %d of %d fields", outcome.Stored(), len(flds))
	return outcome
}
