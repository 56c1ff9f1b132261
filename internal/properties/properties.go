package properties

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/javierballesterjack/crop-health-engine/internal/objectstore"
	"github.com/javierballesterjack/crop-health-engine/internal/sentinel"
)

// Config is every setting of the engine. Values come from the defaults, then
// an optional YAML file, then the environment.
type Config struct {
	RootPath    string `yaml:"root_path"`
	DatabaseURL string `yaml:"database_url"`

	S3Bucket       string `yaml:"s3_bucket"`
	AWSRegion      string `yaml:"aws_region"`
	SceneMirrorDir string `yaml:"scene_mirror_dir"`
	WorkDir        string `yaml:"work_dir"`
	KeepAssets     bool   `yaml:"keep_assets"`

	SuccessStepDays int `yaml:"success_step_days"`
	RetryStepDays   int `yaml:"retry_step_days"`
	MaxDates        int `yaml:"max_dates"`
	LookbackDays    int `yaml:"lookback_days"`

	MaxNoDataPixels    int `yaml:"max_nodata_pixels"`
	MaxSaturatedPixels int `yaml:"max_saturated_pixels"`

	CloudProbability float64 `yaml:"cloud_probability"`
	CloudFraction    float64 `yaml:"cloud_fraction"`
	MaskClouds       bool    `yaml:"mask_clouds"`
	Workers          int     `yaml:"workers"`

	VerdictMaxAgeDays int `yaml:"verdict_max_age_days"`

	DiscordErrorNotificationURL   string `yaml:"discord_error_notification_url"`
	DiscordSuccessNotificationURL string `yaml:"discord_success_notification_url"`
}

func Default() Config {
	return Config{
		RootPath:           ".",
		S3Bucket:           objectstore.DefaultBucket,
		AWSRegion:          "eu-central-1",
		SuccessStepDays:    5,
		RetryStepDays:      1,
		LookbackDays:       230,
		MaxNoDataPixels:    sentinel.DefaultMaxNoData,
		MaxSaturatedPixels: sentinel.DefaultMaxSaturated,
		CloudProbability:   50,
		CloudFraction:      0.2,
		VerdictMaxAgeDays:  30,
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.overlayEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlayEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ROOT_PATH":                        &c.RootPath,
		"DATABASE_URL":                     &c.DatabaseURL,
		"S3_BUCKET":                        &c.S3Bucket,
		"AWS_REGION":                       &c.AWSRegion,
		"SCENE_MIRROR_DIR":                 &c.SceneMirrorDir,
		"WORK_DIR":                         &c.WorkDir,
		"DISCORD_ERROR_NOTIFICATION_URL":   &c.DiscordErrorNotificationURL,
		"DISCORD_SUCCESS_NOTIFICATION_URL": &c.DiscordSuccessNotificationURL,
	}
	ints := map[string]*int{
		"SUCCESS_STEP_DAYS":    &c.SuccessStepDays,
		"RETRY_STEP_DAYS":      &c.RetryStepDays,
		"MAX_DATES":            &c.MaxDates,
		"LOOKBACK_DAYS":        &c.LookbackDays,
		"MAX_NODATA_PIXELS":    &c.MaxNoDataPixels,
		"MAX_SATURATED_PIXELS": &c.MaxSaturatedPixels,
		"WORKERS":              &c.Workers,
		"VERDICT_MAX_AGE_DAYS": &c.VerdictMaxAgeDays,
	}
	floats := map[string]*float64{
		"CLOUD_PROBABILITY": &c.CloudProbability,
		"CLOUD_FRACTION":    &c.CloudFraction,
	}
	bools := map[string]*bool{
		"MASK_CLOUDS": &c.MaskClouds,
		"KEEP_ASSETS": &c.KeepAssets,
	}

	var errs []error
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = n
		}
	}
	for key, dst := range floats {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = f
		}
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			*dst = b
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.SuccessStepDays < 1 {
		errs = append(errs, fmt.Errorf("success step must be at least one day, got %d", c.SuccessStepDays))
	}
	if c.RetryStepDays < 1 {
		errs = append(errs, fmt.Errorf("retry step must be at least one day, got %d", c.RetryStepDays))
	}
	if c.MaxDates < 0 {
		errs = append(errs, fmt.Errorf("max dates must not be negative, got %d", c.MaxDates))
	}
	if c.LookbackDays < 0 {
		errs = append(errs, fmt.Errorf("lookback must not be negative, got %d", c.LookbackDays))
	}
	if c.MaxNoDataPixels < 0 || c.MaxSaturatedPixels < 0 {
		errs = append(errs, errors.New("quality thresholds must not be negative"))
	}
	if c.CloudFraction < 0 || c.CloudFraction > 1 {
		errs = append(errs, fmt.Errorf("cloud fraction %g outside [0,1]", c.CloudFraction))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

func (c Config) SuccessStep() time.Duration {
	return days(c.SuccessStepDays)
}

func (c Config) RetryStep() time.Duration {
	return days(c.RetryStepDays)
}

func (c Config) Lookback() time.Duration {
	return days(c.LookbackDays)
}

func (c Config) VerdictMaxAge() time.Duration {
	return days(c.VerdictMaxAgeDays)
}

// ScenesDir is where assets are downloaded.
func (c Config) ScenesDir() string {
	if c.WorkDir != "" {
		return c.WorkDir
	}
	return filepath.Join(c.RootPath, "data", "scenes")
}

// CacheDir holds the scene verdicts of previous runs.
func (c Config) CacheDir() string {
	return filepath.Join(c.RootPath, "data", "cache", "verdicts")
}

// Gate is the quality gate for the configured thresholds.
func (c Config) Gate() sentinel.Gate {
	g := sentinel.DefaultGate()
	g.MaxNoData = c.MaxNoDataPixels
	g.MaxSaturated = c.MaxSaturatedPixels
	return g
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
