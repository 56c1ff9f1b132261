package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javierballesterjack/crop-health-engine/internal/notification"
	"github.com/javierballesterjack/crop-health-engine/internal/properties"
)

type app struct {
	cfg        properties.Config
	configPath string
	envPath    string
	verbose    bool
	noBanner   bool
	notifier   *notification.Discord
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "crophealth",
		Short:        "Track field health indices from Sentinel-2 imagery",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.envPath, "env", ".env", "dotenv file loaded before the environment is read")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.noBanner, "no-banner", false, "do not print the banner")

	root.AddCommand(newScanCmd(a), newSampleCmd(a), newSeriesCmd(a))
	return root
}

func (a *app) setup(stderr io.Writer) error {
	if err := godotenv.Load(a.envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", a.envPath, err)
	}

	cfg, err := properties.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	log.SetOutput(stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if a.verbose {
		log.SetLevel(log.DebugLevel)
	}

	a.notifier = notification.NewDiscord(cfg.DiscordErrorNotificationURL, cfg.DiscordSuccessNotificationURL)

	if !a.noBanner {
		printBanner(stderr)
	}
	return nil
}

func printBanner(w io.Writer) {
	figure1 := figure.NewFigure("Crop", "isometric1", true)
	figure2 := figure.NewFigure("Health", "isometric1", true)
	cyan := bannercolor.New(bannercolor.FgCyan)
	cyan.Fprintln(w, figure1.String())
	cyan.Fprintln(w, figure2.String())
}
