package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gonum.org/v1/plot/vg"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/campaign"
	"github.com/project8/pmana/channel"
	"github.com/project8/pmana/dripdb"
	"github.com/project8/pmana/fitting"
	"github.com/project8/pmana/histogram"
	"github.com/project8/pmana/padova"
	"github.com/project8/pmana/peak"
	"github.com/project8/pmana/sensors"
	_ "github.com/project8/pmana/sensors/cernox"
	"github.com/project8/pmana/temperature"
)

// configKeys are the settings read through viper; flags of the same name
// override the config file.
var configKeys = map[string]bool{
	"log-level":               true,
	"rebin":                   true,
	"max-evaluations":         true,
	"seed-threshold":          true,
	"fwhm-factor":             true,
	"channel-glob":            true,
	"header-lines":            true,
	"delimiter":               true,
	"measurement-glob":        true,
	"padova-regex":            true,
	"temperature-delay":       true,
	"temperature-calibration": true,
	"timezone":                true,
	"plot-width":              true,
	"plot-height":             true,
	"couch-host":              true,
	"couch-port":              true,
	"couch-database":          true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "INFO")
	v.SetDefault("rebin", false)
	v.SetDefault("max-evaluations", fitting.DefaultMaxEvaluations)
	v.SetDefault("seed-threshold", histogram.DefaultThreshold)
	v.SetDefault("fwhm-factor", histogram.FWHMFactor)
	v.SetDefault("channel-glob", channel.DefaultGlob)
	v.SetDefault("header-lines", channel.DefaultHeaderLines)
	v.SetDefault("delimiter", string(channel.DefaultDelimiter))
	v.SetDefault("measurement-glob", campaign.DefaultMeasurementGlob)
	v.SetDefault("padova-regex", padova.DefaultPattern)
	v.SetDefault("temperature-delay", temperature.DefaultDelay)
	v.SetDefault("temperature-calibration", "")
	v.SetDefault("timezone", "Local")
	v.SetDefault("plot-width", 8.0)
	v.SetDefault("plot-height", 6.0)
	v.SetDefault("couch-host", "myrna.phys.washington.edu")
	v.SetDefault("couch-port", dripdb.DefaultPort)
	v.SetDefault("couch-database", dripdb.DefaultName)
}

type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	setDefaults(a.v)

	root := &cobra.Command{
		Use:   "pmana",
		Short: "Analysis of photomultiplier test-stand campaigns",
		Long: `pmana reorganizes test-stand dumps, fits the peak of every channel
histogram with a Gaussian, joins the results with the time mapping and the
temperature log of a campaign, and plots them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "configuration file (JSON, YAML or TOML)")
	pf.String("log-level", "INFO", "logging level (DEBUG, INFO, NOTICE, WARNING, ERROR, CRITICAL)")
	pf.Bool("rebin", false, "halve the histogram resolution before fitting")
	pf.Int("max-evaluations", fitting.DefaultMaxEvaluations, "maximum model evaluations per fit")
	pf.Float64("seed-threshold", histogram.DefaultThreshold, "fraction of the peak height used for the width seed")
	pf.Float64("fwhm-factor", histogram.FWHMFactor, "full width to sigma conversion of the width seed")
	pf.String("channel-glob", channel.DefaultGlob, "pattern of the channel files in a measurement")
	pf.Int("header-lines", channel.DefaultHeaderLines, "header lines of a channel file")
	pf.String("delimiter", string(channel.DefaultDelimiter), "column delimiter of a channel file")
	pf.String("timezone", "Local", "time zone of the time mapping and temperature logs")
	pf.Float64("plot-width", 8, "plot width in inches")
	pf.Float64("plot-height", 6, "plot height in inches")

	root.AddCommand(
		a.formatCmd(),
		a.analyzeCmd(),
		a.plotCmd(),
		a.trendCmd(),
		a.mergeCmd(),
		a.slow2csvCmd(),
	)

	bindFlags(a.v, root.PersistentFlags())
	for _, sub := range root.Commands() {
		bindFlags(a.v, sub.Flags())
	}
	return root
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if configKeys[f.Name] {
			_ = v.BindPFlag(f.Name, f)
		}
	})
}

func (a *app) initialize() error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	if err := logging.ConfigureLogging(a.v.GetString("log-level")); err != nil {
		return err
	}
	if a.configFile != "" {
		logging.Log.Noticef("Config file <%s> loaded", a.configFile)
	}
	logging.Log.Debugf("Log level: %v", a.v.GetString("log-level"))
	return nil
}

func (a *app) loadOptions() (channel.LoadOptions, error) {
	delim := []rune(a.v.GetString("delimiter"))
	if len(delim) != 1 {
		return channel.LoadOptions{}, fmt.Errorf("delimiter must be a single character, got %q", a.v.GetString("delimiter"))
	}
	opts := channel.LoadOptions{
		Glob:        a.v.GetString("channel-glob"),
		HeaderLines: a.v.GetInt("header-lines"),
		Delimiter:   delim[0],
	}
	if opts.HeaderLines == 0 {
		opts.NoHeader = true
	}
	return opts, nil
}

func (a *app) peakOptions() peak.Options {
	return peak.Options{
		Rebin: a.v.GetBool("rebin"),
		Seed: histogram.SeedOptions{
			Threshold:  a.v.GetFloat64("seed-threshold"),
			FWHMFactor: a.v.GetFloat64("fwhm-factor"),
		},
		Fit: fitting.Settings{MaxEvaluations: a.v.GetInt("max-evaluations")},
	}
}

func (a *app) location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

func (a *app) campaignOptions() (campaign.Options, error) {
	var opts campaign.Options
	var err error
	if opts.Channel, err = a.loadOptions(); err != nil {
		return opts, err
	}
	if opts.Location, err = a.location(); err != nil {
		return opts, err
	}
	opts.MeasurementGlob = a.v.GetString("measurement-glob")
	opts.Peak = a.peakOptions()

	cal, err := sensors.Lookup(a.v.GetString("temperature-calibration"))
	if err != nil {
		return opts, err
	}
	delay := a.v.GetDuration("temperature-delay")
	opts.Temperature = temperature.Options{Delay: &delay, Calibration: cal, Location: opts.Location}
	return opts, nil
}

func (a *app) plotSize() (vg.Length, vg.Length) {
	return vg.Length(a.v.GetFloat64("plot-width")) * vg.Inch, vg.Length(a.v.GetFloat64("plot-height")) * vg.Inch
}
