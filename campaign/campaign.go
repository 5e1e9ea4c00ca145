// Package campaign walks a campaign directory, analyzes each measurement
// and joins the fit results with the time mapping and temperature log.
package campaign

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/channel"
	"github.com/project8/pmana/peak"
	"github.com/project8/pmana/temperature"
	"github.com/project8/pmana/timemap"
)

const (
	ManifestName           = "campaign.yaml"
	DefaultMeasurementGlob = "0*"
	DefaultTimeMappingGlob = "TimeMapping*.txt"
	DefaultTemperatureGlob = "Temperature*.txt"
)

var ErrNotADirectory = errors.New("campaign: root is not a directory")

// Manifest is the optional campaign.yaml in a campaign root.  Relative
// paths are resolved against the root.
type Manifest struct {
	Description      string `yaml:"description"`
	TimeMapping      string `yaml:"time_mapping"`
	TemperatureLog   string `yaml:"temperature_log"`
	TemperatureDelay string `yaml:"temperature_delay"`
	MeasurementGlob  string `yaml:"measurement_glob"`
	ChannelGlob      string `yaml:"channel_glob"`
}

// Options configure discovery and the default analyzer.
type Options struct {
	MeasurementGlob string
	Channel         channel.LoadOptions
	Peak            peak.Options
	Temperature     temperature.Options
	// Location of the time mapping clock; nil is time.Local.
	Location *time.Location
}

type Measurement struct {
	Number int
	Dir    string
}

type Campaign struct {
	Root         string
	Manifest     *Manifest
	Measurements []Measurement

	TimeMappingPath string
	TemperaturePath string
	TimeMapping     *timemap.Mapping
	Temperature     *temperature.Log

	opts Options
}

// Discover finds the measurements, time mapping and temperature log of the
// campaign at root.  The mapping and log are optional, but one named in the
// manifest must exist.
func Discover(root string, opts Options) (*Campaign, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	c := &Campaign{Root: root}
	c.Manifest, err = readManifest(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, err
	}
	if err = c.applyManifest(&opts); err != nil {
		return nil, err
	}
	if opts.MeasurementGlob == "" {
		opts.MeasurementGlob = DefaultMeasurementGlob
	}
	c.opts = opts

	if c.Measurements, err = measurements(root, opts.MeasurementGlob); err != nil {
		return nil, err
	}
	logging.Log.Infof("Found %d measurements in <%s>", len(c.Measurements), root)

	if c.TimeMappingPath == "" {
		c.TimeMappingPath = firstMatch(root, DefaultTimeMappingGlob)
	}
	if c.TimeMappingPath != "" {
		if c.TimeMapping, err = timemap.Load(c.TimeMappingPath, opts.Location); err != nil {
			return nil, err
		}
		logging.Log.Infof("Using time mapping <%s> (%d entries)", c.TimeMappingPath, c.TimeMapping.Len())
	} else {
		logging.Log.Warningf("No time mapping in <%s>; measurement times will be unset", root)
	}

	if c.TemperaturePath == "" {
		c.TemperaturePath = firstMatch(root, DefaultTemperatureGlob)
	}
	if c.TemperaturePath != "" {
		if c.Temperature, err = temperature.Load(c.TemperaturePath, opts.Temperature); err != nil {
			return nil, err
		}
		logging.Log.Infof("Using temperature log <%s> (%d readings)", c.TemperaturePath, c.Temperature.Len())
	} else {
		logging.Log.Noticef("No temperature log in <%s>", root)
	}
	return c, nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// applyManifest lets the manifest override the discovery options.
func (c *Campaign) applyManifest(opts *Options) error {
	m := c.Manifest
	if m == nil {
		return nil
	}
	if m.Description != "" {
		logging.Log.Infof("Campaign: %s", m.Description)
	}
	if m.MeasurementGlob != "" {
		opts.MeasurementGlob = m.MeasurementGlob
	}
	if m.ChannelGlob != "" {
		opts.Channel.Glob = m.ChannelGlob
	}
	if m.TemperatureDelay != "" {
		d, err := time.ParseDuration(m.TemperatureDelay)
		if err != nil {
			return fmt.Errorf("%s: temperature_delay: %w", ManifestName, err)
		}
		opts.Temperature.Delay = &d
	}
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{m.TimeMapping, &c.TimeMappingPath},
		{m.TemperatureLog, &c.TemperaturePath},
	} {
		if p.name == "" {
			continue
		}
		path := p.name
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Root, path)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", ManifestName, err)
		}
		*p.dst = path
	}
	return nil
}

func measurements(root, glob string) ([]Measurement, error) {
	matches, err := filepath.Glob(filepath.Join(root, glob))
	if err != nil {
		return nil, fmt.Errorf("measurement glob %q: %w", glob, err)
	}
	sort.Strings(matches)
	var ms []Measurement
	for _, m := range matches {
		info, statErr := os.Stat(m)
		if statErr != nil || !info.IsDir() {
			continue
		}
		n, convErr := strconv.Atoi(filepath.Base(m))
		if convErr != nil {
			logging.Log.Warningf("Skipping <%s>: not a measurement number", m)
			continue
		}
		ms = append(ms, Measurement{Number: n, Dir: m})
	}
	return ms, nil
}

func firstMatch(root, glob string) string {
	matches, _ := filepath.Glob(filepath.Join(root, glob))
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			return m
		}
	}
	return ""
}

// Options returns the options in effect after the manifest was applied.
func (c *Campaign) Options() Options { return c.opts }

// Analyzer fits every channel of the campaign's measurements with the
// campaign options.
func (c *Campaign) Analyzer() Analyzer {
	opts := c.opts
	return func(dir string) ([]peak.Result, error) {
		return AnalyzeMeasurement(dir, opts)
	}
}
