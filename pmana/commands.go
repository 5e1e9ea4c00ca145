package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/campaign"
	"github.com/project8/pmana/channel"
	"github.com/project8/pmana/padova"
	"github.com/project8/pmana/peak"
	"github.com/project8/pmana/plotting"
	"github.com/project8/pmana/temperature"
)

func (a *app) formatCmd() *cobra.Command {
	var move bool
	cmd := &cobra.Command{
		Use:   "format <input-dir> <target-dir>",
		Short: "Sort a flat test-stand dump into one directory per measurement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := padova.Format(args[0], args[1], padova.Options{
				Pattern: a.v.GetString("padova-regex"),
				Move:    move,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "placed %d files in %d measurements, skipped %d\n",
				report.Placed, len(report.Measurements), len(report.Skipped))
			return nil
		},
	}
	cmd.Flags().BoolVar(&move, "move", false, "move files instead of copying them")
	cmd.Flags().String("padova-regex", padova.DefaultPattern, "pattern whose first group is the measurement number")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "analyze <campaign-dir>",
		Short: "Fit every channel of every measurement of a campaign",
		Long: `analyze fits every channel of every measurement of a campaign and writes
one row per measurement: the fitted mu and sigma of each channel with their
errors, the measurement time and the temperatures at that time.  The table is
written as CSV to stdout, or to --out (.csv or .json).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.campaignOptions()
			if err != nil {
				return err
			}
			c, err := campaign.Discover(args[0], opts)
			if err != nil {
				return err
			}
			table, err := campaign.Iterate(c, c.Analyzer())
			if err != nil {
				return err
			}
			for _, s := range campaign.Summarize(table) {
				logging.Log.Infof("%s: %d/%d fits converged, mu %.4g ± %.2g, sigma %.4g ± %.2g",
					s.Channel, s.Converged, s.Fits, s.Mu, s.MuStd, s.Sigma, s.SigmaStd)
			}
			if out == "" {
				return campaign.WriteCSV(cmd.OutOrStdout(), table)
			}
			return campaign.Dump(table, out)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output table (.csv or .json); stdout when empty")
	f.String("measurement-glob", campaign.DefaultMeasurementGlob, "pattern of the measurement directories")
	f.Duration("temperature-delay", temperature.DefaultDelay, "delay added to the temperature log timestamps")
	f.String("temperature-calibration", "", "calibration of the temperature readings (none, cernox87821)")
	return cmd
}

func (a *app) plotCmd() *cobra.Command {
	var out, only string
	cmd := &cobra.Command{
		Use:   "plot <measurement-dir>",
		Short: "Draw the channel histograms of one measurement with their fits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			loadOpts, err := a.loadOptions()
			if err != nil {
				return err
			}
			data, err := channel.LoadMeasurement(dir, loadOpts)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(dir, filepath.Base(filepath.Clean(dir))+".png")
			}

			opts := plotting.Options{Peak: a.peakOptions()}
			if only != "" {
				for i, d := range data {
					if d.Name != only {
						continue
					}
					pl, res, err := plotting.SingleChannel(d, i, opts)
					if err != nil {
						return err
					}
					printResults(cmd, res)
					w, h := a.plotSize()
					return plotting.Save(pl, out, w, h)
				}
				return fmt.Errorf("no channel %q in <%s>", only, dir)
			}

			pl, results, err := plotting.Measurement(data, opts)
			if err != nil {
				return err
			}
			printResults(cmd, results...)
			w, h := a.plotSize()
			return plotting.Save(pl, out, w, h)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output image; <measurement-dir>/<measurement>.png when empty")
	cmd.Flags().StringVar(&only, "channel", "", "draw only this channel")
	return cmd
}

func (a *app) trendCmd() *cobra.Command {
	var out, channelName, quantity, axis string
	cmd := &cobra.Command{
		Use:   "trend <table>",
		Short: "Draw a channel's fitted mu or sigma against time or temperature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := campaign.ReadTable(args[0])
			if err != nil {
				return err
			}
			if channelName == "" && len(table.Channels) > 0 {
				channelName = table.Channels[0]
			}
			p, err := plotting.Trend(table, channelName, plotting.Quantity(quantity), plotting.Axis(axis))
			if err != nil {
				return err
			}
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_" + channelName + "_" + quantity + ".png"
			}
			w, h := a.plotSize()
			return plotting.Save(p, out, w, h)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output image; derived from the table name when empty")
	f.StringVar(&channelName, "channel", "", "channel to draw; the first one when empty")
	f.StringVar(&quantity, "quantity", string(plotting.Mu), "fit parameter to draw (mu, sigma)")
	f.StringVar(&axis, "axis", string(plotting.ByTime), "abscissa (time, t1)")
	return cmd
}

func (a *app) mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <output> <table>...",
		Short: "Merge campaign tables with the same channels, ordered by time",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables := make([]*campaign.Table, 0, len(args)-1)
			for _, path := range args[1:] {
				t, err := campaign.ReadTable(path)
				if err != nil {
					return err
				}
				tables = append(tables, t)
			}
			merged, err := campaign.Merge(tables...)
			if err != nil {
				return err
			}
			return campaign.Dump(merged, args[0])
		},
	}
}

func printResults(cmd *cobra.Command, results ...peak.Result) {
	w := cmd.OutOrStdout()
	for _, r := range results {
		mu, muErr := r.Peak()
		sigma, sigmaErr := r.Width()
		if r.Converged {
			fmt.Fprintf(w, "%s: mu %g ± %g, sigma %g ± %g\n", r.Channel, mu, muErr, sigma, sigmaErr)
		} else {
			fmt.Fprintf(w, "%s: no fit (%s)\n", r.Channel, r.Reason)
		}
	}
}
