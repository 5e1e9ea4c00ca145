package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/dripdb"
	"github.com/project8/pmana/temperature"
)

const (
	/*
		The header format is
		timestamp, unix_ts, uncalibrated (units), calibrated (units)
	*/
	HeaderFmtString = "timestamp, unix_ts, uncalibrated (%s), calibrated (%s)\n"
	LineFmtString   = "%s, %d, %g, %g\n"
)

func (a *app) slow2csvCmd() *cobra.Command {
	var from, to, sensor, sensor2, logOut string
	var getNames bool
	now := time.Now().UTC()

	cmd := &cobra.Command{
		Use:   "slow2csv",
		Short: "Dump logged slow-control readings as CSV or as a temperature log",
		Long: `slow2csv grabs data from the dripline logged-data database and dumps one
sensor to stdout as CSV.  With --temperature-log the readings of --channel
and --t2-channel are written in the temperature monitor's format instead, so
they can stand in for a campaign's temperature log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t0, err := time.Parse(dripdb.TimeFormat, from)
			if err != nil {
				return fmt.Errorf("--from must be RFC3339: %w", err)
			}
			t1, err := time.Parse(dripdb.TimeFormat, to)
			if err != nil {
				return fmt.Errorf("--to must be RFC3339: %w", err)
			}

			host := dripdb.DripDBHost{Host: a.v.GetString("couch-host"), Port: a.v.GetUint("couch-port")}
			db := dripdb.DripDB{Host: host, Name: a.v.GetString("couch-database")}
			res, err := db.LoggedData().LoggedRange(cmd.Context(), dripdb.KeyRange{Start: t0, End: t1})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getNames {
				for _, name := range res.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			if logOut != "" {
				return a.writeTemperatureLog(res, sensor, sensor2, logOut)
			}
			return writeSensorCSV(out, res.Samples(sensor))
		},
	}
	f := cmd.Flags()
	f.String("couch-host", "myrna.phys.washington.edu", "dripline database host")
	f.Uint("couch-port", dripdb.DefaultPort, "dripline database port")
	f.String("couch-database", dripdb.DefaultName, "name of database where logged data is stored")
	f.StringVar(&from, "from", now.Add(-2*time.Hour).Format(dripdb.TimeFormat), "start time of data you want")
	f.StringVar(&to, "to", now.Format(dripdb.TimeFormat), "stop time of data you want")
	f.StringVar(&sensor, "channel", "terminator_temp", "name of the channel for which data is desired")
	f.StringVar(&sensor2, "t2-channel", "", "second temperature channel of the log; T2 is empty when unset")
	f.BoolVar(&getNames, "get-names", false, "only list possible channels")
	f.StringVar(&logOut, "temperature-log", "", "write a temperature log to this file instead of CSV")
	return cmd
}

// writeSensorCSV uses the units of the first sample for the header.
func writeSensorCSV(w io.Writer, samples []dripdb.Sample) error {
	if len(samples) == 0 {
		logging.Log.Warning("No readings in the requested range")
		return nil
	}
	rawUnit, unit := samples[0].RawUnit, samples[0].Unit
	if rawUnit == "" {
		rawUnit = "?"
	}
	if unit == "" {
		unit = "?"
	}
	if _, err := fmt.Fprintf(w, HeaderFmtString, rawUnit, unit); err != nil {
		return err
	}
	for _, s := range samples {
		if _, err := fmt.Fprintf(w, LineFmtString, s.Time.Format(dripdb.TimeFormat), s.Time.Unix(), s.Raw, s.Value); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) writeTemperatureLog(res *dripdb.LogViewResult, sensor, sensor2, path string) (err error) {
	loc, err := a.location()
	if err != nil {
		return err
	}
	series := func(name string) temperature.Series {
		var s temperature.Series
		if name == "" {
			return s
		}
		for _, sample := range res.Samples(name) {
			s = append(s, temperature.Point{Time: sample.Time.In(loc), Value: sample.Value})
		}
		return s
	}
	t1 := series(sensor)
	if len(t1) == 0 {
		return fmt.Errorf("no readings of %s in the requested range", sensor)
	}
	tlog := temperature.FromSamples(t1, series(sensor2), 0)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if err = temperature.WriteLog(f, tlog); err != nil {
		return err
	}
	logging.Log.Infof("Wrote %d readings to <%s>", tlog.Len(), path)
	return nil
}
