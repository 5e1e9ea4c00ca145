package campaign

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/channel"
	"github.com/project8/pmana/peak"
)

// Analyzer produces one result per channel of a measurement directory.
type Analyzer func(dir string) ([]peak.Result, error)

// Row is one measurement of a campaign.  Time is zero when the measurement
// could not be found in the time mapping; T1 and T2 are meaningful only
// when HasTemperature is set.
type Row struct {
	Measurement    int           `json:"measurement"`
	Time           time.Time     `json:"time"`
	HasTemperature bool          `json:"has_temperature"`
	T1             float64       `json:"t1"`
	T2             float64       `json:"t2"`
	Channels       []peak.Result `json:"channels"`
}

// Table holds a campaign's rows; every row has one result per entry of
// Channels, in that order.
type Table struct {
	Channels []string `json:"channels"`
	Rows     []Row    `json:"rows"`
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

var errNoCampaign = errors.New("campaign: nothing to iterate")

// Iterate runs analyze on every measurement and joins the results with the
// campaign's time mapping and temperature log.  Measurements that cannot be
// analyzed, or whose channels differ from the first analyzed measurement,
// are logged and skipped.
func Iterate(c *Campaign, analyze Analyzer) (*Table, error) {
	if c == nil || analyze == nil {
		return nil, errNoCampaign
	}
	table := &Table{}
	for _, m := range c.Measurements {
		results, err := analyze(m.Dir)
		if err != nil {
			logging.Log.Errorf("Skipping measurement %d: %v", m.Number, err)
			continue
		}
		names := channelNames(results)
		if table.Channels == nil {
			table.Channels = names
		} else if !sameChannels(table.Channels, names) {
			logging.Log.Errorf("Skipping measurement %d: channels %v differ from %v", m.Number, names, table.Channels)
			continue
		}

		row := Row{Measurement: m.Number, Channels: results}
		row.Time = c.measurementTime(m)
		if !row.Time.IsZero() && c.Temperature != nil {
			if r, ok := c.Temperature.At(row.Time); ok {
				row.HasTemperature = true
				row.T1, row.T2 = r.T1, r.T2
			} else {
				logging.Log.Warningf("Measurement %d at %s is outside the temperature log", m.Number, row.Time.Format(time.RFC3339))
			}
		}
		table.Rows = append(table.Rows, row)
		logging.Log.Infof("Measurement %d: %d channels analyzed", m.Number, len(results))
	}
	return table, nil
}

// measurementTime looks up the first channel file of m in the time mapping.
func (c *Campaign) measurementTime(m Measurement) time.Time {
	if c.TimeMapping == nil {
		return time.Time{}
	}
	files, err := channel.Files(m.Dir, c.opts.Channel)
	if err != nil || len(files) == 0 {
		logging.Log.Warningf("Measurement %d has no channel file to look up", m.Number)
		return time.Time{}
	}
	name := filepath.Base(files[0])
	t, ok := c.TimeMapping.Lookup(name)
	if !ok {
		logging.Log.Warningf("Measurement %d: <%s> is not in the time mapping", m.Number, name)
		return time.Time{}
	}
	return t
}

// AnalyzeMeasurement loads every channel of dir and runs the peak fit on
// each.  Only loading errors are returned; fit failures are carried in the
// results.
func AnalyzeMeasurement(dir string, opts Options) ([]peak.Result, error) {
	data, err := channel.LoadMeasurement(dir, opts.Channel)
	if err != nil {
		return nil, err
	}
	results := make([]peak.Result, 0, len(data))
	for _, d := range data {
		res, _ := peak.Analyze(d.Name, d.BinCenter, d.Population, opts.Peak)
		results = append(results, res)
	}
	return results, nil
}

func channelNames(results []peak.Result) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Channel
	}
	return names
}

func sameChannels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
