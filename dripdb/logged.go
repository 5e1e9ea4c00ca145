package dripdb

import (
	"time"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/Go/utility"
)

type LoggedData struct {
	SensorName   string `json:"sensor_name"`
	Uncalibrated string `json:"uncalibrated_value"`
	Calibrated   string `json:"calibrated_value"`
	Timestamp    string `json:"timestamp_localstring"`
}

type LogViewDoc struct {
	Id    string     `json:"id"`
	Key   string     `json:"key"`
	Value LoggedData `json:"value"`
}

type LogViewResult struct {
	TotalRows uint         `json:"total_rows"`
	Offset    uint         `json:"offset"`
	Rows      []LogViewDoc `json:"rows"`
}

// Sample is one logged reading with units stripped.
type Sample struct {
	Sensor  string
	Time    time.Time
	Raw     float64
	RawUnit string
	Value   float64
	Unit    string
}

// Names lists each sensor appearing in the result once, in order of first appearance.
func (r *LogViewResult) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range r.Rows {
		if !seen[row.Value.SensorName] {
			seen[row.Value.SensorName] = true
			names = append(names, row.Value.SensorName)
		}
	}
	return names
}

// Samples converts the rows of the requested sensors (all when none are
// given).  Rows with an unparseable timestamp or calibrated value are
// skipped.  A raw value that does not parse is reported as zero.
func (r *LogViewResult) Samples(sensors ...string) []Sample {
	want := make(map[string]bool, len(sensors))
	for _, s := range sensors {
		want[s] = true
	}
	var samples []Sample
	for _, row := range r.Rows {
		v := row.Value
		if len(want) > 0 && !want[v.SensorName] {
			continue
		}
		t, err := time.Parse(TimeFormat, v.Timestamp)
		if err != nil {
			logging.Log.Warningf("Skipping %s reading with bad timestamp %q", v.SensorName, v.Timestamp)
			continue
		}
		value, unit, err := utility.ParseReading(v.Calibrated)
		if err != nil {
			logging.Log.Warningf("Skipping %s reading at %s: %v", v.SensorName, v.Timestamp, err)
			continue
		}
		raw, rawUnit, err := utility.ParseReading(v.Uncalibrated)
		if err != nil {
			logging.Log.Debugf("%s at %s has no raw value: %v", v.SensorName, v.Timestamp, err)
			raw, rawUnit = 0, ""
		}
		samples = append(samples, Sample{
			Sensor:  v.SensorName,
			Time:    t,
			Raw:     raw,
			RawUnit: rawUnit,
			Value:   value,
			Unit:    unit,
		})
	}
	return samples
}
