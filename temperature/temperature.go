// Package temperature reads the temperature monitor log and evaluates it
// at measurement times.
package temperature

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/project8/pmana/sensors"
)

const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"
	// DefaultDelay is the known lag of the monitor clock behind the
	// acquisition clock.
	DefaultDelay = 12 * time.Minute
)

// Reading is one monitor row.  Shifted is Date corrected by the delay and
// is the timeline used for joins.
type Reading struct {
	Date    time.Time
	Shifted time.Time
	T1, T2  float64
}

type Options struct {
	// Delay is added to every timestamp; nil selects DefaultDelay.
	Delay *time.Duration
	// Calibration converts raw readings; nil keeps them as logged.
	Calibration sensors.Calibrator
	Location    *time.Location
}

func (o Options) delay() time.Duration {
	if o.Delay == nil {
		return DefaultDelay
	}
	return *o.Delay
}

// Log is a time-ordered list of readings.
type Log struct {
	Readings []Reading
	Delay    time.Duration

	t1, t2 sensors.Curve
}

// Load reads a monitor log file of space separated
// "DD.MM.YYYY HH:MM T1 T2" rows.
func Load(fileName string, opts Options) (*Log, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return l, nil
}

func Parse(r io.Reader, opts Options) (*Log, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	cal := opts.Calibration
	if cal == nil {
		cal = sensors.Identity{}
	}
	delay := opts.delay()

	var readings []Reading
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: expected date, time, T1 and T2, got %d fields", lineNo, len(fields))
		}
		date, err := time.ParseInLocation(DateLayout+" "+TimeLayout, fields[0]+" "+fields[1], loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		t1, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: T1: %w", lineNo, err)
		}
		t2, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: T2: %w", lineNo, err)
		}
		readings = append(readings, Reading{
			Date:    date,
			Shifted: date.Add(delay),
			T1:      cal.Calibrate(t1),
			T2:      cal.Calibrate(t2),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return newLog(readings, delay), nil
}

// Series is one sensor's readings, e.g. from the slow-control database.
type Series []Point

type Point struct {
	Time  time.Time
	Value float64
}

// FromSamples builds a log on the timestamps of t1; T2 is interpolated from
// t2 and is NaN where t2 does not cover a timestamp.  Timestamps are taken
// as already aligned, so the delay applies only to the Shifted column.
func FromSamples(t1, t2 Series, delay time.Duration) *Log {
	c2 := curveOf(t2)
	readings := make([]Reading, 0, len(t1))
	for _, p := range t1 {
		v2, ok := evaluate(c2, t2, p.Time)
		if !ok {
			v2 = math.NaN()
		}
		readings = append(readings, Reading{Date: p.Time, Shifted: p.Time.Add(delay), T1: p.Value, T2: v2})
	}
	return newLog(readings, delay)
}

func newLog(readings []Reading, delay time.Duration) *Log {
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].Shifted.Before(readings[j].Shifted) })
	l := &Log{Readings: readings, Delay: delay}
	t1 := make(Series, len(readings))
	t2 := make(Series, len(readings))
	for i, r := range readings {
		t1[i] = Point{Time: r.Shifted, Value: r.T1}
		t2[i] = Point{Time: r.Shifted, Value: r.T2}
	}
	l.t1 = curveOf(t1)
	l.t2 = curveOf(t2)
	return l
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Readings)
}

// At linearly interpolates T1 and T2 at t on the shifted timeline.  It
// reports false when t lies outside the logged period; T2 is NaN where
// only T1 covers t.
func (l *Log) At(t time.Time) (Reading, bool) {
	if l.Len() == 0 {
		return Reading{}, false
	}
	var s1, s2 Series
	if len(l.Readings) == 1 {
		s1 = Series{{Time: l.Readings[0].Shifted, Value: l.Readings[0].T1}}
		s2 = Series{{Time: l.Readings[0].Shifted, Value: l.Readings[0].T2}}
	}
	v1, ok := evaluate(l.t1, s1, t)
	if !ok {
		return Reading{}, false
	}
	v2, ok := evaluate(l.t2, s2, t)
	if !ok {
		v2 = math.NaN()
	}
	return Reading{Date: t.Add(-l.Delay), Shifted: t, T1: v1, T2: v2}, true
}

// WriteLog emits l in the monitor's format with unshifted dates.
func WriteLog(w io.Writer, l *Log) error {
	if l.Len() == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)
	for _, r := range l.Readings {
		if _, err := fmt.Fprintf(bw, "%s %s %s %s\n",
			r.Date.Format(DateLayout), r.Date.Format(TimeLayout), formatValue(r.T1), formatValue(r.T2)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// curveOf returns nil when the series cannot form a curve (fewer than two
// distinct times); evaluate then falls back to exact matches.
func curveOf(s Series) sensors.Curve {
	pts := make([]sensors.Point2d, 0, len(s))
	for _, p := range s {
		if math.IsNaN(p.Value) {
			continue
		}
		pts = append(pts, sensors.Point2d{X: seconds(p.Time), Y: p.Value})
	}
	c, err := sensors.NewCurve(pts)
	if err != nil {
		return nil
	}
	return c
}

func evaluate(c sensors.Curve, s Series, t time.Time) (float64, bool) {
	if c != nil {
		return c.Interpolate(seconds(t))
	}
	for _, p := range s {
		if p.Time.Equal(t) && !math.IsNaN(p.Value) {
			return p.Value, true
		}
	}
	return 0, false
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
