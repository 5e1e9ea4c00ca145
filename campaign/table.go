package campaign

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/project8/pmana/Go/logging"
	"github.com/project8/pmana/Go/utility"
	"github.com/project8/pmana/fitting"
	"github.com/project8/pmana/peak"
	"github.com/project8/pmana/runningstat"
)

var (
	ErrChannelMismatch = errors.New("campaign: tables have different channels")
	ErrUnknownFormat   = errors.New("campaign: unknown table format")
	ErrBadHeader       = errors.New("campaign: malformed table header")
)

var fixedColumns = []string{"measurement", "time", "t1", "t2"}

var channelColumns = []string{"mu", "mu_err", "sigma", "sigma_err", "converged"}

// Dump writes t to path as CSV or JSON, chosen by the extension.
func Dump(t *Table, path string) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".json" {
		return fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if ext == ".json" {
		err = utility.EncodeJSON(f, t, true)
	} else {
		err = WriteCSV(f, t)
	}
	if err == nil {
		logging.Log.Infof("Wrote %d rows to <%s>", t.Len(), path)
	}
	return err
}

// ReadTable reads a table written by Dump.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t *Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		t, err = ReadCSV(f)
	case ".json":
		t = &Table{}
		err = utility.DecodeJSON(f, t)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes one line per row: measurement, time (RFC3339, empty when
// unknown), t1, t2 (empty without temperature) and per channel mu, its
// error, sigma, its error and whether the fit converged.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	header := append([]string(nil), fixedColumns...)
	for _, ch := range t.Channels {
		for _, col := range channelColumns {
			header = append(header, ch+"_"+col)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := []string{strconv.Itoa(row.Measurement), "", "", ""}
		if !row.Time.IsZero() {
			record[1] = row.Time.Format(time.RFC3339)
		}
		if row.HasTemperature {
			record[2], record[3] = formatFloat(row.T1), formatFloat(row.T2)
		}
		for _, res := range row.Channels {
			record = append(record,
				formatFloat(res.Params.Mu), formatFloat(res.Errors.Mu),
				formatFloat(res.Params.Sigma), formatFloat(res.Errors.Sigma),
				strconv.FormatBool(res.Converged))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV.  Fit amplitudes are not part
// of the CSV layout and read back as zero.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	channels, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(header)

	t := &Table{Channels: channels}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRecord(record, channels)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func parseHeader(header []string) ([]string, error) {
	if len(header) < len(fixedColumns) || (len(header)-len(fixedColumns))%len(channelColumns) != 0 {
		return nil, fmt.Errorf("%w: %d columns", ErrBadHeader, len(header))
	}
	for i, col := range fixedColumns {
		if header[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, header[i], col)
		}
	}
	var channels []string
	for i := len(fixedColumns); i < len(header); i += len(channelColumns) {
		name := strings.TrimSuffix(header[i], "_"+channelColumns[0])
		if name == header[i] || name == "" {
			return nil, fmt.Errorf("%w: column %q", ErrBadHeader, header[i])
		}
		for j, col := range channelColumns {
			if header[i+j] != name+"_"+col {
				return nil, fmt.Errorf("%w: column %q, want %q", ErrBadHeader, header[i+j], name+"_"+col)
			}
		}
		channels = append(channels, name)
	}
	return channels, nil
}

func parseRecord(record []string, channels []string) (Row, error) {
	var row Row
	var err error
	if row.Measurement, err = strconv.Atoi(record[0]); err != nil {
		return row, fmt.Errorf("measurement: %w", err)
	}
	if record[1] != "" {
		if row.Time, err = time.Parse(time.RFC3339, record[1]); err != nil {
			return row, err
		}
	}
	if record[2] != "" || record[3] != "" {
		row.HasTemperature = true
		if row.T1, err = strconv.ParseFloat(record[2], 64); err != nil {
			return row, fmt.Errorf("t1: %w", err)
		}
		if row.T2, err = strconv.ParseFloat(record[3], 64); err != nil {
			return row, fmt.Errorf("t2: %w", err)
		}
	}
	for i, name := range channels {
		fields := record[len(fixedColumns)+i*len(channelColumns):]
		var v [4]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
				return row, fmt.Errorf("%s_%s: %w", name, channelColumns[j], err)
			}
		}
		converged, err := strconv.ParseBool(fields[4])
		if err != nil {
			return row, fmt.Errorf("%s_converged: %w", name, err)
		}
		row.Channels = append(row.Channels, peak.Result{
			Channel:   name,
			Params:    fitting.Params{Mu: v[0], Sigma: v[2]},
			Errors:    fitting.Params{Mu: v[1], Sigma: v[3]},
			Converged: converged,
		})
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Merge concatenates tables with identical channels, ordered by time and
// then measurement number.  Rows without a time sort first.
func Merge(tables ...*Table) (*Table, error) {
	merged := &Table{}
	for i, t := range tables {
		if t == nil {
			continue
		}
		if merged.Channels == nil {
			merged.Channels = append([]string(nil), t.Channels...)
		} else if !sameChannels(merged.Channels, t.Channels) {
			return nil, fmt.Errorf("%w: table %d has %v, want %v", ErrChannelMismatch, i+1, t.Channels, merged.Channels)
		}
		merged.Rows = append(merged.Rows, t.Rows...)
	}
	sort.SliceStable(merged.Rows, func(i, j int) bool {
		a, b := merged.Rows[i], merged.Rows[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.Measurement < b.Measurement
	})
	return merged, nil
}

// ChannelSummary describes the spread of one channel over a campaign.
type ChannelSummary struct {
	Channel   string
	Fits      int
	Converged int
	Mu        float64
	MuStd     float64
	Sigma     float64
	SigmaStd  float64
}

// Summarize computes mean and standard deviation of mu and sigma per
// channel over the converged fits.
func Summarize(t *Table) []ChannelSummary {
	if t == nil {
		return nil
	}
	summaries := make([]ChannelSummary, len(t.Channels))
	mus := make([]runningstat.StatRunner, len(t.Channels))
	sigmas := make([]runningstat.StatRunner, len(t.Channels))
	for _, row := range t.Rows {
		for i, res := range row.Channels {
			if i >= len(summaries) {
				break
			}
			summaries[i].Fits++
			if !res.Converged {
				continue
			}
			summaries[i].Converged++
			mus[i].Update(res.Params.Mu)
			sigmas[i].Update(res.Params.Sigma)
		}
	}
	for i, name := range t.Channels {
		s := &summaries[i]
		s.Channel = name
		s.Mu, s.MuStd = mus[i].Mean(), mus[i].StdDev()
		s.Sigma, s.SigmaStd = sigmas[i].Mean(), sigmas[i].StdDev()
	}
	return summaries
}
