// Package channel reads the per-channel histogram dumps written by the
// oscilloscope, one file per channel in each measurement directory.
package channel

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultGlob        = "F*"
	DefaultHeaderLines = 5
	DefaultDelimiter   = ';'
)

var ErrNoChannels = errors.New("channel: no channel files found")

// LoadOptions describe the dump layout; zero values select the defaults.
type LoadOptions struct {
	Glob        string
	HeaderLines int
	Delimiter   rune
	// NoHeader forces HeaderLines to zero, which the zero value cannot express.
	NoHeader bool
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Glob == "" {
		o.Glob = DefaultGlob
	}
	if o.NoHeader {
		o.HeaderLines = 0
	} else if o.HeaderLines <= 0 {
		o.HeaderLines = DefaultHeaderLines
	}
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	return o
}

// Data is one channel: the pre-binned (BinCenter, Population) columns.
type Data struct {
	Name       string
	Path       string
	BinCenter  []float64
	Population []float64
}

func (d *Data) Len() int { return len(d.BinCenter) }

type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Files lists the channel files of a measurement directory in lexical order.
func Files(dir string, opts LoadOptions) ([]string, error) {
	opts = opts.withDefaults()
	matches, err := filepath.Glob(filepath.Join(dir, opts.Glob))
	if err != nil {
		return nil, fmt.Errorf("channel glob %q: %w", opts.Glob, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if info, statErr := os.Stat(m); statErr == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadMeasurement reads every channel of one measurement directory.
func LoadMeasurement(dir string, opts LoadOptions) ([]Data, error) {
	files, err := Files(dir, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoChannels, dir)
	}
	data := make([]Data, 0, len(files))
	for _, f := range files {
		d, loadErr := Load(f, opts)
		if loadErr != nil {
			return nil, loadErr
		}
		data = append(data, d)
	}
	return data, nil
}

// Load reads one channel file.
func Load(path string, opts LoadOptions) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return Data{}, err
	}
	defer f.Close()
	d, err := Parse(f, path, opts)
	if err != nil {
		return Data{}, err
	}
	d.Path = path
	return d, nil
}

// Parse reads the dump from r; name is used for errors and the channel name.
func Parse(r io.Reader, name string, opts LoadOptions) (Data, error) {
	opts = opts.withDefaults()
	d := Data{Name: Name(name)}

	br := bufio.NewReader(r)
	for skipped := 0; skipped < opts.HeaderLines; skipped++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return d, nil
			}
			return Data{}, &ParseError{File: name, Line: skipped + 1, Err: err}
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return Data{}, &ParseError{File: name, Line: csvErr.Line + opts.HeaderLines, Err: csvErr.Err}
			}
			return Data{}, &ParseError{File: name, Err: err}
		}
		line, _ := reader.FieldPos(0)
		line += opts.HeaderLines
		if blank(record) {
			continue
		}
		if len(record) < 2 {
			return Data{}, &ParseError{File: name, Line: line, Err: fmt.Errorf("expected 2 columns, got %d", len(record))}
		}
		center, err := parseField(record[0])
		if err != nil {
			return Data{}, &ParseError{File: name, Line: line, Err: err}
		}
		population, err := parseField(record[1])
		if err != nil {
			return Data{}, &ParseError{File: name, Line: line, Err: err}
		}
		d.BinCenter = append(d.BinCenter, center)
		d.Population = append(d.Population, population)
	}
	return d, nil
}

// Name derives the channel name from a file name: the part before the
// first "--", or the base name without extension.
func Name(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "--"); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseField(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
