// Package timemap maps data files to the wall-clock time they were
// written, as recorded by the archive listing of a data set
// (unzip -l <DataSet>.zip > TimeMapping.txt).
package timemap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/project8/pmana/Go/logging"
)

const (
	DateLayout = "01-02-2006"
	TimeLayout = "15:04"
)

type Entry struct {
	Length   int64
	Date     time.Time
	Name     string
	FileName string
}

type Mapping struct {
	Entries []Entry
	index   map[string]int
}

// Load parses a listing file; times are interpreted in loc (time.Local when nil).
func Load(fileName string, loc *time.Location) (*Mapping, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return m, nil
}

// Parse reads listing rows of length, date, time and name.  Lines that do
// not have that shape (archive header, column titles, separators, totals)
// are skipped.
func Parse(r io.Reader, loc *time.Location) (*Mapping, error) {
	if loc == nil {
		loc = time.Local
	}
	m := &Mapping{index: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		e, ok := parseLine(scanner.Text(), loc)
		if !ok {
			logging.Log.Debugf("time mapping line %d skipped", lineNo)
			continue
		}
		m.add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseLine(line string, loc *time.Location) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Entry{}, false
	}
	length, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	date, err := time.ParseInLocation(DateLayout+" "+TimeLayout, fields[1]+" "+fields[2], loc)
	if err != nil {
		return Entry{}, false
	}
	// the name is everything after the time column, internal spaces included
	rest := line
	for _, f := range fields[:3] {
		rest = rest[strings.Index(rest, f)+len(f):]
	}
	name := strings.TrimSpace(rest)
	return Entry{
		Length:   length,
		Date:     date,
		Name:     name,
		FileName: path.Base(strings.TrimSuffix(name, "/")),
	}, true
}

func (m *Mapping) add(e Entry) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if _, exists := m.index[e.FileName]; !exists {
		m.index[e.FileName] = len(m.Entries)
	}
	m.Entries = append(m.Entries, e)
}

// Lookup returns the time of the first entry with the given base name.
func (m *Mapping) Lookup(fileName string) (time.Time, bool) {
	if m == nil {
		return time.Time{}, false
	}
	i, ok := m.index[fileName]
	if !ok {
		return time.Time{}, false
	}
	return m.Entries[i].Date, true
}

func (m *Mapping) Len() int { return len(m.Entries) }
