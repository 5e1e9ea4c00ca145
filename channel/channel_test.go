package channel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = `LECROYWR640Zi;5437;Histogram
Segments;1;SegmentSize;100
Segment;TrigTime;TimeSinceSegment1
#1;01-Mar-2024 10:00:01;0
BinCenter;Population
`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestParseSkipsHeader(t *testing.T) {
	d, err := Parse(strings.NewReader(header+"1.5;10\n2.5; 20\n\n3.5;30;extra\n"), "F2--trace--00003.txt", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F2", d.Name)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, d.BinCenter)
	assert.Equal(t, []float64{10, 20, 30}, d.Population)
	assert.Equal(t, 3, d.Len())
}

func TestParseScientificNotationAndCRLF(t *testing.T) {
	d, err := Parse(strings.NewReader(header+"-1.25e-09;0\r\n-1.2e-09;4\r\n"), "F1.txt", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "F1", d.Name)
	assert.Equal(t, []float64{-1.25e-09, -1.2e-09}, d.BinCenter)
}

func TestParseErrorsCarryLine(t *testing.T) {
	_, err := Parse(strings.NewReader(header+"1;2\nthree;4\n"), "F1.txt", LoadOptions{})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 7, pe.Line)
	assert.Equal(t, "F1.txt", pe.File)

	_, err = Parse(strings.NewReader(header+"1\n"), "F1.txt", LoadOptions{})
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "expected 2 columns")
}

func TestParseCustomLayout(t *testing.T) {
	d, err := Parse(strings.NewReader("1,2\n3,4\n"), "C1.csv", LoadOptions{NoHeader: true, Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, d.BinCenter)
}

func TestParseShortFile(t *testing.T) {
	d, err := Parse(strings.NewReader("only\ntwo lines\n"), "F1.txt", LoadOptions{})
	require.NoError(t, err)
	assert.Zero(t, d.Len())
}

func TestLoadMeasurementOrdersChannels(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "F3--x--00001.txt", header+"1;3\n")
	write(t, dir, "F1--x--00001.txt", header+"1;1\n")
	write(t, dir, "F2--x--00001.txt", header+"1;2\n")
	write(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Fdir"), 0755))

	data, err := LoadMeasurement(dir, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, data, 3)
	for i, name := range []string{"F1", "F2", "F3"} {
		assert.Equal(t, name, data[i].Name)
		assert.Equal(t, float64(i+1), data[i].Population[0])
		assert.Equal(t, filepath.Join(dir, name+"--x--00001.txt"), data[i].Path)
	}
}

func TestLoadMeasurementEmpty(t *testing.T) {
	_, err := LoadMeasurement(t.TempDir(), LoadOptions{})
	assert.ErrorIs(t, err, ErrNoChannels)
}
