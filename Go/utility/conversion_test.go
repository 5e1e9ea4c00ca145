package utility

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sample{Name: "F1", Value: 2.5}, true))
	assert.Contains(t, buf.String(), `"name"`)

	var out sample
	require.NoError(t, DecodeJSON(&buf, &out))
	assert.Equal(t, sample{Name: "F1", Value: 2.5}, out)
}

func TestSplitUnit(t *testing.T) {
	cases := []struct {
		in, value, unit string
	}{
		{"12.5 K", "12.5", "K"},
		{"1764 OHM\r\n", "1764", "OHM"},
		{"3.0", "3.0", ""},
		{"", "", ""},
		{"4 deg C", "4", "deg C"},
	}
	for _, c := range cases {
		v, u := SplitUnit(c.in)
		assert.Equal(t, c.value, v, c.in)
		assert.Equal(t, c.unit, u, c.in)
	}
}

func TestParseReading(t *testing.T) {
	f, unit, err := ParseReading("77.0 K")
	require.NoError(t, err)
	assert.InDelta(t, 77.0, f, 1e-12)
	assert.Equal(t, "K", unit)

	_, _, err = ParseReading("warm K")
	assert.Error(t, err)

	_, _, err = ParseReading("  ")
	assert.Error(t, err)
}
