// Conversion utilities
package utility

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ugorji/go/codec"
)

func jsonHandle(indent bool) *codec.JsonHandle {
	handle := new(codec.JsonHandle)
	handle.MapKeyAsString = true
	if indent {
		handle.Indent = 2
	}
	return handle
}

// EncodeJSON writes v to w; indent selects a human-readable layout
func EncodeJSON(w io.Writer, v interface{}, indent bool) error {
	encoder := codec.NewEncoder(w, jsonHandle(indent))
	return encoder.Encode(v)
}

// DecodeJSON fills v from the JSON document in r
func DecodeJSON(r io.Reader, v interface{}) error {
	decoder := codec.NewDecoder(r, jsonHandle(false))
	return decoder.Decode(v)
}

// ToJSON encodes v to a compact JSON byte slice
func ToJSON(v interface{}) (jsonOut []byte, err error) {
	encoder := codec.NewEncoderBytes(&jsonOut, jsonHandle(false))
	err = encoder.Encode(v)
	return
}

// SplitUnit separates a reading such as "12.5 K" into value and unit strings.
// A reading without a unit returns an empty unit.
func SplitUnit(s string) (value, unit string) {
	res := strings.Fields(strings.Trim(s, "\r\n"))
	switch len(res) {
	case 0:
		return "", ""
	case 1:
		return res[0], ""
	default:
		return strings.TrimSpace(res[0]), strings.TrimSpace(strings.Join(res[1:], " "))
	}
}

// ParseReading converts a reading with an optional unit suffix to a number
func ParseReading(s string) (float64, string, error) {
	value, unit := SplitUnit(s)
	if value == "" {
		return 0, "", fmt.Errorf("empty reading")
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, unit, fmt.Errorf("reading %q is not numeric: %w", s, err)
	}
	return f, unit, nil
}
