package entity

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Count is a non-negative counter decoded leniently from upstream JSON.
// Missing, null, negative or non-numeric values decode to zero and values
// beyond the int64 range saturate at math.MaxInt64.
type Count int64

// UnmarshalJSON implements json.Unmarshaler
func (c *Count) UnmarshalJSON(data []byte) error {
	v, ok := parseNumber(data)
	if !ok || v < 0 {
		*c = 0
		return nil
	}
	if v >= math.MaxInt64 {
		*c = math.MaxInt64
		return nil
	}
	*c = Count(math.Trunc(v))
	return nil
}

// Int64 returns the count as int64
func (c Count) Int64() int64 {
	return int64(c)
}

// Float returns the count as float64
func (c Count) Float() float64 {
	return float64(c)
}

// Percent is an upstream-supplied percentage (e.g. open_rate = 42.5).
// It is decoded with the same leniency as Count.
type Percent float64

// UnmarshalJSON implements json.Unmarshaler
func (p *Percent) UnmarshalJSON(data []byte) error {
	v, ok := parseNumber(data)
	if !ok {
		*p = 0
		return nil
	}
	*p = Percent(v)
	return nil
}

// Float returns the percentage as float64
func (p Percent) Float() float64 {
	return float64(p)
}

// parseNumber accepts JSON numbers and numeric strings
func parseNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}

	s := string(data)
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return 0, false
		}
		s = strings.TrimSpace(unquoted)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
