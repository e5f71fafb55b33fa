package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Granularity is the width, in seconds, of one candle bucket.
//
// Only the six widths accepted by the Coinbase Exchange candles endpoint are
// valid; ParseGranularity rejects anything else so an invalid value never
// reaches a request.
type Granularity int

const (
	OneMinute      Granularity = 60
	FiveMinutes    Granularity = 300
	FifteenMinutes Granularity = 900
	OneHour        Granularity = 3600
	SixHours       Granularity = 21600
	OneDay         Granularity = 86400
)

// ErrUnknownGranularity is returned for widths outside the supported set.
var ErrUnknownGranularity = errors.New("unknown granularity")

var granularityLabels = map[Granularity]string{
	OneMinute:      "1m",
	FiveMinutes:    "5m",
	FifteenMinutes: "15m",
	OneHour:        "1h",
	SixHours:       "6h",
	OneDay:         "1d",
}

// Granularities lists the supported widths in ascending order.
func Granularities() []Granularity {
	return []Granularity{OneMinute, FiveMinutes, FifteenMinutes, OneHour, SixHours, OneDay}
}

// ParseGranularity accepts a label ("1m", "1d", ...) or a number of seconds ("86400").
func ParseGranularity(s string) (Granularity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for g, label := range granularityLabels {
		if s == label {
			return g, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
	g := Granularity(n)
	if !g.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownGranularity, n)
	}
	return g, nil
}

// Valid reports whether g is one of the supported widths.
func (g Granularity) Valid() bool {
	_, ok := granularityLabels[g]
	return ok
}

// Seconds is the value sent as the granularity query parameter.
func (g Granularity) Seconds() int { return int(g) }

// QueryValue renders g as it appears in the candles query string.
func (g Granularity) QueryValue() string { return strconv.Itoa(int(g)) }

func (g Granularity) String() string {
	if label, ok := granularityLabels[g]; ok {
		return label
	}
	return "granularity(" + strconv.Itoa(int(g)) + ")"
}
