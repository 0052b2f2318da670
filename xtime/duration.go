// Package xtime parses and formats durations with day and larger units.
package xtime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

type unit struct {
	symbols []string
	dur     time.Duration
}

// Units ordered from largest to smallest. "M" is months, "m" minutes.
var units = []unit{
	{[]string{"Y", "y"}, Year},
	{[]string{"M"}, Month},
	{[]string{"w", "W"}, Week},
	{[]string{"d", "D"}, Day},
	{[]string{"h"}, time.Hour},
	{[]string{"m"}, time.Minute},
	{[]string{"s"}, time.Second},
	{[]string{"ms"}, time.Millisecond},
	{[]string{"us", "µs"}, time.Microsecond},
	{[]string{"ns"}, time.Nanosecond},
}

var durationRx = regexp.MustCompile(`(\d*\.\d+|\d+)([^\d.]*)`)

// ParseDuration parses a duration string such as "90m", "1h30m", "2d",
// "-1.5w" or "1Y2M". In addition to the units accepted by time.ParseDuration,
// it supports "d"/"D" (days), "w"/"W" (weeks), "M" (30-day months) and
// "y"/"Y" (365-day years).
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, fmt.Errorf("invalid duration '%s'", orig)
	}

	matches := durationRx.FindAllStringSubmatchIndex(s, -1)
	var (
		total time.Duration
		end   int
	)
	for _, m := range matches {
		if m[0] != end {
			return 0, fmt.Errorf("invalid duration '%s'", orig)
		}
		end = m[1]

		num, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': %w", orig, err)
		}
		sym := s[m[4]:m[5]]
		if sym == "" {
			return 0, fmt.Errorf("missing unit in duration '%s'", orig)
		}
		dur, err := unitDuration(sym)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': %w", orig, err)
		}
		total += time.Duration(num * float64(dur))
	}
	if end != len(s) {
		return 0, fmt.Errorf("invalid duration '%s'", orig)
	}

	if neg {
		total = -total
	}

	return total, nil
}

func unitDuration(sym string) (time.Duration, error) {
	for _, u := range units {
		for _, us := range u.symbols {
			if us == sym {
				return u.dur, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown unit '%s'", sym)
}

// FormatDuration formats a duration with the largest units first, e.g.
// "1h30m", "2d", "-1w2d" or "1Y4M5d". round is the smallest unit included;
// smaller parts are rounded away. A zero duration is formatted as "0m" if
// round is below a day, or "0d" otherwise.
func FormatDuration(d, round time.Duration) string {
	if round <= 0 {
		round = time.Nanosecond
	}
	d = d.Round(round)
	if d == 0 {
		if round < Day {
			return "0m"
		}
		return "0d"
	}

	neg := d < 0
	if neg {
		d = -d
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for _, u := range units {
		if u.dur < round {
			break
		}
		if n := d / u.dur; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.symbols[0])
			d -= n * u.dur
		}
	}

	return sb.String()
}

// ErrNotPositive is returned by ParsePositive for durations below or equal to 0.
var ErrNotPositive = errors.New("duration must be positive")

// ParsePositive parses a duration like ParseDuration, but rejects zero and
// negative values.
func ParsePositive(s string) (time.Duration, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, ErrNotPositive
	}
	return d, nil
}
