// Package dateparse resolves user-supplied since/until specifications into
// a half-open UTC window, supporting relative durations, absolute dates,
// and the "now" keyword.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gitbeacon/beacon/internal/contract"
)

// relativeTerm matches one "<int><unit>" component of a composable
// relative duration like "1w2d".
var relativeTerm = regexp.MustCompile(`(\d+)([dwmy])`)

// absoluteDate matches "YYYY-MM-DD" or "YYYY-MM-DD HH:MM[:SS]".
var absoluteDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?: (\d{2}):(\d{2})(?::(\d{2}))?)?$`)

// unitDays holds documented approximations: m and y are 4 weeks and 52
// weeks respectively, not calendar months/years.
var unitDays = map[byte]int{
	'd': 1,
	'w': 7,
	'm': 28,
	'y': 364,
}

// Resolve turns sinceSpec/untilSpec into a half-open [since, until) UTC
// window. Empty sinceSpec defaults to "7d"; empty untilSpec defaults to
// "now". now is the process wall clock at call time; the parser is
// otherwise pure.
func Resolve(sinceSpec, untilSpec string, now time.Time) (since, until time.Time, err error) {
	now = now.UTC()
	if sinceSpec == "" {
		sinceSpec = "7d"
	}
	if untilSpec == "" {
		untilSpec = "now"
	}

	until, err = resolveOne(untilSpec, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	since, err = resolveOne(sinceSpec, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !since.Before(until) {
		return time.Time{}, time.Time{}, contract.WithKind(contract.KindInvalidWindow,
			fmt.Errorf("since (%s) must be before until (%s)", since, until))
	}
	return since, until, nil
}

func resolveOne(spec string, now time.Time) (time.Time, error) {
	if spec == "now" {
		return now, nil
	}
	if m := absoluteDate.FindStringSubmatch(spec); m != nil {
		return parseAbsolute(m)
	}
	if d, ok := parseRelative(spec); ok {
		return now.Add(-d), nil
	}
	return time.Time{}, contract.WithKind(contract.KindInvalidWindow, fmt.Errorf("unrecognized date spec %q", spec))
}

func parseAbsolute(m []string) (time.Time, error) {
	date := m[1]
	hour, minute, second := "00", "00", "00"
	if m[2] != "" {
		hour, minute = m[2], m[3]
	}
	if m[4] != "" {
		second = m[4]
	}
	layout := "2006-01-02 15:04:05"
	ts := date + " " + hour + ":" + minute + ":" + second
	t, err := time.Parse(layout, ts)
	if err != nil {
		return time.Time{}, contract.WithKind(contract.KindInvalidWindow, err)
	}
	return t.UTC(), nil
}

// parseRelative parses a composable relative duration like "1w2d" into a
// total time.Duration. It requires the whole spec to be consumed by
// relativeTerm matches with no leftover characters.
func parseRelative(spec string) (time.Duration, bool) {
	if spec == "" {
		return 0, false
	}
	matches := relativeTerm.FindAllStringSubmatchIndex(spec, -1)
	if matches == nil {
		return 0, false
	}
	cursor := 0
	var total time.Duration
	for _, idx := range matches {
		if idx[0] != cursor {
			return 0, false // gap or leading garbage
		}
		n, err := strconv.Atoi(spec[idx[2]:idx[3]])
		if err != nil {
			return 0, false
		}
		unit := spec[idx[4]:idx[5]][0]
		days, ok := unitDays[unit]
		if !ok {
			return 0, false
		}
		total += time.Duration(n*days) * 24 * time.Hour
		cursor = idx[1]
	}
	if cursor != len(spec) {
		return 0, false
	}
	return total, true
}
