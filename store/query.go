package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(\d+)([hdwmy])$`)

// ParseDuration reads the lookback given to `history --since`: a count and one
// of h, d, w, m or y. Months count as 30 days and years as 365.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("since: empty duration")
	}

	matches := durationPattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("since: invalid duration %q (want a count and a unit, e.g. 12h or 7d)", s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil || num < 0 {
		return 0, fmt.Errorf("since: invalid count %q", matches[1])
	}

	day := 24 * time.Hour
	switch matches[2] {
	case "h":
		return time.Duration(num) * time.Hour, nil
	case "d":
		return time.Duration(num) * day, nil
	case "w":
		return time.Duration(num) * 7 * day, nil
	case "m":
		return time.Duration(num) * 30 * day, nil
	case "y":
		return time.Duration(num) * 365 * day, nil
	}
	return 0, fmt.Errorf("since: invalid unit %q", matches[2])
}

// SinceToUnixTime converts a "since" duration string (e.g., "7d") to a Unix
// timestamp that lies <duration> before now.
func SinceToUnixTime(since string, now time.Time) (int64, error) {
	duration, err := ParseDuration(since)
	if err != nil {
		return 0, err
	}
	return now.Add(-duration).Unix(), nil
}

// BuildListOptions constructs ListOptions from CLI flags.
func BuildListOptions(limit, offset int, geo, since string, now time.Time) (ListOptions, error) {
	if limit < 0 {
		return ListOptions{}, fmt.Errorf("limit must not be negative: %d", limit)
	}
	if offset < 0 {
		return ListOptions{}, fmt.Errorf("offset must not be negative: %d", offset)
	}

	opts := ListOptions{
		Limit:  limit,
		Offset: offset,
		Geo:    strings.ToUpper(strings.TrimSpace(geo)),
	}

	if since != "" {
		sinceUnix, err := SinceToUnixTime(since, now)
		if err != nil {
			return opts, fmt.Errorf("failed to parse --since flag: %w", err)
		}
		opts.SinceTime = &sinceUnix
	}

	return opts, nil
}
