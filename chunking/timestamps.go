package chunking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rashmirrout/loglens/core"
)

// timestampPattern pairs a regular expression with a converter that
// normalizes matches to ISO-8601. Patterns are not mutually exclusive: all
// matches from all patterns are collected.
type timestampPattern struct {
	re      *regexp.Regexp
	convert func(string) (string, error)
}

var timestampPatterns = []timestampPattern{
	// ISO 8601: 2024-01-15T10:30:45.123Z
	{
		re:      regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?`),
		convert: func(m string) (string, error) { return m, nil },
	},
	// YYYY-MM-DD HH:MM:SS
	{
		re: regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?`),
		convert: func(m string) (string, error) {
			return strings.Join(strings.Fields(m), "T"), nil
		},
	},
	// DD/MMM/YYYY:HH:MM:SS (Apache/nginx access logs)
	{
		re: regexp.MustCompile(`\d{2}/[A-Za-z]{3}/\d{4}:\d{2}:\d{2}:\d{2}`),
		convert: func(m string) (string, error) {
			t, err := time.Parse("02/Jan/2006:15:04:05", m)
			if err != nil {
				return "", err
			}
			return t.Format("2006-01-02T15:04:05"), nil
		},
	},
	// Unix timestamp in seconds (10 digits)
	{
		re: regexp.MustCompile(`\b\d{10}\b`),
		convert: func(m string) (string, error) {
			sec, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return "", err
			}
			return time.Unix(sec, 0).Format("2006-01-02T15:04:05"), nil
		},
	},
	// Unix timestamp in milliseconds (13 digits)
	{
		re: regexp.MustCompile(`\b\d{13}\b`),
		convert: func(m string) (string, error) {
			ms, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return "", err
			}
			t := time.UnixMilli(ms)
			s := t.Format("2006-01-02T15:04:05")
			if frac := ms % 1000; frac != 0 {
				s += fmt.Sprintf(".%03d", frac)
			}
			return s, nil
		},
	},
}

// ExtractTimestamps returns every recognizable timestamp in text, normalized
// to ISO-8601. Matches that fail conversion are skipped.
func ExtractTimestamps(text string) []string {
	var timestamps []string
	for _, p := range timestampPatterns {
		for _, m := range p.re.FindAllString(text, -1) {
			normalized, err := p.convert(m)
			if err != nil {
				continue
			}
			timestamps = append(timestamps, normalized)
		}
	}
	return timestamps
}

// TimestampRange returns the lexicographic (earliest, latest) pair of the
// normalized timestamps found in text, or false when none match.
func TimestampRange(text string) (core.TimestampPair, bool) {
	timestamps := ExtractTimestamps(text)
	if len(timestamps) == 0 {
		return core.TimestampPair{}, false
	}

	min, max := timestamps[0], timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts < min {
			min = ts
		}
		if ts > max {
			max = ts
		}
	}
	return core.TimestampPair{min, max}, true
}
