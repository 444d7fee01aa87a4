package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Accepted datetime layouts for normalized transactions. Exchanges are not
// consistent, so we try a few common ISO-8601 shapes before giving up.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDatetime parses an ISO-8601 datetime string or an epoch-milliseconds
// string into UTC time.
func ParseDatetime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime format: %q", s)
}
