package parser

import (
	"time"
)

// timeLayouts are tried in order. ISO-8601 with offset first since the JSON
// format emits it, then the space-separated form, then the Apache clf layout.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	"02/Jan/2006:15:04:05",
}

// ParseTimestamp parses a log timestamp string. When no layout matches the
// current time is substituted and the fallback flag is set; the record is
// still produced.
func ParseTimestamp(s string) (t time.Time, fallback bool) {
	if s != "" {
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, false
			}
		}
	}
	return time.Now(), true
}
