// Package parser converts raw access-log lines into RawRecords.
// Three formats are tried in order: JSON object, custom key:value tokens,
// and the Combined log format.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// combinedRe matches the Combined log format:
// ip - user [time] "method uri proto" status size "referer" "ua"
var combinedRe = regexp.MustCompile(
	`^(?P<remote_addr>\S+) - (?P<remote_user>\S+) \[(?P<time_local>[^\]]+)\] ` +
		`"(?P<method>\S+) (?P<uri>\S+) (?P<protocol>[^"]+)" ` +
		`(?P<status>\d{3}) (?P<body_bytes>\d+|-) ` +
		`"(?P<referer>[^"]*)" "(?P<user_agent>[^"]*)"`)

// quotedTokenRe matches key:"value" tokens in the custom format.
var quotedTokenRe = regexp.MustCompile(`(\w+):"([^"]*)"`)

// bareTokenRe matches key:value tokens without quotes.
var bareTokenRe = regexp.MustCompile(`(\w+):(\S+)`)

// LineParser is stateless; one instance per worker avoids any sharing
// questions but sharing would be safe too.
type LineParser struct{}

// New creates a line parser.
func New() *LineParser {
	return &LineParser{}
}

// Parse converts one log line into a RawRecord. The second return value is
// false when no format matched; callers count that as a parse error and move
// on.
func (p *LineParser) Parse(line, sourceFile string, lineNum int) (*model.RawRecord, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	var fields map[string]string
	var format string

	switch {
	case line[0] == '{':
		fields = parseJSONLine(line)
		format = "json"
	default:
		fields = parseKeyValueLine(line)
		format = "keyvalue"
		// Combined lines contain colons too (the [time] bracket, referer
		// URLs), so the token scan can come back non-empty with junk keys.
		// Only a result carrying at least one recognized field counts.
		if !hasKnownField(fields) {
			fields = nil
		}
	}

	if len(fields) == 0 {
		fields = parseCombinedLine(line)
		format = "combined"
	}
	if len(fields) == 0 {
		return nil, false
	}

	rec := mapFields(fields)
	rec.Format = format
	rec.SourceFile = sourceFile
	rec.SourceLine = lineNum
	return rec, true
}

// parseJSONLine decodes a JSON object and flattens values to strings.
func parseJSONLine(line string) map[string]string {
	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return nil
	}
	fields := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case float64:
			fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			fields[k] = strconv.FormatBool(val)
		case nil:
			// Skip nulls so defaulting logic kicks in downstream.
		default:
			// Nested objects/arrays are not part of the field set.
		}
	}
	return fields
}

// parseKeyValueLine scans key:"value" tokens first, then bare key:value
// tokens. First occurrence wins on key collision.
func parseKeyValueLine(line string) map[string]string {
	fields := make(map[string]string)
	for _, m := range quotedTokenRe.FindAllStringSubmatch(line, -1) {
		if _, seen := fields[m[1]]; !seen {
			fields[m[1]] = m[2]
		}
	}
	// Blank out quoted regions so bare scanning cannot re-match inside them.
	stripped := quotedTokenRe.ReplaceAllString(line, "")
	for _, m := range bareTokenRe.FindAllStringSubmatch(stripped, -1) {
		if _, seen := fields[m[1]]; !seen {
			fields[m[1]] = m[2]
		}
	}
	return fields
}

// parseCombinedLine applies the Combined log format regexp.
func parseCombinedLine(line string) map[string]string {
	m := combinedRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	fields := make(map[string]string, len(m))
	for i, name := range combinedRe.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		fields[name] = m[i]
	}
	return fields
}

// hasKnownField reports whether at least one key maps to a canonical field
// or is a "request" line worth splitting.
func hasKnownField(fields map[string]string) bool {
	if _, ok := fields["request"]; ok {
		return true
	}
	for _, aliases := range fieldAliases {
		for _, alias := range aliases {
			if _, ok := fields[alias]; ok {
				return true
			}
		}
	}
	return false
}

// fieldAliases maps the field names seen across nginx log_format variants to
// canonical names. First alias present wins.
var fieldAliases = map[string][]string{
	"remote_addr":       {"remote_addr", "client_ip", "clientip", "ip"},
	"remote_user":       {"remote_user", "user"},
	"time":              {"time_local", "time", "timestamp", "@timestamp", "time_iso8601"},
	"method":            {"method", "request_method"},
	"uri":               {"uri", "request_uri", "path", "url"},
	"protocol":          {"protocol", "server_protocol"},
	"host":              {"host", "http_host", "server_name"},
	"status":            {"status", "status_code", "response_code"},
	"body_bytes":        {"body_bytes", "body_bytes_sent", "bytes_sent", "size"},
	"request_time":      {"request_time", "response_time", "duration"},
	"upstream_connect":  {"upstream_connect_time", "upstream_connect"},
	"upstream_header":   {"upstream_header_time", "upstream_header"},
	"upstream_response": {"upstream_response_time", "upstream_response"},
	"user_agent":        {"user_agent", "http_user_agent", "ua"},
	"referer":           {"referer", "http_referer", "referrer"},
	"trace_id":          {"trace_id", "request_id", "x_request_id", "traceid"},
}

func lookup(fields map[string]string, canonical string) string {
	for _, alias := range fieldAliases[canonical] {
		if v, ok := fields[alias]; ok {
			return v
		}
	}
	return ""
}

// mapFields builds a RawRecord from the normalized field map. A "request"
// field in the form "GET /path HTTP/1.1" is split when the parts are absent.
func mapFields(fields map[string]string) *model.RawRecord {
	rec := &model.RawRecord{
		RemoteAddr: lookup(fields, "remote_addr"),
		RemoteUser: cleanDash(lookup(fields, "remote_user")),
		Method:     lookup(fields, "method"),
		URI:        lookup(fields, "uri"),
		Protocol:   lookup(fields, "protocol"),
		Host:       lookup(fields, "host"),
		Status:     lookup(fields, "status"),
		UserAgent:  cleanDash(lookup(fields, "user_agent")),
		Referer:    cleanDash(lookup(fields, "referer")),
		TraceID:    cleanDash(lookup(fields, "trace_id")),
	}

	if rec.Method == "" || rec.URI == "" {
		if req, ok := fields["request"]; ok {
			parts := strings.SplitN(req, " ", 3)
			if len(parts) == 3 {
				rec.Method, rec.URI, rec.Protocol = parts[0], parts[1], parts[2]
			}
		}
	}

	rec.BodyBytes = parseInt(lookup(fields, "body_bytes"))
	rec.RequestTime = parseSeconds(lookup(fields, "request_time"))
	rec.UpstreamConnect = parseSeconds(lookup(fields, "upstream_connect"))
	rec.UpstreamHeader = parseSeconds(lookup(fields, "upstream_header"))
	rec.UpstreamResponse = parseSeconds(lookup(fields, "upstream_response"))

	rec.TimestampRaw = lookup(fields, "time")
	rec.Timestamp, rec.TimeFallback = ParseTimestamp(rec.TimestampRaw)
	return rec
}

func cleanDash(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func parseInt(s string) int64 {
	if s == "" || s == "-" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseSeconds parses an nginx duration. Comma-separated values appear when
// a request hit multiple upstreams; the last one is the terminal upstream.
func parseSeconds(s string) float64 {
	if s == "" || s == "-" {
		return 0
	}
	if i := strings.LastIndex(s, ","); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// Negative values pass through; quality scoring penalizes them and the
	// phase decomposition clamps.
	return f
}
