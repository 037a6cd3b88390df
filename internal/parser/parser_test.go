package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombinedFormat(t *testing.T) {
	p := New()

	line := `192.168.1.10 - admin [15/Mar/2024:10:30:45 +0800] "GET /api/v2/user/profile?id=42 HTTP/1.1" 200 1532 "https://example.com/home" "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36"`
	rec, ok := p.Parse(line, "access.log", 1)
	require.True(t, ok)

	assert.Equal(t, "combined", rec.Format)
	assert.Equal(t, "192.168.1.10", rec.RemoteAddr)
	assert.Equal(t, "admin", rec.RemoteUser)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, "/api/v2/user/profile?id=42", rec.URI)
	assert.Equal(t, "HTTP/1.1", rec.Protocol)
	assert.Equal(t, "200", rec.Status)
	assert.Equal(t, int64(1532), rec.BodyBytes)
	assert.Equal(t, "https://example.com/home", rec.Referer)
	assert.Equal(t, "access.log", rec.SourceFile)
	assert.Equal(t, 1, rec.SourceLine)
	assert.False(t, rec.TimeFallback)
	assert.Equal(t, 2024, rec.Timestamp.Year())
}

func TestParseCombinedDashFields(t *testing.T) {
	p := New()

	line := `10.0.0.5 - - [15/Mar/2024:10:30:45 +0800] "POST /login HTTP/1.1" 401 - "-" "-"`
	rec, ok := p.Parse(line, "f.log", 7)
	require.True(t, ok)

	assert.Equal(t, "combined", rec.Format)
	assert.Equal(t, "POST", rec.Method)
	assert.Equal(t, "/login", rec.URI)
	assert.Equal(t, "401", rec.Status)

	// "-" means absent, not a literal value.
	assert.Empty(t, rec.RemoteUser)
	assert.Empty(t, rec.Referer)
	assert.Empty(t, rec.UserAgent)
	assert.Zero(t, rec.BodyBytes)
}

// Combined lines carry colons in the time bracket and in referer URLs. The
// key:value scan must not claim such a line with junk tokens; it has to fall
// through to the Combined regexp.
func TestCombinedLineNotClaimedByKeyValueScan(t *testing.T) {
	p := New()

	line := `203.0.113.9 - - [01/Nov/2024:09:15:02 +0800] "GET /search?q=a HTTP/1.1" 200 99 "http://ref.example.com/a:b" "curl/8.4.0"`
	rec, ok := p.Parse(line, "f.log", 3)
	require.True(t, ok)

	assert.Equal(t, "combined", rec.Format)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, "/search?q=a", rec.URI)
	assert.Equal(t, "HTTP/1.1", rec.Protocol)
	assert.Equal(t, "200", rec.Status)
	assert.False(t, rec.TimeFallback)
	assert.Equal(t, time.November, rec.Timestamp.Month())
}

func TestParseJSONFormat(t *testing.T) {
	p := New()

	line := `{"time":"2024-03-15T10:30:45+08:00","remote_addr":"202.96.1.2","request_method":"GET","request_uri":"/api/pay/order","status":200,"body_bytes_sent":812,"request_time":1.000,"upstream_connect_time":0.100,"upstream_header_time":0.300,"upstream_response_time":0.600,"http_user_agent":"okhttp/4.9.0","request_id":"abc-123"}`
	rec, ok := p.Parse(line, "f.log", 1)
	require.True(t, ok)

	assert.Equal(t, "json", rec.Format)
	assert.Equal(t, "202.96.1.2", rec.RemoteAddr)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, "/api/pay/order", rec.URI)
	assert.Equal(t, "200", rec.Status)
	assert.Equal(t, int64(812), rec.BodyBytes)
	assert.InDelta(t, 1.0, rec.RequestTime, 1e-9)
	assert.InDelta(t, 0.1, rec.UpstreamConnect, 1e-9)
	assert.InDelta(t, 0.3, rec.UpstreamHeader, 1e-9)
	assert.InDelta(t, 0.6, rec.UpstreamResponse, 1e-9)
	assert.Equal(t, "okhttp/4.9.0", rec.UserAgent)
	assert.Equal(t, "abc-123", rec.TraceID)
}

func TestParseJSONRequestSplitting(t *testing.T) {
	p := New()

	// Method and URI come out of the combined "request" field.
	line := `{"time":"2024-03-15T10:30:45+08:00","request":"PUT /api/v1/user HTTP/2.0","status":"204"}`
	rec, ok := p.Parse(line, "f.log", 1)
	require.True(t, ok)

	assert.Equal(t, "PUT", rec.Method)
	assert.Equal(t, "/api/v1/user", rec.URI)
	assert.Equal(t, "HTTP/2.0", rec.Protocol)
}

func TestParseKeyValueFormat(t *testing.T) {
	p := New()

	line := `time:"2024-03-15 10:30:45" client_ip:10.1.2.3 method:GET uri:"/health" status:200 request_time:0.004 ua:"curl/8.5.0"`
	rec, ok := p.Parse(line, "f.log", 3)
	require.True(t, ok)

	assert.Equal(t, "keyvalue", rec.Format)
	assert.Equal(t, "10.1.2.3", rec.RemoteAddr)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, "/health", rec.URI)
	assert.Equal(t, "curl/8.5.0", rec.UserAgent)
	assert.InDelta(t, 0.004, rec.RequestTime, 1e-9)
	assert.False(t, rec.TimeFallback)
}

func TestParseUnmatchedLine(t *testing.T) {
	p := New()

	for _, line := range []string{"", "   ", "complete garbage with no structure"} {
		rec, ok := p.Parse(line, "f.log", 1)
		assert.False(t, ok, "line %q should not parse", line)
		assert.Nil(t, rec)
	}
}

func TestParseUpstreamTimeList(t *testing.T) {
	// Multiple upstreams report comma-separated durations; the last one is
	// the upstream that actually answered.
	assert.InDelta(t, 0.250, parseSeconds("0.004, 0.250"), 1e-9)
	assert.InDelta(t, 0.1, parseSeconds("0.1"), 1e-9)
	assert.Zero(t, parseSeconds("-"))
	assert.Zero(t, parseSeconds(""))
	assert.InDelta(t, -0.5, parseSeconds("-0.5"), 1e-9)
}

func TestParseTimestampLayouts(t *testing.T) {
	tests := []struct {
		in       string
		fallback bool
	}{
		{"2024-03-15T10:30:45+08:00", false},
		{"2024-03-15T10:30:45.123456+08:00", false},
		{"2024-03-15 10:30:45", false},
		{"15/Mar/2024:10:30:45 +0800", false},
		{"not a time", true},
		{"", true},
	}

	for _, tc := range tests {
		ts, fallback := ParseTimestamp(tc.in)
		assert.Equal(t, tc.fallback, fallback, "input %q", tc.in)
		if !tc.fallback {
			assert.Equal(t, time.March, ts.Month())
			assert.Equal(t, 15, ts.Day())
		} else {
			// Fallback substitutes the current time.
			assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
		}
	}
}

func TestFieldAliases(t *testing.T) {
	p := New()

	// Synonyms from other log_format variants map onto the same fields.
	line := `{"@timestamp":"2024-03-15T10:30:45+08:00","clientip":"1.2.3.4","path":"/x","response_code":"200","size":99,"duration":0.2,"http_user_agent":"UA","x_request_id":"rid-9"}`
	rec, ok := p.Parse(line, "f.log", 1)
	require.True(t, ok)

	assert.Equal(t, "1.2.3.4", rec.RemoteAddr)
	assert.Equal(t, "/x", rec.URI)
	assert.Equal(t, "200", rec.Status)
	assert.Equal(t, int64(99), rec.BodyBytes)
	assert.Equal(t, "rid-9", rec.TraceID)
}
