package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

func TestEnrichFullRecord(t *testing.T) {
	e := testEngine()

	ts := time.Date(2024, 3, 15, 10, 30, 45, 0, time.FixedZone("CST", 8*3600))
	raw := &model.RawRecord{
		Timestamp:        ts,
		TimestampRaw:     "15/Mar/2024:10:30:45 +0800",
		RemoteAddr:       "202.96.1.2",
		Method:           "GET",
		URI:              "/scmp-gateway/newuser/register?channel=app",
		Protocol:         "HTTP/1.1",
		Status:           "200",
		BodyBytes:        2048,
		RequestTime:      1.000,
		UpstreamConnect:  0.100,
		UpstreamHeader:   0.300,
		UpstreamResponse: 0.600,
		UserAgent:        "WST-SDK-iOS/2.1.0",
		SourceFile:       "/logs/20240315/access.log",
	}

	rec, outcome := e.Enrich(raw)
	require.Equal(t, model.OutcomeEnriched, outcome)

	assert.Equal(t, "2024-03-15", rec.DateStr)
	assert.Equal(t, 10, rec.HourKey)
	assert.Equal(t, 30, rec.MinuteKey)
	assert.True(t, rec.IsSuccess)
	assert.Equal(t, int64(1000), rec.TotalRequestDuration)
	assert.Equal(t, "iOS", rec.Platform)
	assert.Equal(t, "WST-SDK-iOS", rec.SDKType)
	assert.Equal(t, "authentication", rec.BusinessDomain)
	assert.Equal(t, "Shanghai", rec.City)
	assert.Equal(t, 100, rec.DataQualityScore)
	assert.Empty(t, rec.EnrichmentError)
	assert.InDelta(t, 2.0, rec.ResponseKB, 1e-9)
}

func TestEnrichStatusClassification(t *testing.T) {
	tests := []struct {
		status         string
		success        bool
		redirect       bool
		clientErr      bool
		serverErr      bool
		classification string
	}{
		{"200", true, false, false, false, ""},
		{"204", true, false, false, false, ""},
		{"301", false, true, false, false, ""},
		{"404", false, false, true, false, "not_found"},
		{"429", false, false, true, false, "too_many_requests"},
		{"499", false, false, true, false, "client_closed_request"},
		{"503", false, false, false, true, "service_unavailable"},
		{"504", false, false, false, true, "gateway_timeout"},
		{"599", false, false, false, true, "server_error"},
	}

	e := testEngine()
	for _, tc := range tests {
		rec, _ := e.Enrich(&model.RawRecord{
			Method: "GET", URI: "/x", Status: tc.status,
		})
		assert.Equal(t, tc.success, rec.IsSuccess, "status %s", tc.status)
		assert.Equal(t, tc.redirect, rec.IsRedirect, "status %s", tc.status)
		assert.Equal(t, tc.clientErr, rec.IsClientError, "status %s", tc.status)
		assert.Equal(t, tc.serverErr, rec.IsServerError, "status %s", tc.status)
		assert.Equal(t, tc.classification, rec.ErrorClassification, "status %s", tc.status)
	}
}

func TestEnrichNilRecordDegrades(t *testing.T) {
	e := testEngine()
	rec, outcome := e.Enrich(nil)

	assert.Equal(t, model.OutcomeDegraded, outcome)
	assert.Equal(t, "general", rec.BusinessDomain)
	assert.NotEmpty(t, rec.EnrichmentError)
}

func TestEnrichMissingFieldsDegrades(t *testing.T) {
	e := testEngine()

	// No method, no URI, no status: still a record, but tagged degraded.
	rec, outcome := e.Enrich(&model.RawRecord{RemoteAddr: "1.2.3.4"})

	assert.Equal(t, model.OutcomeDegraded, outcome)
	assert.Contains(t, rec.EnrichmentError, "no request fields")
	assert.Contains(t, rec.EnrichmentError, "no status")
	assert.Equal(t, "1.2.3.4", rec.RemoteAddr)
}

func TestEnrichQualityScore(t *testing.T) {
	e := testEngine()

	full := &model.RawRecord{
		RemoteAddr: "1.2.3.4", Method: "GET", URI: "/x", Status: "200",
		UserAgent: "curl/8.5.0", TimestampRaw: "2024-03-15 10:30:45",
	}
	rec, _ := e.Enrich(full)
	assert.Equal(t, 100, rec.DataQualityScore)

	// Each missing required field costs 10 points.
	noUA := *full
	noUA.UserAgent = ""
	rec, _ = e.Enrich(&noUA)
	assert.Equal(t, 90, rec.DataQualityScore)

	// Negative duration costs 20 more.
	negDur := *full
	negDur.RequestTime = -0.5
	rec, _ = e.Enrich(&negDur)
	assert.Equal(t, 80, rec.DataQualityScore)

	// The floor is zero.
	rec, _ = e.Enrich(&model.RawRecord{RequestTime: -1, BodyBytes: -1})
	assert.GreaterOrEqual(t, rec.DataQualityScore, 0)
}

func TestEnrichUsesCaches(t *testing.T) {
	e := testEngine()

	for i := 0; i < 5; i++ {
		_, _ = e.Enrich(&model.RawRecord{
			Method: "GET", URI: "/api/user/list", Status: "200",
			UserAgent: "curl/8.5.0",
		})
	}

	uaHits, uaMisses := e.uaCache.Stats()
	assert.Equal(t, int64(4), uaHits)
	assert.Equal(t, int64(1), uaMisses)

	uriHits, uriMisses := e.uriCache.Stats()
	assert.Equal(t, int64(4), uriHits)
	assert.Equal(t, int64(1), uriMisses)

	assert.NotEmpty(t, e.CacheStats())
}
