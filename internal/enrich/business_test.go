package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

func classify(t *testing.T, uri string) model.EnrichedRecord {
	t.Helper()
	e := testEngine()
	rec := model.EnrichedRecord{URI: uri}
	e.applyURI(&rec, uri)
	e.applyBusiness(&rec)
	return rec
}

func TestBusinessDomainRegistration(t *testing.T) {
	rec := classify(t, "/scmp-gateway/newuser/register?channel=app")

	assert.Equal(t, "authentication", rec.BusinessDomain)
	assert.Equal(t, "registration", rec.BusinessSubdomain)
	assert.Equal(t, "critical", rec.APIImportance)
	assert.Equal(t, 95, rec.BusinessValueScore)
	assert.InDelta(t, 1.0, rec.DomainConfidence, 1e-9)
}

func TestBusinessDomainClassification(t *testing.T) {
	tests := []struct {
		uri       string
		domain    string
		subdomain string
	}{
		{"/auth/oauth/token", "authentication", "login"},
		{"/pay/order/create", "payment", "transaction"},
		{"/api/user/profile/detail", "user_center", "profile"},
		{"/activity/coupon/claim", "marketing", "campaign"},
		{"/cms/article/123", "content", "delivery"},
		{"/search/suggest?q=abc", "search", "query"},
		{"/message/push/send", "messaging", "notification"},
		{"/actuator/health", "infrastructure", "gateway"},
	}

	for _, tc := range tests {
		rec := classify(t, tc.uri)
		assert.Equal(t, tc.domain, rec.BusinessDomain, "uri %s", tc.uri)
		assert.Equal(t, tc.subdomain, rec.BusinessSubdomain, "uri %s", tc.uri)
	}
}

func TestBusinessDomainStaticContent(t *testing.T) {
	rec := classify(t, "/static/js/app.js")

	assert.Equal(t, "static_content", rec.BusinessDomain)
	assert.Equal(t, "assets", rec.BusinessSubdomain)
	assert.InDelta(t, 1.0, rec.DomainConfidence, 1e-9)
	assert.Equal(t, 10, rec.BusinessValueScore)
}

func TestBusinessDomainGeneralFallback(t *testing.T) {
	rec := classify(t, "/foo/bar/baz")

	assert.Equal(t, "general", rec.BusinessDomain)
	assert.Empty(t, rec.BusinessSubdomain)
	assert.Zero(t, rec.DomainConfidence)
	assert.Equal(t, "normal", rec.APIImportance)
}

func TestBusinessDomainConfidenceScaling(t *testing.T) {
	// A single weak keyword match stays below full confidence.
	rec := classify(t, "/xyz/banner")
	assert.Equal(t, "content", rec.BusinessDomain)
	assert.InDelta(t, 0.25, rec.DomainConfidence, 1e-9)
}
