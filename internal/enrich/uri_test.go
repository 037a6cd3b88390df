package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseURIHierarchy(t *testing.T) {
	info := ParseURI("/scmp-gateway/newuser/register?channel=app")

	assert.Equal(t, "/scmp-gateway/newuser/register", info.Path)
	assert.Equal(t, "channel=app", info.QueryParams)
	assert.Equal(t, "scmp-gateway", info.Application)
	assert.Equal(t, "newuser", info.Service)
	assert.Equal(t, "register", info.Module)
	assert.Empty(t, info.Endpoint)
	assert.False(t, info.IsStatic)
}

func TestParseURIFourSegments(t *testing.T) {
	info := ParseURI("/app/svc/mod/endpoint/extra")

	assert.Equal(t, "app", info.Application)
	assert.Equal(t, "svc", info.Service)
	assert.Equal(t, "mod", info.Module)
	assert.Equal(t, "endpoint", info.Endpoint)
}

func TestParseURIVersion(t *testing.T) {
	assert.Equal(t, "v2", ParseURI("/api/v2/user/profile").Version)
	assert.Equal(t, "v1", ParseURI("/api/v1").Version)
	assert.Empty(t, ParseURI("/api/v2abc/user").Version)
	assert.Empty(t, ParseURI("/vendors/list").Version)
}

func TestParseURIStatic(t *testing.T) {
	tests := []struct {
		uri    string
		static bool
	}{
		{"/static/js/app.min.js", true},
		{"/assets/logo.png", true},
		{"/fonts/icon.woff2", true},
		{"/index.html?v=3", true},
		{"/api/user/list", false},
		{"/download.jsp", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.static, ParseURI(tc.uri).IsStatic, "uri %s", tc.uri)
	}
}

func TestParseURIEdgeCases(t *testing.T) {
	info := ParseURI("")
	assert.Empty(t, info.Path)
	assert.Empty(t, info.Application)

	info = ParseURI("/")
	assert.Equal(t, "/", info.Path)
	assert.Empty(t, info.Application)

	// Repeated slashes do not yield empty segments.
	info = ParseURI("//api///user")
	assert.Equal(t, "api", info.Application)
	assert.Equal(t, "user", info.Service)
}
