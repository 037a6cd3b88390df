package enrich

import (
	"path"
	"regexp"
	"strings"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// URIInfo is the cached structural breakdown of one request URI.
type URIInfo struct {
	Path        string
	QueryParams string
	Application string
	Service     string
	Module      string
	Endpoint    string
	Version     string
	IsStatic    bool
}

var versionTokenRe = regexp.MustCompile(`/(v\d+)(?:/|$)`)

// staticExtensions mark requests for assets rather than API calls.
var staticExtensions = map[string]struct{}{
	".js": {}, ".css": {}, ".map": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {}, ".svg": {}, ".webp": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".otf": {},
	".html": {}, ".htm": {}, ".txt": {}, ".xml": {}, ".pdf": {},
	".mp4": {}, ".mp3": {}, ".zip": {},
}

// applyURI fills the request-structure fields, going through the URI cache.
func (e *Engine) applyURI(rec *model.EnrichedRecord, uri string) {
	info := e.uriCache.GetOrCompute(uri, func() URIInfo {
		return ParseURI(uri)
	})
	rec.URIPath = info.Path
	rec.QueryParams = info.QueryParams
	rec.ApplicationName = info.Application
	rec.ServiceName = info.Service
	rec.APIModule = info.Module
	rec.APIEndpoint = info.Endpoint
	rec.APIVersion = info.Version
	rec.IsStaticResource = info.IsStatic
}

// ParseURI splits a URI into the application/service/module/endpoint
// hierarchy used by the warehouse: first four path segments in order.
func ParseURI(uri string) URIInfo {
	info := URIInfo{Path: uri}
	if uri == "" {
		return info
	}

	if i := strings.IndexByte(uri, '?'); i >= 0 {
		info.Path = uri[:i]
		info.QueryParams = uri[i+1:]
	}

	if m := versionTokenRe.FindStringSubmatch(info.Path); m != nil {
		info.Version = m[1]
	}

	ext := strings.ToLower(path.Ext(info.Path))
	if _, ok := staticExtensions[ext]; ok {
		info.IsStatic = true
	}

	segments := splitSegments(info.Path)
	if len(segments) > 0 {
		info.Application = segments[0]
	}
	if len(segments) > 1 {
		info.Service = segments[1]
	}
	if len(segments) > 2 {
		info.Module = segments[2]
	}
	if len(segments) > 3 {
		info.Endpoint = segments[3]
	}
	return info
}

func splitSegments(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	segments := parts[:0]
	for _, s := range parts {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
