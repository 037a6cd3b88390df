// Package enrich derives the analytical attributes of an EnrichedRecord from
// a parsed RawRecord: timing-phase decomposition, platform classification,
// business-domain scoring, security checks, geo inference and data-quality
// scoring.
package enrich

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/cache"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// Engine turns RawRecords into EnrichedRecords. It is pure transformation:
// no I/O, total over its input. One instance per worker; the caches it owns
// are not synchronized.
type Engine struct {
	cfg config.EnrichConfig

	uaCache  *cache.Adaptive[PlatformInfo]
	uriCache *cache.Adaptive[URIInfo]
}

// NewEngine creates an engine with its own parse caches.
func NewEngine(cfg config.EnrichConfig, caches config.CacheConfig) *Engine {
	return &Engine{
		cfg:      cfg,
		uaCache:  cache.New[PlatformInfo](caches.UserAgentCapacity),
		uriCache: cache.New[URIInfo](caches.URICapacity),
	}
}

// Enrich produces the analytical record for one request. It never fails:
// malformed input yields a best-effort record with safe defaults, tagged
// OutcomeDegraded and carrying the reason in EnrichmentError.
func (e *Engine) Enrich(raw *model.RawRecord) (model.EnrichedRecord, model.Outcome) {
	if raw == nil {
		rec := model.EnrichedRecord{
			BusinessDomain:  domainGeneral,
			Apdex:           apdexSatisfied,
			EnrichmentError: "nil raw record",
		}
		return rec, model.OutcomeDegraded
	}

	rec := model.EnrichedRecord{
		LogTime:    raw.Timestamp,
		DateStr:    raw.Timestamp.Format("2006-01-02"),
		HourKey:    raw.Timestamp.Hour(),
		MinuteKey:  raw.Timestamp.Minute(),
		SourceFile: raw.SourceFile,
		TraceID:    raw.TraceID,

		Method:     raw.Method,
		URI:        raw.URI,
		Protocol:   raw.Protocol,
		Host:       raw.Host,
		RemoteAddr: raw.RemoteAddr,
		RemoteUser: raw.RemoteUser,
		Referer:    raw.Referer,

		StatusCode:    raw.Status,
		ResponseBytes: raw.BodyBytes,
		ResponseKB:    math.Round(float64(raw.BodyBytes)/1024*100) / 100,

		ParsingFallback: raw.TimeFallback,
	}

	outcome := model.OutcomeEnriched
	var problems []string

	e.classifyStatus(&rec)
	e.applyPhases(&rec, raw)
	e.applyPlatform(&rec, raw.UserAgent)
	e.applyURI(&rec, raw.URI)
	e.applyBusiness(&rec)
	e.applySecurity(&rec, raw)
	e.applyGeo(&rec, raw.RemoteAddr)
	e.applyQuality(&rec, raw)

	if raw.Method == "" && raw.URI == "" {
		problems = append(problems, "no request fields")
	}
	if raw.Status == "" {
		problems = append(problems, "no status")
	}
	if len(problems) > 0 {
		rec.EnrichmentError = strings.Join(problems, "; ")
		outcome = model.OutcomeDegraded
	}

	return rec, outcome
}

// UA and URI cache diagnostics, exposed for the maintenance log line.
func (e *Engine) CacheStats() string {
	uaHits, uaMiss := e.uaCache.Stats()
	uriHits, uriMiss := e.uriCache.Stats()
	return fmt.Sprintf("ua=%d/%d uri=%d/%d", uaHits, uaHits+uaMiss, uriHits, uriHits+uriMiss)
}

// PruneCaches trims both caches to half capacity. Called from the worker
// maintenance hook on a timer, never per line.
func (e *Engine) PruneCaches() {
	e.uaCache.Prune()
	e.uriCache.Prune()
}

const (
	apdexSatisfied  = "satisfied"
	apdexTolerated  = "tolerated"
	apdexFrustrated = "frustrated"
)

// classifyStatus fills the response group flags and error classification.
func (e *Engine) classifyStatus(rec *model.EnrichedRecord) {
	code, err := strconv.Atoi(rec.StatusCode)
	if err != nil {
		return
	}
	switch {
	case code >= 200 && code < 300:
		rec.IsSuccess = true
	case code >= 300 && code < 400:
		rec.IsRedirect = true
	case code >= 400 && code < 500:
		rec.IsClientError = true
	case code >= 500:
		rec.IsServerError = true
	}
	rec.ErrorClassification = errorClassification(code)
}

// errorClassification names the failure mode for 4xx/5xx statuses.
func errorClassification(code int) string {
	switch code {
	case 400:
		return "bad_request"
	case 401:
		return "unauthorized"
	case 403:
		return "forbidden"
	case 404:
		return "not_found"
	case 405:
		return "method_not_allowed"
	case 408:
		return "request_timeout"
	case 413:
		return "payload_too_large"
	case 429:
		return "too_many_requests"
	case 499:
		return "client_closed_request"
	case 500:
		return "internal_server_error"
	case 501:
		return "not_implemented"
	case 502:
		return "bad_gateway"
	case 503:
		return "service_unavailable"
	case 504:
		return "gateway_timeout"
	}
	switch {
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "client_error"
	}
	return ""
}
