package sink

import (
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// RawColumns is the ODS table column order. RawRow must stay in sync.
var RawColumns = []string{
	"log_time", "time_raw", "remote_addr", "remote_user",
	"method", "uri", "protocol", "host",
	"status", "body_bytes",
	"request_time", "upstream_connect_time", "upstream_header_time", "upstream_response_time",
	"user_agent", "referer", "trace_id",
	"source_file", "source_line", "line_format",
}

// RawRow renders one RawRecord in RawColumns order.
func RawRow(r *model.RawRecord) []any {
	return []any{
		r.Timestamp, r.TimestampRaw, r.RemoteAddr, r.RemoteUser,
		r.Method, r.URI, r.Protocol, r.Host,
		r.Status, r.BodyBytes,
		r.RequestTime, r.UpstreamConnect, r.UpstreamHeader, r.UpstreamResponse,
		r.UserAgent, r.Referer, r.TraceID,
		r.SourceFile, int32(r.SourceLine), r.Format,
	}
}

// EnrichedColumns is the DWD table column order. EnrichedRow must stay in
// sync.
var EnrichedColumns = []string{
	"log_time", "date_str", "hour_key", "minute_key", "source_file", "trace_id",
	"method", "uri", "uri_path", "query_params", "protocol", "host",
	"remote_addr", "remote_user", "referer",
	"status_code", "is_success", "is_redirect", "is_client_error", "is_server_error",
	"error_classification", "response_bytes", "response_kb",
	"total_request_duration", "backend_connect_phase", "backend_process_phase",
	"backend_transfer_phase", "nginx_transfer_phase", "network_phase",
	"processing_phase", "transfer_phase", "phase_estimated",
	"backend_efficiency", "network_overhead", "transfer_ratio", "processing_ratio",
	"apdex", "is_slow", "is_very_slow",
	"platform", "os_version", "device_type", "browser", "browser_version",
	"sdk_type", "sdk_version", "is_bot", "bot_probability", "bot_type",
	"application_name", "service_name", "api_module", "api_endpoint", "api_version",
	"is_static_resource", "business_domain", "business_subdomain", "domain_confidence",
	"api_importance", "business_value_score",
	"ip_classification", "is_internal_ip", "has_anomaly", "anomaly_type",
	"threat_signature", "risk_score", "is_tor_exit", "is_proxy", "is_vpn", "is_datacenter",
	"country", "region", "city", "isp",
	"data_quality_score", "parsing_fallback", "enrichment_error",
}

// EnrichedRow renders one EnrichedRecord in EnrichedColumns order.
func EnrichedRow(r *model.EnrichedRecord) []any {
	return []any{
		r.LogTime, r.DateStr, int16(r.HourKey), int16(r.MinuteKey), r.SourceFile, r.TraceID,
		r.Method, r.URI, r.URIPath, r.QueryParams, r.Protocol, r.Host,
		r.RemoteAddr, r.RemoteUser, r.Referer,
		r.StatusCode, r.IsSuccess, r.IsRedirect, r.IsClientError, r.IsServerError,
		r.ErrorClassification, r.ResponseBytes, r.ResponseKB,
		r.TotalRequestDuration, r.BackendConnectPhase, r.BackendProcessPhase,
		r.BackendTransferPhase, r.NginxTransferPhase, r.NetworkPhase,
		r.ProcessingPhase, r.TransferPhase, r.PhaseEstimated,
		r.BackendEfficiency, r.NetworkOverhead, r.TransferRatio, r.ProcessingRatio,
		r.Apdex, r.IsSlow, r.IsVerySlow,
		r.Platform, r.OSVersion, r.DeviceType, r.Browser, r.BrowserVersion,
		r.SDKType, r.SDKVersion, r.IsBot, r.BotProbability, r.BotType,
		r.ApplicationName, r.ServiceName, r.APIModule, r.APIEndpoint, r.APIVersion,
		r.IsStaticResource, r.BusinessDomain, r.BusinessSubdomain, r.DomainConfidence,
		r.APIImportance, int32(r.BusinessValueScore),
		r.IPClassification, r.IsInternalIP, r.HasAnomaly, r.AnomalyType,
		r.ThreatSignature, r.RiskScore, r.IsTorExit, r.IsProxy, r.IsVPN, r.IsDatacenter,
		r.Country, r.Region, r.City, r.ISP,
		int16(r.DataQualityScore), r.ParsingFallback, r.EnrichmentError,
	}
}
