// Package model defines the core data structures flowing through the pipeline.
package model

import (
	"time"
)

// RawRecord holds the fields extracted from a single access-log line before
// enrichment. It is created per line by the parser, consumed by the
// enrichment engine, and mirrored to the ODS table.
type RawRecord struct {
	// Timestamp is the parsed event time from the log line.
	Timestamp time.Time

	// TimestampRaw is the original timestamp string as it appeared in the line.
	TimestampRaw string

	// TimeFallback is true when the timestamp could not be parsed and the
	// ingestion time was substituted.
	TimeFallback bool

	RemoteAddr string
	RemoteUser string

	Method   string
	URI      string
	Protocol string
	Host     string

	Status    string
	BodyBytes int64

	// Durations as reported by nginx, in seconds. Zero means absent.
	RequestTime      float64
	UpstreamConnect  float64
	UpstreamHeader   float64
	UpstreamResponse float64

	UserAgent string
	Referer   string
	TraceID   string

	// SourceFile and SourceLine identify where the line came from.
	SourceFile string
	SourceLine int

	// Format records which parser matched: "json", "keyvalue" or "combined".
	Format string
}

// EnrichedRecord is the pipeline's output unit: one analytical row per
// request, immutable once produced. Field groups follow the DWD table layout.
type EnrichedRecord struct {
	// Identity / time partitions.
	LogTime    time.Time `json:"log_time"`
	DateStr    string    `json:"date_str"` // YYYY-MM-DD
	HourKey    int       `json:"hour_key"`
	MinuteKey  int       `json:"minute_key"`
	SourceFile string    `json:"source_file"`
	TraceID    string    `json:"trace_id"`

	// Request.
	Method      string `json:"method"`
	URI         string `json:"uri"`
	URIPath     string `json:"uri_path"` // URI without query string
	QueryParams string `json:"query_params"`
	Protocol    string `json:"protocol"`
	Host        string `json:"host"`
	RemoteAddr  string `json:"remote_addr"`
	RemoteUser  string `json:"remote_user"`
	Referer     string `json:"referer"`

	// Response.
	StatusCode          string  `json:"status_code"`
	IsSuccess           bool    `json:"is_success"`
	IsRedirect          bool    `json:"is_redirect"`
	IsClientError       bool    `json:"is_client_error"`
	IsServerError       bool    `json:"is_server_error"`
	ErrorClassification string  `json:"error_classification"`
	ResponseBytes       int64   `json:"response_bytes"`
	ResponseKB          float64 `json:"response_kb"`

	// Performance: decomposed phases, integer milliseconds.
	TotalRequestDuration int64 `json:"total_request_duration"`
	BackendConnectPhase  int64 `json:"backend_connect_phase"`
	BackendProcessPhase  int64 `json:"backend_process_phase"`
	BackendTransferPhase int64 `json:"backend_transfer_phase"`
	NginxTransferPhase   int64 `json:"nginx_transfer_phase"`
	NetworkPhase         int64 `json:"network_phase"`
	ProcessingPhase      int64 `json:"processing_phase"`
	TransferPhase        int64 `json:"transfer_phase"`

	// PhaseEstimated is true when upstream timings were absent and the
	// phases were derived from the total duration.
	PhaseEstimated bool `json:"phase_estimated"`

	// Efficiency ratios, percentages of total duration.
	BackendEfficiency float64 `json:"backend_efficiency"`
	NetworkOverhead   float64 `json:"network_overhead"`
	TransferRatio     float64 `json:"transfer_ratio"`
	ProcessingRatio   float64 `json:"processing_ratio"`

	Apdex      string `json:"apdex"` // satisfied, tolerated, frustrated
	IsSlow     bool   `json:"is_slow"`
	IsVerySlow bool   `json:"is_very_slow"`

	// Platform.
	Platform       string  `json:"platform"` // OS family
	OSVersion      string  `json:"os_version"`
	DeviceType     string  `json:"device_type"`
	Browser        string  `json:"browser"`
	BrowserVersion string  `json:"browser_version"`
	SDKType        string  `json:"sdk_type"`
	SDKVersion     string  `json:"sdk_version"`
	IsBot          bool    `json:"is_bot"`
	BotProbability float64 `json:"bot_probability"`
	BotType        string  `json:"bot_type"`

	// Business.
	ApplicationName    string  `json:"application_name"`
	ServiceName        string  `json:"service_name"`
	APIModule          string  `json:"api_module"`
	APIEndpoint        string  `json:"api_endpoint"`
	APIVersion         string  `json:"api_version"`
	IsStaticResource   bool    `json:"is_static_resource"`
	BusinessDomain     string  `json:"business_domain"`
	BusinessSubdomain  string  `json:"business_subdomain"`
	DomainConfidence   float64 `json:"domain_confidence"`
	APIImportance      string  `json:"api_importance"`
	BusinessValueScore int     `json:"business_value_score"`

	// Security.
	IPClassification string  `json:"ip_classification"`
	IsInternalIP     bool    `json:"is_internal_ip"`
	HasAnomaly       bool    `json:"has_anomaly"`
	AnomalyType      string  `json:"anomaly_type"`
	ThreatSignature  string  `json:"threat_signature"`
	RiskScore        float64 `json:"risk_score"`
	IsTorExit        bool    `json:"is_tor_exit"`
	IsProxy          bool    `json:"is_proxy"`
	IsVPN            bool    `json:"is_vpn"`
	IsDatacenter     bool    `json:"is_datacenter"`

	// Geo.
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
	ISP     string `json:"isp"`

	// Quality.
	DataQualityScore int    `json:"data_quality_score"`
	ParsingFallback  bool   `json:"parsing_fallback"`
	EnrichmentError  string `json:"enrichment_error"`
}

// Outcome tags the result of enriching one raw record. The engine is total:
// it always yields a record, but callers can see whether defaults were
// substituted.
type Outcome int

const (
	// OutcomeEnriched means the record was fully enriched.
	OutcomeEnriched Outcome = iota

	// OutcomeDegraded means enrichment hit malformed input and the record
	// carries safe defaults plus an error annotation.
	OutcomeDegraded
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	if o == OutcomeDegraded {
		return "degraded"
	}
	return "enriched"
}
