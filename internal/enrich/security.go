package enrich

import (
	"net"
	"regexp"
	"strings"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// Threat signature regexes. Values are accumulated into the risk score; a
// record can trip several.
var threatSignatures = []struct {
	Name    string
	Pattern *regexp.Regexp
	Score   float64
}{
	{"sql_injection", regexp.MustCompile(`(?i)(union[\s+]+select|select.+\bfrom\b|insert[\s+]+into|drop[\s+]+table|\bor[\s+]+1=1|'[\s+]*or[\s+]*')`), 35},
	{"xss", regexp.MustCompile(`(?i)(<script|javascript:|onerror[\s]*=|onload[\s]*=|alert[\s]*\()`), 25},
	{"path_traversal", regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e%2f|%252e)`), 30},
	{"command_injection", regexp.MustCompile(`(?i)(;[\s]*(cat|ls|rm|wget|curl|bash|sh)\b|\$\(|&&[\s]*(cat|ls|rm)\b|\x60)`), 35},
}

var privateNets = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
)

// Curated membership lists, ported as data. Small representative sets; the
// production tables are refreshed out of band.
var (
	torExitNets = mustParseCIDRs(
		"185.220.100.0/22",
		"199.249.230.0/24",
		"204.13.164.0/24",
	)
	proxyNets = mustParseCIDRs(
		"103.21.244.0/22",
		"104.16.0.0/13",
	)
	vpnNets = mustParseCIDRs(
		"146.70.0.0/16",
		"194.36.25.0/24",
	)
	datacenterNets = mustParseCIDRs(
		"13.64.0.0/11",
		"34.64.0.0/10",
		"47.74.0.0/15",
		"119.23.0.0/16",
		"120.76.0.0/14",
	)
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("bad builtin cidr: " + c)
		}
		nets = append(nets, n)
	}
	return nets
}

func inAny(ip net.IP, nets []*net.IPNet) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// applySecurity fills anomaly flags, threat signatures, risk score and IP
// classification.
func (e *Engine) applySecurity(rec *model.EnrichedRecord, raw *model.RawRecord) {
	// Threshold anomalies.
	switch {
	case rec.TotalRequestDuration > e.cfg.AnomalyDurationMs:
		rec.HasAnomaly = true
		rec.AnomalyType = "extreme_duration"
	case raw.BodyBytes > e.cfg.AnomalyBodyBytes:
		rec.HasAnomaly = true
		rec.AnomalyType = "oversized_response"
	case rec.IsServerError && rec.IsSlow:
		rec.HasAnomaly = true
		rec.AnomalyType = "slow_server_error"
	}

	// Signature scan over the full URI including the query string.
	target := raw.URI
	var matched []string
	risk := 0.0
	for _, sig := range threatSignatures {
		if sig.Pattern.MatchString(target) {
			matched = append(matched, sig.Name)
			risk += sig.Score
		}
	}
	if rec.HasAnomaly {
		risk += 10
	}
	if risk > 100 {
		risk = 100
	}
	rec.ThreatSignature = strings.Join(matched, ",")
	rec.RiskScore = risk

	// IP classification.
	ip := net.ParseIP(raw.RemoteAddr)
	switch {
	case ip == nil:
		rec.IPClassification = "invalid"
	case inAny(ip, privateNets):
		rec.IPClassification = "internal"
		rec.IsInternalIP = true
	default:
		rec.IPClassification = "external"
		rec.IsTorExit = inAny(ip, torExitNets)
		rec.IsProxy = inAny(ip, proxyNets)
		rec.IsVPN = inAny(ip, vpnNets)
		rec.IsDatacenter = inAny(ip, datacenterNets)
		if rec.IsTorExit {
			rec.RiskScore += 20
		}
		if rec.RiskScore > 100 {
			rec.RiskScore = 100
		}
	}
}
