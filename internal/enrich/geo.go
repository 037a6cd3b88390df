package enrich

import (
	"net"
	"strings"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// geoPrefix maps an address prefix to location and carrier. Heuristic
// tables ported as data; longest prefix wins.
type geoPrefix struct {
	Prefix  string
	Country string
	Region  string
	City    string
	ISP     string
}

var geoPrefixes = []geoPrefix{
	{"202.96.", "China", "Shanghai", "Shanghai", "China Telecom"},
	{"202.97.", "China", "Beijing", "Beijing", "China Telecom"},
	{"219.141.", "China", "Beijing", "Beijing", "China Telecom"},
	{"211.136.", "China", "Guangdong", "Guangzhou", "China Mobile"},
	{"211.137.", "China", "Jiangsu", "Nanjing", "China Mobile"},
	{"117.136.", "China", "Beijing", "Beijing", "China Mobile"},
	{"218.104.", "China", "Zhejiang", "Hangzhou", "China Unicom"},
	{"221.6.", "China", "Jiangsu", "Nanjing", "China Unicom"},
	{"123.125.", "China", "Beijing", "Beijing", "China Unicom"},
	{"47.74.", "China", "Zhejiang", "Hangzhou", "Alibaba Cloud"},
	{"119.23.", "China", "Guangdong", "Shenzhen", "Alibaba Cloud"},
	{"120.76.", "China", "Guangdong", "Shenzhen", "Alibaba Cloud"},
	{"8.8.", "United States", "California", "Mountain View", "Google"},
	{"1.1.1.", "Australia", "New South Wales", "Sydney", "Cloudflare"},
}

// applyGeo resolves country/region/city/ISP from the client address.
// Internal addresses short-circuit to the intranet label.
func (e *Engine) applyGeo(rec *model.EnrichedRecord, addr string) {
	rec.Country = "unknown"
	rec.Region = "unknown"
	rec.City = "unknown"
	rec.ISP = "unknown"

	ip := net.ParseIP(addr)
	if ip == nil {
		return
	}
	if rec.IsInternalIP {
		rec.Country = "internal"
		rec.Region = "intranet"
		rec.City = "intranet"
		rec.ISP = "internal"
		return
	}

	var best geoPrefix
	for _, p := range geoPrefixes {
		if strings.HasPrefix(addr, p.Prefix) && len(p.Prefix) > len(best.Prefix) {
			best = p
		}
	}
	if best.Prefix != "" {
		rec.Country = best.Country
		rec.Region = best.Region
		rec.City = best.City
		rec.ISP = best.ISP
	}
}
