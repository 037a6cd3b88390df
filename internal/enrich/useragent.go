package enrich

import (
	"regexp"
	"strings"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// PlatformInfo is the cached result of parsing one user-agent string.
type PlatformInfo struct {
	Platform       string
	OSVersion      string
	DeviceType     string
	Browser        string
	BrowserVersion string
	SDKType        string
	SDKVersion     string
	IsBot          bool
	BotProbability float64
	BotType        string
}

var (
	// SDK markers are checked before everything else; an SDK identifier is
	// the most specific signal a client can send.
	wstSDKRe     = regexp.MustCompile(`(WST-SDK-(?:iOS|Android))/([\w.]+)`)
	genericSDKRe = regexp.MustCompile(`([A-Za-z][\w]*-SDK(?:-[\w]+)?)/([\w.]+)`)

	iosVersionRe     = regexp.MustCompile(`OS (\d+[_.]\d+(?:[_.]\d+)?) like Mac OS X`)
	androidVersionRe = regexp.MustCompile(`Android (\d+(?:\.\d+)*)`)
	windowsVersionRe = regexp.MustCompile(`Windows NT (\d+(?:\.\d+)*)`)
	macosVersionRe   = regexp.MustCompile(`Mac OS X (\d+[_.]\d+(?:[_.]\d+)?)`)

	chromeRe  = regexp.MustCompile(`Chrome/(\d+(?:\.\d+)*)`)
	edgeRe    = regexp.MustCompile(`Edg(?:e|A|iOS)?/(\d+(?:\.\d+)*)`)
	firefoxRe = regexp.MustCompile(`Firefox/(\d+(?:\.\d+)*)`)
	safariRe  = regexp.MustCompile(`Version/(\d+(?:\.\d+)*).*Safari`)
	operaRe   = regexp.MustCompile(`(?:OPR|Opera)/(\d+(?:\.\d+)*)`)
	msieRe    = regexp.MustCompile(`MSIE (\d+(?:\.\d+)*)`)
)

// Weighted bot indicators and counter-evidence. The probability is the
// clamped sum; 0.5 is the is_bot cutoff.
var (
	searchBotNames  = []string{"googlebot", "bingbot", "baiduspider", "yandexbot", "duckduckbot", "sogou", "360spider", "bytespider"}
	monitorNames    = []string{"uptimerobot", "pingdom", "statuscake", "site24x7", "zabbix", "datadog", "prometheus", "blackbox"}
	toolNames       = []string{"curl", "wget", "python-requests", "python-urllib", "go-http-client", "java/", "okhttp", "apache-httpclient", "libwww", "scrapy", "httpie", "postman"}
	genericBotWords = []string{"bot", "spider", "crawl", "scan", "fetch"}
)

// applyPlatform fills the platform group, going through the UA cache.
func (e *Engine) applyPlatform(rec *model.EnrichedRecord, ua string) {
	info := e.uaCache.GetOrCompute(ua, func() PlatformInfo {
		return ParseUserAgent(ua)
	})
	rec.Platform = info.Platform
	rec.OSVersion = info.OSVersion
	rec.DeviceType = info.DeviceType
	rec.Browser = info.Browser
	rec.BrowserVersion = info.BrowserVersion
	rec.SDKType = info.SDKType
	rec.SDKVersion = info.SDKVersion
	rec.IsBot = info.IsBot
	rec.BotProbability = info.BotProbability
	rec.BotType = info.BotType
}

// ParseUserAgent runs the classification cascade: SDK markers, OS family,
// device type, browser, then bot scoring.
func ParseUserAgent(ua string) PlatformInfo {
	info := PlatformInfo{
		Platform:   "Unknown",
		DeviceType: "Unknown",
		Browser:    "Unknown",
	}
	if ua == "" {
		info.BotProbability = botProbability(ua)
		info.IsBot = info.BotProbability > 0.5
		if info.IsBot {
			info.BotType = "generic"
		}
		return info
	}

	lower := strings.ToLower(ua)

	// SDK markers first.
	if m := wstSDKRe.FindStringSubmatch(ua); m != nil {
		info.SDKType = m[1]
		info.SDKVersion = m[2]
		if strings.HasSuffix(m[1], "iOS") {
			info.Platform = "iOS"
		} else {
			info.Platform = "Android"
		}
		info.DeviceType = "Mobile"
	} else if m := genericSDKRe.FindStringSubmatch(ua); m != nil {
		info.SDKType = m[1]
		info.SDKVersion = m[2]
	}

	// OS family.
	if info.Platform == "Unknown" {
		switch {
		case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iPod"):
			info.Platform = "iOS"
			if m := iosVersionRe.FindStringSubmatch(ua); m != nil {
				info.OSVersion = strings.ReplaceAll(m[1], "_", ".")
			}
		case strings.Contains(ua, "Android"):
			info.Platform = "Android"
			if m := androidVersionRe.FindStringSubmatch(ua); m != nil {
				info.OSVersion = m[1]
			}
		case strings.Contains(ua, "Windows"):
			info.Platform = "Windows"
			if m := windowsVersionRe.FindStringSubmatch(ua); m != nil {
				info.OSVersion = m[1]
			}
		case strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh"):
			info.Platform = "macOS"
			if m := macosVersionRe.FindStringSubmatch(ua); m != nil {
				info.OSVersion = strings.ReplaceAll(m[1], "_", ".")
			}
		case strings.Contains(lower, "linux"):
			info.Platform = "Linux"
		}
	}

	// Device type.
	if info.DeviceType == "Unknown" {
		switch {
		case strings.Contains(ua, "iPad") || strings.Contains(lower, "tablet"):
			info.DeviceType = "Tablet"
		case strings.Contains(ua, "iPhone") || strings.Contains(lower, "mobile"):
			info.DeviceType = "Mobile"
		case info.Platform == "Android":
			// Android without "Mobile" is a tablet per UA convention.
			info.DeviceType = "Tablet"
		case info.Platform == "Windows" || info.Platform == "macOS" || info.Platform == "Linux":
			info.DeviceType = "Desktop"
		}
	}

	// Browser engine, most specific tokens first: Edge and Opera embed
	// Chrome, Chrome embeds Safari.
	switch {
	case edgeRe.MatchString(ua):
		info.Browser = "Edge"
		info.BrowserVersion = edgeRe.FindStringSubmatch(ua)[1]
	case operaRe.MatchString(ua):
		info.Browser = "Opera"
		info.BrowserVersion = operaRe.FindStringSubmatch(ua)[1]
	case chromeRe.MatchString(ua):
		info.Browser = "Chrome"
		info.BrowserVersion = chromeRe.FindStringSubmatch(ua)[1]
	case firefoxRe.MatchString(ua):
		info.Browser = "Firefox"
		info.BrowserVersion = firefoxRe.FindStringSubmatch(ua)[1]
	case safariRe.MatchString(ua):
		info.Browser = "Safari"
		info.BrowserVersion = safariRe.FindStringSubmatch(ua)[1]
	case msieRe.MatchString(ua) || strings.Contains(ua, "Trident"):
		info.Browser = "IE"
		if m := msieRe.FindStringSubmatch(ua); m != nil {
			info.BrowserVersion = m[1]
		}
	}

	info.BotProbability = botProbability(ua)
	info.IsBot = info.BotProbability > 0.5
	if info.IsBot {
		info.BotType = botType(lower)
		if info.DeviceType == "Unknown" {
			info.DeviceType = "Bot"
		}
	}
	return info
}

// botProbability sums weighted indicator matches minus counter-evidence,
// clamped to [0,1].
func botProbability(ua string) float64 {
	lower := strings.ToLower(ua)
	score := 0.0

	if ua == "" {
		return 0.8
	}
	for _, name := range searchBotNames {
		if strings.Contains(lower, name) {
			score += 0.7
			break
		}
	}
	for _, name := range monitorNames {
		if strings.Contains(lower, name) {
			score += 0.6
			break
		}
	}
	for _, name := range toolNames {
		if strings.Contains(lower, name) {
			score += 0.5
			break
		}
	}
	for _, word := range genericBotWords {
		if strings.Contains(lower, word) {
			score += 0.4
			break
		}
	}
	// Minimal-format agents: no Mozilla compatibility prefix at all.
	if !strings.Contains(ua, "Mozilla/") {
		score += 0.2
	}
	if len(ua) < 20 {
		score += 0.1
	}

	// Counter-evidence: a standard browser signature.
	if strings.Contains(ua, "Mozilla/5.0") &&
		(strings.Contains(ua, "Chrome/") || strings.Contains(ua, "Safari/") || strings.Contains(ua, "Firefox/")) {
		score -= 0.4
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func botType(lower string) string {
	for _, name := range searchBotNames {
		if strings.Contains(lower, name) {
			return "search_engine"
		}
	}
	for _, name := range monitorNames {
		if strings.Contains(lower, name) {
			return "monitoring"
		}
	}
	for _, name := range toolNames {
		if strings.Contains(lower, name) {
			return "tool"
		}
	}
	return "generic"
}
