package enrich

import (
	"strings"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

const domainGeneral = "general"

// domainRule scores one business domain. Keywords match anywhere in the
// lowercased URI path and score the rule weight; URIPatterns score double.
// The dictionary is ported data, not derived; declaration order breaks ties.
type domainRule struct {
	Domain      string
	Subdomain   string
	Weight      int
	Importance  string
	ValueScore  int
	Keywords    []string
	URIPatterns []string
}

var domainRules = []domainRule{
	{
		Domain: "authentication", Subdomain: "registration", Weight: 10,
		Importance: "critical", ValueScore: 95,
		Keywords:    []string{"newuser", "register", "signup", "bind", "verifycode", "captcha"},
		URIPatterns: []string{"/newuser/", "/register", "/signup"},
	},
	{
		Domain: "authentication", Subdomain: "login", Weight: 10,
		Importance: "critical", ValueScore: 90,
		Keywords:    []string{"login", "logout", "auth", "token", "oauth", "sso", "credential", "session"},
		URIPatterns: []string{"/login", "/auth/", "/oauth", "/token"},
	},
	{
		Domain: "payment", Subdomain: "transaction", Weight: 10,
		Importance: "critical", ValueScore: 100,
		Keywords:    []string{"pay", "payment", "order", "refund", "bill", "charge", "wallet"},
		URIPatterns: []string{"/pay/", "/payment/", "/order/", "/refund"},
	},
	{
		Domain: "user_center", Subdomain: "profile", Weight: 8,
		Importance: "high", ValueScore: 70,
		Keywords:    []string{"user", "profile", "account", "member", "userinfo", "avatar"},
		URIPatterns: []string{"/user/", "/profile/", "/account/"},
	},
	{
		Domain: "marketing", Subdomain: "campaign", Weight: 6,
		Importance: "normal", ValueScore: 60,
		Keywords:    []string{"activity", "campaign", "coupon", "promotion", "lottery", "points", "reward"},
		URIPatterns: []string{"/activity/", "/coupon/", "/promotion/"},
	},
	{
		Domain: "content", Subdomain: "delivery", Weight: 5,
		Importance: "normal", ValueScore: 50,
		Keywords:    []string{"article", "news", "banner", "cms", "content", "media", "video"},
		URIPatterns: []string{"/article/", "/news/", "/cms/"},
	},
	{
		Domain: "search", Subdomain: "query", Weight: 5,
		Importance: "normal", ValueScore: 55,
		Keywords:    []string{"search", "query", "suggest", "recommend"},
		URIPatterns: []string{"/search/", "/query/"},
	},
	{
		Domain: "messaging", Subdomain: "notification", Weight: 6,
		Importance: "high", ValueScore: 65,
		Keywords:    []string{"message", "notify", "notification", "sms", "push", "mail"},
		URIPatterns: []string{"/message/", "/notify/", "/sms/"},
	},
	{
		Domain: "infrastructure", Subdomain: "gateway", Weight: 3,
		Importance: "low", ValueScore: 30,
		Keywords:    []string{"gateway", "health", "ping", "status", "metrics", "actuator", "heartbeat"},
		URIPatterns: []string{"/health", "/ping", "/actuator/"},
	},
}

// applyBusiness classifies the record's business domain by cumulative score
// over the rule dictionary. Highest score wins, earlier declaration wins
// ties, confidence is score/20 clamped to [0,1].
func (e *Engine) applyBusiness(rec *model.EnrichedRecord) {
	if rec.IsStaticResource {
		rec.BusinessDomain = "static_content"
		rec.BusinessSubdomain = "assets"
		rec.DomainConfidence = 1.0
		rec.APIImportance = "low"
		rec.BusinessValueScore = 10
		return
	}

	lower := strings.ToLower(rec.URIPath)
	if lower == "" {
		lower = strings.ToLower(rec.URI)
	}

	best := -1
	bestScore := 0
	for i, rule := range domainRules {
		score := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				score += rule.Weight
			}
		}
		for _, pat := range rule.URIPatterns {
			if strings.Contains(lower, pat) {
				score += rule.Weight * 2
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 {
		rec.BusinessDomain = domainGeneral
		rec.APIImportance = "normal"
		rec.BusinessValueScore = 40
		return
	}

	rule := domainRules[best]
	rec.BusinessDomain = rule.Domain
	rec.BusinessSubdomain = rule.Subdomain
	rec.APIImportance = rule.Importance
	rec.BusinessValueScore = rule.ValueScore
	confidence := float64(bestScore) / 20
	if confidence > 1 {
		confidence = 1
	}
	rec.DomainConfidence = confidence
}
