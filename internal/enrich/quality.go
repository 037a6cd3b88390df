package enrich

import (
	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// applyQuality scores how complete the source line was: 100 minus 10 per
// missing required field, minus 20 for a negative duration, minus 10 for a
// negative size, floored at 0.
func (e *Engine) applyQuality(rec *model.EnrichedRecord, raw *model.RawRecord) {
	score := 100

	required := []string{
		raw.RemoteAddr,
		raw.Method,
		raw.URI,
		raw.Status,
		raw.UserAgent,
		raw.TimestampRaw,
	}
	for _, v := range required {
		if v == "" {
			score -= 10
		}
	}
	if raw.RequestTime < 0 {
		score -= 20
	}
	if raw.BodyBytes < 0 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	rec.DataQualityScore = score
}
