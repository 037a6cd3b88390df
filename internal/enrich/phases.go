package enrich

import (
	"math"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// applyPhases decomposes the total request duration into backend and edge
// phases, all integer milliseconds. When upstream timings are absent they
// are estimated from the total using the configured ratios; those ratios are
// documented heuristics, not measurements.
func (e *Engine) applyPhases(rec *model.EnrichedRecord, raw *model.RawRecord) {
	total := toMillis(raw.RequestTime)
	if total < 0 {
		total = 0
	}

	uc := toMillis(raw.UpstreamConnect)
	uh := toMillis(raw.UpstreamHeader)
	ur := toMillis(raw.UpstreamResponse)

	if uc <= 0 && uh <= 0 && ur <= 0 && total > 0 {
		ur = int64(math.Round(float64(total) * e.cfg.EstimateBackendRatio))
		uh = int64(math.Round(float64(ur) * e.cfg.EstimateHeaderRatio))
		uc = int64(math.Round(float64(total) * e.cfg.EstimateConnectRatio))
		rec.PhaseEstimated = true
	}

	rec.TotalRequestDuration = total
	rec.BackendConnectPhase = clampMs(uc)
	rec.BackendProcessPhase = clampMs(uh - uc)
	rec.BackendTransferPhase = clampMs(ur - uh)
	rec.NginxTransferPhase = clampMs(total - ur)
	rec.NetworkPhase = rec.BackendConnectPhase + rec.NginxTransferPhase
	rec.ProcessingPhase = rec.BackendProcessPhase
	rec.TransferPhase = rec.BackendTransferPhase + rec.NginxTransferPhase

	if total > 0 {
		rec.BackendEfficiency = ratio(rec.BackendProcessPhase, total)
		rec.NetworkOverhead = ratio(rec.NetworkPhase, total)
		rec.TransferRatio = ratio(rec.TransferPhase, total)
		rec.ProcessingRatio = ratio(rec.ProcessingPhase, total)
	}

	switch {
	case total <= e.cfg.ApdexSatisfiedMs:
		rec.Apdex = apdexSatisfied
	case total <= e.cfg.ApdexToleratedMs:
		rec.Apdex = apdexTolerated
	default:
		rec.Apdex = apdexFrustrated
	}
	rec.IsSlow = total > e.cfg.SlowRequestMs
	rec.IsVerySlow = total > e.cfg.VerySlowRequestMs
}

// toMillis converts source seconds to integer milliseconds.
func toMillis(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

func clampMs(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ratio is the phase share of the total as a percentage, two decimals.
func ratio(phase, total int64) float64 {
	return math.Round(float64(phase)/float64(total)*100*100) / 100
}
