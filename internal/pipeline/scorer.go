package pipeline

import (
	"fmt"

	"github.com/northstar-intel/northstar/internal/enrich"
	"github.com/northstar-intel/northstar/internal/extract"
	"github.com/northstar-intel/northstar/internal/leakscan"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

// Intent is the intent classification attached to an alert.
type Intent struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ScoreInput carries every independently-computed signal into the composite
// scorer.
type ScoreInput struct {
	Intent            Intent
	SectorLabel       string
	SectorConfidence  float64
	Findings          []leakscan.Finding
	VulnRisk          *vulnrisk.Estimate
	SecurityLike      bool
	AttackKeywordHits int
	Enriched          []enrich.EnrichedCVE
	IOCs              extract.IOCSet
}

// Score combines all signals into one risk score, clamped to [0,100], with an
// ordered reason per contribution. The computation is additive and
// deterministic: the same input always produces the same score and the same
// reason list.
func Score(in ScoreInput) (float64, []string) {
	var reasons []string
	score := 0.0

	// Only the single highest-confidence finding counts; its type sets the
	// severity weight and its confidence earns a credibility bonus.
	if len(in.Findings) > 0 {
		top := in.Findings[0]
		for _, f := range in.Findings[1:] {
			if f.Confidence > top.Confidence {
				top = f
			}
		}
		w := severityWeights[top.Type]
		if w == 0 {
			w = defaultSeverityWeight
		}
		score += float64(w)
		reasons = append(reasons, fmt.Sprintf("Leak signal: %s (+%d)", top.Type, w))

		cred := 25.0 * top.Confidence
		score += cred
		reasons = append(reasons, fmt.Sprintf("Evidence confidence (+%.1f)", cred))
	}

	intentPart := intentWeights[in.Intent.Label] * in.Intent.Confidence
	score += intentPart
	reasons = append(reasons, fmt.Sprintf("Intent: %s (+%.1f)", in.Intent.Label, intentPart))

	sw, ok := sectorWeights[in.SectorLabel]
	if !ok {
		sw = defaultSectorWeight
	}
	sectorPart := sw * in.SectorConfidence
	score += sectorPart
	reasons = append(reasons, fmt.Sprintf("Sector impact: %s (+%.1f)", in.SectorLabel, sectorPart))

	if in.VulnRisk != nil {
		part := in.VulnRisk.Score / 100.0 * 30.0
		if part > 30 {
			part = 30
		}
		score += part
		reasons = append(reasons, fmt.Sprintf("Vulnerability risk (+%.1f)", part))
	}

	if in.SecurityLike {
		score += 6
		reasons = append(reasons, "Security keywords present (+6)")
	}

	if in.AttackKeywordHits >= 2 {
		bonus := 4.0 * float64(in.AttackKeywordHits)
		if bonus > 12 {
			bonus = 12
		}
		score += bonus
		reasons = append(reasons, fmt.Sprintf("Attack keyword density (+%.1f)", bonus))
	}

	if len(in.Enriched) > 0 {
		maxCVSS := 0.0
		for _, c := range in.Enriched {
			if c.CVSS > maxCVSS {
				maxCVSS = c.CVSS
			}
		}
		if maxCVSS > 0 {
			// Capped so one critical CVE does not dominate everything.
			boost := 1.8 * maxCVSS
			if boost > 18 {
				boost = 18
			}
			score += boost
			reasons = append(reasons, fmt.Sprintf("CVE detected (max CVSS %.1f) (+%.1f)", maxCVSS, boost))
		}
	}

	if total := in.IOCs.Total(); total >= 2 {
		boost := 3.0 * float64(total)
		if boost > 10 {
			boost = 10
		}
		score += boost
		reasons = append(reasons, fmt.Sprintf("IOCs present (count %d) (+%.1f)", total, boost))
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, reasons
}
