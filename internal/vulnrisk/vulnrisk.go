// Package vulnrisk estimates a 0–100 exploitation-risk score from
// vulnerability features. Two Estimator implementations exist: a trained
// regression artifact (ModelEstimator) and a documented additive formula
// (HeuristicEstimator) used when no artifact is available.
package vulnrisk

import (
	"fmt"
	"strings"
)

// Features are the vulnerability inputs supplied alongside a post. Zero
// values are the neutral defaults (0, false, "unknown").
type Features struct {
	CVSS             float64 `json:"cvss"`
	InternetExposed  bool    `json:"internet_exposed"`
	KnownExploit     bool    `json:"known_exploit"`
	AuthRequired     bool    `json:"auth_required"`
	PatchAgeDays     float64 `json:"patch_age_days"`
	VulnAgeDays      float64 `json:"vuln_age_days"`
	AssetCriticality string  `json:"asset_criticality"`
	Env              string  `json:"env"`
	AttackSurface    string  `json:"attack_surface"`
}

// Estimate is the output of a risk estimation.
type Estimate struct {
	Score   float64  `json:"score"`
	Method  string   `json:"method"`
	Reasons []string `json:"reasons"`
}

// Estimator produces a risk estimate from features. Implementations never
// fail: a degraded estimate with explanatory reasons is always returned.
type Estimator interface {
	Estimate(f Features) Estimate
}

// HeuristicEstimator scores features with a fixed additive formula. It is the
// fallback when no trained artifact is present, and its contributions are
// reported as reasons so the estimate stays explainable.
type HeuristicEstimator struct{}

// Estimate implements Estimator.
//
// Contributions: CVSS×6 (max 60), internet exposure +12, known exploit +15,
// no auth required +6, patch age +1 per 30 days (max 8), asset criticality
// high +8 / medium +4, production environment +5. Clamped to [0,100].
func (HeuristicEstimator) Estimate(f Features) Estimate {
	var reasons []string
	score := 0.0

	if f.CVSS > 0 {
		part := f.CVSS * 6.0
		if part > 60 {
			part = 60
		}
		score += part
		reasons = append(reasons, fmt.Sprintf("CVSS %.1f (+%.1f)", f.CVSS, part))
	}
	if f.InternetExposed {
		score += 12
		reasons = append(reasons, "internet exposed (+12)")
	}
	if f.KnownExploit {
		score += 15
		reasons = append(reasons, "known exploit available (+15)")
	}
	if !f.AuthRequired {
		score += 6
		reasons = append(reasons, "no authentication required (+6)")
	}
	if f.PatchAgeDays > 0 {
		part := f.PatchAgeDays / 30.0
		if part > 8 {
			part = 8
		}
		score += part
		reasons = append(reasons, fmt.Sprintf("patch available %.0f days (+%.1f)", f.PatchAgeDays, part))
	}
	switch strings.ToLower(f.AssetCriticality) {
	case "high":
		score += 8
		reasons = append(reasons, "high-criticality asset (+8)")
	case "medium":
		score += 4
		reasons = append(reasons, "medium-criticality asset (+4)")
	}
	if strings.ToLower(f.Env) == "prod" || strings.ToLower(f.Env) == "production" {
		score += 5
		reasons = append(reasons, "production environment (+5)")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return Estimate{Score: score, Method: "heuristic", Reasons: reasons}
}
