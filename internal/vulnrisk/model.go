package vulnrisk

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// modelArtifact is the serialized regression model. Numeric and boolean
// features map to a weight by name; categorical features are one-hot encoded
// as "name=value" keys, mirroring how the training side vectorizes them.
type modelArtifact struct {
	Task      string             `json:"task"`
	Weights   map[string]float64 `json:"weights"`
	Intercept float64            `json:"intercept"`
}

// ModelEstimator scores features with a trained linear regression artifact.
type ModelEstimator struct {
	weights   map[string]float64
	intercept float64
}

// LoadModel reads a regression artifact from path. A missing or malformed
// artifact is an error; callers are expected to fall back to
// HeuristicEstimator rather than abort.
func LoadModel(path string) (*ModelEstimator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vuln model: %w", err)
	}
	var art modelArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("decode vuln model: %w", err)
	}
	if len(art.Weights) == 0 {
		return nil, fmt.Errorf("vuln model %s has no weights", path)
	}
	return &ModelEstimator{weights: art.Weights, intercept: art.Intercept}, nil
}

// Estimate implements Estimator.
func (m *ModelEstimator) Estimate(f Features) Estimate {
	score := m.intercept
	for name, x := range vectorize(f) {
		score += m.weights[name] * x
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return Estimate{Score: score, Method: "ml", Reasons: []string{}}
}

// vectorize flattens Features into the sparse name→value map the model was
// trained on. Unknown categorical values simply miss every weight, which
// leaves them neutral.
func vectorize(f Features) map[string]float64 {
	v := map[string]float64{
		"cvss":           f.CVSS,
		"patch_age_days": f.PatchAgeDays,
		"vuln_age_days":  f.VulnAgeDays,
	}
	if f.InternetExposed {
		v["internet_exposed"] = 1
	}
	if f.KnownExploit {
		v["known_exploit"] = 1
	}
	if f.AuthRequired {
		v["auth_required"] = 1
	}
	v["asset_criticality="+orUnknown(f.AssetCriticality)] = 1
	v["env="+orUnknown(f.Env)] = 1
	v["attack_surface="+orUnknown(f.AttackSurface)] = 1
	return v
}

func orUnknown(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
