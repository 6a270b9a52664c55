// Package classify wraps pretrained text classifiers behind a uniform
// predict-with-confidence contract. Model artifacts are JSON bundles in one
// of several historical shapes; every shape is normalized at load time into a
// Classifier, so callers never branch on bundle internals.
package classify

import (
	"fmt"
	"math"
	"sort"
)

// LabelScore pairs a label with its probability.
type LabelScore struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Result is a single classification outcome. Ranked is ordered by descending
// probability and sums to ≈1.
type Result struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Ranked     []LabelScore `json:"ranked"`
}

// fallbackConfidence is reported when the model can only produce a bare
// label, signalling a low-confidence non-probabilistic prediction.
const fallbackConfidence = 0.55

// GenericSector is the catch-all sector label dropped when a specific sector
// clears the selection threshold.
const GenericSector = "other"

// Sector selection parameters: minimum probability to count as a confident
// prediction, and how close to the top score an additional sector must be to
// be included in a multi-sector answer.
const (
	sectorThreshold = 0.35
	sectorMargin    = 0.10
)

// probabilityModel exposes calibrated class probabilities.
type probabilityModel interface {
	probabilities(text string) ([]float64, error)
}

// decisionModel exposes raw decision scores, convertible to
// pseudo-probabilities.
type decisionModel interface {
	decisionScores(text string) ([]float64, error)
}

// labelOnlyModel can only name the winning class.
type labelOnlyModel interface {
	predictLabel(text string) (string, error)
}

// Classifier is a loaded model with its task name and ordered label list.
// It is immutable after load and safe for concurrent use.
type Classifier struct {
	task   string
	labels []string
	model  any
}

// Task returns the task name the bundle was trained for.
func (c *Classifier) Task() string { return c.task }

// Labels returns the configured label list in training order.
func (c *Classifier) Labels() []string { return c.labels }

// Predict classifies text, degrading through the capability chain:
// calibrated probabilities, then sigmoid-normalized decision scores, then a
// bare label at the fixed fallback confidence. Only total inability to
// produce a label is an error.
func (c *Classifier) Predict(text string) (Result, error) {
	if pm, ok := c.model.(probabilityModel); ok {
		if probs, err := pm.probabilities(text); err == nil {
			return c.rankedResult(probs), nil
		}
	}
	if dm, ok := c.model.(decisionModel); ok {
		if scores, err := dm.decisionScores(text); err == nil {
			return c.rankedResult(normalizeScores(scores)), nil
		}
	}
	if lm, ok := c.model.(labelOnlyModel); ok {
		label, err := lm.predictLabel(text)
		if err != nil {
			return Result{}, fmt.Errorf("classify %s: %w", c.task, err)
		}
		return Result{
			Label:      label,
			Confidence: fallbackConfidence,
			Ranked:     []LabelScore{{Label: label, Probability: fallbackConfidence}},
		}, nil
	}
	return Result{}, fmt.Errorf("classify %s: model produces no label", c.task)
}

// TopSectors returns up to k sectors for text. If any non-generic sector
// clears the selection threshold the generic catch-all is dropped; additional
// sectors beyond the top one are included only while within the margin of the
// top score. When nothing clears the threshold the single highest-scoring
// candidate is returned regardless, so the result is never empty.
func (c *Classifier) TopSectors(text string, k int) ([]LabelScore, error) {
	if k < 1 {
		k = 1
	}
	res, err := c.Predict(text)
	if err != nil {
		return nil, err
	}
	if len(res.Ranked) == 0 {
		return nil, fmt.Errorf("classify %s: empty ranking", c.task)
	}

	var cleared []LabelScore
	specific := false
	for _, ls := range res.Ranked {
		if ls.Probability >= sectorThreshold {
			cleared = append(cleared, ls)
			if ls.Label != GenericSector {
				specific = true
			}
		}
	}
	if len(cleared) == 0 {
		return res.Ranked[:1], nil
	}
	if specific {
		kept := cleared[:0]
		for _, ls := range cleared {
			if ls.Label != GenericSector {
				kept = append(kept, ls)
			}
		}
		cleared = kept
	}

	out := cleared[:1]
	for _, ls := range cleared[1:] {
		if len(out) >= k {
			break
		}
		if out[0].Probability-ls.Probability > sectorMargin {
			break
		}
		out = append(out, ls)
	}
	return out, nil
}

// rankedResult pairs scores positionally with the label list, sorts by
// descending probability, and takes the top as the result label.
func (c *Classifier) rankedResult(probs []float64) Result {
	labels := c.labels
	if len(labels) == 0 {
		labels = make([]string, len(probs))
		for i := range labels {
			labels[i] = fmt.Sprintf("class_%d", i)
		}
	}
	n := len(probs)
	if len(labels) < n {
		n = len(labels)
	}

	ranked := make([]LabelScore, n)
	for i := 0; i < n; i++ {
		ranked[i] = LabelScore{Label: labels[i], Probability: probs[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	return Result{
		Label:      ranked[0].Label,
		Confidence: ranked[0].Probability,
		Ranked:     ranked,
	}
}

// normalizeScores converts raw decision scores to pseudo-probabilities:
// sigmoid each score, then scale so they sum to 1. An approximation, not a
// calibrated distribution.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = sigmoid(s)
		sum += out[i]
	}
	if sum == 0 {
		sum = 1
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		z := math.Exp(-x)
		return 1 / (1 + z)
	}
	z := math.Exp(x)
	return z / (1 + z)
}
