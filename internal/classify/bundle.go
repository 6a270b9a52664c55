package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// bundleFile covers both artifact shapes on disk:
//
//	current: {"task": "...", "labels": [...], "pipeline": {vectorizer, classifier}}
//	legacy:  {"labels": [...], "vectorizer": {...}, "classifier": {...}}
//
// Legacy bundles predate the task field and carry the stages at top level.
type bundleFile struct {
	Task     string        `json:"task"`
	Labels   []string      `json:"labels"`
	Pipeline *pipelineSpec `json:"pipeline"`

	// legacy top-level stages
	Vectorizer *vectorizerSpec `json:"vectorizer"`
	Classifier *classifierSpec `json:"classifier"`
}

type pipelineSpec struct {
	Vectorizer *vectorizerSpec `json:"vectorizer"`
	Classifier *classifierSpec `json:"classifier"`
}

type vectorizerSpec struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// classifierSpec is the serialized estimator. Kind selects the adapter:
// "logreg" (calibrated probabilities), "svm" (raw decision scores), or
// "centroid" (bare nearest-centroid prediction).
type classifierSpec struct {
	Kind         string      `json:"kind"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
	Centroids    [][]float64 `json:"centroids"`
}

// Load reads a model bundle from path. A missing or malformed artifact is an
// error here; the server treats that as fatal at startup.
func Load(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model bundle: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("model bundle %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a bundle from its JSON bytes and normalizes it into a
// Classifier with a single uniform capability set.
func Parse(raw []byte) (*Classifier, error) {
	var bf bundleFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	vecSpec, clfSpec := bf.Vectorizer, bf.Classifier
	if bf.Pipeline != nil {
		vecSpec, clfSpec = bf.Pipeline.Vectorizer, bf.Pipeline.Classifier
	}
	if vecSpec == nil || clfSpec == nil {
		return nil, fmt.Errorf("bundle missing vectorizer or classifier stage")
	}
	if len(vecSpec.Vocabulary) == 0 {
		return nil, fmt.Errorf("bundle has empty vocabulary")
	}

	vec := &vectorizer{vocabulary: vecSpec.Vocabulary, idf: vecSpec.IDF}

	var model any
	switch clfSpec.Kind {
	case "logreg":
		lin, err := newLinear(vec, clfSpec)
		if err != nil {
			return nil, err
		}
		model = calibratedLinear{lin}
	case "svm":
		lin, err := newLinear(vec, clfSpec)
		if err != nil {
			return nil, err
		}
		model = rawLinear{lin}
	case "centroid":
		if len(clfSpec.Centroids) == 0 {
			return nil, fmt.Errorf("centroid classifier has no centroids")
		}
		if len(bf.Labels) != len(clfSpec.Centroids) {
			return nil, fmt.Errorf("centroid count %d does not match %d labels",
				len(clfSpec.Centroids), len(bf.Labels))
		}
		model = &centroidModel{vec: vec, labels: bf.Labels, centroids: clfSpec.Centroids}
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", clfSpec.Kind)
	}

	return &Classifier{task: bf.Task, labels: bf.Labels, model: model}, nil
}

func newLinear(vec *vectorizer, spec *classifierSpec) (*linearModel, error) {
	if len(spec.Coefficients) == 0 {
		return nil, fmt.Errorf("%s classifier has no coefficients", spec.Kind)
	}
	dim := len(vec.idf)
	for i, row := range spec.Coefficients {
		if dim > 0 && len(row) != dim {
			return nil, fmt.Errorf("coefficient row %d has %d weights, want %d", i, len(row), dim)
		}
	}
	return &linearModel{vec: vec, coefficients: spec.Coefficients, intercepts: spec.Intercepts}, nil
}

// ── Vectorizer ───────────────────────────────────────────────────────────────

var tokenRE = regexp.MustCompile(`[a-z0-9]+`)

// vectorizer maps text to a sparse TF×IDF vector, L2-normalized, matching the
// transform the artifacts were trained with.
type vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

func (v *vectorizer) transform(text string) map[int]float64 {
	counts := make(map[int]int)
	for _, tok := range tokenRE.FindAllString(strings.ToLower(text), -1) {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	x := make(map[int]float64, len(counts))
	norm := 0.0
	for idx, c := range counts {
		w := float64(c)
		if idx < len(v.idf) {
			w *= v.idf[idx]
		}
		x[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range x {
			x[idx] /= norm
		}
	}
	return x
}

// ── Linear models ────────────────────────────────────────────────────────────

// linearModel is one weight row per class plus an intercept.
type linearModel struct {
	vec          *vectorizer
	coefficients [][]float64
	intercepts   []float64
}

func (m *linearModel) scores(text string) []float64 {
	x := m.vec.transform(text)
	out := make([]float64, len(m.coefficients))
	for class, row := range m.coefficients {
		s := 0.0
		if class < len(m.intercepts) {
			s = m.intercepts[class]
		}
		for idx, xv := range x {
			if idx < len(row) {
				s += row[idx] * xv
			}
		}
		out[class] = s
	}
	return out
}

// calibratedLinear adapts a logistic-regression artifact: its softmaxed
// scores are calibrated class probabilities.
type calibratedLinear struct{ m *linearModel }

func (c calibratedLinear) probabilities(text string) ([]float64, error) {
	return softmax(c.m.scores(text)), nil
}

// rawLinear adapts an SVM-style artifact that only exposes decision scores.
type rawLinear struct{ m *linearModel }

func (r rawLinear) decisionScores(text string) ([]float64, error) {
	return r.m.scores(text), nil
}

// ── Centroid model ───────────────────────────────────────────────────────────

// centroidModel predicts the label whose centroid is nearest by dot product.
// It exposes no usable score distribution, so it is the bare-prediction
// fallback shape.
type centroidModel struct {
	vec       *vectorizer
	labels    []string
	centroids [][]float64
}

func (m *centroidModel) predictLabel(text string) (string, error) {
	x := m.vec.transform(text)
	best, bestSim := 0, math.Inf(-1)
	for i, centroid := range m.centroids {
		sim := 0.0
		for idx, xv := range x {
			if idx < len(centroid) {
				sim += centroid[idx] * xv
			}
		}
		if sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return m.labels[best], nil
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
