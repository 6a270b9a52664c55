// Package pipeline fuses classifier output, leak findings, extracted
// indicators, CVE enrichment, and keyword heuristics into one scored,
// explainable Alert. The Analyzer is constructed once with immutable model
// handles and is safe for concurrent use; each Analyze call is synchronous
// and owns its intermediate values.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/classify"
	"github.com/northstar-intel/northstar/internal/enrich"
	"github.com/northstar-intel/northstar/internal/extract"
	"github.com/northstar-intel/northstar/internal/leakscan"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

// PostMeta is the provenance of the analyzed text, echoed into the alert.
type PostMeta struct {
	Source    string     `json:"source"`
	URL       string     `json:"url"`
	Title     string     `json:"title,omitempty"`
	Author    string     `json:"author,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Text      string     `json:"text"`
}

// IOCs groups the raw extracted indicators with their CVE enrichment.
type IOCs struct {
	Raw      extract.IOCSet       `json:"raw"`
	Enriched []enrich.EnrichedCVE `json:"enriched"`
}

// Alert is the final pipeline output for one accepted post. Immutable after
// assembly; the store owns its durable lifecycle.
type Alert struct {
	Category     string                `json:"category"`
	Sector       string                `json:"sector"`
	Intent       Intent                `json:"intent"`
	Sectors      []classify.LabelScore `json:"sectors"`
	Score        float64               `json:"score"`
	ScoreReasons []string              `json:"score_reasons"`
	Findings     []leakscan.Finding    `json:"findings"`
	Entities     []extract.Entity      `json:"entities"`
	IOCs         IOCs                  `json:"iocs"`
	VulnRisk     *vulnrisk.Estimate    `json:"vuln_risk,omitempty"`
	Post         PostMeta              `json:"post"`
}

// Analyzer runs the detection-and-scoring pipeline. All model handles are
// read-only after construction.
type Analyzer struct {
	intent   *classify.Classifier
	sector   *classify.Classifier
	risk     vulnrisk.Estimator
	enricher enrich.Enricher
	logger   *zap.Logger
}

// NewAnalyzer wires the pipeline. intent and sector must be loaded
// classifiers; risk and enricher must be non-nil (use HeuristicEstimator and
// StaticEnricher when no trained artifact or external lookup is configured).
func NewAnalyzer(intent, sector *classify.Classifier, risk vulnrisk.Estimator, enricher enrich.Enricher, logger *zap.Logger) *Analyzer {
	return &Analyzer{intent: intent, sector: sector, risk: risk, enricher: enricher, logger: logger}
}

// Analyze turns raw text plus metadata into an Alert. feats is the optional
// vulnerability feature input; nil means none were supplied.
func (a *Analyzer) Analyze(ctx context.Context, meta PostMeta, feats *vulnrisk.Features) (*Alert, error) {
	text := meta.Text

	intentRes, err := a.intent.Predict(text)
	if err != nil {
		return nil, fmt.Errorf("intent prediction: %w", err)
	}
	intent := Intent{Label: intentRes.Label, Confidence: intentRes.Confidence}

	sectors, err := a.sector.TopSectors(text, 3)
	if err != nil {
		return nil, fmt.Errorf("sector prediction: %w", err)
	}
	sectorLabel := sectors[0].Label
	sectorConf := sectors[0].Probability

	// Independent signal sources over the same text.
	findings := leakscan.Scan(text)
	entities := extract.Entities(text)
	iocs := extract.IOCs(text)

	var enriched []enrich.EnrichedCVE
	if len(iocs.CVEs) > 0 {
		enriched = a.enricher.Enrich(ctx, iocs.CVEs)
	}
	cveIDs := make([]string, 0, len(enriched))
	for _, c := range enriched {
		cveIDs = append(cveIDs, c.ID)
	}
	entities = extract.Merge(entities, iocs, cveIDs)

	attackHits := AttackKeywordHits(text)
	securityLike := attackHits > 0

	// Strong lexical evidence beats the classifier's sector guess.
	if ovr, hits := SectorOverride(text); hits >= 1 && ovr != sectorLabel {
		a.logger.Debug("sector override applied",
			zap.String("from", sectorLabel),
			zap.String("to", ovr),
			zap.Int("hits", hits),
		)
		sectorLabel = ovr
		if sectorConf < overrideConfidence {
			sectorConf = overrideConfidence
		}
		sectors[0] = classify.LabelScore{Label: sectorLabel, Probability: sectorConf}
	}

	category := Categorize(len(findings) > 0, feats != nil, securityLike, intent)

	var risk *vulnrisk.Estimate
	if feats != nil {
		est := a.risk.Estimate(*feats)
		risk = &est
	}

	score, reasons := Score(ScoreInput{
		Intent:            intent,
		SectorLabel:       sectorLabel,
		SectorConfidence:  sectorConf,
		Findings:          findings,
		VulnRisk:          risk,
		SecurityLike:      securityLike,
		AttackKeywordHits: attackHits,
		Enriched:          enriched,
		IOCs:              iocs,
	})

	if category == CategoryNoise {
		reasons = append([]string{noiseReason}, reasons...)
		if score > noiseScoreCap {
			score = noiseScoreCap
		}
	}

	if findings == nil {
		findings = []leakscan.Finding{}
	}
	if entities == nil {
		entities = []extract.Entity{}
	}
	if enriched == nil {
		enriched = []enrich.EnrichedCVE{}
	}

	return &Alert{
		Category:     category,
		Sector:       sectorLabel,
		Intent:       intent,
		Sectors:      sectors,
		Score:        score,
		ScoreReasons: reasons,
		Findings:     findings,
		Entities:     entities,
		IOCs:         IOCs{Raw: iocs, Enriched: enriched},
		VulnRisk:     risk,
		Post:         meta,
	}, nil
}
