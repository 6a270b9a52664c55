package pipeline_test

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/classify"
	"github.com/northstar-intel/northstar/internal/enrich"
	"github.com/northstar-intel/northstar/internal/pipeline"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

// A small calibrated intent model: "planning", "ddos" and "creds" vote for
// planning, "football" and "match" for irrelevant, "writeup" for discussion.
const intentBundle = `{
	"task": "intent",
	"labels": ["planning", "claim", "leak", "discussion", "irrelevant"],
	"pipeline": {
		"vectorizer": {
			"vocabulary": {"planning": 0, "ddos": 1, "creds": 2, "football": 3, "match": 4, "writeup": 5},
			"idf": [1, 1, 1, 1, 1, 1]
		},
		"classifier": {
			"kind": "logreg",
			"coefficients": [
				[4, 4, 4, 0, 0, 0],
				[0, 0, 0, 0, 0, 0],
				[0, 0, 0, 0, 0, 0],
				[0, 0, 0, 0, 0, 4],
				[0, 0, 0, 4, 4, 0]
			],
			"intercepts": [0, 0, 0, 0, 0]
		}
	}
}`

// Sector model with no signal for any of the test texts: every prediction is
// the uniform distribution, so sector decisions come from keyword overrides.
const testSectorBundle = `{
	"task": "sector",
	"labels": ["banking", "upi", "other"],
	"pipeline": {
		"vectorizer": {"vocabulary": {"bank": 0}, "idf": [1]},
		"classifier": {"kind": "logreg", "coefficients": [[2], [0], [0]], "intercepts": [0, 0, 0]}
	}
}`

func newTestAnalyzer(t *testing.T) *pipeline.Analyzer {
	t.Helper()
	intent, err := classify.Parse([]byte(intentBundle))
	if err != nil {
		t.Fatal(err)
	}
	sector, err := classify.Parse([]byte(testSectorBundle))
	if err != nil {
		t.Fatal(err)
	}
	return pipeline.NewAnalyzer(intent, sector, vulnrisk.HeuristicEstimator{}, enrich.StaticEnricher{}, zap.NewNop())
}

func TestAnalyze_credentialLeak(t *testing.T) {
	a := newTestAnalyzer(t)

	alert, err := a.Analyze(context.Background(), pipeline.PostMeta{
		Source: "forum",
		URL:    "https://forum.example.com/p/1",
		Text:   "password=hunter2, database creds exposed",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if alert.Category != pipeline.CategoryLeak {
		t.Errorf("category: got %q, want leak", alert.Category)
	}
	if len(alert.Findings) == 0 {
		t.Fatal("expected at least one finding")
	}
	if alert.Findings[0].MaskedValue == "hunter2" {
		t.Error("raw secret leaked into the finding")
	}
	if !hasReasonPrefix(alert.ScoreReasons, "Leak signal:") {
		t.Errorf("missing leak reason: %v", alert.ScoreReasons)
	}
}

func TestAnalyze_attackChatterWithSectorOverride(t *testing.T) {
	a := newTestAnalyzer(t)

	alert, err := a.Analyze(context.Background(), pipeline.PostMeta{
		Source: "telegram",
		URL:    "https://t.example.com/c/42",
		Text:   "planning ddos on upi gateway tonight, have creds",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if alert.Category != pipeline.CategoryAttackChatter {
		t.Errorf("category: got %q, want attack_chatter", alert.Category)
	}
	if alert.Intent.Label != "planning" {
		t.Errorf("intent: got %q, want planning", alert.Intent.Label)
	}
	// The classifier has no signal for this text; the "upi gateway" hint
	// must override its uniform guess.
	if alert.Sector != "upi" {
		t.Errorf("sector: got %q, want upi", alert.Sector)
	}
	if alert.Sectors[0].Label != "upi" || alert.Sectors[0].Probability < 0.75 {
		t.Errorf("top sector not updated with override: %v", alert.Sectors)
	}
	if alert.Score <= 0 || alert.Score > 100 {
		t.Errorf("score out of bounds: %f", alert.Score)
	}
}

func TestAnalyze_noiseIsCapped(t *testing.T) {
	a := newTestAnalyzer(t)

	alert, err := a.Analyze(context.Background(), pipeline.PostMeta{
		Source: "forum",
		URL:    "https://forum.example.com/p/2",
		Text:   "football match tonight was great",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if alert.Category != pipeline.CategoryNoise {
		t.Errorf("category: got %q, want noise", alert.Category)
	}
	if alert.Score > 3.0 {
		t.Errorf("noise score not capped: %f", alert.Score)
	}
	if len(alert.ScoreReasons) == 0 || !strings.Contains(alert.ScoreReasons[0], "noise") {
		t.Errorf("noise reason should come first: %v", alert.ScoreReasons)
	}
	// Empty collections serialize as [], not null.
	if alert.Findings == nil || alert.Entities == nil || alert.IOCs.Enriched == nil {
		t.Error("nil slices in assembled alert")
	}
}

func TestAnalyze_cveDiscussion(t *testing.T) {
	a := newTestAnalyzer(t)

	alert, err := a.Analyze(context.Background(), pipeline.PostMeta{
		Source: "blog",
		URL:    "https://blog.example.com/log4j",
		Text:   "interesting writeup discussing CVE-2021-44228 impact",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if alert.Category != pipeline.CategoryDiscussion {
		t.Errorf("category: got %q, want discussion", alert.Category)
	}
	if len(alert.IOCs.Raw.CVEs) != 1 || alert.IOCs.Raw.CVEs[0] != "CVE-2021-44228" {
		t.Errorf("cves: got %v", alert.IOCs.Raw.CVEs)
	}
	if len(alert.IOCs.Enriched) != 1 {
		t.Fatalf("expected 1 enriched cve, got %v", alert.IOCs.Enriched)
	}
	if !hasReasonPrefix(alert.ScoreReasons, "CVE detected") {
		t.Errorf("missing cve reason: %v", alert.ScoreReasons)
	}
}

func TestAnalyze_vulnFeaturesDrivesCategory(t *testing.T) {
	a := newTestAnalyzer(t)

	feats := &vulnrisk.Features{CVSS: 9.8, InternetExposed: true, KnownExploit: true}
	alert, err := a.Analyze(context.Background(), pipeline.PostMeta{
		Source: "scanner",
		URL:    "https://scan.example.com/r/7",
		Text:   "quarterly patch review notes",
	}, feats)
	if err != nil {
		t.Fatal(err)
	}

	if alert.Category != pipeline.CategoryVulnerability {
		t.Errorf("category: got %q, want vulnerability", alert.Category)
	}
	if alert.VulnRisk == nil {
		t.Fatal("expected vuln risk estimate")
	}
	if alert.VulnRisk.Method != "heuristic" {
		t.Errorf("method: got %q", alert.VulnRisk.Method)
	}
	if !hasReasonPrefix(alert.ScoreReasons, "Vulnerability risk") {
		t.Errorf("missing vulnerability reason: %v", alert.ScoreReasons)
	}
}

func hasReasonPrefix(reasons []string, prefix string) bool {
	for _, r := range reasons {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}
