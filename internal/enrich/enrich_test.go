package enrich_test

import (
	"context"
	"testing"

	"github.com/northstar-intel/northstar/internal/enrich"
)

var ctx = context.Background()

func TestStaticEnricher_deterministic(t *testing.T) {
	e := enrich.StaticEnricher{}

	first := e.Enrich(ctx, []string{"CVE-2021-44228"})
	second := e.Enrich(ctx, []string{"CVE-2021-44228"})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 result each, got %d and %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Errorf("enrichment not idempotent: %v vs %v", first[0], second[0])
	}
}

func TestStaticEnricher_scoreRange(t *testing.T) {
	e := enrich.StaticEnricher{}
	ids := []string{"CVE-2021-44228", "CVE-2014-0160", "CVE-2017-0144", "CVE-2024-99999"}

	for _, ec := range e.Enrich(ctx, ids) {
		if ec.CVSS < 6.0 || ec.CVSS > 9.8 {
			t.Errorf("%s: cvss %f outside [6.0, 9.8]", ec.ID, ec.CVSS)
		}
		if ec.Severity == "" {
			t.Errorf("%s: empty severity", ec.ID)
		}
	}
}

func TestStaticEnricher_emptyInput(t *testing.T) {
	e := enrich.StaticEnricher{}
	if got := e.Enrich(ctx, nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestSeverityTier(t *testing.T) {
	tests := []struct {
		cvss float64
		want string
	}{
		{9.8, "critical"},
		{9.0, "critical"},
		{8.1, "high"},
		{5.0, "medium"},
		{2.3, "low"},
		{0, "none"},
	}
	for _, tt := range tests {
		if got := enrich.SeverityTier(tt.cvss); got != tt.want {
			t.Errorf("SeverityTier(%f): got %q, want %q", tt.cvss, got, tt.want)
		}
	}
}
