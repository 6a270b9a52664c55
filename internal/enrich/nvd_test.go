package enrich_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/enrich"
)

func nvdStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNVDEnricher_v31Metrics(t *testing.T) {
	srv := nvdStub(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("cveId")
		fmt.Fprintf(w, `{"vulnerabilities":[{"cve":{"id":%q,"metrics":{
			"cvssMetricV31":[{"cvssData":{"baseScore":9.8,"baseSeverity":"CRITICAL"}}]
		}}}]}`, id)
	})

	e := enrich.NewNVDEnricher(srv.URL, "", 0, zap.NewNop())
	got := e.Enrich(ctx, []string{"CVE-2021-44228"})

	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %v", got)
	}
	if got[0].CVSS != 9.8 || got[0].Severity != "critical" {
		t.Errorf("unexpected enrichment: %+v", got[0])
	}
}

func TestNVDEnricher_v2Fallback(t *testing.T) {
	srv := nvdStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"vulnerabilities":[{"cve":{"id":"CVE-2014-0160","metrics":{
			"cvssMetricV2":[{"cvssData":{"baseScore":5.0},"baseSeverity":"MEDIUM"}]
		}}}]}`)
	})

	e := enrich.NewNVDEnricher(srv.URL, "", 0, zap.NewNop())
	got := e.Enrich(ctx, []string{"CVE-2014-0160"})

	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %v", got)
	}
	if got[0].CVSS != 5.0 || got[0].Severity != "medium" {
		t.Errorf("unexpected enrichment: %+v", got[0])
	}
}

func TestNVDEnricher_failedIDOmitted(t *testing.T) {
	srv := nvdStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cveId") == "CVE-0000-0000" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"vulnerabilities":[{"cve":{"id":"CVE-2021-44228","metrics":{
			"cvssMetricV31":[{"cvssData":{"baseScore":9.8,"baseSeverity":"CRITICAL"}}]
		}}}]}`)
	})

	e := enrich.NewNVDEnricher(srv.URL, "", 0, zap.NewNop())
	got := e.Enrich(ctx, []string{"CVE-0000-0000", "CVE-2021-44228"})

	// The bad id is dropped; the good one still comes through.
	if len(got) != 1 || got[0].ID != "CVE-2021-44228" {
		t.Errorf("expected only the resolvable cve, got %v", got)
	}
}

func TestNVDEnricher_apiKeyHeader(t *testing.T) {
	var gotKey string
	srv := nvdStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apiKey")
		fmt.Fprint(w, `{"vulnerabilities":[{"cve":{"id":"CVE-2021-44228","metrics":{
			"cvssMetricV31":[{"cvssData":{"baseScore":9.8,"baseSeverity":"CRITICAL"}}]
		}}}]}`)
	})

	e := enrich.NewNVDEnricher(srv.URL, "secret", 0, zap.NewNop())
	e.Enrich(ctx, []string{"CVE-2021-44228"})

	if gotKey != "secret" {
		t.Errorf("api key header: got %q", gotKey)
	}
}
