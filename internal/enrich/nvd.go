package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultNVDBaseURL is the NVD CVE API 2.0 endpoint.
const DefaultNVDBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// nvdResponse is the subset of the NVD API response we read.
type nvdResponse struct {
	Vulnerabilities []struct {
		CVE struct {
			ID      string `json:"id"`
			Metrics struct {
				CVSSMetricV31 []struct {
					CVSSData struct {
						BaseScore    float64 `json:"baseScore"`
						BaseSeverity string  `json:"baseSeverity"`
					} `json:"cvssData"`
				} `json:"cvssMetricV31"`
				CVSSMetricV2 []struct {
					CVSSData struct {
						BaseScore float64 `json:"baseScore"`
					} `json:"cvssData"`
					BaseSeverity string `json:"baseSeverity"`
				} `json:"cvssMetricV2"`
			} `json:"metrics"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

// NVDEnricher resolves CVE severity against the NVD REST API. Lookups are
// per-id; an id that fails (network error, unknown CVE, no metrics) is logged
// and omitted so one bad id never aborts scoring for the rest of the batch.
type NVDEnricher struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewNVDEnricher creates an NVDEnricher. apiKey may be empty (NVD then
// applies its anonymous rate limits). timeout 0 defaults to 10s.
func NewNVDEnricher(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *NVDEnricher {
	if baseURL == "" {
		baseURL = DefaultNVDBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &NVDEnricher{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enrich implements Enricher.
func (e *NVDEnricher) Enrich(ctx context.Context, ids []string) []EnrichedCVE {
	out := make([]EnrichedCVE, 0, len(ids))
	for _, id := range ids {
		ec, err := e.lookup(ctx, id)
		if err != nil {
			e.logger.Warn("cve enrichment failed, omitting id",
				zap.String("cve", id),
				zap.Error(err),
			)
			continue
		}
		out = append(out, ec)
	}
	return out
}

func (e *NVDEnricher) lookup(ctx context.Context, id string) (EnrichedCVE, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return EnrichedCVE{}, fmt.Errorf("build nvd URL: %w", err)
	}
	q := u.Query()
	q.Set("cveId", id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return EnrichedCVE{}, fmt.Errorf("build nvd request: %w", err)
	}
	if e.apiKey != "" {
		req.Header.Set("apiKey", e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return EnrichedCVE{}, fmt.Errorf("nvd request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return EnrichedCVE{}, fmt.Errorf("nvd returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return EnrichedCVE{}, fmt.Errorf("read nvd response: %w", err)
	}

	var nr nvdResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return EnrichedCVE{}, fmt.Errorf("decode nvd response: %w", err)
	}
	if len(nr.Vulnerabilities) == 0 {
		return EnrichedCVE{}, fmt.Errorf("cve %s not found", id)
	}

	metrics := nr.Vulnerabilities[0].CVE.Metrics
	if len(metrics.CVSSMetricV31) > 0 {
		data := metrics.CVSSMetricV31[0].CVSSData
		return EnrichedCVE{ID: id, CVSS: data.BaseScore, Severity: tierOr(data.BaseSeverity, data.BaseScore)}, nil
	}
	if len(metrics.CVSSMetricV2) > 0 {
		m := metrics.CVSSMetricV2[0]
		return EnrichedCVE{ID: id, CVSS: m.CVSSData.BaseScore, Severity: tierOr(m.BaseSeverity, m.CVSSData.BaseScore)}, nil
	}
	return EnrichedCVE{}, fmt.Errorf("cve %s has no CVSS metrics", id)
}

// tierOr prefers the severity string NVD reports, lowercased; falls back to
// the tier derived from the score.
func tierOr(reported string, score float64) string {
	if reported != "" {
		return strings.ToLower(reported)
	}
	return SeverityTier(score)
}
