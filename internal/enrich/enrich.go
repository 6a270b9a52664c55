// Package enrich resolves CVE identifiers to severity metadata. The Enricher
// interface is the pluggable external lookup; StaticEnricher is an offline
// stand-in, NVDEnricher queries the NVD REST API.
package enrich

import (
	"context"
	"hash/fnv"
)

// EnrichedCVE is the severity metadata for one CVE identifier.
type EnrichedCVE struct {
	ID       string  `json:"id"`
	CVSS     float64 `json:"cvss"`
	Severity string  `json:"severity"`
}

// Enricher looks up severity metadata for CVE identifiers. Implementations
// must be idempotent for the same id and tolerant of unknown ids: a failed or
// unknown id is omitted from the result, never an error for the whole batch.
type Enricher interface {
	Enrich(ctx context.Context, ids []string) []EnrichedCVE
}

// SeverityTier maps a CVSS score to its tier label.
func SeverityTier(cvss float64) string {
	switch {
	case cvss >= 9.0:
		return "critical"
	case cvss >= 7.0:
		return "high"
	case cvss >= 4.0:
		return "medium"
	case cvss > 0:
		return "low"
	default:
		return "none"
	}
}

// StaticEnricher synthesizes a plausible severity for any CVE id without
// network access. The score is derived from a hash of the id so repeated
// lookups of the same id always return the same answer. Use NVDEnricher for
// real severity data.
type StaticEnricher struct{}

// Enrich implements Enricher.
func (StaticEnricher) Enrich(_ context.Context, ids []string) []EnrichedCVE {
	out := make([]EnrichedCVE, 0, len(ids))
	for _, id := range ids {
		cvss := syntheticCVSS(id)
		out = append(out, EnrichedCVE{
			ID:       id,
			CVSS:     cvss,
			Severity: SeverityTier(cvss),
		})
	}
	return out
}

// syntheticCVSS maps an id deterministically into [6.0, 9.8], the band the
// upstream feed historically produced, rounded to one decimal.
func syntheticCVSS(id string) float64 {
	h := fnv.New32a()
	h.Write([]byte(id)) //nolint:errcheck
	steps := h.Sum32() % 39 // 6.0 + 0.1*[0,38] → 6.0..9.8
	return 6.0 + float64(steps)/10.0
}
