// Package leakscan detects likely secrets and credentials in free text.
// Detection is heuristic: a fixed table of weighted patterns, adjusted by
// Shannon entropy of the matched value and by credential keywords in the
// surrounding context. Findings carry masked evidence safe to log or display.
package leakscan

import (
	"math"
	"regexp"
	"strings"
)

// Finding is a single detected secret occurrence.
type Finding struct {
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Evidence    string  `json:"evidence"`
	MaskedValue string  `json:"masked_value"`
}

// Finding types produced by the default pattern table.
const (
	TypeAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	TypeGitHubToken        = "GITHUB_TOKEN"
	TypeJWT                = "JWT"
	TypePrivateKeyBlock    = "PRIVATE_KEY_BLOCK"
	TypePasswordAssignment = "PASSWORD_ASSIGNMENT"
	TypeAuthHeader         = "AUTH_HEADER"
	TypeConnectionString   = "CONNECTION_STRING"
)

// pattern couples a finding type with its regex and the capture group index
// that isolates the sensitive sub-value (0 = whole match).
type pattern struct {
	ftype string
	re    *regexp.Regexp
	group int
}

// patterns is the ordered detection table. Order is stable so that dedup and
// reason ordering are deterministic across runs.
var patterns = []pattern{
	{TypeAWSAccessKeyID, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), 0},
	{TypeGitHubToken, regexp.MustCompile(`\bghp_[A-Za-z0-9]{30,}\b`), 0},
	{TypeJWT, regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`), 0},
	{TypePrivateKeyBlock, regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----[\s\S]+?-----END (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`), 0},
	{TypePasswordAssignment, regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[:=]\s*([^\s'";]{6,})`), 2},
	{TypeAuthHeader, regexp.MustCompile(`(?i)\bAuthorization\s*:\s*Bearer\s+([A-Za-z0-9._\-]{10,})`), 1},
	{TypeConnectionString, regexp.MustCompile(`(?i)\b(postgres|postgresql|mysql|mongodb|mssql)://[^\s]+`), 0},
}

// baseConfidence is the prior for each finding type before entropy and
// context adjustments.
var baseConfidence = map[string]float64{
	TypePrivateKeyBlock:    0.95,
	TypeAWSAccessKeyID:     0.85,
	TypeGitHubToken:        0.85,
	TypeJWT:                0.70,
	TypeConnectionString:   0.80,
	TypeAuthHeader:         0.75,
	TypePasswordAssignment: 0.65,
}

const defaultBaseConfidence = 0.60

// contextKeywords are credential-related terms searched for in the ±40 char
// window around a match.
var contextKeywords = []string{
	"password", "passwd", "pwd", "token", "api key", "apikey",
	"secret", "auth", "authorization", "credential", "creds",
	"bearer", "key=",
}

const (
	contextWindow = 40
	evidenceMax   = 240
	dedupPrefix   = 60
)

// Scan runs the full pattern table over text and returns deduplicated
// findings. An empty slice means nothing was found; Scan never fails.
func Scan(text string) []Finding {
	if text == "" {
		return nil
	}

	var findings []Finding
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			value := text[start:end]
			if p.group > 0 && loc[2*p.group] >= 0 {
				value = text[loc[2*p.group]:loc[2*p.group+1]]
			}

			conf := baseConfidence[p.ftype]
			if conf == 0 {
				conf = defaultBaseConfidence
			}
			if contextHasKeywords(text, start, end) {
				conf += 0.10
			}
			if len(value) >= 12 {
				switch ent := ShannonEntropy(value); {
				case ent >= 3.5:
					conf += 0.10
				case ent < 2.8:
					conf -= 0.10
				}
			}
			conf = clamp01(conf)

			findings = append(findings, Finding{
				Type:        p.ftype,
				Confidence:  conf,
				Evidence:    evidence(text, start, end),
				MaskedValue: Mask(value),
			})
		}
	}

	return dedup(findings)
}

// dedup drops near-identical findings produced by overlapping matches.
// Key: (type, masked value, first 60 chars of evidence).
func dedup(findings []Finding) []Finding {
	if len(findings) == 0 {
		return nil
	}
	type key struct {
		ftype, masked, prefix string
	}
	seen := make(map[key]struct{}, len(findings))
	out := findings[:0]
	for _, f := range findings {
		prefix := f.Evidence
		if len(prefix) > dedupPrefix {
			prefix = prefix[:dedupPrefix]
		}
		k := key{f.Type, f.MaskedValue, prefix}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// contextHasKeywords reports whether any credential keyword appears within
// contextWindow characters of the match boundaries.
func contextHasKeywords(text string, start, end int) bool {
	left := start - contextWindow
	if left < 0 {
		left = 0
	}
	right := end + contextWindow
	if right > len(text) {
		right = len(text)
	}
	chunk := strings.ToLower(text[left:right])
	for _, kw := range contextKeywords {
		if strings.Contains(chunk, kw) {
			return true
		}
	}
	return false
}

// evidence returns the ±40 char window around the match with newlines
// collapsed to spaces, truncated to 240 characters.
func evidence(text string, start, end int) string {
	left := start - contextWindow
	if left < 0 {
		left = 0
	}
	right := end + contextWindow
	if right > len(text) {
		right = len(text)
	}
	ev := strings.ReplaceAll(text[left:right], "\n", " ")
	if len(ev) > evidenceMax {
		ev = ev[:evidenceMax]
	}
	return ev
}

// Mask partially redacts a secret: first 4 and last 4 characters separated by
// an ellipsis. Values too short to survive that keep only the first and last
// character.
func Mask(s string) string {
	const keepPrefix, keepSuffix = 4, 4
	if s == "" {
		return ""
	}
	if len(s) <= keepPrefix+keepSuffix+2 {
		return s[:1] + "…" + s[len(s)-1:]
	}
	return s[:keepPrefix] + "…" + s[len(s)-keepSuffix:]
}

// ShannonEntropy returns the entropy of s in bits per character.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	ent := 0.0
	for _, c := range freq {
		p := float64(c) / float64(n)
		ent -= p * math.Log2(p)
	}
	return ent
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
