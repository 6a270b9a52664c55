// Package extract pulls structured indicators out of free text: generic
// entities (ip, email, url, domain) for display, and a narrower IOC set
// (ips, domains, emails, cves) that feeds enrichment and scoring.
package extract

import (
	"regexp"
	"strings"
)

// Entity kinds.
const (
	KindIP     = "ip"
	KindEmail  = "email"
	KindURL    = "url"
	KindDomain = "domain"
	KindCVE    = "cve"
)

// Entity is a single extracted indicator.
type Entity struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// IOCSet groups indicators of compromise by kind. Each list is unique.
type IOCSet struct {
	IPs     []string `json:"ips"`
	Domains []string `json:"domains"`
	Emails  []string `json:"emails"`
	CVEs    []string `json:"cves"`
}

var (
	ipRE     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	emailRE  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	domainRE = regexp.MustCompile(`\b(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}\b`)
	urlRE    = regexp.MustCompile(`(?i)\bhttps?://[^\s]+`)
	cveRE    = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)
)

// fileExtensions are suffixes that disqualify a domain-looking token —
// filenames like dump.zip would otherwise read as domains.
var fileExtensions = []string{
	".json", ".txt", ".png", ".jpg", ".jpeg", ".pdf", ".zip", ".tar", ".gz", ".mp4",
}

// Entities extracts ip, email, url, and domain entities from text,
// deduplicated by (kind, value). Extraction order is fixed so repeated runs
// over the same text yield identical output.
func Entities(text string) []Entity {
	if text == "" {
		return nil
	}

	var out []Entity
	seen := make(map[Entity]struct{})
	add := func(kind, value string) {
		e := Entity{Kind: kind, Value: value}
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}

	for _, ip := range ipRE.FindAllString(text, -1) {
		add(KindIP, ip)
	}
	for _, em := range emailRE.FindAllString(text, -1) {
		add(KindEmail, em)
	}
	for _, u := range urlRE.FindAllString(text, -1) {
		add(KindURL, u)
	}
	for _, dom := range domainRE.FindAllString(text, -1) {
		if looksLikeFilename(dom) {
			continue
		}
		add(KindDomain, dom)
	}
	return out
}

// IOCs extracts the indicator set used for enrichment and scoring.
func IOCs(text string) IOCSet {
	return IOCSet{
		IPs:     uniqueMatches(ipRE, text),
		Domains: uniqueMatches(domainRE, text),
		Emails:  uniqueMatches(emailRE, text),
		CVEs:    uniqueMatches(cveRE, text),
	}
}

// Merge folds the IOC set and enriched CVE ids into the entity list,
// deduplicating by (kind, value) against entities already present.
func Merge(entities []Entity, iocs IOCSet, cveIDs []string) []Entity {
	seen := make(map[Entity]struct{}, len(entities))
	for _, e := range entities {
		seen[e] = struct{}{}
	}
	add := func(kind, value string) {
		e := Entity{Kind: kind, Value: value}
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		entities = append(entities, e)
	}

	for _, ip := range iocs.IPs {
		add(KindIP, ip)
	}
	for _, dom := range iocs.Domains {
		add(KindDomain, dom)
	}
	for _, em := range iocs.Emails {
		add(KindEmail, em)
	}
	for _, id := range cveIDs {
		add(KindCVE, id)
	}
	return entities
}

// Total returns the combined count of ips, domains, and emails. CVEs are
// scored separately via enrichment.
func (s IOCSet) Total() int {
	return len(s.IPs) + len(s.Domains) + len(s.Emails)
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	matches := re.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func looksLikeFilename(token string) bool {
	low := strings.ToLower(token)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(low, ext) {
			return true
		}
	}
	return false
}
