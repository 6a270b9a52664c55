package pipeline

import "strings"

// severityWeights is the score contribution of the top leak finding by type.
var severityWeights = map[string]int{
	"PRIVATE_KEY_BLOCK":   45,
	"CONNECTION_STRING":   30,
	"AWS_ACCESS_KEY_ID":   26,
	"GITHUB_TOKEN":        26,
	"JWT":                 20,
	"AUTH_HEADER":         20,
	"PASSWORD_ASSIGNMENT": 16,
}

const defaultSeverityWeight = 12

// intentWeights scales the intent contribution by label.
var intentWeights = map[string]float64{
	"planning":   14,
	"claim":      12,
	"leak":       14,
	"discussion": 6,
	"irrelevant": 0,
}

// sectorWeights scales the sector-impact contribution by label.
var sectorWeights = map[string]float64{
	"power_grid": 22,
	"telecom":    20,
	"banking":    20,
	"upi":        20,
	"airport":    16,
	"ports":      16,
	"railways":   15,
	"oil":        15,
	"other":      8,
}

const defaultSectorWeight = 8

// attackKeywords flag security-relevant chatter.
var attackKeywords = []string{
	"ddos", "ransomware", "exploit", "breach", "leak", "dump",
	"access", "creds", "credential", "password", "token", "key",
	"botnet", "sell", "selling", "for sale", "pwn", "owned",
	"cve", "0day", "zero day", "vulnerability", "attack",
}

// sectorHints drive the keyword override of the classifier's sector guess.
var sectorHints = map[string][]string{
	"banking":    {"bank", "banking", "swift", "atm"},
	"upi":        {"upi", "npci", "payment gateway", "upi gateway"},
	"railways":   {"rail", "railways", "irctc", "train"},
	"power_grid": {"power grid", "grid", "substation", "scada", "electric"},
	"telecom":    {"telecom", "telco", "sim swap", "tower", "5g", "lte"},
	"airport":    {"airport", "aviation", "airline"},
	"ports":      {"port", "ports", "harbor", "harbour", "container terminal"},
	"oil":        {"oil", "refinery", "pipeline", "gas plant", "petroleum"},
}

// overrideConfidence is the floor applied to the sector confidence when the
// keyword override fires.
const overrideConfidence = 0.75

// AttackKeywordHits counts the distinct attack keywords present in text.
func AttackKeywordHits(text string) int {
	t := strings.ToLower(text)
	hits := 0
	for _, kw := range attackKeywords {
		if strings.Contains(t, kw) {
			hits++
		}
	}
	return hits
}

// SectorOverride counts sector hint hits in text and returns the sector with
// the strictly highest count together with that count. Ties (including the
// all-zero case) return ("", 0): the classifier's answer stands.
func SectorOverride(text string) (string, int) {
	t := strings.ToLower(text)
	best := ""
	bestHits := 0
	tied := false
	for sector, hints := range sectorHints {
		hits := 0
		for _, h := range hints {
			if strings.Contains(t, h) {
				hits++
			}
		}
		switch {
		case hits > bestHits:
			best, bestHits, tied = sector, hits, false
		case hits == bestHits && hits > 0:
			tied = true
		}
	}
	if bestHits == 0 || tied {
		return "", 0
	}
	return best, bestHits
}
