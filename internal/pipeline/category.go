package pipeline

// Alert categories.
const (
	CategoryLeak          = "leak"
	CategoryVulnerability = "vulnerability"
	CategoryAttackChatter = "attack_chatter"
	CategoryDiscussion    = "discussion"
	CategoryNoise         = "noise"
)

// Thresholds for the category decision: below lowIntentConfidence a post with
// no attack keywords is noise; at or above irrelevantConfidence a confidently
// irrelevant post with no findings is forced to noise.
const (
	lowIntentConfidence  = 0.45
	irrelevantConfidence = 0.55
)

// noiseScoreCap bounds the final score of a noise alert.
const noiseScoreCap = 3.0

// noiseReason is prepended to the reason list when a post is classified as noise.
const noiseReason = "Classified as noise (low signal)"

// Categorize maps the pipeline signals to an alert category. The rules are a
// fixed decision tree; the irrelevant-intent override runs last and wins over
// everything except the presence of findings.
func Categorize(hasFindings, vulnSupplied, securityLike bool, intent Intent) string {
	category := CategoryDiscussion
	switch {
	case hasFindings:
		category = CategoryLeak
	case vulnSupplied:
		category = CategoryVulnerability
	case !securityLike && intent.Confidence < lowIntentConfidence:
		category = CategoryNoise
	case intent.Label == "planning" || intent.Label == "claim":
		category = CategoryAttackChatter
	}

	if intent.Label == "irrelevant" && intent.Confidence >= irrelevantConfidence && !hasFindings {
		category = CategoryNoise
	}
	return category
}
