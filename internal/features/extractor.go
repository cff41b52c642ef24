// Package features extracts the canonical quality features from profile
// content. Extraction is a pure function over text and section type: the
// same input always produces the same vector, and no feature ever leaves
// the [0,1] range.
package features

import (
	"regexp"
	"strings"
	"unicode"
)

// Canonical feature names, in dataset order. This list is the single
// source of truth; consumers must read it from Names and never hard-code
// a second copy.
var canonicalNames = []string{
	"clarity",
	"impact",
	"relevance",
	"readability",
	"keyword_density",
	"completeness",
}

// Names returns the canonical feature names in dataset order.
func Names() []string {
	out := make([]string, len(canonicalNames))
	copy(out, canonicalNames)
	return out
}

// Dim returns the number of canonical features.
func Dim() int {
	return len(canonicalNames)
}

// Ordered flattens a metrics map into a float32 slice in canonical
// feature order. Missing keys default to 0.
func Ordered(metrics map[string]float64) []float32 {
	out := make([]float32, len(canonicalNames))
	for i, name := range canonicalNames {
		out[i] = float32(metrics[name])
	}
	return out
}

// Sentence-length sweet spot for the clarity feature: averages below
// clarityLowBound score 0, above clarityHighBound score 1, linear between.
const (
	clarityLowBound  = 5.0
	clarityHighBound = 12.0
)

// Readability targets. Deviation from the target is penalized linearly.
const (
	idealWordLen     = 5.0
	idealSentenceLen = 15.0
	passivePenalty   = 0.15
	maxPassives      = 3
)

// Repeated-word ratio the keyword_density feature treats as optimal.
const optimalRepeatRatio = 0.3

// Per-section (min, optimal) character thresholds for completeness.
var sectionLengths = map[string][2]int{
	"headline":   {40, 120},
	"summary":    {100, 400},
	"bio":        {100, 400},
	"readme":     {200, 800},
	"experience": {80, 300},
}

var defaultSectionLength = [2]int{50, 200}

var actionVerbs = wordSet(
	"built", "led", "created", "designed", "developed", "launched",
	"managed", "delivered", "improved", "increased", "reduced",
	"optimized", "automated", "shipped", "founded", "scaled",
)

var impactVerbs = wordSet(
	"increased", "reduced", "improved", "optimized", "accelerated",
	"grew", "saved", "boosted", "cut", "doubled", "tripled", "scaled",
)

var leadershipVerbs = wordSet(
	"led", "managed", "mentored", "directed", "coordinated", "founded",
	"headed", "supervised",
)

var domainKeywords = wordSet(
	"api", "apis", "cloud", "kubernetes", "docker", "microservices",
	"database", "databases", "distributed", "scalable", "infrastructure",
	"automation", "pipeline", "pipelines", "golang", "python", "java",
	"javascript", "typescript", "react", "aws", "gcp", "azure", "devops",
	"backend", "frontend", "fullstack", "deployment", "architecture",
	"engineering", "software", "engineer", "developer", "security",
	"testing", "observability", "latency", "throughput", "ml", "ai",
	"data", "analytics", "platform",
)

var (
	numeralRe = regexp.MustCompile(`\d`)
	passiveRe = regexp.MustCompile(`(?i)\b(?:was|were|been|being|is|are|be)\s+\w+(?:ed|en)\b`)

	// Magnitude patterns: percentages, currency, order-of-magnitude
	// multipliers and large numbers with a unit.
	magnitudeRes = []*regexp.Regexp{
		regexp.MustCompile(`\d+(?:\.\d+)?\s?%`),
		regexp.MustCompile(`[$€£]\s?\d`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?x\b`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?[kmb]\b`),
		regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:thousand|million|billion)\b`),
	}

	emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.\w+`)
	urlRe   = regexp.MustCompile(`https?://\S+`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	ctaRe   = regexp.MustCompile(`(?i)(?:contact me|reach out|get in touch|let'?s connect|learn more|check out)`)
)

// Extract computes all canonical features for the given text and section
// type. It never fails: empty or whitespace-only text yields the floor
// vector (every feature exactly 0).
func Extract(text, section string) map[string]float64 {
	out := make(map[string]float64, len(canonicalNames))
	for _, name := range canonicalNames {
		out[name] = 0
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return out
	}

	words := splitWords(trimmed)
	sentences := splitSentences(trimmed)

	out["clarity"] = clarity(words, sentences)
	out["impact"] = impact(trimmed, words)
	out["relevance"] = relevance(words)
	out["readability"] = readability(trimmed, words, sentences)
	out["keyword_density"] = keywordDensity(words)
	out["completeness"] = completeness(trimmed, section)

	return out
}

// clarity blends sentence-length scoring with the presence of action
// verbs and numerals.
func clarity(words []string, sentences []string) float64 {
	if len(words) == 0 {
		return 0
	}

	avgLen := float64(len(words)) / float64(len(sentences))
	lenScore := rampUp(avgLen, clarityLowBound, clarityHighBound)

	verbScore := 0.0
	for _, w := range words {
		if actionVerbs[w] {
			verbScore = 1
			break
		}
	}

	numScore := 0.0
	for _, w := range words {
		if numeralRe.MatchString(w) {
			numScore = 1
			break
		}
	}

	return clamp01(0.5*lenScore + 0.3*verbScore + 0.2*numScore)
}

// impact combines capped impact-verb counts, magnitude patterns and
// leadership verbs.
func impact(text string, words []string) float64 {
	impactCount := 0.0
	leadCount := 0.0
	for _, w := range words {
		if impactVerbs[w] {
			impactCount++
		}
		if leadershipVerbs[w] {
			leadCount++
		}
	}

	score := min64(impactCount*0.2, 0.5)

	for _, re := range magnitudeRes {
		if re.MatchString(text) {
			score += 0.3
			break
		}
	}

	score += min64(leadCount*0.15, 0.3)

	return clamp01(score)
}

// relevance is domain-keyword density scaled against word count, with a
// fixed 0.7 floor for any non-empty text. The floor makes the feature
// nearly non-discriminative for off-domain text; that is a deliberate
// smoothing choice to avoid zero-scoring edge cases.
func relevance(words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	domainCount := 0.0
	for _, w := range words {
		if domainKeywords[w] {
			domainCount++
		}
	}

	density := domainCount / float64(len(words))
	bonus := min64(density*10, 1)

	return clamp01(0.7 + 0.3*bonus)
}

// readability blends word-length and sentence-length closeness to their
// targets, minus a passive-voice penalty.
func readability(text string, words []string, sentences []string) float64 {
	if len(words) == 0 {
		return 0
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / float64(len(words))
	avgSentLen := float64(len(words)) / float64(len(sentences))

	wordScore := 1 - min64(abs64(avgWordLen-idealWordLen)/idealWordLen, 1)
	sentScore := 1 - min64(abs64(avgSentLen-idealSentenceLen)/idealSentenceLen, 1)

	passives := len(passiveRe.FindAllString(text, maxPassives+1))
	penalty := min64(float64(passives)*passivePenalty, float64(maxPassives)*passivePenalty)

	return clamp01(0.5*wordScore + 0.5*sentScore - penalty)
}

// keywordDensity blends the unique-word ratio with how close the
// repeated-word ratio sits to the optimal density target; deviation from
// the target is penalized linearly.
func keywordDensity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}

	unique := float64(len(seen)) / float64(len(words))
	repeated := 1 - unique
	closeness := 1 - min64(abs64(repeated-optimalRepeatRatio)*2, 1)

	return clamp01(0.5*unique + 0.5*closeness)
}

// completeness scores text length against the section's (min, optimal)
// thresholds with small bonuses for contact info, structural markup and
// call-to-action phrasing.
func completeness(text, section string) float64 {
	bounds, ok := sectionLengths[strings.ToLower(section)]
	if !ok {
		bounds = defaultSectionLength
	}
	minLen, optimalLen := float64(bounds[0]), float64(bounds[1])

	n := float64(len(text))
	var lenScore float64
	switch {
	case n <= 0:
		lenScore = 0
	case n < minLen:
		lenScore = 0.5 * n / minLen
	case n < optimalLen:
		lenScore = 0.5 + 0.5*(n-minLen)/(optimalLen-minLen)
	default:
		lenScore = 1
	}

	score := 0.8 * lenScore

	if emailRe.MatchString(text) || urlRe.MatchString(text) || phoneRe.MatchString(text) {
		score += 0.08
	}
	if hasMarkup(text) {
		score += 0.06
	}
	if ctaRe.MatchString(text) {
		score += 0.06
	}

	return clamp01(score)
}

// hasMarkup detects minimal structural markup: markdown headers, list
// bullets or fenced code.
func hasMarkup(text string) bool {
	if strings.Contains(text, "```") {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#") || strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") {
			return true
		}
	}
	return false
}

// splitWords lowercases and splits text into words, stripping punctuation
// from the edges.
func splitWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '%' && r != '$'
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// splitSentences splits text on terminal punctuation. Always returns at
// least one sentence for non-empty text.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	if len(sentences) == 0 {
		sentences = append(sentences, text)
	}
	return sentences
}

// rampUp maps v to [0,1]: 0 at or below lo, 1 at or above hi, linear
// between.
func rampUp(v, lo, hi float64) float64 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return 1
	}
	return (v - lo) / (hi - lo)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
