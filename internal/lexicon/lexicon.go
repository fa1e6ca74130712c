package lexicon

import "regexp"

// Lexicon is one versioned snapshot of the phrase patterns and word sets the
// risk scorer consults. It is never mutated after construction, so a single
// instance can be shared across goroutines.
type Lexicon struct {
	Version string

	ImmediateRisk []*regexp.Regexp
	ElevatedRisk  []*regexp.Regexp

	EmotionalIntensity map[string]bool
	Absolutist         map[string]bool
	Hopelessness       map[string]bool
}

// BuiltinVersion identifies the lexicon compiled into the binary.
const BuiltinVersion = "builtin-1"

var (
	immediateRiskPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bkill(ing)?\s+myself\b`),
		regexp.MustCompile(`(?i)\bend(ing)?\s+(my|this)\s+(own\s+)?life\b`),
		regexp.MustCompile(`(?i)\bsuicid(e|al)\b`),
		regexp.MustCompile(`(?i)\bwant(s|ed|ing)?\s+to\s+die\b`),
		regexp.MustCompile(`(?i)\bwanna\s+die\b`),
		regexp.MustCompile(`(?i)\bbetter\s+off\s+dead\b`),
		regexp.MustCompile(`(?i)\bend\s+it\s+all\b`),
		regexp.MustCompile(`(?i)\bplan\s+to\s+die\b`),
		regexp.MustCompile(`(?i)\b(hurt|harm|cut(ting)?)\s+myself\b`),
		regexp.MustCompile(`(?i)\bno\s+reason\s+to\s+(live|keep\s+living)\b`),
		regexp.MustCompile(`(?i)\boverdose\b`),
		regexp.MustCompile(`(?i)\btake\s+all\s+(my|the)\s+pills\b`),
		regexp.MustCompile(`(?i)\b(hang|shoot|drown)\s+myself\b`),
		regexp.MustCompile(`(?i)\bslit\s+my\s+wrists?\b`),
		regexp.MustCompile(`(?i)\bself[\s-]?harm\b`),
		regexp.MustCompile(`(?i)\bjump\s+off\s+(a|the)\s+(bridge|building|roof)\b`),
		regexp.MustCompile(`(?i)\bdon'?t\s+want\s+to\s+(live|be\s+alive)\b`),
		regexp.MustCompile(`(?i)\bnot\s+worth\s+living\b`),
	}

	elevatedRiskPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcan'?t\s+go\s+on\b`),
		regexp.MustCompile(`(?i)\bwish\s+i\s+(was|were)\s+dead\b`),
		regexp.MustCompile(`(?i)\bno\s+way\s+out\b`),
		regexp.MustCompile(`(?i)\bcan'?t\s+take\s+(it|this)\s+anymore\b`),
		regexp.MustCompile(`(?i)\bnothing\s+to\s+live\s+for\b`),
		regexp.MustCompile(`(?i)\btired\s+of\s+living\b`),
		regexp.MustCompile(`(?i)\bwant\s+to\s+disappear\b`),
		regexp.MustCompile(`(?i)\bgiv(e|en|ing)\s+up\s+on\s+everything\b`),
		regexp.MustCompile(`(?i)\bbetter\s+off\s+without\s+me\b`),
		regexp.MustCompile(`(?i)\bwhat'?s\s+the\s+point\s+of\s+(anything|going\s+on)\b`),
	}

	emotionalIntensityWords = []string{
		"overwhelmed", "overwhelming", "unbearable", "devastated", "devastating",
		"agony", "anguish", "terrified", "terror", "panic", "panicked", "panicking",
		"desperate", "desperation", "drowning", "suffocating", "shattered",
		"crushing", "crushed", "furious", "rage", "hysterical", "trembling",
		"paralyzed", "excruciating", "frantic", "screaming",
	}

	absolutistWords = []string{
		"always", "never", "nothing", "everything", "everyone", "nobody",
		"completely", "totally", "entirely", "absolutely", "constantly",
		"forever", "impossible", "every", "ruined",
	}

	hopelessnessWords = []string{
		"hopeless", "hopelessness", "pointless", "meaningless", "worthless",
		"useless", "trapped", "despair", "despairing", "doomed", "helpless",
		"powerless", "defeated", "empty", "numb", "burden", "unlovable", "futile",
	}
)

// Builtin returns the lexicon compiled into the binary.
func Builtin() *Lexicon {
	return &Lexicon{
		Version:            BuiltinVersion,
		ImmediateRisk:      immediateRiskPatterns,
		ElevatedRisk:       elevatedRiskPatterns,
		EmotionalIntensity: wordSet(emotionalIntensityWords),
		Absolutist:         wordSet(absolutistWords),
		Hopelessness:       wordSet(hopelessnessWords),
	}
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
