package risk

import (
	"strings"
	"unicode"

	"github.com/stillpointhq/stillpoint/internal/lexicon"
)

// Scoring weights and caps. These values are fixed alongside the band
// boundaries in types.go; changing any of them changes which tier a given
// input lands in.
const (
	elevatedRiskBoost = 0.5

	emotionalWordWeight = 0.1
	emotionalCap        = 0.3
	emotionalTriggerMin = 2

	absolutistWordWeight = 0.05
	absolutistCap        = 0.2
	absolutistTriggerMin = 3

	hopelessnessWordWeight = 0.1
	hopelessnessCap        = 0.3
	hopelessnessTriggerMin = 2

	iterationWeight = 0.02
	iterationCap    = 0.12

	durationDivisor = 150.0
	durationCap     = 0.08

	groundingWeight = 0.03
	groundingCap    = 0.05

	memoryWeight = 0.2
	memoryCap    = 0.15
)

// Scorer converts free text plus a session snapshot into an Assessment. It is
// stateless apart from the lexicon it was built with and safe for concurrent
// use.
type Scorer struct {
	lex *lexicon.Lexicon
}

func NewScorer(lex *lexicon.Lexicon) *Scorer {
	if lex == nil {
		lex = lexicon.Builtin()
	}
	return &Scorer{lex: lex}
}

// LexiconVersion reports which lexicon snapshot this scorer was built with.
func (s *Scorer) LexiconVersion() string {
	return s.lex.Version
}

// Assess scores one piece of user text. It is total: any string, including
// empty or whitespace-only input, produces an Assessment, never an error.
// Equal (text, sctx) pairs produce identical results on every call.
func (s *Scorer) Assess(text string, sctx Context) Assessment {
	normalized := normalizeText(text)

	// Immediate-risk phrases decide the outcome on their own. Context must
	// never dilute or override this branch.
	for _, re := range s.lex.ImmediateRisk {
		if re.MatchString(normalized) {
			return Assessment{
				DepthScore:   1.0,
				SafetyTier:   TierCrisis,
				Intervention: InterventionCrisis,
				Triggers: []Trigger{{
					Category:     "crisis",
					Level:        "immediate_risk",
					PatternClass: "immediate_risk",
				}},
			}
		}
	}

	var score float64
	var triggers []Trigger

	for _, re := range s.lex.ElevatedRisk {
		if re.MatchString(normalized) {
			score += elevatedRiskBoost
			triggers = append(triggers, Trigger{
				Category:     "elevated_risk",
				Level:        "high",
				PatternClass: "elevated_risk",
			})
			break
		}
	}

	tokens := tokenize(normalized)

	if n := countWords(tokens, s.lex.EmotionalIntensity); n > 0 {
		score += capped(float64(n)*emotionalWordWeight, emotionalCap)
		if n >= emotionalTriggerMin {
			triggers = append(triggers, Trigger{
				Category:     "emotional_intensity",
				Level:        "moderate",
				PatternClass: "emotional_intensity",
			})
		}
	}
	if n := countWords(tokens, s.lex.Absolutist); n > 0 {
		score += capped(float64(n)*absolutistWordWeight, absolutistCap)
		if n >= absolutistTriggerMin {
			triggers = append(triggers, Trigger{
				Category:     "absolutist_language",
				Level:        "low",
				PatternClass: "absolutist_language",
			})
		}
	}
	if n := countWords(tokens, s.lex.Hopelessness); n > 0 {
		score += capped(float64(n)*hopelessnessWordWeight, hopelessnessCap)
		if n >= hopelessnessTriggerMin {
			triggers = append(triggers, Trigger{
				Category:     "hopelessness",
				Level:        "moderate",
				PatternClass: "hopelessness",
			})
		}
	}

	score += capped(float64(sctx.IterationCount)*iterationWeight, iterationCap)
	score += capped(sctx.DurationMinutes/durationDivisor, durationCap)
	score += capped(float64(sctx.GroundingCount)*groundingWeight, groundingCap)
	score += capped(sctx.PriorDepthScore*memoryWeight, memoryCap)

	score = clampScore(score)
	tier := TierFor(score)

	return Assessment{
		DepthScore:   score,
		SafetyTier:   tier,
		Intervention: InterventionFor(tier),
		Triggers:     triggers,
	}
}

// normalizeText lowercases, straightens curly apostrophes, and collapses all
// whitespace runs to single spaces so phrase patterns see one stable form.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		switch r {
		case '‘', '’':
			return '\''
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func countWords(tokens []string, set map[string]bool) int {
	n := 0
	for _, tok := range tokens {
		if set[tok] {
			n++
		}
	}
	return n
}

func capped(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
