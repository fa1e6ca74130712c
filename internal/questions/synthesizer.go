// Package questions synthesizes the next reflection prompt from fixed
// templates and the user's own words. It never generates free text: every
// question is a fixed string or a fixed template carrying a phrase extracted
// verbatim from the prior response.
package questions

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/stillpointhq/stillpoint/internal/session"
)

var openingQuestions = map[session.Space]string{
	session.SpaceHere:          "As you arrive here, what is present for you right now?",
	session.SpaceBody:          "Settling into your body, what sensation asks for attention first?",
	session.SpaceFeelings:      "What feeling is closest to the surface right now?",
	session.SpaceThoughts:      "What thought keeps returning as you sit here?",
	session.SpaceRelationships: "When you bring your relationships to mind, who or what comes forward?",
	session.SpaceMeaning:       "What question about meaning feels alive for you today?",
}

// deepeningTemplates carries one template per emergence iteration after the
// opening. %s receives the phrase extracted from the prior response.
var deepeningTemplates = map[int]string{
	2: "When you stay with %s, what do you notice?",
	3: "What is it about %s that draws your attention?",
	4: "If %s could speak, what might it say?",
	5: "What does %s want you to know?",
	6: "As you sit with %s, what feels different now?",
}

const (
	closingQuestion = "Looking back over this reflection, what stands out to you, and what would you like to carry with you?"
	genericQuestion = "What else do you notice as you sit with that?"

	// fallbackPhrase stands in when extraction finds no usable words.
	fallbackPhrase = "that"
)

// stopwords are dropped before taking the reflection phrase: articles,
// pronouns, auxiliaries, prepositions, perception verbs, and conversational
// filler.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"i": true, "me": true, "my": true, "mine": true, "myself": true,
	"you": true, "your": true, "yours": true, "yourself": true,
	"he": true, "him": true, "his": true, "himself": true,
	"she": true, "her": true, "hers": true, "herself": true,
	"it": true, "its": true, "itself": true,
	"we": true, "us": true, "our": true, "ours": true, "ourselves": true,
	"they": true, "them": true, "their": true, "theirs": true, "themselves": true,
	"this": true, "that": true, "these": true, "those": true,
	"am": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
	"do": true, "does": true, "did": true, "doing": true,
	"have": true, "has": true, "had": true, "having": true,
	"will": true, "would": true, "can": true, "could": true,
	"should": true, "shall": true, "may": true, "might": true, "must": true,
	"notice": true, "noticing": true, "noticed": true,
	"feel": true, "feeling": true, "feels": true, "felt": true,
	"see": true, "seeing": true, "saw": true, "seen": true,
	"hear": true, "hearing": true, "heard": true,
	"sense": true, "sensing": true, "sensed": true,
	"think": true, "thinking": true, "thought": true,
	"in": true, "on": true, "at": true, "of": true, "to": true,
	"from": true, "with": true, "without": true, "for": true,
	"and": true, "or": true, "but": true, "so": true, "as": true,
	"by": true, "about": true, "into": true, "over": true,
	"under": true, "through": true,
	"just": true, "really": true, "very": true, "quite": true,
	"kind": true, "sort": true, "like": true, "some": true,
	"something": true, "anything": true, "right": true, "now": true,
	"here": true, "there": true, "when": true, "what": true,
	"how": true, "why": true, "then": true, "than": true,
	"too": true, "also": true, "still": true, "again": true,
}

// Opening returns the fixed first question for a space.
func Opening(space session.Space) string {
	if q, ok := openingQuestions[space]; ok {
		return q
	}
	return genericQuestion
}

// Closing returns the fixed integration question.
func Closing() string {
	return closingQuestion
}

// Next returns the question for the given iteration. Iteration 1 (and below)
// uses the per-space opening, iterations past the limit use the closing
// question, and anything without a template degrades to the generic question.
func Next(iteration int, space session.Space, priorResponse string) string {
	if iteration <= 1 {
		return Opening(space)
	}
	if iteration > session.MaxIterations {
		return Closing()
	}
	tpl, ok := deepeningTemplates[iteration]
	if !ok {
		return genericQuestion
	}
	return fmt.Sprintf(tpl, Extract(priorResponse))
}

// Extract pulls the reflection phrase out of a prior response: the last two
// non-stopword tokens, falling back to one, then to a literal "that". The
// result contains only words the user wrote.
func Extract(priorResponse string) string {
	kept := make([]string, 0, 8)
	for _, tok := range tokenize(priorResponse) {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	switch {
	case len(kept) >= 2:
		return kept[len(kept)-2] + " " + kept[len(kept)-1]
	case len(kept) == 1:
		return kept[0]
	default:
		return fallbackPhrase
	}
}

// MetaphorFragment reports the words following a "like" comparison, kept for
// later template substitution. The boolean is false when the response holds
// no such fragment.
func MetaphorFragment(priorResponse string) (string, bool) {
	tokens := tokenize(priorResponse)
	for i, tok := range tokens {
		if tok == "like" && i+1 < len(tokens) {
			return strings.Join(tokens[i+1:], " "), true
		}
	}
	return "", false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
