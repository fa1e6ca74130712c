package lexicon

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk override format. Phrase entries are literal phrases,
// not regular expressions; they are compiled to case-insensitive word-boundary
// patterns with flexible whitespace.
type fileDoc struct {
	Version            string   `yaml:"version"`
	Mode               string   `yaml:"mode"`
	ImmediateRisk      []string `yaml:"immediate_risk"`
	ElevatedRisk       []string `yaml:"elevated_risk"`
	EmotionalIntensity []string `yaml:"emotional_intensity"`
	Absolutist         []string `yaml:"absolutist"`
	Hopelessness       []string `yaml:"hopelessness"`
}

// FromFile loads a lexicon override from a YAML file. Mode "extend" (the
// default) appends to the builtin sets; "replace" substitutes each non-empty
// list for the builtin one.
func FromFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}
	if strings.TrimSpace(doc.Version) == "" {
		return nil, fmt.Errorf("lexicon file %s: version is required", path)
	}

	mode := strings.ToLower(strings.TrimSpace(doc.Mode))
	if mode == "" {
		mode = "extend"
	}
	if mode != "extend" && mode != "replace" {
		return nil, fmt.Errorf("lexicon file %s: mode must be extend or replace, got %q", path, doc.Mode)
	}

	immediate, err := compilePhrases(doc.ImmediateRisk)
	if err != nil {
		return nil, fmt.Errorf("lexicon file %s: immediate_risk: %w", path, err)
	}
	elevated, err := compilePhrases(doc.ElevatedRisk)
	if err != nil {
		return nil, fmt.Errorf("lexicon file %s: elevated_risk: %w", path, err)
	}

	base := Builtin()
	lex := &Lexicon{Version: strings.TrimSpace(doc.Version)}

	if mode == "replace" {
		lex.ImmediateRisk = pickPatterns(immediate, base.ImmediateRisk)
		lex.ElevatedRisk = pickPatterns(elevated, base.ElevatedRisk)
		lex.EmotionalIntensity = pickWords(doc.EmotionalIntensity, base.EmotionalIntensity)
		lex.Absolutist = pickWords(doc.Absolutist, base.Absolutist)
		lex.Hopelessness = pickWords(doc.Hopelessness, base.Hopelessness)
		return lex, nil
	}

	lex.ImmediateRisk = append(append([]*regexp.Regexp(nil), base.ImmediateRisk...), immediate...)
	lex.ElevatedRisk = append(append([]*regexp.Regexp(nil), base.ElevatedRisk...), elevated...)
	lex.EmotionalIntensity = mergeWords(base.EmotionalIntensity, doc.EmotionalIntensity)
	lex.Absolutist = mergeWords(base.Absolutist, doc.Absolutist)
	lex.Hopelessness = mergeWords(base.Hopelessness, doc.Hopelessness)
	return lex, nil
}

func compilePhrases(phrases []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		quoted := regexp.QuoteMeta(strings.ToLower(p))
		quoted = strings.ReplaceAll(quoted, " ", `\s+`)
		re, err := regexp.Compile(`(?i)\b` + quoted + `\b`)
		if err != nil {
			return nil, fmt.Errorf("phrase %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func pickPatterns(override, base []*regexp.Regexp) []*regexp.Regexp {
	if len(override) > 0 {
		return override
	}
	return base
}

func pickWords(override []string, base map[string]bool) map[string]bool {
	if len(override) > 0 {
		return wordSet(lowerAll(override))
	}
	return base
}

func mergeWords(base map[string]bool, extra []string) map[string]bool {
	merged := make(map[string]bool, len(base)+len(extra))
	for w := range base {
		merged[w] = true
	}
	for _, w := range lowerAll(extra) {
		merged[w] = true
	}
	return merged
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
