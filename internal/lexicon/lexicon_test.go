package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinHasAllSets(t *testing.T) {
	lex := Builtin()
	if lex.Version != BuiltinVersion {
		t.Fatalf("Version = %q, want %q", lex.Version, BuiltinVersion)
	}
	if len(lex.ImmediateRisk) == 0 {
		t.Fatalf("ImmediateRisk is empty")
	}
	if len(lex.ElevatedRisk) == 0 {
		t.Fatalf("ElevatedRisk is empty")
	}
	if len(lex.EmotionalIntensity) == 0 || len(lex.Absolutist) == 0 || len(lex.Hopelessness) == 0 {
		t.Fatalf("word sets incomplete: emotional=%d absolutist=%d hopelessness=%d",
			len(lex.EmotionalIntensity), len(lex.Absolutist), len(lex.Hopelessness))
	}
}

func TestBuiltinImmediatePatternsMatchIntentNotIdiom(t *testing.T) {
	lex := Builtin()

	matches := func(text string) bool {
		for _, re := range lex.ImmediateRisk {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}

	for _, text := range []string{
		"i want to kill myself",
		"I've been thinking about killing myself",
		"I am suicidal",
		"i want to end my life",
	} {
		if !matches(text) {
			t.Fatalf("immediate patterns did not match %q", text)
		}
	}

	for _, text := range []string{
		"that joke killed me",
		"i'm dying of boredom",
		"this deadline is killing me",
		"i'd kill for a coffee right now",
	} {
		if matches(text) {
			t.Fatalf("immediate patterns matched idiom %q", text)
		}
	}
}

func TestFromFileExtend(t *testing.T) {
	path := writeLexiconFile(t, `
version: clinic-2026-08
immediate_risk:
  - "voorbij willen zijn"
hopelessness:
  - Uitzichtloos
`)

	lex, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if lex.Version != "clinic-2026-08" {
		t.Fatalf("Version = %q, want %q", lex.Version, "clinic-2026-08")
	}

	base := Builtin()
	if got, want := len(lex.ImmediateRisk), len(base.ImmediateRisk)+1; got != want {
		t.Fatalf("len(ImmediateRisk) = %d, want %d", got, want)
	}
	if !lex.Hopelessness["uitzichtloos"] {
		t.Fatalf("extended hopelessness set missing lowercased word")
	}
	if !lex.Hopelessness["hopeless"] {
		t.Fatalf("extend mode dropped builtin hopelessness words")
	}

	added := lex.ImmediateRisk[len(lex.ImmediateRisk)-1]
	if !added.MatchString("ik zou VOORBIJ   willen zijn") {
		t.Fatalf("compiled phrase did not match case/whitespace variant")
	}
}

func TestFromFileReplace(t *testing.T) {
	path := writeLexiconFile(t, `
version: v2
mode: replace
absolutist:
  - jamais
`)

	lex, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if len(lex.Absolutist) != 1 || !lex.Absolutist["jamais"] {
		t.Fatalf("replace mode kept builtin absolutist words: %v", lex.Absolutist)
	}
	// Lists absent from the file keep their builtin contents.
	if len(lex.ImmediateRisk) != len(Builtin().ImmediateRisk) {
		t.Fatalf("replace mode altered an unlisted set")
	}
}

func TestFromFileRequiresVersion(t *testing.T) {
	path := writeLexiconFile(t, `
hopelessness:
  - bleak
`)
	if _, err := FromFile(path); err == nil {
		t.Fatalf("FromFile() error = nil, want version error")
	}
}

func TestFromFileRejectsUnknownMode(t *testing.T) {
	path := writeLexiconFile(t, `
version: v1
mode: merge
`)
	if _, err := FromFile(path); err == nil {
		t.Fatalf("FromFile() error = nil, want mode error")
	}
}

func writeLexiconFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write lexicon file: %v", err)
	}
	return path
}
