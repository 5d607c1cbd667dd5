package phonetic_test

import (
	"testing"

	"github.com/MrWong99/voxpaste/internal/transcript/phonetic"
)

func TestMatcher_CanonicalSpelling(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	v := phonetic.NewVocabulary([]string{"Kubernetes", "Postgres"})

	corrected, conf, matched := m.Match("kubernetes", v)
	if !matched || corrected != "Kubernetes" {
		t.Fatalf("Match = (%q, %v), want Kubernetes", corrected, matched)
	}
	if conf != 1 {
		t.Errorf("confidence = %f, want 1", conf)
	}
}

func TestMatcher_MultiWordTerm(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	v := phonetic.NewVocabulary([]string{"Visual Studio Code"})
	if v.MaxWords() != 3 {
		t.Fatalf("MaxWords() = %d, want 3", v.MaxWords())
	}
	corrected, _, matched := m.Match("visual studio code", v)
	if !matched || corrected != "Visual Studio Code" {
		t.Fatalf("Match = (%q, %v)", corrected, matched)
	}
}

func TestMatcher_NoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	v := phonetic.NewVocabulary([]string{"Kubernetes", "Postgres"})

	corrected, conf, matched := m.Match("hello", v)
	if matched {
		t.Fatalf("Match(hello) matched %q", corrected)
	}
	if corrected != "hello" || conf != 0 {
		t.Errorf("unmatched result = (%q, %f), want (hello, 0)", corrected, conf)
	}
}

func TestMatcher_EmptyInputs(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	if _, _, ok := m.Match("kubernetes", nil); ok {
		t.Error("nil vocabulary matched")
	}
	if _, _, ok := m.Match("   ", phonetic.NewVocabulary([]string{"x"})); ok {
		t.Error("blank phrase matched")
	}
	if v := phonetic.NewVocabulary([]string{"", "  "}); v.Len() != 0 {
		t.Errorf("blank terms kept: %d", v.Len())
	}
}
