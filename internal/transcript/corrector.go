// Package transcript post-processes recognised text before it is inserted.
//
// The only stage today is vocabulary correction: words that sound like a
// configured term (product names, jargon, people) are replaced with the term's
// canonical spelling.
package transcript

import (
	"strings"
	"unicode"

	"github.com/MrWong99/voxpaste/internal/transcript/phonetic"
)

// minTokenLen is the shortest single token considered for correction. Short
// function words collide phonetically with too many terms.
const minTokenLen = 3

// Correction records one replacement.
type Correction struct {
	Original   string
	Corrected  string
	Confidence float64
}

// Corrector rewrites transcripts against a fixed vocabulary. It is safe for
// concurrent use.
type Corrector struct {
	matcher *phonetic.Matcher
	vocab   *phonetic.Vocabulary
}

// NewCorrector returns a Corrector for terms. With no terms it is a no-op.
func NewCorrector(terms []string, opts ...phonetic.Option) *Corrector {
	return &Corrector{
		matcher: phonetic.New(opts...),
		vocab:   phonetic.NewVocabulary(terms),
	}
}

// Correct returns text with vocabulary corrections applied, and the list of
// corrections. When nothing changes, text is returned unchanged, including
// its surrounding whitespace.
//
// At each token position, n-gram windows from the longest term length down
// to 1 are tried; the longest match wins so multi-word terms take precedence
// over partial single-word matches. Punctuation attached to a window's edges
// is preserved.
func (c *Corrector) Correct(text string) (string, []Correction) {
	if c == nil || c.vocab.Len() == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var (
		output      []string
		corrections []Correction
	)
	for i := 0; i < len(tokens); {
		maxN := min(c.vocab.MaxWords(), len(tokens)-i)
		matched := false
		for n := maxN; n >= 1; n-- {
			prefix, core, suffix := splitPunct(strings.Join(tokens[i:i+n], " "))
			if n == 1 && len([]rune(core)) < minTokenLen {
				continue
			}
			term, conf, ok := c.matcher.Match(core, c.vocab)
			if !ok {
				continue
			}
			output = append(output, prefix+term+suffix)
			if term != core {
				corrections = append(corrections, Correction{Original: core, Corrected: term, Confidence: conf})
			}
			i += n
			matched = true
			break
		}
		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	if len(corrections) == 0 {
		return text, nil
	}
	lead := text[:len(text)-len(strings.TrimLeftFunc(text, unicode.IsSpace))]
	trail := text[len(strings.TrimRightFunc(text, unicode.IsSpace)):]
	return lead + strings.Join(output, " ") + trail, corrections
}

// splitPunct separates leading and trailing punctuation from s.
func splitPunct(s string) (prefix, core, suffix string) {
	core = strings.TrimLeftFunc(s, unicode.IsPunct)
	prefix = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsPunct)
	suffix = core[len(trimmed):]
	return prefix, trimmed, suffix
}
