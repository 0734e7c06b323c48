package query

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TermSet is a set of normalized terms.
type TermSet map[string]struct{}

// NewTermSet builds a set from normalized terms.
func NewTermSet(terms ...string) TermSet {
	set := make(TermSet, len(terms))
	for _, term := range terms {
		if term = normalizeTerm(term); term != "" {
			set[term] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s TermSet) Has(term string) bool {
	_, ok := s[term]
	return ok
}

// Len returns the set size.
func (s TermSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s TermSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for term := range s {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// CountIn returns how many distinct members of s appear in terms.
func (s TermSet) CountIn(terms []string) int {
	if len(s) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(terms))
	n := 0
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if s.Has(term) {
			n++
		}
	}
	return n
}

// Tokenize normalizes text (NFKC, case folding) and splits it on whitespace.
// Each token is stripped of surrounding punctuation; '+' and '#' are kept so
// that "c++" and "c#" survive while "Python," becomes "python".
func Tokenize(text string) []string {
	// A Caser keeps state, so one is created per call.
	text = cases.Fold().String(norm.NFKC.String(text))

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if token := trimToken(field); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func trimToken(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func normalizeTerm(term string) string {
	tokens := Tokenize(term)
	return strings.Join(tokens, " ")
}

// topicWords splits tokens further on inner separators such as '/' and '-'
// so that "ai/ml" and "machine-learning" read as separate words.
func topicWords(tokens []string) []string {
	words := make([]string, 0, len(tokens))
	for _, token := range tokens {
		words = append(words, strings.FieldsFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
		})...)
	}
	return words
}

// containsPhrase reports whether phrase occurs in words on word boundaries.
// The last word of the phrase also matches a plural or versioned form, so
// "developer" matches "developers" and "python" matches "python3".
func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}

	last := len(phrase) - 1
	for i := 0; i+last < len(words); i++ {
		matched := true
		for j, want := range phrase {
			got := words[i+j]
			if got == want || j == last && isInflection(got, want) {
				continue
			}
			matched = false
			break
		}
		if matched {
			return true
		}
	}
	return false
}

func isInflection(word, stem string) bool {
	if !strings.HasPrefix(word, stem) {
		return false
	}

	suffix := word[len(stem):]
	if suffix == "s" || suffix == "es" {
		return true
	}
	for _, r := range suffix {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return suffix != ""
}
