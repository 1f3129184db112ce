package patient

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/ehr/records/internal/platform/filter"
)

// fold case-folds s. Casers keep state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// isDash reports whether s is made only of dash punctuation (hyphen, en
// dash, double oblique hyphen and the rest of Unicode category Pd).
func isDash(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Pd, r) {
			return false
		}
	}
	return true
}

type nameWord struct {
	text    string
	unknown bool
}

// nameWords lists the words of the given name then the family name. A blank
// or all-dash component stands for an unknown name and becomes a single
// unknown word.
func nameWords(p Patient) []nameWord {
	var words []nameWord
	for _, part := range []string{p.GivenName, p.FamilyName} {
		fields := strings.Fields(fold(part))
		if len(fields) == 0 || isDash(strings.Join(fields, "")) {
			words = append(words, nameWord{unknown: true})
			continue
		}
		for _, f := range fields {
			words = append(words, nameWord{text: f})
		}
	}
	return words
}

// NameMatcher matches patients whose name contains every query word as a
// prefix of a distinct name word, in any order. A dash in the query stands
// for an unknown name.
type NameMatcher struct{}

func (NameMatcher) Matches(p Patient, constraint string) bool {
	tokens := strings.Fields(fold(constraint))
	if len(tokens) == 0 {
		return true
	}
	words := nameWords(p)
	used := make([]bool, len(words))
	for _, tok := range tokens {
		dash := isDash(tok)
		matched := false
		for i, w := range words {
			if used[i] {
				continue
			}
			if (dash && w.unknown) || (!dash && !w.unknown && strings.HasPrefix(w.text, tok)) {
				used[i] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// IDMatcher matches patients whose id contains the query, ignoring case.
type IDMatcher struct{}

func (IDMatcher) Matches(p Patient, constraint string) bool {
	return strings.Contains(fold(p.ID), fold(strings.TrimSpace(constraint)))
}

// SearchMatcher is the matcher behind the patient search box: id or name.
func SearchMatcher() filter.Matcher[Patient] {
	return filter.MatchAny[Patient](IDMatcher{}, NameMatcher{})
}
