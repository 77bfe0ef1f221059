package model

import (
	"sort"
	"strings"
)

// SymptomSeparator joins symptom tokens in storage and in replies.
const SymptomSeparator = "; "

// SymptomSet is a sorted, duplicate-free list of lower-case symptom tokens.
type SymptomSet []string

// ParseSymptomInput turns command text into a set. Text containing ';' is split
// on it, so multi-word symptoms survive ("sore throat; fever"); otherwise every
// word is its own symptom.
func ParseSymptomInput(text string) SymptomSet {
	text = Fold(text)
	if strings.Contains(text, ";") {
		return newSymptomSet(strings.Split(text, ";"))
	}
	return newSymptomSet(strings.Fields(text))
}

// ParseStoredSymptoms reads the ';'-separated column of the medicines file.
func ParseStoredSymptoms(field string) SymptomSet {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	return newSymptomSet(strings.Split(Fold(field), ";"))
}

func newSymptomSet(tokens []string) SymptomSet {
	seen := make(map[string]struct{}, len(tokens))
	out := make(SymptomSet, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the tokens of both sets.
func (s SymptomSet) Union(other SymptomSet) SymptomSet {
	all := make([]string, 0, len(s)+len(other))
	all = append(all, s...)
	all = append(all, other...)
	return newSymptomSet(all)
}

// Matches reports whether query is a substring of any single token.
func (s SymptomSet) Matches(query string) bool {
	query = Fold(query)
	if query == "" {
		return false
	}
	for _, t := range s {
		if strings.Contains(t, query) {
			return true
		}
	}
	return false
}

func (s SymptomSet) String() string {
	return strings.Join(s, SymptomSeparator)
}
