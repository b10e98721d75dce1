package vault

import (
	"strings"
	"unicode"
)

// ParseSearchTokens splits the raw search string into lower-cased tokens.
// Tokens are delimited by '+' or any whitespace character.
func ParseSearchTokens(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '+'
	})
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}

// MatchesSearchTokens reports whether the entry satisfies all search tokens.
// Each token must be contained in at least one of display name, url,
// username or notes.
func MatchesSearchTokens(entry Entry, tokens []string) bool {
	haystack := []string{
		strings.ToLower(entry.URL),
		strings.ToLower(entry.Username),
	}
	if entry.DisplayName != nil {
		haystack = append(haystack, strings.ToLower(*entry.DisplayName))
	}
	if entry.Notes != nil {
		haystack = append(haystack, strings.ToLower(*entry.Notes))
	}

	for _, token := range tokens {
		if !containsToken(haystack, token) {
			return false
		}
	}
	return true
}

// Search returns the sorted entries matching every token of query. An
// empty query matches everything.
func (v *Vault) Search(query string) []Record {
	tokens := ParseSearchTokens(query)
	all := v.Sorted()
	if len(tokens) == 0 {
		return all
	}

	matched := all[:0]
	for _, record := range all {
		if MatchesSearchTokens(record.Entry, tokens) {
			matched = append(matched, record)
		}
	}
	return matched
}

func containsToken(fields []string, token string) bool {
	for _, field := range fields {
		if strings.Contains(field, token) {
			return true
		}
	}
	return false
}
