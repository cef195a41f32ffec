package match

import "strings"

// Query is a lower-cased, whitespace-tokenized search string.
type Query struct {
	text   string
	tokens map[string]struct{}
}

// ParseQuery prepares a raw query for factor computation.
func ParseQuery(raw string) Query {
	text := strings.ToLower(raw)
	fields := strings.Fields(text)
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return Query{text: text, tokens: tokens}
}

// Text returns the lower-cased query.
func (q Query) Text() string {
	return q.text
}

// overlap counts the distinct tokens of s that also occur in the query.
// It also returns the number of distinct tokens in s.
func (q Query) overlap(s string) (matched, total int) {
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := q.tokens[tok]; ok {
			matched++
		}
	}
	return matched, len(seen)
}

// anyTokenIn reports whether some query token is a substring of s.
func (q Query) anyTokenIn(s string) bool {
	for tok := range q.tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
