package domain

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Rejection reasons reported by QueryValidator.
const (
	ReasonEmptyQuery     = "Empty query"
	ReasonNotSelect      = "Only SELECT queries are allowed"
	ReasonMultiStatement = "Multiple statements not allowed"

	blockedKeywordsPrefix = "Blocked keywords found: "
)

// BlockedKeywords rejects a query when any of them appears as a token.
var BlockedKeywords = map[string]struct{}{
	"DROP":     {},
	"DELETE":   {},
	"UPDATE":   {},
	"INSERT":   {},
	"ALTER":    {},
	"TRUNCATE": {},
	"CREATE":   {},
	"GRANT":    {},
	"REVOKE":   {},
}

var tokenPattern = regexp.MustCompile(`\b[A-Z]+\b`)

// ValidationOutcome is the verdict of a single Validate call.
// Accepted is true exactly when Reasons is empty.
type ValidationOutcome struct {
	Accepted bool
	Reasons  []string
}

// Err returns nil for accepted queries and a *ValidationError otherwise.
func (o ValidationOutcome) Err() error {
	if o.Accepted {
		return nil
	}
	return &ValidationError{Reasons: o.Reasons}
}

// QueryValidator is a lexical read-only gate. It does not parse SQL: blocked
// keywords are matched as tokens anywhere in the text, string literals included.
type QueryValidator struct{}

func NewQueryValidator() *QueryValidator {
	return &QueryValidator{}
}

// Validate checks the query against every rule and reports all violations
// together. Only empty input short-circuits.
func (v *QueryValidator) Validate(query string) ValidationOutcome {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	if normalized == "" {
		return ValidationOutcome{Reasons: []string{ReasonEmptyQuery}}
	}

	var reasons []string

	if !strings.HasPrefix(normalized, "SELECT") && !strings.HasPrefix(normalized, "WITH") {
		reasons = append(reasons, ReasonNotSelect)
	}

	if found := blockedTokens(normalized); len(found) > 0 {
		reasons = append(reasons, BlockedKeywordsReason(found...))
	}

	if hasInnerSemicolon(query) {
		reasons = append(reasons, ReasonMultiStatement)
	}

	return ValidationOutcome{Accepted: len(reasons) == 0, Reasons: reasons}
}

// blockedTokens returns the distinct blocked keywords in text, sorted.
func blockedTokens(text string) []string {
	seen := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		if _, blocked := BlockedKeywords[tok]; blocked {
			seen[tok] = struct{}{}
		}
	}
	found := make([]string, 0, len(seen))
	for kw := range seen {
		found = append(found, kw)
	}
	sort.Strings(found)
	return found
}

// hasInnerSemicolon allows one optional trailing terminator and nothing else.
func hasInnerSemicolon(query string) bool {
	body := strings.TrimRightFunc(query, unicode.IsSpace)
	body = strings.TrimSuffix(body, ";")
	return strings.Contains(body, ";")
}

// BlockedKeywordsReason formats the combined blocked-keyword message.
func BlockedKeywordsReason(keywords ...string) string {
	sorted := append([]string(nil), keywords...)
	sort.Strings(sorted)
	return blockedKeywordsPrefix + strings.Join(sorted, ", ")
}
