package services

import "strings"

// Candidate header names for the columns the ingestor needs, in priority
// order. The first candidate that matches anything wins.
var (
	itemColumnCandidates     = []string{"item", "word", "text", "content", "value"}
	graphemeColumnCandidates = []string{"grapheme", "type", "category", "group", "class"}
)

// FindColumn resolves the best-matching header for a list of candidate
// column names. Matching rules are tried in priority order across the whole
// header set before falling through to the next rule:
//
//  1. case-insensitive exact match
//  2. case-insensitive substring match (candidate contained in header)
//  3. symmetric fuzzy fallback (either string contained in the other),
//     which covers abbreviated headers in both directions
//
// Within a rule, candidates are tried in the caller-supplied order, so an
// earlier candidate matching any header beats a later candidate. Returns
// the original header text and whether a match was found.
func FindColumn(headers []string, candidateNames []string) (string, bool) {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	// Exact match
	for _, candidate := range candidateNames {
		c := strings.ToLower(candidate)
		for i, h := range lowered {
			if h == c {
				return headers[i], true
			}
		}
	}

	// Header contains candidate
	for _, candidate := range candidateNames {
		c := strings.ToLower(candidate)
		for i, h := range lowered {
			if strings.Contains(h, c) {
				return headers[i], true
			}
		}
	}

	// Fuzzy: either direction, covers abbreviated headers
	for _, candidate := range candidateNames {
		c := strings.ToLower(candidate)
		for i, h := range lowered {
			if h == "" {
				continue
			}
			if strings.Contains(h, c) || strings.Contains(c, h) {
				return headers[i], true
			}
		}
	}

	return "", false
}
