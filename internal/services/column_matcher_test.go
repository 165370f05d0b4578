package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindColumn_ExactMatch(t *testing.T) {
	headers := []string{"ID", "Word", "Grapheme"}

	header, found := FindColumn(headers, itemColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "Word", header)
}

func TestFindColumn_CaseInsensitive(t *testing.T) {
	headers := []string{"STUDENT", "ITEM", "Notes"}

	header, found := FindColumn(headers, itemColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "ITEM", header)
}

func TestFindColumn_ExactBeatsSubstring(t *testing.T) {
	// "Item Number" contains "item" but a later header matches "word"
	// exactly. Exact matches across all candidates win before any
	// substring rule is tried.
	headers := []string{"Item Number", "Word"}

	header, found := FindColumn(headers, itemColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "Word", header)
}

func TestFindColumn_SubstringMatch(t *testing.T) {
	headers := []string{"Student Name", "Word List", "Score"}

	header, found := FindColumn(headers, itemColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "Word List", header)
}

func TestFindColumn_CandidatePriorityWithinRule(t *testing.T) {
	// Both headers are substring matches; the earlier candidate wins even
	// though "Check Text" appears first in the header row.
	headers := []string{"Check Text", "Item Code"}

	header, found := FindColumn(headers, itemColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "Item Code", header)
}

func TestFindColumn_FuzzyAbbreviatedHeader(t *testing.T) {
	// "grapheme" is not contained in "Graph", but "Graph" is contained in
	// "grapheme", which only the symmetric fallback covers.
	headers := []string{"Word", "Graph"}

	header, found := FindColumn(headers, graphemeColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "Graph", header)
}

func TestFindColumn_EmptyHeadersSkippedInFuzzyPass(t *testing.T) {
	// An empty header is a substring of every candidate; it must never win.
	headers := []string{"", "Student", "Wrd"}

	_, found := FindColumn(headers, itemColumnCandidates)
	assert.False(t, found)
}

func TestFindColumn_NoMatch(t *testing.T) {
	headers := []string{"Student", "Score", "Notes"}

	_, found := FindColumn(headers, itemColumnCandidates)
	assert.False(t, found)
}

func TestFindColumn_WhitespaceTrimmed(t *testing.T) {
	headers := []string{"  word  ", "type"}

	header, found := FindColumn(headers, itemColumnCandidates)
	assert.True(t, found)
	assert.Equal(t, "  word  ", header)
}
