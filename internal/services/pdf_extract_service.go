package services

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ajroetker/pdf"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
)

// Token shape accepted as a candidate assessment word.
const (
	minWordLength = 2
	maxWordLength = 20
)

// Positional trimming constants. Source documents print up to 4 practice
// words ahead of the 40 scored words.
const (
	practiceWordCount = 4
	scoredWordCount   = 40
)

// Phrases that mark a page as front matter or instructions rather than a
// word sheet. A page is skipped when any of these repeats.
var headerPhrases = []string{
	"published by",
	"practice sheet",
	"instructions",
	"teacher guide",
}

// excludedTokens are common words and template vocabulary that never count
// as assessment words regardless of where they appear.
var excludedTokens = map[string]bool{
	"the": true, "and": true, "for": true, "you": true, "are": true,
	"with": true, "this": true, "that": true, "from": true, "have": true,
	"practice": true, "sheet": true, "student": true, "students": true,
	"materials": true, "phonics": true, "check": true, "word": true,
	"words": true, "page": true, "teacher": true, "guide": true,
	"instructions": true, "published": true, "name": true, "date": true,
	"school": true, "class": true, "term": true, "ministry": true,
	"education": true, "read": true, "say": true,
}

// practiceFunctionWords are ultra-common two-letter words that only appear
// in source documents as leading practice items. They are suppressed when
// seen among the first few accepted words.
var practiceFunctionWords = map[string]bool{
	"it": true, "on": true, "in": true, "at": true, "up": true,
	"if": true, "is": true, "as": true, "by": true, "or": true,
	"so": true, "no": true, "go": true, "do": true, "to": true,
	"me": true, "my": true, "he": true, "she": true, "we": true,
	"be": true,
}

// textRun is a word-level text fragment with its rendered height.
type textRun struct {
	text   string
	height float64
}

// extractState is the order-dependent accumulator threaded through page
// processing. Deduplication and practice-word suppression depend on how
// many words have been accepted so far, so pages must be processed in
// document order.
type extractState struct {
	seen       map[string]bool
	candidates []string
}

func newExtractState() *extractState {
	return &extractState{seen: make(map[string]bool)}
}

// ExtractWordsFromPDF pulls candidate assessment words out of a phonics
// check PDF using layout heuristics: pages dominated by instructional
// phrases are skipped, only the two most frequent font sizes on each page
// are kept, and a leading run of practice words is trimmed off.
func (s *ingestService) ExtractWordsFromPDF(ctx context.Context, data []byte, filename string) (result *WordListResult, err error) {
	s.logger.InfoContext(ctx, "Starting PDF word extraction", "filename", filename, "bytes", len(data))

	// The underlying reader panics on malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &IngestError{Err: fmt.Errorf("%v", r), Message: "failed to parse PDF content"}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &IngestError{Err: err, Message: "failed to open PDF"}
	}

	state := newExtractState()
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		runs := assembleRuns(page.Content().Text)
		if skip, reason := shouldSkipPage(runs); skip {
			s.logger.DebugContext(ctx, "Skipping PDF page", "page", pageNum, "reason", reason)
			continue
		}

		accepted := collectPageWords(runs, state)
		s.logger.DebugContext(ctx, "Processed PDF page", "page", pageNum, "accepted", accepted)
	}

	if len(state.candidates) == 0 {
		return nil, &IngestError{Err: ErrNoValidWords, Message: "no candidate words found in PDF"}
	}

	words := trimPracticeWords(state.candidates)
	if len(words) < models.MinTermSetWords {
		return nil, &IngestError{
			Err: ErrWordCountOutOfRange,
			Message: fmt.Sprintf("extracted %d words after trimming, expected at least %d",
				len(words), models.MinTermSetWords),
			Count:  len(words),
			Sample: firstN(words, 5),
		}
	}

	wordList := make([]models.Word, 0, len(words))
	for _, w := range words {
		wordList = append(wordList, models.Word{Item: w, GraphemeType: models.GraphemeTypeUnknownPDF})
	}

	s.logger.InfoContext(ctx, "PDF word extraction completed",
		"filename", filename,
		"candidates", len(state.candidates),
		"words", len(wordList))

	return &WordListResult{
		Name:   termNameFromFilename(filename),
		Words:  wordList,
		Source: "pdf",
	}, nil
}

// assembleRuns glues the reader's glyph-level text elements into word-level
// runs. A new run starts on a font-size change, a baseline change, or a
// horizontal gap wider than a fraction of the glyph size.
func assembleRuns(texts []pdf.Text) []textRun {
	var runs []textRun
	var current strings.Builder
	var height float64
	var lastX, lastW, lastY float64

	flush := func() {
		if current.Len() > 0 {
			runs = append(runs, textRun{text: current.String(), height: height})
			current.Reset()
		}
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}

		sameLine := current.Len() > 0 &&
			math.Round(t.FontSize) == math.Round(height) &&
			math.Abs(t.Y-lastY) < t.FontSize*0.5
		gap := t.X - (lastX + lastW)
		contiguous := sameLine && gap < t.FontSize*0.3

		if !contiguous {
			flush()
			height = t.FontSize
		}
		current.WriteString(t.S)
		lastX, lastW, lastY = t.X, t.W, t.Y
	}
	flush()

	return runs
}

// shouldSkipPage reports whether a page is front matter or instructions.
// A page is skipped when a header phrase repeats, when the page carries
// almost no text, or when header phrases account for more than 80% of its
// tokens.
func shouldSkipPage(runs []textRun) (bool, string) {
	var parts []string
	for _, r := range runs {
		parts = append(parts, r.text)
	}
	pageText := strings.ToLower(strings.Join(parts, " "))

	phraseTokens := 0
	for _, phrase := range headerPhrases {
		count := strings.Count(pageText, phrase)
		if count > 1 {
			return true, fmt.Sprintf("repeated header phrase %q", phrase)
		}
		phraseTokens += count * len(strings.Fields(phrase))
	}

	if len(pageText) < 50 {
		return true, "too little text"
	}

	tokens := strings.Fields(pageText)
	if len(tokens) > 0 && float64(phraseTokens) > 0.8*float64(len(tokens)) {
		return true, "mostly header phrases"
	}

	return false, ""
}

// dominantHeights returns the two most frequent rounded run heights on a
// page. Word sheets render practice and scored words at up to two sizes,
// so both classes are kept.
func dominantHeights(runs []textRun) map[float64]bool {
	freq := make(map[float64]int)
	for _, r := range runs {
		freq[math.Round(r.height)]++
	}

	type heightCount struct {
		height float64
		count  int
	}
	counts := make([]heightCount, 0, len(freq))
	for h, c := range freq {
		counts = append(counts, heightCount{h, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].height > counts[j].height
	})

	kept := make(map[float64]bool, 2)
	for i := 0; i < len(counts) && i < 2; i++ {
		kept[counts[i].height] = true
	}
	return kept
}

// collectPageWords runs the token filters over one page's dominant-size
// runs and appends survivors to the cross-page accumulator. Returns the
// number of words accepted from this page.
func collectPageWords(runs []textRun, state *extractState) int {
	heights := dominantHeights(runs)
	seenOnPage := make(map[string]bool)
	accepted := 0

	for _, run := range runs {
		if !heights[math.Round(run.height)] {
			continue
		}
		for _, token := range strings.Fields(run.text) {
			token = strings.TrimSpace(token)
			lower := strings.ToLower(token)

			if !isCandidateToken(lower) {
				continue
			}
			if seenOnPage[lower] || excludedTokens[lower] {
				continue
			}
			seenOnPage[lower] = true

			if state.seen[lower] {
				continue
			}
			// Leading two-letter function words are printed as practice
			// items ahead of the scored words; drop them without marking
			// them seen so a genuine later occurrence still counts.
			if practiceFunctionWords[lower] && len(state.candidates) < practiceWordCount {
				continue
			}

			state.seen[lower] = true
			state.candidates = append(state.candidates, token)
			accepted++
		}
	}

	return accepted
}

func isCandidateToken(token string) bool {
	if len(token) < minWordLength || len(token) > maxWordLength {
		return false
	}
	for _, r := range token {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// trimPracticeWords separates practice words from scored words by position.
// Documents with a full practice block overrun 44 candidates; shorter
// overruns keep the trailing 40.
func trimPracticeWords(candidates []string) []string {
	switch {
	case len(candidates) > practiceWordCount+scoredWordCount:
		return candidates[practiceWordCount : practiceWordCount+scoredWordCount]
	case len(candidates) >= scoredWordCount:
		return candidates[len(candidates)-scoredWordCount:]
	default:
		if len(candidates) > scoredWordCount {
			return candidates[:scoredWordCount]
		}
		return candidates
	}
}

func firstN(items []string, n int) []string {
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
