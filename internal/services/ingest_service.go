package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/xuri/excelize/v2"
)

// Rows whose item text exceeds this length are skipped as noise, not errors.
const maxItemLength = 50

// WordListResult is the outcome of a successful ingestion: a term set
// fragment not yet persisted.
type WordListResult struct {
	Name   string        `json:"name"`
	Words  []models.Word `json:"words"`
	Source string        `json:"source"` // "spreadsheet" or "pdf"
}

// IngestService turns uploaded word-list documents into validated word lists
type IngestService interface {
	// IngestFile dispatches on the filename extension
	IngestFile(ctx context.Context, data []byte, filename string) (*WordListResult, error)
	IngestSpreadsheet(ctx context.Context, data []byte, filename string) (*WordListResult, error)
	ExtractWordsFromPDF(ctx context.Context, data []byte, filename string) (*WordListResult, error)
}

type ingestService struct {
	logger utils.Logger
}

func NewIngestService(logger utils.Logger) IngestService {
	return &ingestService{logger: logger}
}

func (s *ingestService) IngestFile(ctx context.Context, data []byte, filename string) (*WordListResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".xlsx", ".xls", ".csv":
		return s.IngestSpreadsheet(ctx, data, filename)
	case ".pdf":
		return s.ExtractWordsFromPDF(ctx, data, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
}

// IngestSpreadsheet parses a workbook or CSV into a word list. Column
// resolution is heuristic (see FindColumn); rows with empty or over-long
// item text are skipped and logged, and the surviving count must fall in
// the 20-40 accepted range.
func (s *ingestService) IngestSpreadsheet(ctx context.Context, data []byte, filename string) (*WordListResult, error) {
	s.logger.InfoContext(ctx, "Starting spreadsheet ingestion", "filename", filename, "bytes", len(data))

	headers, rows, err := s.readTable(data, filename)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &IngestError{Err: ErrNoDataRows, Message: "file has a header row but no data rows"}
	}

	itemHeader, ok := FindColumn(headers, itemColumnCandidates)
	if !ok {
		return nil, &IngestError{
			Err:     ErrItemColumnNotFound,
			Message: fmt.Sprintf("no column matching %v", itemColumnCandidates),
			Headers: headers,
		}
	}
	graphemeHeader, hasGrapheme := FindColumn(headers, graphemeColumnCandidates)

	headerIndex := make(map[string]int, len(headers))
	for i, h := range headers {
		headerIndex[h] = i
	}
	itemIdx := headerIndex[itemHeader]
	graphemeIdx := -1
	if hasGrapheme {
		graphemeIdx = headerIndex[graphemeHeader]
	}

	var words []models.Word
	skipped := 0
	for rowNum, row := range rows {
		item := ""
		if itemIdx < len(row) {
			item = strings.TrimSpace(row[itemIdx])
		}
		if item == "" {
			continue
		}
		if len([]rune(item)) > maxItemLength {
			skipped++
			s.logger.DebugContext(ctx, "Skipping over-long row", "row", rowNum+2, "length", len(item))
			continue
		}

		graphemeType := models.GraphemeTypeUnknownSheet
		if graphemeIdx >= 0 && graphemeIdx < len(row) {
			if g := strings.TrimSpace(row[graphemeIdx]); g != "" {
				graphemeType = g
			}
		}

		words = append(words, models.Word{Item: item, GraphemeType: graphemeType})
	}

	if len(words) == 0 {
		return nil, &IngestError{
			Err:     ErrNoValidWords,
			Message: "no rows with usable word text",
			Headers: headers,
		}
	}
	if len(words) < models.MinTermSetWords || len(words) > models.MaxTermSetWords {
		return nil, &IngestError{
			Err: ErrWordCountOutOfRange,
			Message: fmt.Sprintf("found %d words, expected between %d and %d",
				len(words), models.MinTermSetWords, models.MaxTermSetWords),
			Count:  len(words),
			Sample: sampleItems(words, 5),
		}
	}

	s.logger.InfoContext(ctx, "Spreadsheet ingestion completed",
		"filename", filename,
		"words", len(words),
		"skipped_rows", skipped,
		"item_column", itemHeader,
		"grapheme_column", graphemeHeader)

	return &WordListResult{
		Name:   termNameFromFilename(filename),
		Words:  words,
		Source: "spreadsheet",
	}, nil
}

// readTable returns the header row and data rows of the first worksheet,
// or of the CSV file as a whole.
func (s *ingestService) readTable(data []byte, filename string) ([]string, [][]string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.TrimLeadingSpace = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil {
			return nil, nil, &IngestError{Err: err, Message: "failed to read CSV content"}
		}
		if len(records) == 0 {
			return nil, nil, &IngestError{Err: ErrNoDataRows, Message: "CSV file is empty"}
		}
		return records[0], records[1:], nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &IngestError{Err: err, Message: "failed to open workbook"}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &IngestError{Err: ErrNoWorksheets, Message: "workbook contains no worksheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &IngestError{Err: err, Message: "failed to read worksheet rows"}
	}
	if len(rows) == 0 {
		return nil, nil, &IngestError{Err: ErrNoDataRows, Message: "worksheet is empty"}
	}
	return rows[0], rows[1:], nil
}

// termNameFromFilename strips the path and a known extension, case-insensitively.
func termNameFromFilename(filename string) string {
	base := filepath.Base(filename)
	for _, ext := range []string{".xlsx", ".xls", ".csv", ".pdf"} {
		if strings.EqualFold(filepath.Ext(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

func sampleItems(words []models.Word, n int) []string {
	if n > len(words) {
		n = len(words)
	}
	sample := make([]string, 0, n)
	for _, w := range words[:n] {
		sample = append(sample, w.Item)
	}
	return sample
}
