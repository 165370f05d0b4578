package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestIngestService() IngestService {
	return NewIngestService(utils.NewDevelopmentLogger())
}

func buildWorkbook(t *testing.T, headers []string, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStr(sheet, cell, h))
	}
	for rowIdx, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr(sheet, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func wordRows(n int) [][]string {
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, []string{fmt.Sprintf("word%02d", i), "CVC"})
	}
	return rows
}

func TestIngestSpreadsheet_Workbook(t *testing.T) {
	svc := newTestIngestService()
	data := buildWorkbook(t, []string{"Word", "Grapheme"}, wordRows(40))

	result, err := svc.IngestSpreadsheet(context.Background(), data, "Term 2 Words.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "Term 2 Words", result.Name)
	assert.Equal(t, "spreadsheet", result.Source)
	require.Len(t, result.Words, 40)
	assert.Equal(t, "word00", result.Words[0].Item)
	assert.Equal(t, "CVC", result.Words[0].GraphemeType)
}

func TestIngestSpreadsheet_CSV(t *testing.T) {
	svc := newTestIngestService()

	var sb strings.Builder
	sb.WriteString("item,type\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "word%02d,digraph\n", i)
	}

	result, err := svc.IngestSpreadsheet(context.Background(), []byte(sb.String()), "term3.csv")
	require.NoError(t, err)

	assert.Equal(t, "term3", result.Name)
	require.Len(t, result.Words, 20)
	assert.Equal(t, "digraph", result.Words[19].GraphemeType)
}

func TestIngestSpreadsheet_WordCountBounds(t *testing.T) {
	svc := newTestIngestService()

	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{"nineteen words rejected", 19, true},
		{"twenty words accepted", 20, false},
		{"forty words accepted", 40, false},
		{"forty-one words rejected", 41, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildWorkbook(t, []string{"Word"}, wordRows(tt.count))
			result, err := svc.IngestSpreadsheet(context.Background(), data, "bounds.xlsx")

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrWordCountOutOfRange))

				var ie *IngestError
				require.ErrorAs(t, err, &ie)
				assert.Equal(t, tt.count, ie.Count)
				assert.NotEmpty(t, ie.Sample)
			} else {
				require.NoError(t, err)
				assert.Len(t, result.Words, tt.count)
			}
		})
	}
}

func TestIngestSpreadsheet_MissingItemColumn(t *testing.T) {
	svc := newTestIngestService()
	data := buildWorkbook(t, []string{"Student", "Score"}, [][]string{{"Alice", "5"}})

	_, err := svc.IngestSpreadsheet(context.Background(), data, "scores.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrItemColumnNotFound))

	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, []string{"Student", "Score"}, ie.Headers)
}

func TestIngestSpreadsheet_GraphemeSentinel(t *testing.T) {
	svc := newTestIngestService()

	rows := make([][]string, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{fmt.Sprintf("word%02d", i)})
	}
	data := buildWorkbook(t, []string{"Word"}, rows)

	result, err := svc.IngestSpreadsheet(context.Background(), data, "plain.xlsx")
	require.NoError(t, err)

	for _, w := range result.Words {
		assert.Equal(t, models.GraphemeTypeUnknownSheet, w.GraphemeType)
	}
}

func TestIngestSpreadsheet_SkipsEmptyAndOverlongRows(t *testing.T) {
	svc := newTestIngestService()

	rows := wordRows(20)
	rows = append(rows, []string{"", "CVC"})
	rows = append(rows, []string{strings.Repeat("x", 51), "CVC"})
	rows = append(rows, []string{"   ", "CVC"})
	data := buildWorkbook(t, []string{"Word", "Grapheme"}, rows)

	result, err := svc.IngestSpreadsheet(context.Background(), data, "noisy.xlsx")
	require.NoError(t, err)
	assert.Len(t, result.Words, 20)
}

func TestIngestSpreadsheet_NoDataRows(t *testing.T) {
	svc := newTestIngestService()
	data := buildWorkbook(t, []string{"Word"}, nil)

	_, err := svc.IngestSpreadsheet(context.Background(), data, "empty.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataRows))
}

func TestIngestFile_UnsupportedExtension(t *testing.T) {
	svc := newTestIngestService()

	_, err := svc.IngestFile(context.Background(), []byte("hello"), "words.docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFileType))
	assert.Contains(t, err.Error(), ".docx")
}

func TestTermNameFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Term 2 Words.xlsx", "Term 2 Words"},
		{"WORDS.XLSX", "WORDS"},
		{"uploads/term3.csv", "term3"},
		{"check.PDF", "check"},
		{"no-extension", "no-extension"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, termNameFromFilename(tt.filename), tt.filename)
	}
}
