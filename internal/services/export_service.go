package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/events"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Fixed cell coordinates of the national marking-sheet template. The cover
// sheet is the first worksheet, the marking sheet the second.
const (
	coverCellStudentName    = "C5"
	coverCellNSN            = "E5"
	coverCellDate           = "C7"
	coverCellCheckType      = "E7"
	coverCellReasonNotDone  = "C9"
	coverCellOverallComment = "E9"
	coverCellAdminChangeA   = "C15"
	coverCellAdminChangeB   = "E15"
	coverCellLocation       = "C24"
	coverCellDelivery       = "E24"
	coverCellDuration       = "G24"

	markingCellTermName  = "F2"
	markingFirstWordRow  = 6
	markingResultColumn  = "F"
	markingCommentColumn = "H"
	markingWordSlots     = 40

	// Delivery medium is fixed: this tool only administers digital checks.
	deliveryMedium = "Digital"
)

// Result strings the template's summary formulas match against.
const (
	resultTextCorrect   = "Got it"
	resultTextIncorrect = "Not yet"
)

// ExportResult is a patched workbook ready for download.
type ExportResult struct {
	Filename string
	Content  []byte
}

// ExportService patches assessment results into the packaged marking-sheet
// template. The template's structure, styles and formulas are preserved;
// only the fixed result cells change, and the workbook is marked for full
// recalculation so summary formulas refresh on open.
type ExportService interface {
	ExportAssessment(ctx context.Context, record *models.AssessmentRecord) (*ExportResult, error)
}

type exportService struct {
	templatePaths []string
	httpClient    *http.Client
	publisher     events.EventPublisher
	logger        utils.Logger
}

func NewExportService(templatePaths []string, publisher events.EventPublisher, logger utils.Logger) ExportService {
	return &exportService{
		templatePaths: templatePaths,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		publisher:     publisher,
		logger:        logger,
	}
}

func (s *exportService) ExportAssessment(ctx context.Context, record *models.AssessmentRecord) (*ExportResult, error) {
	template, err := s.loadTemplate(ctx)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to open marking sheet template: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return nil, fmt.Errorf("%w: template has %d worksheets, need cover and marking sheets",
			ErrTemplateUnavailable, len(sheets))
	}
	coverSheet, markingSheet := sheets[0], sheets[1]

	if err := s.patchCoverSheet(f, coverSheet, record); err != nil {
		return nil, fmt.Errorf("failed to patch cover sheet: %w", err)
	}
	if err := s.patchMarkingSheet(f, markingSheet, record); err != nil {
		return nil, fmt.Errorf("failed to patch marking sheet: %w", err)
	}
	if err := s.forceRecalculation(f); err != nil {
		return nil, fmt.Errorf("failed to mark workbook for recalculation: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	filename := exportFilename(record.StudentName, record.Date)

	s.publishExportedEvent(ctx, record, filename)
	s.logger.InfoContext(ctx, "Assessment exported",
		"assessment_id", record.ID,
		"filename", filename,
		"bytes", buf.Len())

	return &ExportResult{Filename: filename, Content: buf.Bytes()}, nil
}

// loadTemplate tries each configured template location in order, collecting
// the failure reason for every candidate so a misconfigured deployment is
// diagnosable from one error.
func (s *exportService) loadTemplate(ctx context.Context) ([]byte, error) {
	var attempts []string

	for _, path := range s.templatePaths {
		data, err := s.readTemplate(ctx, path)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: tried %s", ErrTemplateUnavailable, strings.Join(attempts, "; "))
}

func (s *exportService) readTemplate(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(path)
}

func (s *exportService) patchCoverSheet(f *excelize.File, sheet string, record *models.AssessmentRecord) error {
	reason := ""
	if record.Status == models.StatusNotDone {
		reason = record.ReasonNotDone
	}

	cells := map[string]string{
		coverCellStudentName:    record.StudentName,
		coverCellNSN:            record.NSN,
		coverCellDate:           record.Date.Format("02/01/2006"),
		coverCellCheckType:      string(record.CheckType),
		coverCellReasonNotDone:  reason,
		coverCellOverallComment: record.OverallComment,
		coverCellLocation:       record.Location,
		coverCellDelivery:       deliveryMedium,

		// Reserved for manual annotation after the export; always cleared.
		coverCellAdminChangeA: "",
		coverCellAdminChangeB: "",
		coverCellDuration:     "",
	}

	for cell, value := range cells {
		if err := setCell(f, sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) patchMarkingSheet(f *excelize.File, sheet string, record *models.AssessmentRecord) error {
	if err := setCell(f, sheet, markingCellTermName, record.TermSetName); err != nil {
		return err
	}

	outcomes, err := record.OutcomeList()
	if err != nil {
		return fmt.Errorf("failed to decode outcomes: %w", err)
	}

	// Every slot is written: slots past the recorded outcomes are blanked
	// so no stale content from a previous export survives.
	for slot := 0; slot < markingWordSlots; slot++ {
		row := markingFirstWordRow + slot
		result, note := "", ""
		if slot < len(outcomes) {
			result = resultText(outcomes[slot].Result)
			note = outcomes[slot].Note
		}
		if err := setCell(f, sheet, fmt.Sprintf("%s%d", markingResultColumn, row), result); err != nil {
			return err
		}
		if err := setCell(f, sheet, fmt.Sprintf("%s%d", markingCommentColumn, row), note); err != nil {
			return err
		}
	}
	return nil
}

// forceRecalculation marks the workbook so formulas depending on patched
// cells recompute on open, and strips the cached result from every
// formula-bearing cell (the category summary sheet caches values that are
// invalid once the marking sheet changes). UpdateLinkedValue clears the
// cached results while leaving the formula text in place.
func (s *exportService) forceRecalculation(f *excelize.File) error {
	calcID := uint(191029)
	calcMode := "auto"
	fullCalc := true
	if err := f.SetCalcProps(&excelize.CalcPropsOptions{
		CalcID:         &calcID,
		CalcMode:       &calcMode,
		FullCalcOnLoad: &fullCalc,
		ForceFullCalc:  &fullCalc,
	}); err != nil {
		return err
	}

	return f.UpdateLinkedValue()
}

// setCell overwrites one cell idempotently: any formula or prior typed
// content is cleared first, and a value is only attached when non-empty.
func setCell(f *excelize.File, sheet, cell, value string) error {
	if err := f.SetCellFormula(sheet, cell, ""); err != nil {
		return err
	}
	if value == "" {
		return f.SetCellValue(sheet, cell, nil)
	}
	return f.SetCellStr(sheet, cell, value)
}

func resultText(result models.WordResult) string {
	switch result {
	case models.ResultCorrect:
		return resultTextCorrect
	case models.ResultIncorrect:
		return resultTextIncorrect
	default:
		return ""
	}
}

// exportFilename derives the download name from the student and the
// assessment date: Phonics-Check-Marking-Sheet-<Name>-<ISO date>.xlsx.
func exportFilename(studentName string, date time.Time) string {
	name := strings.Join(strings.Fields(strings.TrimSpace(studentName)), "_")
	return fmt.Sprintf("Phonics-Check-Marking-Sheet-%s-%s.xlsx", name, date.Format("2006-01-02"))
}

func (s *exportService) publishExportedEvent(ctx context.Context, record *models.AssessmentRecord, filename string) {
	event := &events.NotificationEvent{
		ID:        uuid.NewString(),
		Type:      events.EventAssessmentExported,
		Timestamp: time.Now().UTC(),
		Source:    "phonics-check-assistant",
		Version:   "1",
		Data: events.AssessmentExportedEvent{
			AssessmentID: record.ID,
			StudentName:  record.StudentName,
			Filename:     filename,
		},
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish export event", "assessment_id", record.ID, "error", err)
	}
}
