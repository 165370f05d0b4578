package services

import (
	"context"
	"fmt"
	"time"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/events"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/validator"
	"github.com/google/uuid"
)

// ===== REQUEST STRUCTURES =====

type CreateAssessmentRequest struct {
	StudentName string           `json:"student_name" validate:"required,min=1,max=200"`
	NSN         string           `json:"nsn" validate:"omitempty,max=20"`
	Teacher     string           `json:"teacher" validate:"omitempty,max=200"`
	School      string           `json:"school" validate:"omitempty,max=200"`
	Location    string           `json:"location" validate:"omitempty,max=200"`
	Date        *time.Time       `json:"date"`
	TermSetID   string           `json:"term_set_id" validate:"required,uuid"`
	CheckType   models.CheckType `json:"check_type" validate:"omitempty,check_type"`
}

type RecordOutcomeRequest struct {
	Index  int               `json:"index" validate:"min=0"`
	Result models.WordResult `json:"result" validate:"required,word_result"`
	Note   string            `json:"note" validate:"omitempty,max=500"`
}

type CompleteAssessmentRequest struct {
	OverallComment string `json:"overall_comment" validate:"omitempty,max=2000"`
}

type MarkNotDoneRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// AssessmentService manages the lifecycle of phonics check records. Score
// and percentage are rederived on every outcome mutation.
type AssessmentService interface {
	Create(ctx context.Context, req *CreateAssessmentRequest) (*models.AssessmentRecord, error)
	GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error)
	List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.AssessmentRecord, int64, error)
	Delete(ctx context.Context, id string) error

	RecordOutcome(ctx context.Context, id string, req *RecordOutcomeRequest) (*models.AssessmentRecord, error)
	Complete(ctx context.Context, id string, req *CompleteAssessmentRequest) (*models.AssessmentRecord, error)
	MarkNotDone(ctx context.Context, id string, req *MarkNotDoneRequest) (*models.AssessmentRecord, error)
}

type assessmentService struct {
	repo      repositories.Repository
	termSets  TermSetService
	publisher events.EventPublisher
	logger    utils.Logger
	validator *validator.Validator
}

func NewAssessmentService(
	repo repositories.Repository,
	termSets TermSetService,
	publisher events.EventPublisher,
	logger utils.Logger,
	v *validator.Validator,
) AssessmentService {
	return &assessmentService{
		repo:      repo,
		termSets:  termSets,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest) (*models.AssessmentRecord, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	set, err := s.termSets.GetByID(ctx, req.TermSetID)
	if err != nil {
		return nil, err
	}

	checkType := req.CheckType
	if checkType == "" {
		if set.WordCount <= 20 {
			checkType = models.CheckTypeTwenty
		} else {
			checkType = models.CheckTypeForty
		}
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	record := &models.AssessmentRecord{
		ID:          uuid.NewString(),
		StudentName: req.StudentName,
		NSN:         req.NSN,
		Teacher:     req.Teacher,
		School:      req.School,
		Location:    req.Location,
		Date:        date,
		TermSetID:   set.ID,
		TermSetName: set.Name,
		CheckType:   checkType,
		Status:      models.StatusInProgress,
	}
	if err := record.SetOutcomes(nil, set.WordCount); err != nil {
		return nil, err
	}

	if err := s.repo.Assessment().Create(ctx, record); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.EventAssessmentStarted, events.AssessmentStartedEvent{
		AssessmentID: record.ID,
		StudentName:  record.StudentName,
		TermSetID:    record.TermSetID,
		StartedAt:    record.CreatedAt,
	})

	return record, nil
}

func (s *assessmentService) GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error) {
	record, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.AssessmentRecord, int64, error) {
	return s.repo.Assessment().List(ctx, filters)
}

func (s *assessmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Assessment().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return err
	}
	return nil
}

// RecordOutcome sets the result for one word slot. Earlier unrecorded slots
// are back-filled as not_attempted so outcomes stay aligned with word order.
func (s *assessmentService) RecordOutcome(ctx context.Context, id string, req *RecordOutcomeRequest) (*models.AssessmentRecord, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != models.StatusInProgress {
		return nil, ErrAssessmentNotEditable
	}

	words, err := s.termSetWords(ctx, record)
	if err != nil {
		return nil, err
	}
	if req.Index >= len(words) {
		return nil, fmt.Errorf("%w: index %d, term set has %d words",
			ErrOutcomeIndexOutOfRange, req.Index, len(words))
	}

	outcomes, err := record.OutcomeList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode outcomes: %w", err)
	}
	for len(outcomes) <= req.Index {
		outcomes = append(outcomes, models.WordOutcome{
			Word:   words[len(outcomes)],
			Result: models.ResultNotAttempted,
		})
	}
	outcomes[req.Index] = models.WordOutcome{
		Word:   words[req.Index],
		Result: req.Result,
		Note:   req.Note,
	}

	if err := record.SetOutcomes(outcomes, len(words)); err != nil {
		return nil, err
	}
	if err := s.repo.Assessment().Update(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// Complete finalizes a record: slots never reached are back-filled as
// not_attempted, the score is recomputed, and the status moves to completed.
func (s *assessmentService) Complete(ctx context.Context, id string, req *CompleteAssessmentRequest) (*models.AssessmentRecord, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: already completed", ErrAssessmentNotEditable)
	}

	words, err := s.termSetWords(ctx, record)
	if err != nil {
		return nil, err
	}

	outcomes, err := record.OutcomeList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode outcomes: %w", err)
	}
	for len(outcomes) < len(words) {
		outcomes = append(outcomes, models.WordOutcome{
			Word:   words[len(outcomes)],
			Result: models.ResultNotAttempted,
		})
	}

	record.Status = models.StatusCompleted
	record.OverallComment = req.OverallComment
	record.ReasonNotDone = ""
	if err := record.SetOutcomes(outcomes, len(words)); err != nil {
		return nil, err
	}
	if err := s.repo.Assessment().Update(ctx, record); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.EventAssessmentCompleted, events.AssessmentCompletedEvent{
		AssessmentID: record.ID,
		StudentName:  record.StudentName,
		TermSetID:    record.TermSetID,
		Score:        record.Score,
		Percentage:   record.Percentage,
		CompletedAt:  time.Now().UTC(),
	})

	s.logger.InfoContext(ctx, "Assessment completed",
		"assessment_id", record.ID,
		"score", record.Score,
		"percentage", record.Percentage)

	return record, nil
}

func (s *assessmentService) MarkNotDone(ctx context.Context, id string, req *MarkNotDoneRequest) (*models.AssessmentRecord, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: already completed", ErrAssessmentNotEditable)
	}

	record.Status = models.StatusNotDone
	record.ReasonNotDone = req.Reason
	if err := s.repo.Assessment().Update(ctx, record); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.EventAssessmentNotDone, events.AssessmentNotDoneEvent{
		AssessmentID: record.ID,
		StudentName:  record.StudentName,
		Reason:       req.Reason,
	})

	return record, nil
}

func (s *assessmentService) termSetWords(ctx context.Context, record *models.AssessmentRecord) ([]models.Word, error) {
	set, err := s.termSets.GetByID(ctx, record.TermSetID)
	if err != nil {
		return nil, err
	}
	words, err := set.WordList()
	if err != nil {
		return nil, fmt.Errorf("failed to decode term set words: %w", err)
	}
	return words, nil
}

func (s *assessmentService) publishEvent(ctx context.Context, eventType events.EventType, data interface{}) {
	event := &events.NotificationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "phonics-check-assistant",
		Version:   "1",
		Data:      data,
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}
