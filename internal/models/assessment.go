package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WordResult string

const (
	ResultCorrect      WordResult = "correct"
	ResultIncorrect    WordResult = "incorrect"
	ResultNotAttempted WordResult = "not_attempted"
)

type CheckStatus string

const (
	StatusInProgress CheckStatus = "in_progress"
	StatusCompleted  CheckStatus = "completed"
	StatusNotDone    CheckStatus = "not_done"
)

type CheckType string

const (
	CheckTypeTwenty CheckType = "20-word check"
	CheckTypeForty  CheckType = "40-word check"
)

// WordOutcome records one assessed word, in word order.
type WordOutcome struct {
	Word   Word       `json:"word"`
	Result WordResult `json:"result" validate:"omitempty,word_result"`
	Note   string     `json:"note,omitempty"`
}

// AssessmentRecord is one student's phonics check against a term set.
// Score and Percentage are derived from Outcomes and must only change
// through Recompute.
type AssessmentRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	StudentName string    `json:"student_name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	NSN         string    `json:"nsn" gorm:"size:20;index"`
	Teacher     string    `json:"teacher" gorm:"size:200"`
	School      string    `json:"school" gorm:"size:200"`
	Location    string    `json:"location" gorm:"size:200"`
	Date        time.Time `json:"date"`

	TermSetID   string    `json:"term_set_id" gorm:"not null;size:36;index" validate:"required"`
	TermSetName string    `json:"term_set_name" gorm:"size:200"`
	CheckType   CheckType `json:"check_type" gorm:"size:20" validate:"omitempty,check_type"`

	Status         CheckStatus    `json:"status" gorm:"default:in_progress;index" validate:"omitempty,check_status"`
	ReasonNotDone  string         `json:"reason_not_done" gorm:"size:500"`
	OverallComment string         `json:"overall_comment" gorm:"type:text"`
	Outcomes       datatypes.JSON `json:"-"`

	Score      int     `json:"score"`
	Percentage float64 `json:"percentage"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (AssessmentRecord) TableName() string {
	return "assessment_records"
}

// OutcomeList decodes the stored outcomes in word order.
func (r *AssessmentRecord) OutcomeList() ([]WordOutcome, error) {
	if len(r.Outcomes) == 0 {
		return nil, nil
	}
	var outcomes []WordOutcome
	if err := json.Unmarshal(r.Outcomes, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// SetOutcomes stores the outcome sequence and recomputes the derived fields.
// totalWords is the term set length, which fixes the percentage denominator
// even while outcomes are still being recorded.
func (r *AssessmentRecord) SetOutcomes(outcomes []WordOutcome, totalWords int) error {
	raw, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	r.Outcomes = datatypes.JSON(raw)
	r.Recompute(outcomes, totalWords)
	return nil
}

// Recompute rederives Score and Percentage from the given outcomes.
func (r *AssessmentRecord) Recompute(outcomes []WordOutcome, totalWords int) {
	score := 0
	for _, o := range outcomes {
		if o.Result == ResultCorrect {
			score++
		}
	}
	r.Score = score
	if totalWords > 0 {
		r.Percentage = float64(score) / float64(totalWords) * 100
	} else {
		r.Percentage = 0
	}
}
