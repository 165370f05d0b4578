package events

import (
	"time"
)

// EventType represents different types of notification events
type EventType string

const (
	// Term set events
	EventTermSetCreated EventType = "termset.created"
	EventTermSetDeleted EventType = "termset.deleted"

	// Assessment events
	EventAssessmentStarted   EventType = "assessment.started"
	EventAssessmentCompleted EventType = "assessment.completed"
	EventAssessmentNotDone   EventType = "assessment.not_done"
	EventAssessmentExported  EventType = "assessment.exported"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Term set event payloads

type TermSetCreatedEvent struct {
	TermSetID string `json:"term_set_id"`
	Name      string `json:"name"`
	WordCount int    `json:"word_count"`
	Source    string `json:"source"` // spreadsheet or pdf
}

type TermSetDeletedEvent struct {
	TermSetID string `json:"term_set_id"`
	Name      string `json:"name"`
}

// Assessment event payloads

type AssessmentStartedEvent struct {
	AssessmentID string    `json:"assessment_id"`
	StudentName  string    `json:"student_name"`
	TermSetID    string    `json:"term_set_id"`
	StartedAt    time.Time `json:"started_at"`
}

type AssessmentCompletedEvent struct {
	AssessmentID string    `json:"assessment_id"`
	StudentName  string    `json:"student_name"`
	TermSetID    string    `json:"term_set_id"`
	Score        int       `json:"score"`
	Percentage   float64   `json:"percentage"`
	CompletedAt  time.Time `json:"completed_at"`
}

type AssessmentNotDoneEvent struct {
	AssessmentID string `json:"assessment_id"`
	StudentName  string `json:"student_name"`
	Reason       string `json:"reason"`
}

type AssessmentExportedEvent struct {
	AssessmentID string `json:"assessment_id"`
	StudentName  string `json:"student_name"`
	Filename     string `json:"filename"`
}
