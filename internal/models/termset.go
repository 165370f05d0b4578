package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Word count bounds accepted for an ingested term set. The marking sheet has
// slots for 40 words; shorter 20-word checks reuse the same template.
const (
	MinTermSetWords = 20
	MaxTermSetWords = 40
)

// Grapheme type sentinels used when the source document carries no category column.
const (
	GraphemeTypeUnknownSheet = "n/a (spreadsheet)"
	GraphemeTypeUnknownPDF   = "n/a (from PDF)"
)

// Word is a single assessment item. Immutable once created.
type Word struct {
	Item         string `json:"item" validate:"required,max=50"`
	GraphemeType string `json:"grapheme_type"`
}

// TermSet is a named, ordered word list for one term's phonics check.
// The word order is the assessment order and is never mutated after creation.
type TermSet struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	Name      string         `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Words     datatypes.JSON `json:"-" gorm:"not null"`
	WordCount int            `json:"word_count" gorm:"not null" validate:"min=20,max=40"`
	Source    string         `json:"source" gorm:"size:20"` // "spreadsheet" or "pdf"

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (TermSet) TableName() string {
	return "term_sets"
}

// WordList decodes the stored word sequence in assessment order.
func (ts *TermSet) WordList() ([]Word, error) {
	var words []Word
	if err := json.Unmarshal(ts.Words, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// SetWords encodes the word sequence and keeps WordCount in step.
func (ts *TermSet) SetWords(words []Word) error {
	raw, err := json.Marshal(words)
	if err != nil {
		return err
	}
	ts.Words = datatypes.JSON(raw)
	ts.WordCount = len(words)
	return nil
}
