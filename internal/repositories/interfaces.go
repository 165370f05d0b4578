package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type TermSetFilters struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`    // "created_at", "name"
	SortOrder string `json:"sort_order"` // "asc", "desc"
}

type AssessmentFilters struct {
	Status      *models.CheckStatus `json:"status"`
	TermSetID   string              `json:"term_set_id"`
	StudentName string              `json:"student_name"`
	DateFrom    *time.Time          `json:"date_from"`
	DateTo      *time.Time          `json:"date_to"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
	SortBy      string              `json:"sort_by"`
	SortOrder   string              `json:"sort_order"`
}

// ===== REPOSITORY INTERFACES =====

type TermSetRepository interface {
	Create(ctx context.Context, set *models.TermSet) error
	GetByID(ctx context.Context, id string) (*models.TermSet, error)
	List(ctx context.Context, filters TermSetFilters) ([]*models.TermSet, int64, error)
	Delete(ctx context.Context, id string) error
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type AssessmentRepository interface {
	Create(ctx context.Context, record *models.AssessmentRecord) error
	GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error)
	Update(ctx context.Context, record *models.AssessmentRecord) error
	List(ctx context.Context, filters AssessmentFilters) ([]*models.AssessmentRecord, int64, error)
	Delete(ctx context.Context, id string) error
	CountByTermSet(ctx context.Context, termSetID string) (int64, error)
}

// Repository aggregates access to all repositories
type Repository interface {
	TermSet() TermSetRepository
	Assessment() AssessmentRepository
}

// IsNotFoundError reports whether err is a record-not-found condition
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
