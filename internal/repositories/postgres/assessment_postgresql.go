package postgres

import (
	"context"
	"fmt"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"gorm.io/gorm"
)

type AssessmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{db: db}
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, record *models.AssessmentRecord) error {
	if record.Status == "" {
		record.Status = models.StatusInProgress
	}
	if err := a.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create assessment record: %w", err)
	}
	return nil
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error) {
	var record models.AssessmentRecord
	err := a.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (a *AssessmentPostgreSQL) Update(ctx context.Context, record *models.AssessmentRecord) error {
	if err := a.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to update assessment record: %w", err)
	}
	return nil
}

func (a *AssessmentPostgreSQL) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.AssessmentRecord, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.AssessmentRecord{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.TermSetID != "" {
		query = query.Where("term_set_id = ?", filters.TermSetID)
	}
	if filters.StudentName != "" {
		query = query.Where("student_name ILIKE ?", "%"+filters.StudentName+"%")
	}
	if filters.DateFrom != nil {
		query = query.Where("date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("date <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessment records: %w", err)
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at": true, "date": true, "student_name": true, "score": true,
	})
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []*models.AssessmentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessment records: %w", err)
	}
	return records, total, nil
}

func (a *AssessmentPostgreSQL) Delete(ctx context.Context, id string) error {
	result := a.db.WithContext(ctx).Delete(&models.AssessmentRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete assessment record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AssessmentPostgreSQL) CountByTermSet(ctx context.Context, termSetID string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.AssessmentRecord{}).
		Where("term_set_id = ?", termSetID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count assessments for term set: %w", err)
	}
	return count, nil
}
