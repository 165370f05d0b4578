package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"gorm.io/gorm"
)

type TermSetPostgreSQL struct {
	db *gorm.DB
}

func NewTermSetPostgreSQL(db *gorm.DB) repositories.TermSetRepository {
	return &TermSetPostgreSQL{db: db}
}

func (t *TermSetPostgreSQL) Create(ctx context.Context, set *models.TermSet) error {
	if err := t.db.WithContext(ctx).Create(set).Error; err != nil {
		return fmt.Errorf("failed to create term set: %w", err)
	}
	return nil
}

func (t *TermSetPostgreSQL) GetByID(ctx context.Context, id string) (*models.TermSet, error) {
	var set models.TermSet
	err := t.db.WithContext(ctx).First(&set, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (t *TermSetPostgreSQL) List(ctx context.Context, filters repositories.TermSetFilters) ([]*models.TermSet, int64, error) {
	query := t.db.WithContext(ctx).Model(&models.TermSet{})

	if filters.Name != "" {
		query = query.Where("name ILIKE ?", "%"+filters.Name+"%")
	}
	if filters.Source != "" {
		query = query.Where("source = ?", filters.Source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count term sets: %w", err)
	}

	query = applySort(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at": true, "name": true, "word_count": true,
	})
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var sets []*models.TermSet
	if err := query.Find(&sets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list term sets: %w", err)
	}
	return sets, total, nil
}

func (t *TermSetPostgreSQL) Delete(ctx context.Context, id string) error {
	result := t.db.WithContext(ctx).Delete(&models.TermSet{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete term set: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TermSetPostgreSQL) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&models.TermSet{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check term set name: %w", err)
	}
	return count > 0, nil
}

// applySort applies a whitelisted sort column and order, defaulting to
// created_at desc.
func applySort(query *gorm.DB, sortBy, sortOrder string, allowed map[string]bool) *gorm.DB {
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	return query.Order(sortBy + " " + sortOrder)
}
