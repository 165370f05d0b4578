package postgres

import (
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	termSet    repositories.TermSetRepository
	assessment repositories.AssessmentRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		termSet:    NewTermSetPostgreSQL(db),
		assessment: NewAssessmentPostgreSQL(db),
	}
}

func (r *Repository) TermSet() repositories.TermSetRepository {
	return r.termSet
}

func (r *Repository) Assessment() repositories.AssessmentRepository {
	return r.assessment
}
