package services

import (
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/cache"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/events"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/validator"
)

// ServiceManager aggregates access to all services
type ServiceManager interface {
	Ingest() IngestService
	TermSet() TermSetService
	Assessment() AssessmentService
	Export() ExportService
}

type serviceManager struct {
	ingest     IngestService
	termSet    TermSetService
	assessment AssessmentService
	export     ExportService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	templatePaths []string,
	logger utils.Logger,
	v *validator.Validator,
) ServiceManager {
	ingest := NewIngestService(logger)
	termSet := NewTermSetService(repo, ingest, cacheService, publisher, logger, v)
	assessment := NewAssessmentService(repo, termSet, publisher, logger, v)
	export := NewExportService(templatePaths, publisher, logger)

	return &serviceManager{
		ingest:     ingest,
		termSet:    termSet,
		assessment: assessment,
		export:     export,
	}
}

func (sm *serviceManager) Ingest() IngestService         { return sm.ingest }
func (sm *serviceManager) TermSet() TermSetService       { return sm.termSet }
func (sm *serviceManager) Assessment() AssessmentService { return sm.assessment }
func (sm *serviceManager) Export() ExportService         { return sm.export }
