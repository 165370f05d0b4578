package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/cache"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/events"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/validator"
	"github.com/google/uuid"
)

const (
	termSetCacheTTL     = 10 * time.Minute
	termSetListCacheTTL = time.Minute

	termSetListCachePrefix = "termsets:list:"
)

// termSetPage is the cached shape of one List result.
type termSetPage struct {
	Sets  []*models.TermSet `json:"sets"`
	Total int64             `json:"total"`
}

func termSetListCacheKey(filters repositories.TermSetFilters) string {
	return fmt.Sprintf("%s%s:%s:%d:%d:%s:%s",
		termSetListCachePrefix,
		filters.Name, filters.Source,
		filters.Limit, filters.Offset,
		filters.SortBy, filters.SortOrder)
}

// TermSetService manages the named word lists assessments run against.
type TermSetService interface {
	ImportFromFile(ctx context.Context, data []byte, filename string) (*models.TermSet, error)
	GetByID(ctx context.Context, id string) (*models.TermSet, error)
	List(ctx context.Context, filters repositories.TermSetFilters) ([]*models.TermSet, int64, error)
	Delete(ctx context.Context, id string) error
}

type termSetService struct {
	repo      repositories.Repository
	ingest    IngestService
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    utils.Logger
	validator *validator.Validator
}

func NewTermSetService(
	repo repositories.Repository,
	ingest IngestService,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger utils.Logger,
	v *validator.Validator,
) TermSetService {
	return &termSetService{
		repo:      repo,
		ingest:    ingest,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ImportFromFile ingests an uploaded document and persists the resulting
// word list as a new term set. All-or-nothing: no partial set is ever stored.
func (s *termSetService) ImportFromFile(ctx context.Context, data []byte, filename string) (*models.TermSet, error) {
	result, err := s.ingest.IngestFile(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.TermSet().ExistsByName(ctx, result.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check term set name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: term set %q already exists", ErrConflict, result.Name)
	}

	set := &models.TermSet{
		ID:     uuid.NewString(),
		Name:   result.Name,
		Source: result.Source,
	}
	if err := set.SetWords(result.Words); err != nil {
		return nil, fmt.Errorf("failed to encode word list: %w", err)
	}
	if err := s.validator.ValidateStruct(set); err != nil {
		return nil, err
	}

	if err := s.repo.TermSet().Create(ctx, set); err != nil {
		return nil, err
	}

	s.invalidateListCache(ctx)

	s.publishEvent(ctx, events.EventTermSetCreated, set.ID, events.TermSetCreatedEvent{
		TermSetID: set.ID,
		Name:      set.Name,
		WordCount: set.WordCount,
		Source:    set.Source,
	})

	s.logger.InfoContext(ctx, "Term set created",
		"term_set_id", set.ID,
		"name", set.Name,
		"word_count", set.WordCount,
		"source", set.Source)

	return set, nil
}

func (s *termSetService) GetByID(ctx context.Context, id string) (*models.TermSet, error) {
	cacheKey := "termset:" + id

	var cached models.TermSet
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	set, err := s.repo.TermSet().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTermSetNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, set, termSetCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "Failed to cache term set", "term_set_id", id, "error", err)
	}

	return set, nil
}

func (s *termSetService) List(ctx context.Context, filters repositories.TermSetFilters) ([]*models.TermSet, int64, error) {
	cacheKey := termSetListCacheKey(filters)

	var cached termSetPage
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached.Sets, cached.Total, nil
	}

	sets, total, err := s.repo.TermSet().List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if err := s.cache.Set(ctx, cacheKey, termSetPage{Sets: sets, Total: total}, termSetListCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "Failed to cache term set list", "error", err)
	}

	return sets, total, nil
}

// Delete removes a term set. Sets referenced by assessment records are kept
// so completed checks stay exportable.
func (s *termSetService) Delete(ctx context.Context, id string) error {
	set, err := s.repo.TermSet().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTermSetNotFound
		}
		return err
	}

	inUse, err := s.repo.Assessment().CountByTermSet(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return fmt.Errorf("%w: %d assessment records reference it", ErrTermSetInUse, inUse)
	}

	if err := s.repo.TermSet().Delete(ctx, id); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, "termset:"+id); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Failed to evict cached term set", "term_set_id", id, "error", err)
	}
	s.invalidateListCache(ctx)

	s.publishEvent(ctx, events.EventTermSetDeleted, id, events.TermSetDeletedEvent{
		TermSetID: id,
		Name:      set.Name,
	})

	return nil
}

// invalidateListCache drops every cached List page after a term set is
// created or deleted. Eviction is best-effort; pages also expire on TTL.
func (s *termSetService) invalidateListCache(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, termSetListCachePrefix+"*"); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate term set list cache", "error", err)
	}
}

func (s *termSetService) publishEvent(ctx context.Context, eventType events.EventType, subjectID string, data interface{}) {
	event := &events.NotificationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "phonics-check-assistant",
		Version:   "1",
		Data:      data,
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		// Event delivery is best-effort; the term set change has already
		// been committed.
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", eventType,
			"subject_id", subjectID,
			"error", err)
	}
}
