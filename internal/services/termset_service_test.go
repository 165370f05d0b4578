package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/cache"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/events"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/models"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ===== MOCKS =====

type MockTermSetRepository struct {
	mock.Mock
}

func (m *MockTermSetRepository) Create(ctx context.Context, set *models.TermSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockTermSetRepository) GetByID(ctx context.Context, id string) (*models.TermSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TermSet), args.Error(1)
}

func (m *MockTermSetRepository) List(ctx context.Context, filters repositories.TermSetFilters) ([]*models.TermSet, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.TermSet), args.Get(1).(int64), args.Error(2)
}

func (m *MockTermSetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTermSetRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

type MockAssessmentRepository struct {
	mock.Mock
}

func (m *MockAssessmentRepository) Create(ctx context.Context, record *models.AssessmentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAssessmentRepository) GetByID(ctx context.Context, id string) (*models.AssessmentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentRecord), args.Error(1)
}

func (m *MockAssessmentRepository) Update(ctx context.Context, record *models.AssessmentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAssessmentRepository) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.AssessmentRecord, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.AssessmentRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockAssessmentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAssessmentRepository) CountByTermSet(ctx context.Context, termSetID string) (int64, error) {
	args := m.Called(ctx, termSetID)
	return args.Get(0).(int64), args.Error(1)
}

type mockRepository struct {
	termSet    *MockTermSetRepository
	assessment *MockAssessmentRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		termSet:    new(MockTermSetRepository),
		assessment: new(MockAssessmentRepository),
	}
}

func (m *mockRepository) TermSet() repositories.TermSetRepository       { return m.termSet }
func (m *mockRepository) Assessment() repositories.AssessmentRepository { return m.assessment }

// noopCache always misses so service tests exercise the repository path.
type noopCache struct{}

func (noopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (noopCache) Get(ctx context.Context, key string, dest interface{}) error {
	return cache.ErrCacheMiss
}
func (noopCache) Delete(ctx context.Context, key string) error            { return nil }
func (noopCache) DeletePattern(ctx context.Context, pattern string) error { return nil }

// memoryCache is a map-backed CacheService for asserting cache behaviour.
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) keysWithPrefix(prefix string) []string {
	var keys []string
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

func testSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func makeTermSet(t *testing.T, id string, wordCount int) *models.TermSet {
	t.Helper()
	words := make([]models.Word, 0, wordCount)
	for i := 0; i < wordCount; i++ {
		words = append(words, models.Word{
			Item:         fmt.Sprintf("word%02d", i),
			GraphemeType: models.GraphemeTypeUnknownSheet,
		})
	}
	set := &models.TermSet{ID: id, Name: "Term 2 2026", Source: "spreadsheet"}
	require.NoError(t, set.SetWords(words))
	return set
}

func newTestTermSetService(repo *mockRepository, publisher events.EventPublisher) TermSetService {
	return newTestTermSetServiceWithCache(repo, publisher, noopCache{})
}

func newTestTermSetServiceWithCache(repo *mockRepository, publisher events.EventPublisher, c cache.CacheService) TermSetService {
	logger := utils.NewDevelopmentLogger()
	return NewTermSetService(repo, NewIngestService(logger), c, publisher, logger, validator.New())
}

// ===== TESTS =====

func TestTermSetService_ImportFromFile(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testSlog())
	svc := newTestTermSetService(repo, publisher)

	data := buildWorkbook(t, []string{"Word", "Grapheme"}, wordRows(40))

	repo.termSet.On("ExistsByName", mock.Anything, "Term 2 Words").Return(false, nil)
	repo.termSet.On("Create", mock.Anything, mock.AnythingOfType("*models.TermSet")).Return(nil)

	set, err := svc.ImportFromFile(context.Background(), data, "Term 2 Words.xlsx")
	require.NoError(t, err)

	assert.NotEmpty(t, set.ID)
	assert.Equal(t, "Term 2 Words", set.Name)
	assert.Equal(t, 40, set.WordCount)
	assert.Equal(t, "spreadsheet", set.Source)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventTermSetCreated, publisher.Events[0].Type)
	repo.termSet.AssertExpectations(t)
}

func TestTermSetService_ImportFromFile_DuplicateName(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testSlog())
	svc := newTestTermSetService(repo, publisher)

	data := buildWorkbook(t, []string{"Word"}, wordRows(20))
	repo.termSet.On("ExistsByName", mock.Anything, "dup").Return(true, nil)

	_, err := svc.ImportFromFile(context.Background(), data, "dup.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Empty(t, publisher.Events)
	repo.termSet.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTermSetService_ImportFromFile_BadFileNotPersisted(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testSlog())
	svc := newTestTermSetService(repo, publisher)

	data := buildWorkbook(t, []string{"Word"}, wordRows(5))

	_, err := svc.ImportFromFile(context.Background(), data, "short.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWordCountOutOfRange))
	repo.termSet.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTermSetService_GetByID_NotFound(t *testing.T) {
	repo := newMockRepository()
	svc := newTestTermSetService(repo, events.NewMockEventPublisher(testSlog()))

	repo.termSet.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrTermSetNotFound))
}

func TestTermSetService_Delete(t *testing.T) {
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testSlog())
	svc := newTestTermSetService(repo, publisher)

	set := makeTermSet(t, "ts-1", 40)
	repo.termSet.On("GetByID", mock.Anything, "ts-1").Return(set, nil)
	repo.assessment.On("CountByTermSet", mock.Anything, "ts-1").Return(int64(0), nil)
	repo.termSet.On("Delete", mock.Anything, "ts-1").Return(nil)

	require.NoError(t, svc.Delete(context.Background(), "ts-1"))

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventTermSetDeleted, publisher.Events[0].Type)
	repo.termSet.AssertExpectations(t)
}

func TestTermSetService_List_CachesPage(t *testing.T) {
	repo := newMockRepository()
	mem := newMemoryCache()
	svc := newTestTermSetServiceWithCache(repo, events.NewMockEventPublisher(testSlog()), mem)

	filters := repositories.TermSetFilters{Limit: 10, SortBy: "created_at", SortOrder: "desc"}
	page := []*models.TermSet{makeTermSet(t, "ts-1", 40)}
	repo.termSet.On("List", mock.Anything, filters).Return(page, int64(1), nil).Once()

	sets, total, err := svc.List(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sets, 1)

	// Second call is served from the cache; the repository is not hit again.
	sets, total, err = svc.List(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sets, 1)
	assert.Equal(t, "ts-1", sets[0].ID)

	repo.termSet.AssertExpectations(t)
}

func TestTermSetService_ImportFromFile_InvalidatesListCache(t *testing.T) {
	repo := newMockRepository()
	mem := newMemoryCache()
	svc := newTestTermSetServiceWithCache(repo, events.NewMockEventPublisher(testSlog()), mem)

	filters := repositories.TermSetFilters{Limit: 10}
	repo.termSet.On("List", mock.Anything, filters).Return([]*models.TermSet{}, int64(0), nil)
	_, _, err := svc.List(context.Background(), filters)
	require.NoError(t, err)
	require.NotEmpty(t, mem.keysWithPrefix(termSetListCachePrefix))

	data := buildWorkbook(t, []string{"Word"}, wordRows(20))
	repo.termSet.On("ExistsByName", mock.Anything, "fresh").Return(false, nil)
	repo.termSet.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err = svc.ImportFromFile(context.Background(), data, "fresh.xlsx")
	require.NoError(t, err)

	assert.Empty(t, mem.keysWithPrefix(termSetListCachePrefix))
}

func TestTermSetService_Delete_InvalidatesListCache(t *testing.T) {
	repo := newMockRepository()
	mem := newMemoryCache()
	svc := newTestTermSetServiceWithCache(repo, events.NewMockEventPublisher(testSlog()), mem)

	filters := repositories.TermSetFilters{Limit: 10}
	set := makeTermSet(t, "ts-1", 40)
	repo.termSet.On("List", mock.Anything, filters).Return([]*models.TermSet{set}, int64(1), nil)
	_, _, err := svc.List(context.Background(), filters)
	require.NoError(t, err)
	require.NotEmpty(t, mem.keysWithPrefix(termSetListCachePrefix))

	repo.termSet.On("GetByID", mock.Anything, "ts-1").Return(set, nil)
	repo.assessment.On("CountByTermSet", mock.Anything, "ts-1").Return(int64(0), nil)
	repo.termSet.On("Delete", mock.Anything, "ts-1").Return(nil)

	require.NoError(t, svc.Delete(context.Background(), "ts-1"))
	assert.Empty(t, mem.keysWithPrefix(termSetListCachePrefix))
}

func TestTermSetService_Delete_InUse(t *testing.T) {
	repo := newMockRepository()
	svc := newTestTermSetService(repo, events.NewMockEventPublisher(testSlog()))

	set := makeTermSet(t, "ts-1", 40)
	repo.termSet.On("GetByID", mock.Anything, "ts-1").Return(set, nil)
	repo.assessment.On("CountByTermSet", mock.Anything, "ts-1").Return(int64(3), nil)

	err := svc.Delete(context.Background(), "ts-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTermSetInUse))
	repo.termSet.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
