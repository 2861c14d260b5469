package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type mockSectionStore struct {
	sections     map[string]*models.Section
	scopeReads   int
	createdCount int
}

func (m *mockSectionStore) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	out := make([]models.Section, 0, len(m.sections))
	for _, sec := range m.sections {
		out = append(out, *sec)
	}
	return out, len(out), nil
}

func (m *mockSectionStore) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if sec, ok := m.sections[id]; ok {
		copied := *sec
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionStore) ListByScope(ctx context.Context, scope models.SectionScope) ([]models.Section, error) {
	m.scopeReads++
	out := []models.Section{}
	for _, sec := range m.sections {
		if sec.GradeID == scope.GradeID && sec.SchoolID == scope.SchoolID && sec.AcademicSessionID == scope.AcademicSessionID {
			out = append(out, *sec)
		}
	}
	return out, nil
}

func (m *mockSectionStore) Create(ctx context.Context, section *models.Section) error {
	section.ID = "sec-new"
	m.sections[section.ID] = section
	m.createdCount++
	return nil
}

func (m *mockSectionStore) SetActive(ctx context.Context, id string, active bool) error {
	sec, ok := m.sections[id]
	if !ok {
		return sql.ErrNoRows
	}
	sec.IsActive = active
	return nil
}

type mockSchoolReader struct {
	schools map[string]*models.School
}

func (m *mockSchoolReader) FindByID(ctx context.Context, id string) (*models.School, error) {
	if sch, ok := m.schools[id]; ok {
		return sch, nil
	}
	return nil, sql.ErrNoRows
}

type mockSessionReader struct {
	sessions map[string]*models.AcademicSession
}

func (m *mockSessionReader) FindByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return nil, sql.ErrNoRows
}

// mapCache is an in-memory CacheRepository storing marshaled values.
type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *mapCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.entries = make(map[string][]byte)
	return nil
}

func sectionFixture(cache *CacheService) (*SectionService, *mockSectionStore) {
	repo := &mockSectionStore{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1", Name: "1A", IsActive: true},
		"sec-2": {ID: "sec-2", GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1", Name: "1B", IsActive: false},
	}}
	grades := &mockGradeReader{grades: map[string]*models.Grade{
		"grade-1": {ID: "grade-1", TenantID: "tenant-1", Name: "Grade 1", Level: 1},
	}}
	schools := &mockSchoolReader{schools: map[string]*models.School{
		"school-1":   {ID: "school-1", TenantID: "tenant-1", Name: "North Campus"},
		"school-far": {ID: "school-far", TenantID: "tenant-2", Name: "Other Campus"},
	}}
	sessions := &mockSessionReader{sessions: map[string]*models.AcademicSession{
		"sess-1": {ID: "sess-1", TenantID: "tenant-1", Name: "2026/2027", IsActive: true},
	}}
	svc := NewSectionService(repo, grades, schools, sessions, cache, nil, zap.NewNop())
	return svc, repo
}

func TestSectionCreateStartsActive(t *testing.T) {
	svc, repo := sectionFixture(nil)

	section, err := svc.Create(context.Background(), CreateSectionRequest{
		GradeID:           "grade-1",
		SchoolID:          "school-1",
		AcademicSessionID: "sess-1",
		Name:              "1C",
	})
	require.NoError(t, err)
	assert.True(t, section.IsActive)
	assert.Equal(t, 1, repo.createdCount)
}

func TestSectionCreateRejectsMixedTenants(t *testing.T) {
	svc, _ := sectionFixture(nil)

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		GradeID:           "grade-1",
		SchoolID:          "school-far",
		AcademicSessionID: "sess-1",
		Name:              "1C",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInvalid.Code, appErrors.FromError(err).Code)
}

func TestSectionCreateRejectsMissingParent(t *testing.T) {
	svc, _ := sectionFixture(nil)

	_, err := svc.Create(context.Background(), CreateSectionRequest{
		GradeID:           "grade-missing",
		SchoolID:          "school-1",
		AcademicSessionID: "sess-1",
		Name:              "1C",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInvalid.Code, appErrors.FromError(err).Code)
}

func TestSectionListByScopeEmptyScope(t *testing.T) {
	svc, repo := sectionFixture(nil)

	sections, err := svc.ListByScope(context.Background(), models.SectionScope{GradeID: "grade-1"})
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Equal(t, 0, repo.scopeReads)
}

func TestSectionListByScopeUsesCache(t *testing.T) {
	cache := NewCacheService(newMapCache(), nil, time.Minute, zap.NewNop(), true)
	svc, repo := sectionFixture(cache)
	scope := models.SectionScope{GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1"}

	first, err := svc.ListByScope(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := svc.ListByScope(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, repo.scopeReads)
}

func TestSectionCreateInvalidatesScopeCache(t *testing.T) {
	cache := NewCacheService(newMapCache(), nil, time.Minute, zap.NewNop(), true)
	svc, repo := sectionFixture(cache)
	scope := models.SectionScope{GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1"}

	_, err := svc.ListByScope(context.Background(), scope)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateSectionRequest{
		GradeID:           "grade-1",
		SchoolID:          "school-1",
		AcademicSessionID: "sess-1",
		Name:              "1C",
	})
	require.NoError(t, err)

	sections, err := svc.ListByScope(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, sections, 3)
	assert.Equal(t, 2, repo.scopeReads)
}

func TestSectionSetActiveTogglesFlag(t *testing.T) {
	svc, repo := sectionFixture(nil)

	section, err := svc.SetActive(context.Background(), "sec-1", false)
	require.NoError(t, err)
	assert.False(t, section.IsActive)
	assert.False(t, repo.sections["sec-1"].IsActive)

	section, err = svc.SetActive(context.Background(), "sec-2", true)
	require.NoError(t, err)
	assert.True(t, section.IsActive)
}

func TestSectionSetActiveNotFound(t *testing.T) {
	svc, _ := sectionFixture(nil)

	_, err := svc.SetActive(context.Background(), "sec-missing", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
