package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/cache"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/identity"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
)

type fakeUserLookup struct {
	users map[int64]*models.User
}

func (f *fakeUserLookup) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return f.users[id], nil
}

type fakeUpstream struct {
	mu           sync.Mutex
	sections     []models.Section
	assignments  map[int64][]models.Assignment
	records      map[int64][]models.GradeRecord
	categories   map[int64][]models.GradingCategory
	err          error
	lastTarget   int64
	sectionCalls int
}

func (f *fakeUpstream) ListSections(ctx context.Context, targetUserID int64) ([]models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTarget = targetUserID
	f.sectionCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sections, nil
}

func (f *fakeUpstream) ListAssignments(ctx context.Context, sectionID, targetUserID int64) ([]models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.assignments[sectionID], nil
}

func (f *fakeUpstream) ListGrades(ctx context.Context, sectionID, targetUserID int64) ([]models.GradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records[sectionID], nil
}

func (f *fakeUpstream) ListGradingCategories(ctx context.Context, sectionID, targetUserID int64) ([]models.GradingCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.categories[sectionID], nil
}

func fp(v float64) *float64 { return &v }

var testNow = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func newTestService(up *fakeUpstream, users map[int64]*models.User) (*GradebookService, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	c := cache.New(store, 60*time.Second, zerolog.Nop())
	resolver := identity.NewResolver(&fakeUserLookup{users: users})
	s := NewGradebookService(resolver, up, c, zerolog.Nop())
	s.now = func() time.Time { return testNow }
	return s, store
}

func studentOnly() map[int64]*models.User {
	return map[int64]*models.User{
		1: {ID: 1, RoleType: models.RoleStudent},
	}
}

func TestCurrentGrades_WeightedSection(t *testing.T) {
	up := &fakeUpstream{
		sections: []models.Section{{ID: 7, Title: "Algebra II"}},
		assignments: map[int64][]models.Assignment{
			7: {
				{ID: 100, SectionID: 7, CategoryID: 10, MaxPoints: 20},
				{ID: 101, SectionID: 7, CategoryID: 11, MaxPoints: 50},
			},
		},
		records: map[int64][]models.GradeRecord{
			7: {
				{AssignmentID: 100, UserID: 1, EarnedPoints: fp(18), MaxPoints: 20},
				{AssignmentID: 101, UserID: 1, EarnedPoints: fp(42), MaxPoints: 50},
			},
		},
		categories: map[int64][]models.GradingCategory{
			7: {
				{ID: 10, SectionID: 7, Title: "Homework", WeightPercent: 40},
				{ID: 11, SectionID: 7, Title: "Tests", WeightPercent: 60},
			},
		},
	}
	s, _ := newTestService(up, studentOnly())

	resp, err := s.CurrentGrades(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "live", resp.Source)
	assert.Nil(t, resp.CachedAt)

	require.Contains(t, resp.Grades, int64(7))
	require.NotNil(t, resp.Grades[7].Grade)
	assert.Equal(t, 86, *resp.Grades[7].Grade)
}

func TestCurrentGrades_SecondCallIsCached(t *testing.T) {
	up := &fakeUpstream{sections: []models.Section{{ID: 7, Title: "Algebra II"}}}
	s, _ := newTestService(up, studentOnly())
	ctx := context.Background()

	_, err := s.CurrentGrades(ctx, 1, 0)
	require.NoError(t, err)

	resp, err := s.CurrentGrades(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "cached", resp.Source)
	require.NotNil(t, resp.CachedAt)
	assert.Equal(t, 1, up.sectionCalls, "cached call must not hit upstream")
}

func TestCurrentGrades_ParentFetchesActiveChild(t *testing.T) {
	childID := int64(20)
	users := map[int64]*models.User{
		2:  {ID: 2, RoleType: models.RoleParent, ActiveChildID: &childID},
		20: {ID: 20, RoleType: models.RoleStudent},
	}
	up := &fakeUpstream{sections: []models.Section{}}
	s, _ := newTestService(up, users)

	_, err := s.CurrentGrades(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), up.lastTarget, "parent queries must fetch the active child's data")
}

func TestCurrentGrades_UpstreamFailureLeavesNoCacheEntry(t *testing.T) {
	up := &fakeUpstream{err: apperrors.ErrUpstreamUnavailable}
	s, store := newTestService(up, studentOnly())

	_, err := s.CurrentGrades(context.Background(), 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	assert.Equal(t, 0, store.Len())

	// Recovery: upstream comes back, the next call succeeds live.
	up.mu.Lock()
	up.err = nil
	up.mu.Unlock()
	resp, err := s.CurrentGrades(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "live", resp.Source)
}

func TestAssignmentsBySection_GroupsByCategory(t *testing.T) {
	up := &fakeUpstream{
		sections: []models.Section{{ID: 7, Title: "Algebra II"}},
		assignments: map[int64][]models.Assignment{
			7: {
				{ID: 100, SectionID: 7, CategoryID: 10, Title: "HW 1", MaxPoints: 20},
				{ID: 101, SectionID: 7, Title: "Field Trip Form", MaxPoints: 0},
				{ID: 102, SectionID: 7, CategoryID: 999, Title: "Orphan", MaxPoints: 10},
			},
		},
		records: map[int64][]models.GradeRecord{
			7: {
				{AssignmentID: 100, UserID: 1, EarnedPoints: fp(18), MaxPoints: 20, Comment: "solid work"},
			},
		},
		categories: map[int64][]models.GradingCategory{
			7: {
				{ID: 10, SectionID: 7, Title: "Homework", WeightPercent: 40},
				{ID: 11, SectionID: 7, Title: "Tests", WeightPercent: 60},
			},
		},
	}
	s, _ := newTestService(up, studentOnly())

	resp, err := s.AssignmentsBySection(context.Background(), 1, 0, 7)
	require.NoError(t, err)

	assert.Len(t, resp.Assignments, 3)
	assert.Len(t, resp.Categories, 2)

	require.Contains(t, resp.AssignmentsByCategory, "Homework")
	require.Contains(t, resp.AssignmentsByCategory, "Uncategorized")
	assert.NotContains(t, resp.AssignmentsByCategory, "Tests", "categories left empty after grouping are dropped")

	hw := resp.AssignmentsByCategory["Homework"]
	require.Len(t, hw, 1)
	assert.True(t, hw[0].Graded)
	assert.Equal(t, "solid work", hw[0].Comment)
	require.NotNil(t, hw[0].EarnedPoints)
	assert.Equal(t, 18.0, *hw[0].EarnedPoints)

	// Unknown category and nil category both land in Uncategorized.
	assert.Len(t, resp.AssignmentsByCategory["Uncategorized"], 2)
}

func TestUpcoming_WindowAndOrder(t *testing.T) {
	up := &fakeUpstream{
		sections: []models.Section{{ID: 7, Title: "Algebra II"}, {ID: 8, Title: "Biology"}},
		assignments: map[int64][]models.Assignment{
			7: {
				{ID: 100, SectionID: 7, Title: "Due tomorrow", MaxPoints: 10, DueDate: testNow.Add(24 * time.Hour)},
				{ID: 101, SectionID: 7, Title: "Due in 10 days", MaxPoints: 10, DueDate: testNow.Add(240 * time.Hour)},
				{ID: 102, SectionID: 7, Title: "Already due", MaxPoints: 10, DueDate: testNow.Add(-time.Hour)},
				{ID: 103, SectionID: 7, Title: "No due date", MaxPoints: 10},
			},
			8: {
				{ID: 200, SectionID: 8, CategoryID: 30, Title: "Lab report", MaxPoints: 25, DueDate: testNow.Add(2 * time.Hour)},
			},
		},
		records: map[int64][]models.GradeRecord{
			8: {{AssignmentID: 200, UserID: 1, EarnedPoints: fp(20), MaxPoints: 25}},
		},
		categories: map[int64][]models.GradingCategory{
			8: {{ID: 30, SectionID: 8, Title: "Labs", WeightPercent: 100}},
		},
	}
	s, _ := newTestService(up, studentOnly())

	resp, err := s.Upcoming(context.Background(), 1, 0, 7)
	require.NoError(t, err)

	require.Len(t, resp.Upcoming, 2)
	assert.Equal(t, int64(200), resp.Upcoming[0].AssignmentID, "soonest due date first")
	assert.Equal(t, int64(100), resp.Upcoming[1].AssignmentID)

	assert.Equal(t, "Labs", resp.Upcoming[0].CategoryTitle)
	assert.True(t, resp.Upcoming[0].Graded)
	assert.Equal(t, "Uncategorized", resp.Upcoming[1].CategoryTitle)
	assert.False(t, resp.Upcoming[1].Graded)
}

func TestRecentActivity_WindowAndOrder(t *testing.T) {
	up := &fakeUpstream{
		sections: []models.Section{{ID: 7, Title: "Algebra II"}},
		assignments: map[int64][]models.Assignment{
			7: {
				{ID: 100, SectionID: 7, CategoryID: 10, Title: "HW 1", MaxPoints: 20},
				{ID: 101, SectionID: 7, CategoryID: 10, Title: "HW 2", MaxPoints: 20},
				{ID: 102, SectionID: 7, CategoryID: 10, Title: "HW 3", MaxPoints: 20},
				{ID: 103, SectionID: 7, CategoryID: 10, Title: "HW 4", MaxPoints: 20},
			},
		},
		records: map[int64][]models.GradeRecord{
			7: {
				{AssignmentID: 100, UserID: 1, EarnedPoints: fp(18), MaxPoints: 20, SubmittedAt: testNow.Add(-48 * time.Hour)},
				{AssignmentID: 101, UserID: 1, EarnedPoints: fp(15), MaxPoints: 20, SubmittedAt: testNow.Add(-time.Hour)},
				{AssignmentID: 102, UserID: 1, EarnedPoints: fp(12), MaxPoints: 20, SubmittedAt: testNow.Add(-30 * 24 * time.Hour)},
				{AssignmentID: 103, UserID: 1, EarnedPoints: fp(9), MaxPoints: 20}, // no timestamp
			},
		},
		categories: map[int64][]models.GradingCategory{
			7: {{ID: 10, SectionID: 7, Title: "Homework", WeightPercent: 100}},
		},
	}
	s, _ := newTestService(up, studentOnly())

	resp, err := s.RecentActivity(context.Background(), 1, 0, 7)
	require.NoError(t, err)

	require.Len(t, resp.Activity, 2, "out-of-window and timestampless records are excluded")
	assert.Equal(t, int64(101), resp.Activity[0].AssignmentID, "newest first")
	assert.Equal(t, int64(100), resp.Activity[1].AssignmentID)
	assert.Equal(t, "HW 2", resp.Activity[0].AssignmentTitle)
	assert.Equal(t, "Homework", resp.Activity[0].CategoryTitle)
}

func TestQueries_DifferentDaysUseDifferentCacheKeys(t *testing.T) {
	up := &fakeUpstream{sections: []models.Section{}}
	s, store := newTestService(up, studentOnly())
	ctx := context.Background()

	_, err := s.Upcoming(ctx, 1, 0, 7)
	require.NoError(t, err)
	_, err = s.Upcoming(ctx, 1, 0, 14)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, up.sectionCalls)
}

func TestCurrentGrades_RunAsRequiresAdmin(t *testing.T) {
	up := &fakeUpstream{sections: []models.Section{}}
	users := map[int64]*models.User{
		1: {ID: 1, RoleType: models.RoleStudent},
		4: {ID: 4, RoleType: models.RoleAdmin},
	}
	s, _ := newTestService(up, users)
	ctx := context.Background()

	_, err := s.CurrentGrades(ctx, 1, 99)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = s.CurrentGrades(ctx, 4, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), up.lastTarget)
}
