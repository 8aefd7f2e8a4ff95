package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models/dto"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/cache"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/grades"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/identity"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/upstream"
)

// Cache resource kinds. Together with the target user and query parameters
// they form the cache key for each read shape.
const (
	resourceGrades      = "grades"
	resourceAssignments = "assignments"
	resourceUpcoming    = "upcoming"
	resourceActivity    = "activity"
)

// GradebookService composes identity resolution, the upstream client, the
// aggregator and the cache into the four read shapes the dashboard serves.
// Each query is stateless; the cache is the only shared resource.
type GradebookService struct {
	resolver *identity.Resolver
	client   upstream.Client
	cache    *cache.Cache
	log      zerolog.Logger
	now      func() time.Time
}

// NewGradebookService creates a new GradebookService
func NewGradebookService(resolver *identity.Resolver, client upstream.Client, c *cache.Cache, log zerolog.Logger) *GradebookService {
	return &GradebookService{
		resolver: resolver,
		client:   client,
		cache:    c,
		log:      log,
		now:      time.Now,
	}
}

// sectionData bundles the three independent per-section collections.
type sectionData struct {
	assignments []models.Assignment
	records     []models.GradeRecord
	categories  []models.GradingCategory
}

// fetchSectionData issues the three per-section reads concurrently and joins
// them before shaping proceeds. Any failure cancels the siblings.
func (s *GradebookService) fetchSectionData(ctx context.Context, sectionID, targetUserID int64) (sectionData, error) {
	var data sectionData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		assignments, err := s.client.ListAssignments(ctx, sectionID, targetUserID)
		data.assignments = assignments
		return err
	})
	g.Go(func() error {
		records, err := s.client.ListGrades(ctx, sectionID, targetUserID)
		data.records = records
		return err
	})
	g.Go(func() error {
		categories, err := s.client.ListGradingCategories(ctx, sectionID, targetUserID)
		data.categories = categories
		return err
	})

	if err := g.Wait(); err != nil {
		return sectionData{}, err
	}
	return data, nil
}

func cacheMeta(result *cache.Result) dto.CacheMeta {
	meta := dto.CacheMeta{Source: string(result.Source)}
	if result.Source == cache.SourceCached {
		cachedAt := result.CachedAt
		meta.CachedAt = &cachedAt
	}
	return meta
}

// CurrentGrades computes the weighted course grade for every section the
// target user is enrolled in.
func (s *GradebookService) CurrentGrades(ctx context.Context, viewerUserID, runAsUserID int64) (*dto.GradesResponse, error) {
	res, err := s.resolver.Resolve(ctx, viewerUserID, runAsUserID)
	if err != nil {
		return nil, err
	}

	key := cache.Key(resourceGrades, res.TargetUserID)
	result, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (interface{}, error) {
		sections, err := s.client.ListSections(ctx, res.TargetUserID)
		if err != nil {
			return nil, err
		}

		payload := dto.GradesPayload{Grades: make(map[int64]dto.CourseGradeEntry, len(sections))}
		var mu sync.Mutex
		g, ctx := errgroup.WithContext(ctx)
		for _, section := range sections {
			section := section
			g.Go(func() error {
				data, err := s.fetchSectionData(ctx, section.ID, res.TargetUserID)
				if err != nil {
					return err
				}
				computed := grades.ComputeCourseGrade(section.ID, data.assignments, data.records, data.categories)
				mu.Lock()
				payload.Grades[section.ID] = dto.CourseGradeEntry{
					Grade:     computed.Percent,
					Breakdown: computed.Breakdown,
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	response := &dto.GradesResponse{CacheMeta: cacheMeta(result)}
	if err := json.Unmarshal(result.Payload, &response.GradesPayload); err != nil {
		return nil, fmt.Errorf("failed to decode grades payload: %w", err)
	}
	return response, nil
}

// AssignmentsBySection lists one section's assignments grouped into category
// buckets, with any existing grade and comment attached per assignment.
func (s *GradebookService) AssignmentsBySection(ctx context.Context, viewerUserID, runAsUserID, sectionID int64) (*dto.AssignmentsResponse, error) {
	res, err := s.resolver.Resolve(ctx, viewerUserID, runAsUserID)
	if err != nil {
		return nil, err
	}

	key := cache.Key(resourceAssignments, res.TargetUserID, strconv.FormatInt(sectionID, 10))
	result, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (interface{}, error) {
		data, err := s.fetchSectionData(ctx, sectionID, res.TargetUserID)
		if err != nil {
			return nil, err
		}
		return shapeAssignments(sectionID, data), nil
	})
	if err != nil {
		return nil, err
	}

	response := &dto.AssignmentsResponse{CacheMeta: cacheMeta(result)}
	if err := json.Unmarshal(result.Payload, &response.AssignmentsPayload); err != nil {
		return nil, fmt.Errorf("failed to decode assignments payload: %w", err)
	}
	return response, nil
}

// shapeAssignments builds the assignments-by-category view. Categories left
// empty after grouping are dropped; uncategorized assignments get an explicit
// bucket.
func shapeAssignments(sectionID int64, data sectionData) dto.AssignmentsPayload {
	categoryTitles := make(map[int64]string, len(data.categories))
	for _, c := range data.categories {
		categoryTitles[c.ID] = c.Title
	}

	recordsByAssignment := make(map[int64]models.GradeRecord, len(data.records))
	for _, r := range data.records {
		recordsByAssignment[r.AssignmentID] = r
	}

	payload := dto.AssignmentsPayload{
		SectionID:             sectionID,
		Assignments:           make([]dto.AssignmentEntry, 0, len(data.assignments)),
		Categories:            data.categories,
		AssignmentsByCategory: make(map[string][]dto.AssignmentEntry),
	}

	for _, a := range data.assignments {
		entry := dto.AssignmentEntry{
			ID:         a.ID,
			Title:      a.Title,
			CategoryID: a.CategoryID,
			MaxPoints:  a.MaxPoints,
		}
		if !a.DueDate.IsZero() {
			dueDate := a.DueDate
			entry.DueDate = &dueDate
		}

		entry.CategoryTitle = grades.UncategorizedTitle
		if title, ok := categoryTitles[a.CategoryID]; ok {
			entry.CategoryTitle = title
		}

		if record, ok := recordsByAssignment[a.ID]; ok {
			entry.Comment = record.Comment
			if record.Graded() {
				entry.EarnedPoints = record.EarnedPoints
				entry.Graded = true
			}
		}

		payload.Assignments = append(payload.Assignments, entry)
		payload.AssignmentsByCategory[entry.CategoryTitle] = append(payload.AssignmentsByCategory[entry.CategoryTitle], entry)
	}

	return payload
}

// Upcoming lists assignments due within the next N days across all of the
// target's sections, soonest first.
func (s *GradebookService) Upcoming(ctx context.Context, viewerUserID, runAsUserID int64, days int) (*dto.UpcomingResponse, error) {
	res, err := s.resolver.Resolve(ctx, viewerUserID, runAsUserID)
	if err != nil {
		return nil, err
	}

	key := cache.Key(resourceUpcoming, res.TargetUserID, strconv.Itoa(days))
	result, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (interface{}, error) {
		now := s.now()
		windowEnd := now.Add(time.Duration(days) * 24 * time.Hour)

		items, err := collectSectionItems(ctx, s, res.TargetUserID, func(section models.Section, data sectionData) []dto.UpcomingItem {
			categoryTitles := make(map[int64]string, len(data.categories))
			for _, c := range data.categories {
				categoryTitles[c.ID] = c.Title
			}
			gradedAssignments := make(map[int64]bool, len(data.records))
			for _, r := range data.records {
				if r.Graded() {
					gradedAssignments[r.AssignmentID] = true
				}
			}

			var items []dto.UpcomingItem
			for _, a := range data.assignments {
				if a.DueDate.IsZero() || !a.DueDate.After(now) || a.DueDate.After(windowEnd) {
					continue
				}
				item := dto.UpcomingItem{
					AssignmentID:  a.ID,
					SectionID:     section.ID,
					SectionTitle:  section.Title,
					Title:         a.Title,
					CategoryTitle: grades.UncategorizedTitle,
					DueDate:       a.DueDate,
					MaxPoints:     a.MaxPoints,
					Graded:        gradedAssignments[a.ID],
				}
				if title, ok := categoryTitles[a.CategoryID]; ok {
					item.CategoryTitle = title
				}
				items = append(items, item)
			}
			return items
		})
		if err != nil {
			return nil, err
		}

		sort.Slice(items, func(i, j int) bool {
			if !items[i].DueDate.Equal(items[j].DueDate) {
				return items[i].DueDate.Before(items[j].DueDate)
			}
			return items[i].AssignmentID < items[j].AssignmentID
		})
		return dto.UpcomingPayload{Upcoming: items}, nil
	})
	if err != nil {
		return nil, err
	}

	response := &dto.UpcomingResponse{CacheMeta: cacheMeta(result)}
	if err := json.Unmarshal(result.Payload, &response.UpcomingPayload); err != nil {
		return nil, fmt.Errorf("failed to decode upcoming payload: %w", err)
	}
	if response.Upcoming == nil {
		response.Upcoming = []dto.UpcomingItem{}
	}
	return response, nil
}

// RecentActivity lists grade records submitted within the last N days across
// all of the target's sections, newest first. Records without a submission
// timestamp cannot be placed in the window and are excluded.
func (s *GradebookService) RecentActivity(ctx context.Context, viewerUserID, runAsUserID int64, days int) (*dto.ActivityResponse, error) {
	res, err := s.resolver.Resolve(ctx, viewerUserID, runAsUserID)
	if err != nil {
		return nil, err
	}

	key := cache.Key(resourceActivity, res.TargetUserID, strconv.Itoa(days))
	result, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (interface{}, error) {
		now := s.now()
		windowStart := now.Add(-time.Duration(days) * 24 * time.Hour)

		items, err := collectSectionItems(ctx, s, res.TargetUserID, func(section models.Section, data sectionData) []dto.ActivityItem {
			assignmentTitles := make(map[int64]string, len(data.assignments))
			assignmentCategories := make(map[int64]int64, len(data.assignments))
			for _, a := range data.assignments {
				assignmentTitles[a.ID] = a.Title
				assignmentCategories[a.ID] = a.CategoryID
			}
			categoryTitles := make(map[int64]string, len(data.categories))
			for _, c := range data.categories {
				categoryTitles[c.ID] = c.Title
			}

			var items []dto.ActivityItem
			for _, r := range data.records {
				if r.SubmittedAt.IsZero() || r.SubmittedAt.Before(windowStart) || r.SubmittedAt.After(now) {
					continue
				}
				item := dto.ActivityItem{
					AssignmentID:    r.AssignmentID,
					SectionID:       section.ID,
					SectionTitle:    section.Title,
					AssignmentTitle: assignmentTitles[r.AssignmentID],
					CategoryTitle:   grades.UncategorizedTitle,
					EarnedPoints:    r.EarnedPoints,
					MaxPoints:       r.MaxPoints,
					SubmittedAt:     r.SubmittedAt,
					Comment:         r.Comment,
				}
				if title, ok := categoryTitles[assignmentCategories[r.AssignmentID]]; ok {
					item.CategoryTitle = title
				}
				items = append(items, item)
			}
			return items
		})
		if err != nil {
			return nil, err
		}

		sort.Slice(items, func(i, j int) bool {
			if !items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
				return items[i].SubmittedAt.After(items[j].SubmittedAt)
			}
			return items[i].AssignmentID < items[j].AssignmentID
		})
		return dto.ActivityPayload{Activity: items}, nil
	})
	if err != nil {
		return nil, err
	}

	response := &dto.ActivityResponse{CacheMeta: cacheMeta(result)}
	if err := json.Unmarshal(result.Payload, &response.ActivityPayload); err != nil {
		return nil, fmt.Errorf("failed to decode activity payload: %w", err)
	}
	if response.Activity == nil {
		response.Activity = []dto.ActivityItem{}
	}
	return response, nil
}

// collectSectionItems fans out over all of the target's sections, shapes each
// section's data with shape, and concatenates the results.
func collectSectionItems[T any](ctx context.Context, s *GradebookService, targetUserID int64, shape func(models.Section, sectionData) []T) ([]T, error) {
	sections, err := s.client.ListSections(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	perSection := make([][]T, len(sections))
	g, ctx := errgroup.WithContext(ctx)
	for i, section := range sections {
		i, section := i, section
		g.Go(func() error {
			data, err := s.fetchSectionData(ctx, section.ID, targetUserID)
			if err != nil {
				return err
			}
			perSection[i] = shape(section, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []T
	for _, sectionItems := range perSection {
		items = append(items, sectionItems...)
	}
	return items, nil
}
