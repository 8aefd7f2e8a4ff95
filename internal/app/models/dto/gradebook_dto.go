package dto

import (
	"time"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/grades"
)

// CacheMeta tags a response with where its payload came from. CachedAt is
// only present on cached responses.
type CacheMeta struct {
	Source   string     `json:"source" example:"cached"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
}

// CourseGradeEntry is one section's computed grade. Grade is null while the
// section has nothing graded yet.
type CourseGradeEntry struct {
	Grade     *int                       `json:"grade"`
	Breakdown []grades.CategoryBreakdown `json:"breakdown,omitempty"`
}

// GradesPayload is the cached shape behind GET /grades.
type GradesPayload struct {
	Grades map[int64]CourseGradeEntry `json:"grades"`
}

// GradesResponse is GradesPayload plus cache metadata.
type GradesResponse struct {
	GradesPayload
	CacheMeta
}

// AssignmentEntry is one assignment with its grade state attached.
type AssignmentEntry struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	CategoryID    int64      `json:"categoryId,omitempty"`
	CategoryTitle string     `json:"categoryTitle"`
	MaxPoints     float64    `json:"maxPoints"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	EarnedPoints  *float64   `json:"earnedPoints,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	Graded        bool       `json:"graded"`
}

// AssignmentsPayload is the cached shape behind GET /assignments.
type AssignmentsPayload struct {
	SectionID             int64                        `json:"sectionId"`
	Assignments           []AssignmentEntry            `json:"assignments"`
	Categories            []models.GradingCategory     `json:"categories"`
	AssignmentsByCategory map[string][]AssignmentEntry `json:"assignmentsByCategory"`
}

// AssignmentsResponse is AssignmentsPayload plus cache metadata.
type AssignmentsResponse struct {
	AssignmentsPayload
	CacheMeta
}

// UpcomingItem is one assignment due inside the requested window.
type UpcomingItem struct {
	AssignmentID  int64     `json:"assignmentId"`
	SectionID     int64     `json:"sectionId"`
	SectionTitle  string    `json:"sectionTitle"`
	Title         string    `json:"title"`
	CategoryTitle string    `json:"categoryTitle"`
	DueDate       time.Time `json:"dueDate"`
	MaxPoints     float64   `json:"maxPoints"`
	Graded        bool      `json:"graded"`
}

// UpcomingPayload is the cached shape behind GET /upcoming.
type UpcomingPayload struct {
	Upcoming []UpcomingItem `json:"upcoming"`
}

// UpcomingResponse is UpcomingPayload plus cache metadata.
type UpcomingResponse struct {
	UpcomingPayload
	CacheMeta
}

// ActivityItem is one recently graded record.
type ActivityItem struct {
	AssignmentID    int64     `json:"assignmentId"`
	SectionID       int64     `json:"sectionId"`
	SectionTitle    string    `json:"sectionTitle"`
	AssignmentTitle string    `json:"assignmentTitle"`
	CategoryTitle   string    `json:"categoryTitle"`
	EarnedPoints    *float64  `json:"earnedPoints,omitempty"`
	MaxPoints       float64   `json:"maxPoints"`
	SubmittedAt     time.Time `json:"submittedAt"`
	Comment         string    `json:"comment,omitempty"`
}

// ActivityPayload is the cached shape behind GET /recent-activity.
type ActivityPayload struct {
	Activity []ActivityItem `json:"activity"`
}

// ActivityResponse is ActivityPayload plus cache metadata.
type ActivityResponse struct {
	ActivityPayload
	CacheMeta
}
