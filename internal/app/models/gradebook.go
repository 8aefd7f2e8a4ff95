package models

import "time"

// Section is one taught instance of a course a user is enrolled in. Sections
// are a read-only mirror of upstream state; they are fetched fresh on every
// cache miss and never stored locally.
type Section struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	TeacherName string `json:"teacherName,omitempty"`
}

// GradingCategory is a weighted bucket of assignments within a section.
// Weights are whatever upstream reports; they are not guaranteed to sum to
// 100 and are never renormalized at read time.
type GradingCategory struct {
	ID              int64   `json:"id"`
	SectionID       int64   `json:"sectionId"`
	Title           string  `json:"title"`
	WeightPercent   float64 `json:"weightPercent"`
	CalculationType string  `json:"calculationType,omitempty"`
}

// Assignment belongs to a section and, optionally, to a grading category.
// CategoryID zero means the assignment is uncategorized.
type Assignment struct {
	ID         int64     `json:"id"`
	SectionID  int64     `json:"sectionId"`
	CategoryID int64     `json:"categoryId,omitempty"`
	Title      string    `json:"title"`
	MaxPoints  float64   `json:"maxPoints"`
	DueDate    time.Time `json:"dueDate,omitempty"`
}

// GradeRecord is one student's result for one assignment. EarnedPoints is nil
// when the assignment has not been graded; SubmittedAt is the zero time when
// upstream reports no timestamp.
type GradeRecord struct {
	AssignmentID int64     `json:"assignmentId"`
	UserID       int64     `json:"userId"`
	EarnedPoints *float64  `json:"earnedPoints,omitempty"`
	MaxPoints    float64   `json:"maxPoints"`
	SubmittedAt  time.Time `json:"submittedAt,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

// Graded reports whether the record carries a usable score. Negative scores
// come out of upstream occasionally and are treated as ungraded rather than
// poisoning an aggregate.
func (g *GradeRecord) Graded() bool {
	return g.EarnedPoints != nil && *g.EarnedPoints >= 0 && g.MaxPoints >= 0
}
