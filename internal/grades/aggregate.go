// Package grades implements the weighted course grade computation shared by
// every read shape. The upstream platform reports categories, assignments and
// grade records as independent collections; this package is the single place
// where they are folded into one course percentage.
package grades

import (
	"math"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
)

// UncategorizedTitle is the bucket name for assignments without a grading
// category, or whose category ID matches no known category.
const UncategorizedTitle = "Uncategorized"

// CategoryBreakdown carries the unrounded per-category numbers behind a
// computed grade, for diagnostics and the assignments view.
type CategoryBreakdown struct {
	CategoryID     int64   `json:"categoryId"`
	Title          string  `json:"title"`
	WeightPercent  float64 `json:"weightPercent"`
	EarnedPoints   float64 `json:"earnedPoints"`
	PossiblePoints float64 `json:"possiblePoints"`
	Average        float64 `json:"average"`
	GradedCount    int     `json:"gradedCount"`
	// Included reports whether the category contributed to the final
	// percentage. A weighted category with no graded work is excluded, not
	// counted as zero.
	Included bool `json:"included"`
}

// CourseGrade is the result of aggregating one section's records.
// Percent is nil when no grade can be computed yet.
type CourseGrade struct {
	SectionID int64               `json:"sectionId"`
	Percent   *int                `json:"percent"`
	Breakdown []CategoryBreakdown `json:"breakdown,omitempty"`
}

type bucket struct {
	earned   float64
	possible float64
	graded   int
}

// ComputeCourseGrade turns raw assignment, grade and category collections into
// a single course percentage plus a per-category breakdown.
//
// With categories present the grade is the weighted average of per-category
// averages over the weight that actually has graded work. Without categories
// it is total earned over total possible. Either way, ungraded records are
// excluded from both numerator and denominator, and "nothing graded yet"
// yields a nil percentage rather than zero.
//
// Category weights are taken as upstream reports them. Weight sums under or
// over 100 are valid data; no renormalization happens at read time.
//
// The function is pure: no clock, no I/O, and the result does not depend on
// the order of any input slice.
func ComputeCourseGrade(sectionID int64, assignments []models.Assignment, records []models.GradeRecord, categories []models.GradingCategory) CourseGrade {
	result := CourseGrade{SectionID: sectionID}

	assignmentCategory := make(map[int64]int64, len(assignments))
	for _, a := range assignments {
		assignmentCategory[a.ID] = a.CategoryID
	}

	knownCategories := make(map[int64]bool, len(categories))
	for _, c := range categories {
		knownCategories[c.ID] = true
	}

	// Partition graded records into per-category buckets. Records whose
	// assignment is unknown, uncategorized, or in an unknown category land in
	// the implicit uncategorized bucket (key 0).
	buckets := make(map[int64]*bucket)
	for _, rec := range records {
		if !rec.Graded() {
			continue
		}
		categoryID := assignmentCategory[rec.AssignmentID]
		if !knownCategories[categoryID] {
			categoryID = 0
		}
		b := buckets[categoryID]
		if b == nil {
			b = &bucket{}
			buckets[categoryID] = b
		}
		b.earned += *rec.EarnedPoints
		b.possible += rec.MaxPoints
		b.graded++
	}

	if len(categories) == 0 {
		return computeUnweighted(result, buckets)
	}
	return computeWeighted(result, buckets, categories)
}

// computeWeighted averages per-category averages over the weight that has
// graded work. The uncategorized bucket never contributes here; that is the
// documented policy, not an oversight.
func computeWeighted(result CourseGrade, buckets map[int64]*bucket, categories []models.GradingCategory) CourseGrade {
	var weightedSum, includedWeight float64

	for _, c := range categories {
		b := buckets[c.ID]
		entry := CategoryBreakdown{
			CategoryID:    c.ID,
			Title:         c.Title,
			WeightPercent: c.WeightPercent,
		}
		if b != nil {
			entry.EarnedPoints = b.earned
			entry.PossiblePoints = b.possible
			entry.GradedCount = b.graded
		}

		// A category only counts when it has weight and graded work worth
		// points. Zero possible points would make the average undefined.
		if c.WeightPercent > 0 && b != nil && b.possible > 0 {
			entry.Average = b.earned / b.possible * 100
			entry.Included = true
			weightedSum += entry.Average * c.WeightPercent
			includedWeight += c.WeightPercent
		}

		result.Breakdown = append(result.Breakdown, entry)
	}

	if includedWeight > 0 {
		percent := roundPercent(weightedSum / includedWeight)
		result.Percent = &percent
	}
	return result
}

// computeUnweighted is the fallback for sections without grading categories:
// plain total earned over total possible, including the uncategorized bucket.
func computeUnweighted(result CourseGrade, buckets map[int64]*bucket) CourseGrade {
	var earned, possible float64
	var graded int
	for _, b := range buckets {
		earned += b.earned
		possible += b.possible
		graded += b.graded
	}

	if possible > 0 {
		average := earned / possible * 100
		percent := roundPercent(average)
		result.Percent = &percent
		result.Breakdown = append(result.Breakdown, CategoryBreakdown{
			Title:          UncategorizedTitle,
			EarnedPoints:   earned,
			PossiblePoints: possible,
			Average:        average,
			GradedCount:    graded,
			Included:       true,
		})
	}
	return result
}

func roundPercent(v float64) int {
	return int(math.Round(v))
}
