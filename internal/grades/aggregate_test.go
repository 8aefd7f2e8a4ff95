package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/app/models"
)

func fp(v float64) *float64 { return &v }

func record(assignmentID int64, earned *float64, max float64) models.GradeRecord {
	return models.GradeRecord{AssignmentID: assignmentID, UserID: 1, EarnedPoints: earned, MaxPoints: max}
}

func assignment(id, sectionID, categoryID int64, max float64) models.Assignment {
	return models.Assignment{ID: id, SectionID: sectionID, CategoryID: categoryID, MaxPoints: max}
}

func category(id, sectionID int64, title string, weight float64) models.GradingCategory {
	return models.GradingCategory{ID: id, SectionID: sectionID, Title: title, WeightPercent: weight}
}

func TestComputeCourseGrade_WeightedExample(t *testing.T) {
	// Homework 40% at 18/20 (90%), Tests 60% at 42/50 (84%):
	// round(90*0.4 + 84*0.6) = round(86.4) = 86
	categories := []models.GradingCategory{
		category(10, 1, "Homework", 40),
		category(11, 1, "Tests", 60),
	}
	assignments := []models.Assignment{
		assignment(100, 1, 10, 20),
		assignment(101, 1, 11, 50),
	}
	records := []models.GradeRecord{
		record(100, fp(18), 20),
		record(101, fp(42), 50),
	}

	got := ComputeCourseGrade(1, assignments, records, categories)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 86, *got.Percent)

	require.Len(t, got.Breakdown, 2)
	assert.InDelta(t, 90.0, got.Breakdown[0].Average, 1e-9)
	assert.InDelta(t, 84.0, got.Breakdown[1].Average, 1e-9)
	assert.True(t, got.Breakdown[0].Included)
	assert.True(t, got.Breakdown[1].Included)
}

func TestComputeCourseGrade_NoCategoriesFallback(t *testing.T) {
	// 150/200 earned overall, no categories: round(75.0) = 75
	assignments := []models.Assignment{
		assignment(100, 1, 0, 120),
		assignment(101, 1, 0, 80),
	}
	records := []models.GradeRecord{
		record(100, fp(90), 120),
		record(101, fp(60), 80),
	}

	got := ComputeCourseGrade(1, assignments, records, nil)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 75, *got.Percent)

	require.Len(t, got.Breakdown, 1)
	assert.Equal(t, UncategorizedTitle, got.Breakdown[0].Title)
	assert.InDelta(t, 75.0, got.Breakdown[0].Average, 1e-9)
}

func TestComputeCourseGrade_EmptyWeightedCategoryExcluded(t *testing.T) {
	// Labs 30% has no graded work, Homework 70% at 9/10: Labs is excluded
	// from the weighted sum entirely, so the grade is 90, not 63.
	categories := []models.GradingCategory{
		category(10, 1, "Labs", 30),
		category(11, 1, "Homework", 70),
	}
	assignments := []models.Assignment{
		assignment(100, 1, 10, 10),
		assignment(101, 1, 11, 10),
	}
	records := []models.GradeRecord{
		record(100, nil, 10), // ungraded
		record(101, fp(9), 10),
	}

	got := ComputeCourseGrade(1, assignments, records, categories)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 90, *got.Percent)

	require.Len(t, got.Breakdown, 2)
	assert.False(t, got.Breakdown[0].Included)
	assert.Equal(t, 0, got.Breakdown[0].GradedCount)
	assert.True(t, got.Breakdown[1].Included)
}

func TestComputeCourseGrade_NothingGradedIsNil(t *testing.T) {
	categories := []models.GradingCategory{category(10, 1, "Homework", 100)}
	assignments := []models.Assignment{assignment(100, 1, 10, 10)}
	records := []models.GradeRecord{record(100, nil, 10)}

	got := ComputeCourseGrade(1, assignments, records, categories)
	assert.Nil(t, got.Percent, "no graded work must yield nil, never 0")

	// Same without categories.
	got = ComputeCourseGrade(1, assignments, records, nil)
	assert.Nil(t, got.Percent)

	// And with no records at all.
	got = ComputeCourseGrade(1, assignments, nil, categories)
	assert.Nil(t, got.Percent)
}

func TestComputeCourseGrade_NegativeScoreTreatedAsUngraded(t *testing.T) {
	categories := []models.GradingCategory{category(10, 1, "Homework", 100)}
	assignments := []models.Assignment{
		assignment(100, 1, 10, 10),
		assignment(101, 1, 10, 10),
	}
	records := []models.GradeRecord{
		record(100, fp(-5), 10), // bad upstream data
		record(101, fp(8), 10),
	}

	got := ComputeCourseGrade(1, assignments, records, categories)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 80, *got.Percent)
	assert.Equal(t, 1, got.Breakdown[0].GradedCount)
}

func TestComputeCourseGrade_UnknownCategoryExcludedWhenWeighted(t *testing.T) {
	// An assignment pointing at a category ID upstream never returned falls
	// into the uncategorized bucket, which does not contribute when the
	// section has weighted categories.
	categories := []models.GradingCategory{category(10, 1, "Essays", 100)}
	assignments := []models.Assignment{
		assignment(100, 1, 10, 10),
		assignment(101, 1, 999, 10), // category 999 is unknown
	}
	records := []models.GradeRecord{
		record(100, fp(7), 10),
		record(101, fp(10), 10),
	}

	got := ComputeCourseGrade(1, assignments, records, categories)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 70, *got.Percent, "unknown-category record must not inflate the weighted grade")
}

func TestComputeCourseGrade_UnknownAssignmentCountsUnweighted(t *testing.T) {
	// A grade record whose assignment is not in the listing still counts in
	// the unweighted fallback.
	records := []models.GradeRecord{
		record(500, fp(5), 10),
	}

	got := ComputeCourseGrade(1, nil, records, nil)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 50, *got.Percent)
}

func TestComputeCourseGrade_WeightsNotRenormalized(t *testing.T) {
	// Weights summing to 50, both with graded work: the weighted average runs
	// over the weight that is present, so 50-sum weights behave like
	// proportional shares.
	categories := []models.GradingCategory{
		category(10, 1, "Homework", 20),
		category(11, 1, "Tests", 30),
	}
	assignments := []models.Assignment{
		assignment(100, 1, 10, 10),
		assignment(101, 1, 11, 10),
	}
	records := []models.GradeRecord{
		record(100, fp(10), 10), // 100%
		record(101, fp(5), 10),  // 50%
	}

	got := ComputeCourseGrade(1, assignments, records, categories)
	require.NotNil(t, got.Percent)
	// (100*20 + 50*30) / 50 = 70
	assert.Equal(t, 70, *got.Percent)
}

func TestComputeCourseGrade_AllWeightsZeroYieldsNil(t *testing.T) {
	categories := []models.GradingCategory{
		category(10, 1, "Homework", 0),
	}
	assignments := []models.Assignment{assignment(100, 1, 10, 10)}
	records := []models.GradeRecord{record(100, fp(9), 10)}

	got := ComputeCourseGrade(1, assignments, records, categories)
	assert.Nil(t, got.Percent)
}

func TestComputeCourseGrade_OrderIndependent(t *testing.T) {
	categories := []models.GradingCategory{
		category(10, 1, "Homework", 40),
		category(11, 1, "Tests", 60),
	}
	assignments := []models.Assignment{
		assignment(100, 1, 10, 20),
		assignment(101, 1, 11, 50),
		assignment(102, 1, 10, 30),
	}
	records := []models.GradeRecord{
		record(100, fp(18), 20),
		record(101, fp(42), 50),
		record(102, fp(27), 30),
	}

	forward := ComputeCourseGrade(1, assignments, records, categories)

	reversedRecords := []models.GradeRecord{records[2], records[0], records[1]}
	reversedAssignments := []models.Assignment{assignments[1], assignments[2], assignments[0]}
	shuffled := ComputeCourseGrade(1, reversedAssignments, reversedRecords, categories)

	require.NotNil(t, forward.Percent)
	require.NotNil(t, shuffled.Percent)
	assert.Equal(t, *forward.Percent, *shuffled.Percent)
}

func TestComputeCourseGrade_RoundsToNearestInteger(t *testing.T) {
	// 85.5 rounds up to 86.
	records := []models.GradeRecord{record(100, fp(171), 200)}
	got := ComputeCourseGrade(1, []models.Assignment{assignment(100, 1, 0, 200)}, records, nil)
	require.NotNil(t, got.Percent)
	assert.Equal(t, 86, *got.Percent)
}

func TestComputeCourseGrade_ZeroMaxPointsRecord(t *testing.T) {
	// Extra-credit style record with zero max points cannot form a category
	// average on its own.
	categories := []models.GradingCategory{category(10, 1, "Extra", 50)}
	assignments := []models.Assignment{assignment(100, 1, 10, 0)}
	records := []models.GradeRecord{record(100, fp(5), 0)}

	got := ComputeCourseGrade(1, assignments, records, categories)
	assert.Nil(t, got.Percent, "zero possible points must exclude the category, not divide by zero")
}
