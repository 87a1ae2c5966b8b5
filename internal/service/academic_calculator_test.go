package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

func TestCalculateGPA(t *testing.T) {
	tests := []struct {
		name    string
		records []models.GradedCourse
		want    float64
	}{
		{name: "no records", want: 0},
		{
			name: "credit weighted",
			records: []models.GradedCourse{
				graded("c1", "CS101", 3, models.GradeA),
				graded("c2", "CS102", 3, models.GradeB),
			},
			want: 3.5,
		},
		{
			name: "failing grades weigh zero",
			records: []models.GradedCourse{
				graded("c1", "CS101", 4, models.GradeA),
				graded("c2", "CS102", 2, models.GradeF),
			},
			want: 2.67,
		},
		{
			name: "rounds half away from zero",
			records: []models.GradedCourse{
				graded("c1", "CS101", 2, models.GradeA),
				graded("c2", "CS102", 5, models.GradeB),
				graded("c3", "CS103", 1, models.GradeF),
			},
			want: 2.88,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateGPA(tt.records))
		})
	}
}

func TestMaxCreditHours(t *testing.T) {
	rules := &fakeGPARules{rules: []models.GPARule{
		{ID: "low", MinGPA: 0, MaxGPA: 2.0, MaxCreditHours: 9},
		{ID: "mid", MinGPA: 2.0, MaxGPA: 3.0, MaxCreditHours: 15},
		{ID: "high", MinGPA: 3.0, MaxGPA: 4.0, MaxCreditHours: 18},
	}}
	calc := NewAcademicCalculator(rules, &fakeProgressions{}, &fakeHistory{}, 12, nil)
	ctx := context.Background()

	assert.Equal(t, 9, calc.MaxCreditHours(ctx, 1.5))
	assert.Equal(t, 15, calc.MaxCreditHours(ctx, 2.0), "shared boundary resolves to the higher band")
	assert.Equal(t, 18, calc.MaxCreditHours(ctx, 3.0), "shared boundary resolves to the higher band")
	assert.Equal(t, 18, calc.MaxCreditHours(ctx, 4.0), "upper bound is inclusive")

	empty := NewAcademicCalculator(&fakeGPARules{}, &fakeProgressions{}, &fakeHistory{}, 0, nil)
	assert.Equal(t, DefaultMaxCreditHours, empty.MaxCreditHours(ctx, 3.2))
}

func TestMaxCreditHoursBandBoundaries(t *testing.T) {
	rules := &fakeGPARules{rules: []models.GPARule{
		{ID: "r1", MinGPA: 0, MaxGPA: 2.0, MaxCreditHours: 12},
		{ID: "r2", MinGPA: 2.0, MaxGPA: 3.0, MaxCreditHours: 15},
		{ID: "r3", MinGPA: 3.0, MaxGPA: 4.0, MaxCreditHours: 18},
	}}
	calc := NewAcademicCalculator(rules, &fakeProgressions{}, &fakeHistory{}, 12, nil)

	tests := []struct {
		gpa  float64
		want int
	}{
		{0, 12},
		{1.99, 12},
		{2.0, 15},
		{2.5, 15},
		{3.0, 18},
		{4.0, 18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calc.MaxCreditHours(context.Background(), tt.gpa), "gpa %.2f", tt.gpa)
	}
}

func TestCanProgress(t *testing.T) {
	progressions := &fakeProgressions{rules: []models.LevelProgression{
		{ID: "p1", FromLevel: 1, ToLevel: 2, RequiredCreditHours: 24, RequiredGPA: 2.0},
		{ID: "p2", FromLevel: 2, ToLevel: 3, RequiredCreditHours: 48, RequiredGPA: 2.5},
	}}
	history := &fakeHistory{byStudent: map[string]StudentHistory{
		"s-hist": historyOf(graded("c1", "CS101", 3, models.GradeC)),
	}}
	calc := NewAcademicCalculator(&fakeGPARules{}, progressions, history, 12, nil)
	ctx := context.Background()

	t.Run("eligible", func(t *testing.T) {
		res, err := calc.CanProgress(ctx, &models.User{ID: "s1", AcademicLevel: 1, CompletedCreditHours: 30, GPA: 3.1})
		require.NoError(t, err)
		assert.True(t, res.CanProgress)
		assert.Equal(t, 2, res.NextLevel)
	})

	t.Run("insufficient credit hours", func(t *testing.T) {
		res, err := calc.CanProgress(ctx, &models.User{ID: "s1", AcademicLevel: 2, CompletedCreditHours: 40, GPA: 3.1})
		require.NoError(t, err)
		assert.False(t, res.CanProgress)
		assert.Contains(t, res.Reason, "48")
	})

	t.Run("gpa computed from history when unset", func(t *testing.T) {
		res, err := calc.CanProgress(ctx, &models.User{ID: "s-hist", AcademicLevel: 2, CompletedCreditHours: 60})
		require.NoError(t, err)
		assert.False(t, res.CanProgress)
		assert.Contains(t, res.Reason, "2.00")
	})

	t.Run("missing rule", func(t *testing.T) {
		res, err := calc.CanProgress(ctx, &models.User{ID: "s1", AcademicLevel: 3, CompletedCreditHours: 200, GPA: 4})
		require.NoError(t, err)
		assert.False(t, res.CanProgress)
		assert.Equal(t, "no rule for progression from level 3 to 4", res.Reason)
	})

	t.Run("highest level is terminal", func(t *testing.T) {
		res, err := calc.CanProgress(ctx, &models.User{ID: "s1", AcademicLevel: models.MaxAcademicLevel, GPA: 4})
		require.NoError(t, err)
		assert.False(t, res.CanProgress)
		assert.Zero(t, res.NextLevel)
	})
}
