package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func newCourseFixture() (*CourseService, *fakeCourses, *fakePrereqs) {
	instructor := "inst-1"
	cs201 := mkCourse("c201", "CS201", 2, 3, models.CourseTypeCore, "Computer Science")
	cs201.InstructorID = &instructor
	courses := newFakeCourses(mkCourse("c101", "CS101", 1, 3, models.CourseTypeCore), cs201)
	prereqs := &fakePrereqs{}
	return NewCourseService(courses, prereqs, &fakeOfferings{}, nil, nil, nil), courses, prereqs
}

func createCourseReq(code, name string) models.CreateCourseRequest {
	return models.CreateCourseRequest{
		Code:          code,
		Name:          name,
		CreditHours:   3,
		AcademicLevel: 2,
		CourseType:    models.CourseTypeCore,
		Majors:        []string{"Computer Science", "general", "computer science"},
		Department:    "Computing",
	}
}

func TestCreateCourse(t *testing.T) {
	svc, _, _ := newCourseFixture()
	ctx := context.Background()

	course, err := svc.Create(ctx, adminPrincipal, createCourseReq(" cs250 ", "Operating Systems"))
	require.NoError(t, err)
	assert.Equal(t, "CS250", course.Code)
	assert.Equal(t, []string{"Computer Science", "General"}, []string(course.Majors))
	assert.True(t, course.IsActive)

	_, err = svc.Create(ctx, adminPrincipal, createCourseReq("CS250", "Another"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(ctx, instructorOne, createCourseReq("CS260", "Networks"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	bad := createCourseReq("CS270", "Compilers")
	bad.CourseType = "seminar"
	_, err = svc.Create(ctx, adminPrincipal, bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUpdateCourseByInstructor(t *testing.T) {
	svc, courses, _ := newCourseFixture()
	ctx := context.Background()
	req := models.UpdateCourseRequest{
		Name:          "Data Structures II",
		CreditHours:   4,
		AcademicLevel: 2,
		CourseType:    models.CourseTypeCore,
		Majors:        []string{"Computer Science"},
		Department:    "Computing",
	}

	updated, err := svc.Update(ctx, instructorOne, "c201", req)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.CreditHours)
	assert.Equal(t, "Data Structures II", courses.courses["c201"].Name)

	_, err = svc.Update(ctx, models.Principal{UserID: "inst-2", Role: models.RoleInstructor}, "c201", req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	req.InstructorID = strPtr("6f1c2a9e-3b0d-4c55-9a1e-2f7c8d9b0a11")
	_, err = svc.Update(ctx, instructorOne, "c201", req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDeactivateCourse(t *testing.T) {
	svc, courses, _ := newCourseFixture()

	require.NoError(t, svc.Deactivate(context.Background(), adminPrincipal, "c101"))
	assert.False(t, courses.courses["c101"].IsActive)
	assert.ErrorIs(t, svc.Deactivate(context.Background(), adminPrincipal, "nope"), appErrors.ErrNotFound)
}

func TestAddPrerequisite(t *testing.T) {
	svc, _, prereqs := newCourseFixture()
	ctx := context.Background()

	p, err := svc.AddPrerequisite(ctx, adminPrincipal, "c201", models.AddPrerequisiteRequest{PrerequisiteID: "c101"})
	require.NoError(t, err)
	assert.True(t, p.IsRequired)
	assert.Equal(t, models.GradeDMinus, p.MinimumGrade)
	assert.Equal(t, "CS101", p.Code)
	assert.Len(t, prereqs.rows, 1)

	_, err = svc.AddPrerequisite(ctx, adminPrincipal, "c201", models.AddPrerequisiteRequest{PrerequisiteID: "c101"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.AddPrerequisite(ctx, adminPrincipal, "c201", models.AddPrerequisiteRequest{PrerequisiteID: "c201"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AddPrerequisite(ctx, adminPrincipal, "c201", models.AddPrerequisiteRequest{PrerequisiteID: "c999"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.AddPrerequisite(ctx, adminPrincipal, "c201", models.AddPrerequisiteRequest{PrerequisiteID: "c101", MinimumGrade: "Z"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.AddPrerequisite(ctx, adminPrincipal, "c201", models.AddPrerequisiteRequest{PrerequisiteID: "c101", MinimumGrade: models.GradeF})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, svc.RemovePrerequisite(ctx, adminPrincipal, "c201", "c101"))
	assert.ErrorIs(t, svc.RemovePrerequisite(ctx, adminPrincipal, "c201", "c101"), appErrors.ErrNotFound)
}

func TestAddOffering(t *testing.T) {
	svc, _, _ := newCourseFixture()
	ctx := context.Background()
	req := models.CreateOfferingRequest{Semester: 1, AcademicYear: "2024-2025", Capacity: 40}

	offering, err := svc.AddOffering(ctx, adminPrincipal, "c101", req)
	require.NoError(t, err)
	assert.True(t, offering.IsActive)

	_, err = svc.AddOffering(ctx, adminPrincipal, "c101", req)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	req.AcademicYear = "2025-2024"
	_, err = svc.AddOffering(ctx, adminPrincipal, "c101", req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	list, err := svc.ListOfferings(ctx, "c101")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestValidateAcademicYear(t *testing.T) {
	assert.NoError(t, validateAcademicYear("2024-2025"))
	for _, bad := range []string{"2024-2026", "2024/2025", "24-25", "abcd-abce", "2024-2025-2026", ""} {
		assert.ErrorIs(t, validateAcademicYear(bad), appErrors.ErrValidation, bad)
	}
}
