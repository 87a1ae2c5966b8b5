package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type eligibilityFixture struct {
	users   *fakeUsers
	holds   *fakeHolds
	courses *fakeCourses
	prereqs *fakePrereqs
	regs    *fakeRegistrations
	history *fakeHistory
	cache   *CacheService
	service *EligibilityService
}

func newEligibilityFixture(t *testing.T) *eligibilityFixture {
	t.Helper()
	f := &eligibilityFixture{
		users: newFakeUsers(
			&models.User{ID: "s1", Role: models.RoleStudent, Major: "Computer Science", AcademicLevel: 2, Semester: 3, GPA: 3.2, CompletedCreditHours: 30},
			&models.User{ID: "s3", Role: models.RoleStudent, Major: "Computer Science", AcademicLevel: 5, Semester: 8},
			&models.User{ID: "inst-1", Role: models.RoleInstructor},
		),
		holds: &fakeHolds{},
		courses: newFakeCourses(
			mkCourse("c101", "CS101", 1, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("c102", "CS102", 1, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("c103", "CS103", 1, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("c201", "CS201", 2, 3, models.CourseTypeCore, "computer science"),
			mkCourse("c202", "CS202", 2, 4, models.CourseTypeCore, "Computer Science"),
			mkCourse("c203", "CS203", 2, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("c204", "CS204", 2, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("c301", "CS301", 3, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("c401", "CS401", 4, 3, models.CourseTypeCore, "Computer Science"),
			mkCourse("b201", "BIO201", 2, 3, models.CourseTypeCore, "Biology"),
			mkCourse("e201", "EL201", 2, 3, models.CourseTypeElective),
			mkCourse("e301", "EL301", 3, 2, models.CourseTypeElective),
			mkCourse("e302", "EL302", 3, 6, models.CourseTypeElective),
		),
		prereqs: &fakePrereqs{rows: []models.CoursePrerequisite{
			prereq("c201", "c101", "CS101", true, ""),
			prereq("c202", "c150", "CS150", true, ""),
			prereq("c103", "c101", "CS101", true, ""),
			prereq("c301", "c250", "CS250", true, ""),
		}},
		history: &fakeHistory{byStudent: map[string]StudentHistory{
			"s1": historyOf(
				graded("c101", "CS101", 3, models.GradeA),
				graded("c203", "CS203", 3, models.GradeF),
			),
			"s3": historyOf(graded("c101", "CS101", 3, models.GradeA)),
		}},
	}
	f.users.passed["s1"] = []string{"c101"}
	f.users.passed["s3"] = []string{"c101"}
	f.regs = &fakeRegistrations{courses: f.courses, rows: []models.Registration{
		{ID: "r1", StudentID: "s1", CourseID: "c204", Semester: 3, AcademicYear: "2024-2025", Status: models.RegistrationPending},
	}}
	f.cache = NewCacheService(repository.NewMemoryCacheRepository(16), nil, time.Minute, nil, true)

	rules := &fakeGPARules{rules: []models.GPARule{{ID: "r", MinGPA: 3.0, MaxGPA: 4.0, MaxCreditHours: 15}}}
	calc := NewAcademicCalculator(rules, &fakeProgressions{}, f.history, 12, nil)
	f.service = NewEligibilityService(EligibilityServiceDeps{
		Users:         f.users,
		Holds:         f.holds,
		Courses:       f.courses,
		Registrations: f.regs,
		Prerequisites: f.prereqs,
		History:       f.history,
		Calculator:    calc,
		Cache:         f.cache,
		CacheTTL:      time.Minute,
	})
	return f
}

func codes(courses []models.Course) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.Code)
	}
	return out
}

func TestSuggestedCourses(t *testing.T) {
	f := newEligibilityFixture(t)

	res, err := f.service.SuggestedCourses(context.Background(), studentPrincipal("s1"), "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"CS203"}, codes(res.FailedCourses))
	assert.Equal(t, []string{"CS201"}, codes(res.CoreCourses))
	assert.Equal(t, []string{"EL201", "EL301"}, codes(res.ElectiveCourses))
	assert.Equal(t, 15, res.MaxCreditHours)
	assert.Equal(t, 9, res.RemainingCreditHours)
	assert.Equal(t, 3.2, res.CurrentGPA)
	assert.Equal(t, 30, res.CurrentCreditHours)
	assert.Equal(t, "s1", res.StudentInfo.ID)
}

func TestSuggestedCoursesCachedUntilInvalidated(t *testing.T) {
	f := newEligibilityFixture(t)
	ctx := context.Background()

	first, err := f.service.SuggestedCourses(ctx, studentPrincipal("s1"), "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"CS201"}, codes(first.CoreCourses))

	delete(f.courses.courses, "c201")
	cached, err := f.service.SuggestedCourses(ctx, studentPrincipal("s1"), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS201"}, codes(cached.CoreCourses))

	f.cache.InvalidateStudent(ctx, "s1")
	fresh, err := f.service.SuggestedCourses(ctx, studentPrincipal("s1"), "s1")
	require.NoError(t, err)
	assert.Empty(t, fresh.CoreCourses)
}

func TestSuggestedCoursesFoundationalFallback(t *testing.T) {
	f := newEligibilityFixture(t)

	res, err := f.service.SuggestedCourses(context.Background(), adminPrincipal, "s3")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS102"}, codes(res.CoreCourses), "only prerequisite-free level 1 courses are offered")
}

func TestSuggestedCoursesBlockedByHold(t *testing.T) {
	f := newEligibilityFixture(t)
	f.holds.holds = map[string][]models.Hold{"s1": {{ID: "h1", StudentID: "s1", Reason: "unpaid fees", RestrictRegistration: true}}}

	_, err := f.service.SuggestedCourses(context.Background(), studentPrincipal("s1"), "s1")
	assert.ErrorIs(t, err, appErrors.ErrRegistrationHold)
}

func TestSuggestedCoursesAccess(t *testing.T) {
	f := newEligibilityFixture(t)

	_, err := f.service.SuggestedCourses(context.Background(), studentPrincipal("s3"), "s1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.service.SuggestedCourses(context.Background(), adminPrincipal, "inst-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCheckPrerequisites(t *testing.T) {
	f := newEligibilityFixture(t)

	res, err := f.service.CheckPrerequisites(context.Background(), studentPrincipal("s1"), "s1", "c202")
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, []string{"CS150"}, res.MissingRequiredCodes())

	_, err = f.service.CheckPrerequisites(context.Background(), studentPrincipal("s1"), "s1", "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLevelWindow(t *testing.T) {
	lo, hi := levelWindow(1, 0)
	assert.Equal(t, [2]int{1, 2}, [2]int{lo, hi})

	lo, hi = levelWindow(4, 0)
	assert.Equal(t, [2]int{1, 5}, [2]int{lo, hi})

	lo, hi = levelWindow(4, 3)
	assert.Equal(t, [2]int{4, 5}, [2]int{lo, hi})

	lo, hi = levelWindow(8, 10)
	assert.Equal(t, [2]int{8, 8}, [2]int{lo, hi})
}

func TestPackElectives(t *testing.T) {
	electives := []models.Course{
		mkCourse("a", "EL310", 3, 3, models.CourseTypeElective),
		mkCourse("b", "EL210", 2, 4, models.CourseTypeElective),
		mkCourse("c", "EL220", 2, 2, models.CourseTypeElective),
		mkCourse("d", "EL305", 3, 1, models.CourseTypeElective),
	}

	assert.Equal(t, []string{"EL220", "EL210", "EL305"}, codes(packElectives(electives, 2, 7)))
	assert.Empty(t, packElectives(electives, 2, 0))
	assert.Empty(t, packElectives(electives, 2, -3))
}

func TestSuggestedCoursesNewStudentWithoutHistory(t *testing.T) {
	users := newFakeUsers(&models.User{ID: "s2", Role: models.RoleStudent, Major: "CS", AcademicLevel: 2, Semester: 1})
	courses := newFakeCourses(
		mkCourse("a", "A", 2, 3, models.CourseTypeCore, "CS"),
		mkCourse("b", "B", 2, 3, models.CourseTypeElective, "CS"),
		mkCourse("c", "C", 3, 3, models.CourseTypeCore, "CS"),
	)
	history := &fakeHistory{}
	svc := NewEligibilityService(EligibilityServiceDeps{
		Users:         users,
		Holds:         &fakeHolds{},
		Courses:       courses,
		Registrations: &fakeRegistrations{courses: courses},
		Prerequisites: &fakePrereqs{rows: []models.CoursePrerequisite{prereq("b", "a", "A", true, "")}},
		History:       history,
		Calculator:    NewAcademicCalculator(&fakeGPARules{}, &fakeProgressions{}, history, 12, nil),
	})

	res, err := svc.SuggestedCourses(context.Background(), studentPrincipal("s2"), "s2")
	require.NoError(t, err)

	assert.Empty(t, res.FailedCourses)
	assert.Equal(t, []string{"A", "C"}, codes(res.CoreCourses))
	assert.Empty(t, res.ElectiveCourses)
	assert.Equal(t, 12, res.MaxCreditHours)
	assert.Equal(t, 6, res.RemainingCreditHours)
	assert.Equal(t, 0.0, res.CurrentGPA)
}

func TestSuggestedCoursesOverBudgetDropsElectives(t *testing.T) {
	f := newEligibilityFixture(t)
	for _, c := range []models.Course{
		mkCourse("c205", "CS205", 2, 4, models.CourseTypeCore, "Computer Science"),
		mkCourse("c206", "CS206", 2, 4, models.CourseTypeCore, "Computer Science"),
		mkCourse("c207", "CS207", 2, 4, models.CourseTypeCore, "Computer Science"),
	} {
		f.courses.courses[c.ID] = c
	}

	res, err := f.service.SuggestedCourses(context.Background(), studentPrincipal("s1"), "s1")
	require.NoError(t, err)

	assert.Len(t, res.CoreCourses, 4, "core courses are listed even past the credit limit")
	assert.Equal(t, 15, res.MaxCreditHours)
	assert.Equal(t, -3, res.RemainingCreditHours)
	assert.Empty(t, res.ElectiveCourses)
}
