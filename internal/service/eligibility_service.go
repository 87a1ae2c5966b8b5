package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type eligibilityUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type holdLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Hold, error)
}

type candidateCourseReader interface {
	ListCandidates(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type studentRegistrationLister interface {
	ListByStudent(ctx context.Context, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
}

// EligibilityService computes the courses a student may register for.
type EligibilityService struct {
	users         eligibilityUserReader
	holds         holdLister
	courses       candidateCourseReader
	registrations studentRegistrationLister
	prereqs       prerequisiteLister
	history       historyLoader
	checker       *PrerequisiteChecker
	calculator    *AcademicCalculator
	cache         *CacheService
	metrics       *MetricsService
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// EligibilityServiceDeps groups the collaborators of EligibilityService.
type EligibilityServiceDeps struct {
	Users         eligibilityUserReader
	Holds         holdLister
	Courses       candidateCourseReader
	Registrations studentRegistrationLister
	Prerequisites prerequisiteLister
	History       historyLoader
	Calculator    *AcademicCalculator
	Cache         *CacheService
	Metrics       *MetricsService
	CacheTTL      time.Duration
	Logger        *zap.Logger
}

// NewEligibilityService constructs the service.
func NewEligibilityService(deps EligibilityServiceDeps) *EligibilityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		users:         deps.Users,
		holds:         deps.Holds,
		courses:       deps.Courses,
		registrations: deps.Registrations,
		prereqs:       deps.Prerequisites,
		history:       deps.History,
		checker:       NewPrerequisiteChecker(deps.Prerequisites, deps.History),
		calculator:    deps.Calculator,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		cacheTTL:      deps.CacheTTL,
		logger:        logger,
	}
}

// CheckPrerequisites reports the prerequisite verdict for one course.
func (s *EligibilityService) CheckPrerequisites(ctx context.Context, principal models.Principal, studentID, courseID string) (dto.PrerequisiteResult, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return dto.PrerequisiteResult{}, err
	}
	if _, err := loadStudent(ctx, s.users, studentID); err != nil {
		return dto.PrerequisiteResult{}, err
	}
	courses, err := s.courses.FindByIDs(ctx, []string{courseID})
	if err != nil {
		return dto.PrerequisiteResult{}, internalError(err, "failed to load course")
	}
	if len(courses) == 0 {
		return dto.PrerequisiteResult{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	result, err := s.checker.Check(ctx, studentID, courseID)
	if err != nil {
		return dto.PrerequisiteResult{}, internalError(err, "failed to evaluate prerequisites")
	}
	return result, nil
}

// SuggestedCourses returns the failed, core and budget-filtered elective
// courses the student may register for. Results are cached per student and
// invalidated by registration and grade writes.
func (s *EligibilityService) SuggestedCourses(ctx context.Context, principal models.Principal, studentID string) (*dto.SuggestedCourses, error) {
	if err := requireStudentAccess(principal, studentID); err != nil {
		return nil, err
	}

	var cached dto.SuggestedCourses
	if s.cache.Get(ctx, suggestionsKey(studentID), &cached) {
		return &cached, nil
	}

	start := time.Now()
	result, err := s.computeSuggestions(ctx, studentID)
	s.metrics.ObserveSuggestions(time.Since(start))
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, suggestionsKey(studentID), result, s.cacheTTL)
	return result, nil
}

func (s *EligibilityService) computeSuggestions(ctx context.Context, studentID string) (*dto.SuggestedCourses, error) {
	holds, err := s.holds.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load holds")
	}
	if restrictingHold(holds) != nil {
		s.logger.Info("suggestions blocked by hold", zap.String("student_id", studentID))
		return nil, appErrors.Clone(appErrors.ErrRegistrationHold, "registration is blocked by a hold on the student account")
	}

	student, err := loadStudent(ctx, s.users, studentID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.Load(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load academic history")
	}
	passedIDs, err := s.users.ListPassedCourseIDs(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load passed courses")
	}
	regs, err := s.registrations.ListByStudent(ctx, studentID, models.RegistrationFilter{})
	if err != nil {
		return nil, internalError(err, "failed to load registrations")
	}

	gpa := s.calculator.EffectiveGPA(student, history)
	maxCredits := s.calculator.MaxCreditHours(ctx, gpa)

	excluded := make(map[string]bool, len(passedIDs)+len(regs))
	for _, id := range passedIDs {
		excluded[id] = true
	}
	inFlight := make(map[string]bool, len(regs))
	for _, reg := range regs {
		if reg.Status.InFlight() {
			inFlight[reg.CourseID] = true
			excluded[reg.CourseID] = true
		}
	}
	for id := range history {
		// passed courses are done; failed ones are offered separately for retake
		excluded[id] = true
	}

	minLevel, maxLevel := levelWindow(student.AcademicLevel, history.Completed())
	core, electives, err := s.eligibleCourses(ctx, student, minLevel, maxLevel, excluded, history, false)
	if err != nil {
		return nil, err
	}
	if needsFoundationalCourses(student.AcademicLevel, len(core)+len(electives)) {
		s.logger.Info("applying foundational fallback", zap.String("student_id", studentID), zap.Int("level", student.AcademicLevel))
		core, electives, err = s.eligibleCourses(ctx, student, models.MinAcademicLevel, models.MinAcademicLevel, excluded, history, true)
		if err != nil {
			return nil, err
		}
	}

	failed, err := s.failedCourses(ctx, history, passedIDs, inFlight)
	if err != nil {
		return nil, err
	}

	remaining := maxCredits - sumCreditHours(failed) - sumCreditHours(core)
	return &dto.SuggestedCourses{
		FailedCourses:        failed,
		CoreCourses:          core,
		ElectiveCourses:      packElectives(electives, student.AcademicLevel, remaining),
		MaxCreditHours:       maxCredits,
		CurrentGPA:           gpa,
		CurrentCreditHours:   student.CompletedCreditHours,
		RemainingCreditHours: remaining,
		Holds:                holds,
		StudentInfo: dto.StudentInfo{
			ID:            student.ID,
			FullName:      student.FullName,
			Major:         student.Major,
			AcademicLevel: student.AcademicLevel,
			Semester:      student.Semester,
		},
	}, nil
}

// eligibleCourses loads candidates in the level window, drops excluded ones,
// filters by prerequisites and buckets them by course type. With
// foundationalOnly set, only courses without any prerequisite rows pass.
func (s *EligibilityService) eligibleCourses(ctx context.Context, student *models.User, minLevel, maxLevel int, excluded map[string]bool, history StudentHistory, foundationalOnly bool) ([]models.Course, []models.Course, error) {
	active := true
	candidates, err := s.courses.ListCandidates(ctx, models.CourseFilter{
		Active:   &active,
		Major:    student.Major,
		MinLevel: minLevel,
		MaxLevel: maxLevel,
	})
	if err != nil {
		return nil, nil, internalError(err, "failed to load candidate courses")
	}

	pool := make([]models.Course, 0, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if excluded[c.ID] || !c.OpenTo(student.Major) {
			continue
		}
		pool = append(pool, c)
		ids = append(ids, c.ID)
	}

	prereqRows, err := s.prereqs.ListByCourses(ctx, ids)
	if err != nil {
		return nil, nil, internalError(err, "failed to load prerequisites")
	}
	prereqs := groupPrerequisites(prereqRows)

	core := []models.Course{}
	electives := []models.Course{}
	for _, c := range pool {
		rows := prereqs[c.ID]
		if len(rows) > 0 && (foundationalOnly || !evaluatePrerequisites(rows, history).Passed) {
			continue
		}
		if c.CourseType == models.CourseTypeElective {
			electives = append(electives, c)
		} else {
			core = append(core, c)
		}
	}
	sortByLevelAndCode(core)
	sortByLevelAndCode(electives)
	return core, electives, nil
}

// failedCourses returns active courses whose latest attempt failed and that
// are neither passed since nor already registered again.
func (s *EligibilityService) failedCourses(ctx context.Context, history StudentHistory, passedIDs []string, inFlight map[string]bool) ([]models.Course, error) {
	passed := make(map[string]bool, len(passedIDs))
	for _, id := range passedIDs {
		passed[id] = true
	}
	ids := make([]string, 0)
	for _, id := range history.FailedCourseIDs() {
		if !passed[id] && !inFlight[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	courses, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to load failed courses")
	}
	failed := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if c.IsActive {
			failed = append(failed, c)
		}
	}
	sortByLevelAndCode(failed)
	return failed, nil
}

// packElectives orders electives at the student's level first, then by
// ascending credit hours, then code, and keeps each one that still fits the
// remaining budget. This is first-fit, not an optimal packing.
func packElectives(electives []models.Course, level, budget int) []models.Course {
	ordered := make([]models.Course, len(electives))
	copy(ordered, electives)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if (a.AcademicLevel == level) != (b.AcademicLevel == level) {
			return a.AcademicLevel == level
		}
		if a.CreditHours != b.CreditHours {
			return a.CreditHours < b.CreditHours
		}
		return a.Code < b.Code
	})

	packed := []models.Course{}
	used := 0
	for _, c := range ordered {
		if used+c.CreditHours > budget {
			continue
		}
		used += c.CreditHours
		packed = append(packed, c)
	}
	return packed
}

func restrictingHold(holds []models.Hold) *models.Hold {
	for i := range holds {
		if holds[i].RestrictRegistration {
			return &holds[i]
		}
	}
	return nil
}

func sumCreditHours(courses []models.Course) int {
	total := 0
	for _, c := range courses {
		total += c.CreditHours
	}
	return total
}

func sortByLevelAndCode(courses []models.Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].AcademicLevel != courses[j].AcademicLevel {
			return courses[i].AcademicLevel < courses[j].AcademicLevel
		}
		return courses[i].Code < courses[j].Code
	})
}
