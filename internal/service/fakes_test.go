package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
)

var (
	adminPrincipal = models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	instructorOne  = models.Principal{UserID: "inst-1", Role: models.RoleInstructor}
)

func studentPrincipal(id string) models.Principal {
	return models.Principal{UserID: id, Role: models.RoleStudent}
}

func strPtr(s string) *string { return &s }

type fakeUsers struct {
	users  map[string]*models.User
	passed map[string][]string
	levels map[string]int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}, passed: map[string][]string{}, levels: map[string]int{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	return f.passed[studentID], nil
}

func (f *fakeUsers) UpdateAcademicLevel(ctx context.Context, id string, level int) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.AcademicLevel = level
	f.levels[id] = level
	return nil
}

type fakeHolds struct {
	holds map[string][]models.Hold
}

func (f *fakeHolds) ListByStudent(ctx context.Context, studentID string) ([]models.Hold, error) {
	if f == nil {
		return nil, nil
	}
	return f.holds[studentID], nil
}

func (f *fakeHolds) Create(ctx context.Context, hold *models.Hold) error {
	if f.holds == nil {
		f.holds = map[string][]models.Hold{}
	}
	hold.ID = "hold-" + hold.StudentID
	f.holds[hold.StudentID] = append(f.holds[hold.StudentID], *hold)
	return nil
}

func (f *fakeHolds) Delete(ctx context.Context, studentID, holdID string) error {
	for i, h := range f.holds[studentID] {
		if h.ID == holdID {
			f.holds[studentID] = append(f.holds[studentID][:i], f.holds[studentID][i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeCourses struct {
	courses map[string]models.Course
}

func newFakeCourses(courses ...models.Course) *fakeCourses {
	f := &fakeCourses{courses: map[string]models.Course{}}
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return f
}

func (f *fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCourses) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	out := []models.Course{}
	for _, id := range ids {
		if c, ok := f.courses[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourses) ListCandidates(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	out := []models.Course{}
	for _, c := range f.courses {
		if filter.Active != nil && c.IsActive != *filter.Active {
			continue
		}
		if filter.MinLevel > 0 && c.AcademicLevel < filter.MinLevel {
			continue
		}
		if filter.MaxLevel > 0 && c.AcademicLevel > filter.MaxLevel {
			continue
		}
		if filter.Major != "" && !c.OpenTo(filter.Major) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out, _ := f.ListCandidates(ctx, filter)
	return out, len(out), nil
}

func (f *fakeCourses) Create(ctx context.Context, course *models.Course) error {
	for _, c := range f.courses {
		if strings.EqualFold(c.Code, course.Code) || strings.EqualFold(c.Name, course.Name) {
			return repository.ErrDuplicate
		}
	}
	if course.ID == "" {
		course.ID = "course-" + strings.ToLower(course.Code)
	}
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourses) Update(ctx context.Context, course *models.Course) error {
	if _, ok := f.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourses) Deactivate(ctx context.Context, id string) error {
	c, ok := f.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.IsActive = false
	f.courses[id] = c
	return nil
}

type fakePrereqs struct {
	rows []models.CoursePrerequisite
}

func (f *fakePrereqs) ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	out := []models.CoursePrerequisite{}
	for _, p := range f.rows {
		if p.CourseID == courseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePrereqs) ListByCourses(ctx context.Context, courseIDs []string) ([]models.CoursePrerequisite, error) {
	wanted := map[string]bool{}
	for _, id := range courseIDs {
		wanted[id] = true
	}
	out := []models.CoursePrerequisite{}
	for _, p := range f.rows {
		if wanted[p.CourseID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePrereqs) Create(ctx context.Context, prereq *models.CoursePrerequisite) error {
	for _, p := range f.rows {
		if p.CourseID == prereq.CourseID && p.PrerequisiteID == prereq.PrerequisiteID {
			return repository.ErrDuplicate
		}
	}
	f.rows = append(f.rows, *prereq)
	return nil
}

func (f *fakePrereqs) Delete(ctx context.Context, courseID, prerequisiteID string) error {
	for i, p := range f.rows {
		if p.CourseID == courseID && p.PrerequisiteID == prerequisiteID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeOfferings struct {
	byCourse map[string][]models.SemesterCourse
}

func (f *fakeOfferings) ListByCourse(ctx context.Context, courseID string) ([]models.SemesterCourse, error) {
	if f == nil {
		return nil, nil
	}
	return f.byCourse[courseID], nil
}

func (f *fakeOfferings) Create(ctx context.Context, offering *models.SemesterCourse) error {
	if f.byCourse == nil {
		f.byCourse = map[string][]models.SemesterCourse{}
	}
	for _, o := range f.byCourse[offering.CourseID] {
		if o.Semester == offering.Semester && o.AcademicYear == offering.AcademicYear {
			return repository.ErrDuplicate
		}
	}
	f.byCourse[offering.CourseID] = append(f.byCourse[offering.CourseID], *offering)
	return nil
}

// fakeRegistrations mirrors the unique (student, course, semester, year) index.
type fakeRegistrations struct {
	courses *fakeCourses
	rows    []models.Registration
	nextID  int
}

func (f *fakeRegistrations) Create(ctx context.Context, reg *models.Registration) error {
	for i, r := range f.rows {
		if r.StudentID == reg.StudentID && r.CourseID == reg.CourseID && r.Semester == reg.Semester && r.AcademicYear == reg.AcademicYear {
			if !r.Status.Withdrawn() {
				return repository.ErrDuplicate
			}
			reg.ID = r.ID
			reg.Status = models.RegistrationPending
			f.rows[i] = *reg
			return nil
		}
	}
	f.nextID++
	reg.ID = fmt.Sprintf("reg-%d", f.nextID)
	reg.Status = models.RegistrationPending
	f.rows = append(f.rows, *reg)
	return nil
}

func (f *fakeRegistrations) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	for _, r := range f.rows {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrations) FindForTerm(ctx context.Context, studentID, courseID string, semester int, academicYear string) (*models.Registration, error) {
	for _, r := range f.rows {
		if r.StudentID == studentID && r.CourseID == courseID && r.Semester == semester && r.AcademicYear == academicYear {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrations) ListByStudent(ctx context.Context, studentID string, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	out := []models.RegistrationDetail{}
	for _, r := range f.rows {
		if r.StudentID != studentID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		detail := models.RegistrationDetail{Registration: r}
		if c, ok := f.courses.courses[r.CourseID]; ok {
			detail.CourseCode = c.Code
			detail.CreditHours = c.CreditHours
		}
		out = append(out, detail)
	}
	return out, nil
}

func (f *fakeRegistrations) SumInFlightCreditHours(ctx context.Context, studentID string, semester int, academicYear string) (int, error) {
	total := 0
	for _, r := range f.rows {
		if r.StudentID == studentID && r.Semester == semester && r.AcademicYear == academicYear && r.Status.InFlight() {
			total += f.courses.courses[r.CourseID].CreditHours
		}
	}
	return total, nil
}

func (f *fakeRegistrations) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, approvedBy *string) error {
	for i, r := range f.rows {
		if r.ID == id {
			f.rows[i].Status = status
			if approvedBy != nil {
				f.rows[i].ApprovedBy = approvedBy
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeHistory struct {
	byStudent map[string]StudentHistory
}

func (f *fakeHistory) Load(ctx context.Context, studentID string) (StudentHistory, error) {
	if f == nil || f.byStudent[studentID] == nil {
		return StudentHistory{}, nil
	}
	return f.byStudent[studentID], nil
}

func historyOf(records ...models.GradedCourse) StudentHistory {
	h := StudentHistory{}
	for _, r := range records {
		h[r.CourseID] = r
	}
	return h
}

type fakeGPARules struct {
	rules []models.GPARule
}

func (f *fakeGPARules) FindForGPA(ctx context.Context, gpa float64) (*models.GPARule, error) {
	var best *models.GPARule
	for i := range f.rules {
		r := f.rules[i]
		if r.Contains(gpa) && (best == nil || r.MinGPA > best.MinGPA) {
			best = &r
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	return best, nil
}

func (f *fakeGPARules) List(ctx context.Context) ([]models.GPARule, error) {
	return append([]models.GPARule(nil), f.rules...), nil
}

func (f *fakeGPARules) FindByID(ctx context.Context, id string) (*models.GPARule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGPARules) Create(ctx context.Context, rule *models.GPARule) error {
	if rule.ID == "" {
		rule.ID = "rule-new"
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeGPARules) Update(ctx context.Context, rule *models.GPARule) error {
	for i, r := range f.rules {
		if r.ID == rule.ID {
			f.rules[i] = *rule
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeGPARules) Delete(ctx context.Context, id string) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeProgressions struct {
	rules []models.LevelProgression
}

func (f *fakeProgressions) FindByLevels(ctx context.Context, fromLevel, toLevel int) (*models.LevelProgression, error) {
	for _, r := range f.rules {
		if r.FromLevel == fromLevel && r.ToLevel == toLevel {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProgressions) List(ctx context.Context) ([]models.LevelProgression, error) {
	return f.rules, nil
}

func (f *fakeProgressions) Create(ctx context.Context, rule *models.LevelProgression) error {
	for _, r := range f.rules {
		if r.FromLevel == rule.FromLevel && r.ToLevel == rule.ToLevel {
			return repository.ErrDuplicate
		}
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeProgressions) Delete(ctx context.Context, id string) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) types() []models.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationType, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

func graded(courseID, code string, credits int, letter models.LetterGrade) models.GradedCourse {
	return models.GradedCourse{CourseID: courseID, CourseCode: code, CreditHours: credits, LetterGrade: letter}
}

func mkCourse(id, code string, level, credits int, kind models.CourseType, majors ...string) models.Course {
	if len(majors) == 0 {
		majors = []string{models.GeneralMajor}
	}
	return models.Course{
		ID:            id,
		Code:          code,
		Name:          code + " course",
		CreditHours:   credits,
		AcademicLevel: level,
		CourseType:    kind,
		Majors:        majors,
		IsActive:      true,
	}
}

type fakeEnrollments struct {
	byCourse map[string][]string
}

func (f *fakeEnrollments) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, id := range f.byCourse[courseID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEnrollments) ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	return append([]string(nil), f.byCourse[courseID]...), nil
}

type fakeAttendance struct {
	rows     map[string]models.Attendance
	bulkErr  error
	upserted int
}

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{rows: map[string]models.Attendance{}}
}

func attendanceKey(a models.Attendance) string {
	return a.StudentID + "|" + a.CourseID + "|" + a.Date.Format("2006-01-02")
}

func (f *fakeAttendance) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	key := attendanceKey(*record)
	if existing, ok := f.rows[key]; ok {
		record.ID = existing.ID
	} else {
		record.ID = fmt.Sprintf("att-%d", len(f.rows)+1)
	}
	f.rows[key] = *record
	f.upserted++
	copied := *record
	return &copied, nil
}

func (f *fakeAttendance) BulkUpsert(ctx context.Context, records []models.Attendance) ([]models.Attendance, error) {
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	out := make([]models.Attendance, 0, len(records))
	for i := range records {
		stored, _ := f.Upsert(ctx, &records[i])
		out = append(out, *stored)
	}
	return out, nil
}

func (f *fakeAttendance) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	out := []models.Attendance{}
	for _, r := range f.rows {
		if filter.CourseID != "" && r.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return attendanceKey(out[i]) < attendanceKey(out[j]) })
	return out, nil
}

func (f *fakeAttendance) Summary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error) {
	summary := &models.AttendanceSummary{}
	for _, r := range f.rows {
		if r.StudentID != studentID || r.CourseID != courseID {
			continue
		}
		summary.Total++
		switch r.Status {
		case models.AttendancePresent:
			summary.Present++
		case models.AttendanceAbsent:
			summary.Absent++
		case models.AttendanceLate:
			summary.Late++
		case models.AttendanceExcused:
			summary.Excused++
		}
	}
	summary.ComputePercent()
	return summary, nil
}

type fakeQuizzes struct {
	quizzes     map[string]models.Quiz
	submissions []models.QuizSubmission
	nextID      int
}

func newFakeQuizzes(quizzes ...models.Quiz) *fakeQuizzes {
	f := &fakeQuizzes{quizzes: map[string]models.Quiz{}}
	for _, q := range quizzes {
		f.quizzes[q.ID] = q
	}
	return f
}

func (f *fakeQuizzes) Create(ctx context.Context, quiz *models.Quiz) error {
	f.nextID++
	quiz.ID = fmt.Sprintf("quiz-%d", f.nextID)
	f.quizzes[quiz.ID] = *quiz
	return nil
}

func (f *fakeQuizzes) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	q, ok := f.quizzes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	q.Questions = append(models.QuizQuestions(nil), q.Questions...)
	return &q, nil
}

func (f *fakeQuizzes) ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error) {
	out := []models.Quiz{}
	for _, q := range f.quizzes {
		if q.CourseID == courseID {
			q.Questions = append(models.QuizQuestions(nil), q.Questions...)
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuizzes) Update(ctx context.Context, quiz *models.Quiz) error {
	if _, ok := f.quizzes[quiz.ID]; !ok {
		return sql.ErrNoRows
	}
	f.quizzes[quiz.ID] = *quiz
	return nil
}

func (f *fakeQuizzes) Delete(ctx context.Context, id string) error {
	if _, ok := f.quizzes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.quizzes, id)
	return nil
}

func (f *fakeQuizzes) CountSubmissions(ctx context.Context, quizID string) (int, error) {
	n := 0
	for _, s := range f.submissions {
		if s.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (f *fakeQuizzes) CreateSubmission(ctx context.Context, sub *models.QuizSubmission) error {
	for _, s := range f.submissions {
		if s.QuizID == sub.QuizID && s.StudentID == sub.StudentID {
			return repository.ErrDuplicate
		}
	}
	sub.ID = fmt.Sprintf("sub-%d", len(f.submissions)+1)
	f.submissions = append(f.submissions, *sub)
	return nil
}

func (f *fakeQuizzes) ListSubmissions(ctx context.Context, quizID string) ([]models.QuizSubmission, error) {
	out := []models.QuizSubmission{}
	for _, s := range f.submissions {
		if s.QuizID == quizID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeQuizzes) FindSubmission(ctx context.Context, quizID, studentID string) (*models.QuizSubmission, error) {
	for _, s := range f.submissions {
		if s.QuizID == quizID && s.StudentID == studentID {
			copied := s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}
