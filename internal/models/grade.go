package models

import "time"

// LetterGrade is a letter on the standard grade-point scale.
type LetterGrade string

const (
	GradeAPlus      LetterGrade = "A+"
	GradeA          LetterGrade = "A"
	GradeAMinus     LetterGrade = "A-"
	GradeBPlus      LetterGrade = "B+"
	GradeB          LetterGrade = "B"
	GradeBMinus     LetterGrade = "B-"
	GradeCPlus      LetterGrade = "C+"
	GradeC          LetterGrade = "C"
	GradeCMinus     LetterGrade = "C-"
	GradeDPlus      LetterGrade = "D+"
	GradeD          LetterGrade = "D"
	GradeDMinus     LetterGrade = "D-"
	GradeF          LetterGrade = "F"
	GradeInProgress LetterGrade = "IP"
	GradeWithdrawn  LetterGrade = "W"
	GradePass       LetterGrade = "Pass"
	GradeNone       LetterGrade = ""
)

var gradePoints = map[LetterGrade]float64{
	GradeAPlus:      4.0,
	GradeA:          4.0,
	GradeAMinus:     3.7,
	GradeBPlus:      3.3,
	GradeB:          3.0,
	GradeBMinus:     2.7,
	GradeCPlus:      2.3,
	GradeC:          2.0,
	GradeCMinus:     1.7,
	GradeDPlus:      1.3,
	GradeD:          1.0,
	GradeDMinus:     0.7,
	GradeF:          0,
	GradeInProgress: 0,
	GradeWithdrawn:  0,
	GradePass:       2.0,
	GradeNone:       0,
}

// letterCutoffs maps a 0-100 total onto a letter, highest first.
var letterCutoffs = []struct {
	min    float64
	letter LetterGrade
}{
	{97, GradeAPlus}, {93, GradeA}, {90, GradeAMinus},
	{87, GradeBPlus}, {83, GradeB}, {80, GradeBMinus},
	{77, GradeCPlus}, {73, GradeC}, {70, GradeCMinus},
	{67, GradeDPlus}, {63, GradeD}, {60, GradeDMinus},
}

// Valid reports whether g is a recognised letter. The empty grade is valid.
func (g LetterGrade) Valid() bool {
	_, ok := gradePoints[g]
	return ok
}

// Points returns the grade-point weight; unknown letters weigh zero.
func (g LetterGrade) Points() float64 {
	return gradePoints[g]
}

// Passing reports whether the grade earns credit.
func (g LetterGrade) Passing() bool {
	return g.Points() > 0
}

// Meets reports whether g is at or above min on the grade-point ordering.
func (g LetterGrade) Meets(min LetterGrade) bool {
	return g.Points() >= min.Points()
}

// LetterForTotal derives the letter for a total score out of 100.
func LetterForTotal(total float64) LetterGrade {
	for _, c := range letterCutoffs {
		if total >= c.min {
			return c.letter
		}
	}
	return GradeF
}

// Grade is a recorded course result. Grade rows survive the registration
// roll-up and form the student's permanent transcript.
type Grade struct {
	ID           string      `db:"id" json:"id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	CourseID     string      `db:"course_id" json:"course_id"`
	InstructorID string      `db:"instructor_id" json:"instructor_id"`
	Semester     int         `db:"semester" json:"semester"`
	AcademicYear string      `db:"academic_year" json:"academic_year"`
	Midterm      float64     `db:"midterm" json:"midterm"`
	FinalExam    float64     `db:"final_exam" json:"final_exam"`
	Assignments  float64     `db:"assignments" json:"assignments"`
	Quizzes      float64     `db:"quizzes" json:"quizzes"`
	TotalGrade   float64     `db:"total_grade" json:"total_grade"`
	LetterGrade  LetterGrade `db:"letter_grade" json:"letter_grade"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// GradedCourse is one weighted entry of a student's academic history.
type GradedCourse struct {
	CourseID     string      `db:"course_id" json:"course_id"`
	CourseCode   string      `db:"course_code" json:"course_code"`
	CourseName   string      `db:"course_name" json:"course_name"`
	CreditHours  int         `db:"credit_hours" json:"credit_hours"`
	LetterGrade  LetterGrade `db:"letter_grade" json:"letter_grade"`
	TotalGrade   float64     `db:"total_grade" json:"total_grade"`
	Semester     int         `db:"semester" json:"semester"`
	AcademicYear string      `db:"academic_year" json:"academic_year"`
	GradedAt     time.Time   `db:"graded_at" json:"graded_at"`
}

// GradeFilter scopes grade listings.
type GradeFilter struct {
	StudentID string
	CourseID  string
}

// RecordGradeRequest posts component scores for a student's course.
type RecordGradeRequest struct {
	StudentID    string  `json:"student_id" validate:"required"`
	CourseID     string  `json:"course_id" validate:"required"`
	Semester     int     `json:"semester" validate:"required,min=1,max=8"`
	AcademicYear string  `json:"academic_year" validate:"required,len=9"`
	Midterm      float64 `json:"midterm" validate:"gte=0"`
	FinalExam    float64 `json:"final_exam" validate:"gte=0"`
	Assignments  float64 `json:"assignments" validate:"gte=0"`
	Quizzes      float64 `json:"quizzes" validate:"gte=0"`
}
