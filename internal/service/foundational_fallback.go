package service

import "github.com/noah-isme/lms-api/internal/models"

// The foundational-fallback policy unblocks students who were promoted past
// level 1 without taking foundational courses. It widens the level window
// down to level 1 while the student has no course results at all, and
// offers prerequisite-free level-1 courses as a last resort when nothing
// else is eligible.

// levelWindow returns the inclusive range of course levels open to a student.
func levelWindow(level, completedCourses int) (int, int) {
	maxLevel := level + 1
	if maxLevel > models.MaxAcademicLevel {
		maxLevel = models.MaxAcademicLevel
	}
	if level > models.MinAcademicLevel && completedCourses == 0 {
		return models.MinAcademicLevel, maxLevel
	}
	return level, maxLevel
}

// needsFoundationalCourses reports whether the last-resort level-1 pass applies.
func needsFoundationalCourses(level, eligibleCourses int) bool {
	return level > models.MinAcademicLevel && eligibleCourses == 0
}
