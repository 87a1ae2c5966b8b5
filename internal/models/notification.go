package models

import "time"

// NotificationType tags the event behind an in-app notification.
type NotificationType string

const (
	NotificationRegistrationSubmitted NotificationType = "registration_submitted"
	NotificationRegistrationApproved  NotificationType = "registration_approved"
	NotificationRegistrationRejected  NotificationType = "registration_rejected"
	NotificationGradePosted           NotificationType = "grade_posted"
	NotificationLevelProgressed       NotificationType = "level_progressed"
	NotificationQuizCreated           NotificationType = "quiz_created"
)

// Notification is a persisted in-app message.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
