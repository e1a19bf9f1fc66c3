package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive  EnrollmentStatus = "ACTIVE"
	EnrollmentStatusDropped EnrollmentStatus = "DROPPED"
)

// Enrollment captures a student's registration to a course.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	JoinedAt    time.Time        `db:"joined_at" json:"joined_at"`
}
