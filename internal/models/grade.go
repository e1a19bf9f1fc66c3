package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RubricItem is a weighted grading category of a course. Weight is a fraction in [0,1].
type RubricItem struct {
	ID        string          `db:"id" json:"id"`
	CourseID  string          `db:"course_id" json:"course_id"`
	Name      string          `db:"name" json:"name"`
	Weight    decimal.Decimal `db:"weight" json:"weight"`
	Category  string          `db:"category" json:"category"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// GradeEntry stores the score of one enrollment for one rubric item.
type GradeEntry struct {
	ID           string          `db:"id" json:"id"`
	EnrollmentID string          `db:"enrollment_id" json:"enrollment_id"`
	RubricItemID string          `db:"rubric_item_id" json:"rubric_item_id"`
	Score        decimal.Decimal `db:"score" json:"score"`
	Note         *string         `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// ClassStatistics summarises the weighted averages of a course roster.
type ClassStatistics struct {
	Total     int             `json:"total"`
	Mean      decimal.Decimal `json:"mean"`
	PassCount int             `json:"pass_count"`
	FailCount int             `json:"fail_count"`
	PassRate  decimal.Decimal `json:"pass_rate"`
}

// EnrollmentAverage is the presented weighted average of one enrollment.
type EnrollmentAverage struct {
	EnrollmentID string              `json:"enrollment_id"`
	StudentID    string              `json:"student_id,omitempty"`
	StudentName  string              `json:"student_name,omitempty"`
	Average      decimal.NullDecimal `json:"average"`
	GradedWeight decimal.Decimal     `json:"graded_weight"`
	Passed       bool                `json:"passed"`
}

// CourseStatistics aggregates per-student averages and class statistics for a course.
type CourseStatistics struct {
	CourseID      string              `json:"course_id"`
	PassThreshold decimal.Decimal     `json:"pass_threshold"`
	Policy        string              `json:"missing_grade_policy"`
	Students      []EnrollmentAverage `json:"students"`
	Statistics    ClassStatistics     `json:"statistics"`
}

// CourseGradeReport is the printable grade sheet of a course.
type CourseGradeReport struct {
	Course      Course           `json:"course"`
	Statistics  CourseStatistics `json:"statistics"`
	GeneratedAt time.Time        `json:"generated_at"`
}
