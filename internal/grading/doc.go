// Package grading computes weighted course averages and guards the rubric weight budget of a course.
//
// All arithmetic uses decimal values so that weights such as 0.30 + 0.30 + 0.40 sum to exactly 1.
// Functions are pure and safe for concurrent use; callers are responsible for passing a consistent
// snapshot of rubric items and grades.
package grading
