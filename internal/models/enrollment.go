package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped  EnrollmentStatus = "DROPPED"
)

// Enrollment is the unique lifecycle record for a (student, section) pair.
// FinalGrade lives on the aggregate: the last successful computation wins
// and all component rows share it.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	SectionID    string           `db:"section_id" json:"section_id"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt   time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt    *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	DropDeadline time.Time        `db:"drop_deadline" json:"drop_deadline"`
	FinalGrade   *string          `db:"final_grade" json:"final_grade,omitempty"`
}

// CanDrop reports whether the drop deadline has not yet passed.
func (e *Enrollment) CanDrop(now time.Time) bool {
	return now.Before(e.DropDeadline)
}

// EnrollmentDetail enriches Enrollment with course and section info.
type EnrollmentDetail struct {
	Enrollment
	StudentRollNo  string `db:"student_roll_no" json:"student_roll_no"`
	StudentName    string `db:"student_name" json:"student_name"`
	CourseCode     string `db:"course_code" json:"course_code"`
	CourseTitle    string `db:"course_title" json:"course_title"`
	SectionNumber  string `db:"section_number" json:"section_number"`
	Semester       string `db:"semester" json:"semester"`
	Year           int    `db:"year" json:"year"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	DayTime        string `db:"day_time" json:"day_time"`
	Room           string `db:"room" json:"room"`
	CourseCredits  int    `db:"course_credits" json:"course_credits"`
}
