package models

import "time"

// Section is one scheduled offering of a course for a given term.
type Section struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	SectionNumber string    `db:"section_number" json:"section_number"`
	Semester      string    `db:"semester" json:"semester"`
	Year          int       `db:"year" json:"year"`
	Capacity      int       `db:"capacity" json:"capacity"`
	InstructorID  *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	DayTime       string    `db:"day_time" json:"day_time"`
	Room          string    `db:"room" json:"room"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SectionView enriches Section with catalog projections. EnrolledCount is
// always computed from ENROLLED rows at query time, never stored.
type SectionView struct {
	Section
	CourseCode     string `db:"course_code" json:"course_code"`
	CourseTitle    string `db:"course_title" json:"course_title"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	EnrolledCount  int    `db:"enrolled_count" json:"enrolled_count"`
	AvailableSeats int    `json:"available_seats"`
	IsFull         bool   `json:"is_full"`
}

// Derive fills the computed seat fields from capacity and enrolled count.
func (v *SectionView) Derive() {
	v.AvailableSeats = v.Capacity - v.EnrolledCount
	v.IsFull = v.EnrolledCount >= v.Capacity
}
