package models

import "time"

// Grade is a scored assessment component keyed by (enrollment, component).
// Component names are upper-cased before storage so the pair is unique.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Component    string    `db:"component" json:"component"`
	Score        float64   `db:"score" json:"score"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Weight       float64   `db:"weight" json:"weight"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail enriches a grade row with course context for display.
type GradeDetail struct {
	Grade
	CourseCode    string  `db:"course_code" json:"course_code"`
	CourseTitle   string  `db:"course_title" json:"course_title"`
	SectionNumber string  `db:"section_number" json:"section_number"`
	FinalGrade    *string `db:"final_grade" json:"final_grade,omitempty"`
}

// GradeHistoryRow is one completed-course record from a student's history,
// used by the prerequisite check. FinalGrade is nil while ungraded.
type GradeHistoryRow struct {
	CourseCode string  `db:"course_code" json:"course_code"`
	FinalGrade *string `db:"final_grade" json:"final_grade,omitempty"`
}

// FinalGradeResult reports the outcome of a final grade computation.
type FinalGradeResult struct {
	EnrollmentID    string  `json:"enrollment_id"`
	FinalPercentage float64 `json:"final_percentage"`
	LetterGrade     string  `json:"letter_grade"`
	TotalWeight     float64 `json:"total_weight"`
}
