package models

// SectionStatistics aggregates enrollment counts and the distribution of
// final letter grades for a section.
type SectionStatistics struct {
	SectionID         string         `json:"section_id"`
	TotalStudents     int            `json:"total_students"`
	EnrolledStudents  int            `json:"enrolled_students"`
	DroppedStudents   int            `json:"dropped_students"`
	GradeDistribution map[string]int `json:"grade_distribution,omitempty"`
}
