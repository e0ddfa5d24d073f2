package models

// CreateStudentRequest provisions a student profile with its user account.
type CreateStudentRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	RollNo   string `json:"roll_no" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Program  string `json:"program" validate:"required"`
	Year     int    `json:"year" validate:"required,min=1"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// CreateInstructorRequest provisions an instructor profile with its user account.
type CreateInstructorRequest struct {
	Username   string `json:"username" validate:"required,min=3"`
	Password   string `json:"password" validate:"required,min=6"`
	EmployeeID string `json:"employee_id" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	Department string `json:"department" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
}

// CreateCourseRequest adds a course to the catalog. Prerequisites is a
// comma-separated list of course codes.
type CreateCourseRequest struct {
	Code          string `json:"code" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Credits       int    `json:"credits" validate:"required,min=1"`
	Prerequisites string `json:"prerequisites"`
}

// CreateSectionRequest schedules a section of a course for a term.
type CreateSectionRequest struct {
	CourseCode    string `json:"course_code" validate:"required"`
	SectionNumber string `json:"section_number" validate:"required"`
	Semester      string `json:"semester" validate:"required"`
	Year          int    `json:"year" validate:"required,min=2000"`
	Capacity      int    `json:"capacity" validate:"required,min=1"`
	InstructorID  string `json:"instructor_id"`
	DayTime       string `json:"day_time"`
	Room          string `json:"room"`
}

// AssignInstructorRequest assigns an instructor to an existing section.
type AssignInstructorRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
}

// UpdateSettingRequest writes one settings row.
type UpdateSettingRequest struct {
	Value string `json:"value" validate:"required"`
}
