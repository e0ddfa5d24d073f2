package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type adminUserRepo interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetLocked(ctx context.Context, id string, locked bool) error
	ResetFailedLogins(ctx context.Context, id string) error
}

type adminStudentRepo interface {
	FindByRollNo(ctx context.Context, rollNo string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type adminInstructorRepo interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.Instructor, error)
	Create(ctx context.Context, instructor *models.Instructor) error
}

type adminCourseRepo interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
}

type adminSectionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	AssignInstructor(ctx context.Context, sectionID, instructorID string) error
}

// AdminService provisions users, courses and sections, and unlocks accounts.
// Every operation requires the ADMIN role.
type AdminService struct {
	users       adminUserRepo
	students    adminStudentRepo
	instructors adminInstructorRepo
	courses     adminCourseRepo
	sections    adminSectionRepo
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(
	users adminUserRepo,
	students adminStudentRepo,
	instructors adminInstructorRepo,
	courses adminCourseRepo,
	sections adminSectionRepo,
	validate *validator.Validate,
	logger *zap.Logger,
) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		users:       users,
		students:    students,
		instructors: instructors,
		courses:     courses,
		sections:    sections,
		validator:   validate,
		logger:      logger,
	}
}

// CreateStudent provisions a STUDENT account and its profile.
func (s *AdminService) CreateStudent(ctx context.Context, principal *models.Principal, req *models.CreateStudentRequest) (*models.Student, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid student payload")
	}
	if _, err := s.students.FindByRollNo(ctx, req.RollNo); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roll number already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check roll number")
	}

	user, err := s.createUser(ctx, req.Username, req.Password, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		UserID:   user.ID,
		RollNo:   req.RollNo,
		FullName: req.FullName,
		Program:  req.Program,
		Year:     req.Year,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create student")
	}

	s.logger.Info("student provisioned",
		zap.String("student_id", student.ID),
		zap.String("roll_no", student.RollNo),
		zap.String("created_by", principal.UserID))
	return student, nil
}

// CreateInstructor provisions an INSTRUCTOR account and its profile.
func (s *AdminService) CreateInstructor(ctx context.Context, principal *models.Principal, req *models.CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid instructor payload")
	}
	if _, err := s.instructors.FindByEmployeeID(ctx, req.EmployeeID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee ID already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check employee ID")
	}

	user, err := s.createUser(ctx, req.Username, req.Password, models.RoleInstructor)
	if err != nil {
		return nil, err
	}

	instructor := &models.Instructor{
		UserID:     user.ID,
		EmployeeID: req.EmployeeID,
		FullName:   req.FullName,
		Department: req.Department,
		Email:      req.Email,
		Phone:      req.Phone,
	}
	if err := s.instructors.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create instructor")
	}

	s.logger.Info("instructor provisioned",
		zap.String("instructor_id", instructor.ID),
		zap.String("employee_id", instructor.EmployeeID),
		zap.String("created_by", principal.UserID))
	return instructor, nil
}

// CreateCourse adds a course to the catalog.
func (s *AdminService) CreateCourse(ctx context.Context, principal *models.Principal, req *models.CreateCourseRequest) (*models.Course, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid course payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.courses.FindByCode(ctx, code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check course code")
	}

	course := &models.Course{Code: code, Title: req.Title, Credits: req.Credits}
	if prereqs := strings.TrimSpace(req.Prerequisites); prereqs != "" {
		course.Prerequisites = &prereqs
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// CreateSection schedules a new section of an existing course.
func (s *AdminService) CreateSection(ctx context.Context, principal *models.Principal, req *models.CreateSectionRequest) (*models.Section, error) {
	if err := s.requireAdmin(principal); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid section payload")
	}

	course, err := s.courses.FindByCode(ctx, req.CourseCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load course")
	}

	section := &models.Section{
		CourseID:      course.ID,
		SectionNumber: req.SectionNumber,
		Semester:      req.Semester,
		Year:          req.Year,
		Capacity:      req.Capacity,
		DayTime:       req.DayTime,
		Room:          req.Room,
	}
	if req.InstructorID != "" {
		if _, err := s.instructors.FindByID(ctx, req.InstructorID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load instructor")
		}
		section.InstructorID = &req.InstructorID
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create section")
	}

	s.logger.Info("section created",
		zap.String("section_id", section.ID),
		zap.String("course_code", course.Code),
		zap.String("section_number", section.SectionNumber))
	return section, nil
}

// AssignInstructor puts an instructor in charge of a section.
func (s *AdminService) AssignInstructor(ctx context.Context, principal *models.Principal, sectionID, instructorID string) error {
	if err := s.requireAdmin(principal); err != nil {
		return err
	}
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load section")
	}
	if _, err := s.instructors.FindByID(ctx, instructorID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load instructor")
	}
	if err := s.sections.AssignInstructor(ctx, sectionID, instructorID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to assign instructor")
	}

	s.logger.Info("instructor assigned", zap.String("section_id", sectionID), zap.String("instructor_id", instructorID))
	return nil
}

// UnlockUser clears a lockout and resets the failure counter.
func (s *AdminService) UnlockUser(ctx context.Context, principal *models.Principal, userID string) error {
	if err := s.requireAdmin(principal); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load user")
	}
	if err := s.users.SetLocked(ctx, userID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to unlock user")
	}
	if err := s.users.ResetFailedLogins(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to reset login failures")
	}

	s.logger.Info("user unlocked", zap.String("user_id", userID), zap.String("unlocked_by", principal.UserID))
	return nil
}

func (s *AdminService) requireAdmin(principal *models.Principal) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if !principal.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "administrator role required")
	}
	return nil
}

func (s *AdminService) createUser(ctx context.Context, username, password string, role models.UserRole) (*models.User, error) {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create user")
	}
	return user, nil
}
