package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/internal/repository"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type registrationEnrollmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	RegisterIfSeatAvailable(ctx context.Context, enrollment *models.Enrollment) error
	ReactivateIfSeatAvailable(ctx context.Context, id, sectionID string, enrolledAt, dropDeadline time.Time) error
	Drop(ctx context.Context, id string, droppedAt time.Time) error
}

type registrationSectionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type registrationCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type registrationStudentRepo interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type gradeHistoryReader interface {
	HistoryByStudent(ctx context.Context, studentID string) ([]models.GradeHistoryRow, error)
}

type dropDeadlineReader interface {
	DropDeadlineDays(ctx context.Context) (int, error)
}

// RegistrationService drives the enrollment lifecycle: register, re-register
// after a drop, and drop before the deadline. All mutations pass the access
// gate first, then the business rules, and finally the seat-guarded write.
type RegistrationService struct {
	enrollments registrationEnrollmentRepo
	sections    registrationSectionRepo
	courses     registrationCourseRepo
	students    registrationStudentRepo
	grades      gradeHistoryReader
	settings    dropDeadlineReader
	access      accessGate
	logger      *zap.Logger
	metrics     *MetricsService
	now         func() time.Time
}

// WithMetrics attaches registration outcome instrumentation. Optional.
func (s *RegistrationService) WithMetrics(metrics *MetricsService) *RegistrationService {
	s.metrics = metrics
	return s
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	enrollments registrationEnrollmentRepo,
	sections registrationSectionRepo,
	courses registrationCourseRepo,
	students registrationStudentRepo,
	grades gradeHistoryReader,
	settings dropDeadlineReader,
	access accessGate,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		enrollments: enrollments,
		sections:    sections,
		courses:     courses,
		students:    students,
		grades:      grades,
		settings:    settings,
		access:      access,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register enrolls the authenticated student into a section. The seat check
// and the write share one transaction in the repository, so a full section
// can never be oversubscribed by concurrent requests.
func (s *RegistrationService) Register(ctx context.Context, principal *models.Principal, sectionID string) (*models.EnrollmentDetail, error) {
	if err := s.access.CanModify(ctx, principal); err != nil {
		return nil, err
	}
	student, err := s.resolveStudent(ctx, principal)
	if err != nil {
		return nil, err
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load section")
	}
	course, err := s.courses.FindByID(ctx, section.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found for section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load course")
	}

	existing, err := s.enrollments.FindByStudentAndSection(ctx, student.ID, section.ID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check existing enrollment")
	}
	if existing != nil && existing.Status == models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Already registered for %s-%s", course.Code, section.SectionNumber))
	}

	if err := s.checkPrerequisites(ctx, student.ID, course); err != nil {
		return nil, err
	}

	days, err := s.settings.DropDeadlineDays(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	deadline := now.AddDate(0, 0, days)

	var enrollmentID string
	if existing != nil {
		// Re-registration reuses the DROPPED row so the (student, section)
		// pair stays unique and old grade rows survive.
		err = s.enrollments.ReactivateIfSeatAvailable(ctx, existing.ID, section.ID, now, deadline)
		enrollmentID = existing.ID
	} else {
		enrollment := &models.Enrollment{
			StudentID:    student.ID,
			SectionID:    section.ID,
			EnrolledAt:   now,
			DropDeadline: deadline,
		}
		err = s.enrollments.RegisterIfSeatAvailable(ctx, enrollment)
		enrollmentID = enrollment.ID
	}
	if err != nil {
		if errors.Is(err, repository.ErrSectionFull) {
			s.metrics.RecordRegistration("full")
			return nil, appErrors.Clone(appErrors.ErrConflict, "Section is full. No seats available.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to register")
	}

	if existing != nil {
		s.metrics.RecordRegistration("reactivated")
	} else {
		s.metrics.RecordRegistration("registered")
	}
	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("section_id", section.ID),
		zap.String("course_code", course.Code),
		zap.Bool("reactivated", existing != nil))

	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Drop marks the enrollment DROPPED. Only the owning student may drop, only
// while ENROLLED, and only before the per-enrollment deadline. The deadline
// is fixed at registration time; a later settings change does not move it.
func (s *RegistrationService) Drop(ctx context.Context, principal *models.Principal, enrollmentID string) (*models.EnrollmentDetail, error) {
	if err := s.access.CanModify(ctx, principal); err != nil {
		return nil, err
	}
	student, err := s.resolveStudent(ctx, principal)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != student.ID {
		return nil, appErrors.ErrNotOwner
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is not active")
	}
	now := s.now()
	if !enrollment.CanDrop(now) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("Drop deadline has passed (%s)", enrollment.DropDeadline.Format("2006-01-02")))
	}

	if err := s.enrollments.Drop(ctx, enrollment.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to drop enrollment")
	}

	s.logger.Info("enrollment dropped",
		zap.String("student_id", student.ID),
		zap.String("enrollment_id", enrollment.ID))

	detail, err := s.enrollments.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}
	return detail, nil
}

// MyRegistrations returns the full lifecycle history of the authenticated
// student, dropped rows included.
func (s *RegistrationService) MyRegistrations(ctx context.Context, principal *models.Principal) ([]models.EnrollmentDetail, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	student, err := s.resolveStudent(ctx, principal)
	if err != nil {
		return nil, err
	}
	rows, err := s.enrollments.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list registrations")
	}
	return rows, nil
}

// MyTimetable returns only the active enrollments of the student.
func (s *RegistrationService) MyTimetable(ctx context.Context, principal *models.Principal) ([]models.EnrollmentDetail, error) {
	rows, err := s.MyRegistrations(ctx, principal)
	if err != nil {
		return nil, err
	}
	active := make([]models.EnrollmentDetail, 0, len(rows))
	for _, row := range rows {
		if row.Status == models.EnrollmentStatusEnrolled {
			active = append(active, row)
		}
	}
	return active, nil
}

func (s *RegistrationService) resolveStudent(ctx context.Context, principal *models.Principal) (*models.Student, error) {
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can manage registrations")
	}
	student, err := s.students.FindByUserID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student profile")
	}
	return student, nil
}

// checkPrerequisites requires a passing final grade for every prerequisite
// course code. Passing means any final grade other than F; codes compare
// case-insensitively and rows without a final grade do not count.
func (s *RegistrationService) checkPrerequisites(ctx context.Context, studentID string, course *models.Course) error {
	required := course.PrerequisiteCodes()
	if len(required) == 0 {
		return nil
	}

	history, err := s.grades.HistoryByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load grade history")
	}
	passed := make(map[string]bool, len(history))
	for _, row := range history {
		if row.FinalGrade == nil {
			continue
		}
		if strings.EqualFold(*row.FinalGrade, "F") {
			continue
		}
		passed[strings.ToUpper(row.CourseCode)] = true
	}

	for _, code := range required {
		if !passed[strings.ToUpper(code)] {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Prerequisite not met: %s", code))
		}
	}
	return nil
}
