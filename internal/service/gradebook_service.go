package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type gradebookGradeRepo interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error)
	ListDetailByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error)
}

type gradebookEnrollmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
	SetFinalGrade(ctx context.Context, id, letterGrade string) error
}

type gradebookSectionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type gradebookInstructorRepo interface {
	FindByUserID(ctx context.Context, userID string) (*models.Instructor, error)
}

type gradebookStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// GradebookService owns the component ledger and the weighted final grade.
// Component entry is restricted to the section's assigned instructor (ADMIN
// bypasses); students read their own rows only.
type GradebookService struct {
	grades      gradebookGradeRepo
	enrollments gradebookEnrollmentRepo
	sections    gradebookSectionRepo
	instructors gradebookInstructorRepo
	students    gradebookStudentRepo
	access      accessGate
	logger      *zap.Logger
	metrics     *MetricsService
}

// WithMetrics attaches final grade instrumentation. Optional.
func (s *GradebookService) WithMetrics(metrics *MetricsService) *GradebookService {
	s.metrics = metrics
	return s
}

// NewGradebookService constructs a GradebookService.
func NewGradebookService(
	grades gradebookGradeRepo,
	enrollments gradebookEnrollmentRepo,
	sections gradebookSectionRepo,
	instructors gradebookInstructorRepo,
	students gradebookStudentRepo,
	access accessGate,
	logger *zap.Logger,
) *GradebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradebookService{
		grades:      grades,
		enrollments: enrollments,
		sections:    sections,
		instructors: instructors,
		students:    students,
		access:      access,
		logger:      logger,
	}
}

// EnterComponent records or overwrites a scored component for an enrollment.
// Component names are upper-cased so QUIZ and quiz are the same row.
func (s *GradebookService) EnterComponent(ctx context.Context, principal *models.Principal, enrollmentID, component string, score, maxScore, weight float64) (*models.Grade, error) {
	if err := s.access.CanModify(ctx, principal); err != nil {
		return nil, err
	}

	component = strings.ToUpper(strings.TrimSpace(component))
	if component == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "component name is required")
	}
	if maxScore <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max score must be positive")
	}
	if score < 0 || score > maxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and %g", maxScore))
	}
	if weight < 0 || weight > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "weight must be between 0 and 100")
	}

	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSectionInstructor(ctx, principal, enrollment.SectionID); err != nil {
		return nil, err
	}

	grade := &models.Grade{
		EnrollmentID: enrollment.ID,
		Component:    component,
		Score:        score,
		MaxScore:     maxScore,
		Weight:       weight,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save grade")
	}

	s.logger.Info("grade component saved",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("component", component),
		zap.Float64("score", score),
		zap.Float64("weight", weight))
	return grade, nil
}

// ComputeFinalGrade folds all component rows of an enrollment into a single
// percentage and letter, and persists the letter on the enrollment. The
// weights must cover a full course (sum to at least 100) before a final
// grade exists.
func (s *GradebookService) ComputeFinalGrade(ctx context.Context, principal *models.Principal, enrollmentID string) (*models.FinalGradeResult, error) {
	if err := s.access.CanModify(ctx, principal); err != nil {
		return nil, err
	}
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSectionInstructor(ctx, principal, enrollment.SectionID); err != nil {
		return nil, err
	}

	grades, err := s.grades.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load grades")
	}
	if len(grades) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grade components recorded")
	}

	var totalWeight, weightedSum float64
	for _, grade := range grades {
		totalWeight += grade.Weight
		percentage := roundHalfUp(grade.Score/grade.MaxScore*100, 4)
		weightedSum += roundHalfUp(percentage*grade.Weight/100, 4)
	}
	if totalWeight < 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("Total weight is %g%%, must reach 100%% before computing a final grade", totalWeight))
	}

	finalPercentage := roundHalfUp(weightedSum, 2)
	letter := letterGrade(finalPercentage)

	if err := s.enrollments.SetFinalGrade(ctx, enrollment.ID, letter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save final grade")
	}

	s.metrics.RecordFinalGrade()
	s.logger.Info("final grade computed",
		zap.String("enrollment_id", enrollment.ID),
		zap.Float64("final_percentage", finalPercentage),
		zap.String("letter_grade", letter))

	return &models.FinalGradeResult{
		EnrollmentID:    enrollment.ID,
		FinalPercentage: finalPercentage,
		LetterGrade:     letter,
		TotalWeight:     totalWeight,
	}, nil
}

// GradesForEnrollment returns the component rows of one enrollment. The
// owning student, the section's instructor, and ADMIN may read.
func (s *GradebookService) GradesForEnrollment(ctx context.Context, principal *models.Principal, enrollmentID string) ([]models.Grade, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEnrollmentReader(ctx, principal, enrollment); err != nil {
		return nil, err
	}

	grades, err := s.grades.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load grades")
	}
	return grades, nil
}

// MyGrades returns every component row of the authenticated student with
// course context and the shared final letter of each enrollment.
func (s *GradebookService) MyGrades(ctx context.Context, principal *models.Principal) ([]models.GradeDetail, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students have a personal gradebook")
	}
	student, err := s.students.FindByUserID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student profile")
	}
	grades, err := s.grades.ListDetailByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load grades")
	}
	return grades, nil
}

// Roster returns all enrollment rows of a section for its instructor or ADMIN.
func (s *GradebookService) Roster(ctx context.Context, principal *models.Principal, sectionID string) ([]models.EnrollmentDetail, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	if err := s.ensureSectionInstructor(ctx, principal, sectionID); err != nil {
		return nil, err
	}
	rows, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load roster")
	}
	return rows, nil
}

func (s *GradebookService) loadEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// ensureSectionInstructor requires the principal to be the instructor
// assigned to the section. ADMIN bypasses.
func (s *GradebookService) ensureSectionInstructor(ctx context.Context, principal *models.Principal, sectionID string) error {
	if principal.IsAdmin() {
		return nil
	}
	if principal.Role != models.RoleInstructor {
		return appErrors.Clone(appErrors.ErrForbidden, "only instructors can manage grades")
	}
	instructor, err := s.instructors.FindByUserID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load instructor profile")
	}
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load section")
	}
	if section.InstructorID == nil || *section.InstructorID != instructor.ID {
		return appErrors.Clone(appErrors.ErrNotOwner, "section is assigned to another instructor")
	}
	return nil
}

// ensureEnrollmentReader allows the owning student, the section's
// instructor, and ADMIN to read one enrollment's grades.
func (s *GradebookService) ensureEnrollmentReader(ctx context.Context, principal *models.Principal, enrollment *models.Enrollment) error {
	if principal.IsAdmin() {
		return nil
	}
	if principal.Role == models.RoleStudent {
		student, err := s.students.FindByUserID(ctx, principal.UserID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.ErrNotOwner
			}
			return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student profile")
		}
		if student.ID != enrollment.StudentID {
			return appErrors.ErrNotOwner
		}
		return nil
	}
	return s.ensureSectionInstructor(ctx, principal, enrollment.SectionID)
}

// roundHalfUp rounds v to the given number of decimal places with ties
// going away from zero toward positive infinity (0.5 rounds up).
func roundHalfUp(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Floor(v*shift+0.5) / shift
}

// letterGrade maps a final percentage to its letter.
func letterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	default:
		return "F"
	}
}
