package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type statsEnrollmentRepo interface {
	StatusCountsBySection(ctx context.Context, sectionID string) (total, enrolled, dropped int, err error)
	FinalGradeHistogram(ctx context.Context, sectionID string) (map[string]int, error)
}

type statsSectionRepo interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.SectionView, error)
}

type statsInstructorRepo interface {
	FindByUserID(ctx context.Context, userID string) (*models.Instructor, error)
}

// StatsService aggregates per-section enrollment and grade numbers. The
// histogram counts each active enrollment's final letter once; enrollments
// without a final grade are simply absent from the distribution.
type StatsService struct {
	enrollments statsEnrollmentRepo
	sections    statsSectionRepo
	instructors statsInstructorRepo
	access      accessGate
	logger      *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(enrollments statsEnrollmentRepo, sections statsSectionRepo, instructors statsInstructorRepo, access accessGate, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{enrollments: enrollments, sections: sections, instructors: instructors, access: access, logger: logger}
}

// MySections lists the sections assigned to the acting instructor, with
// seat projections.
func (s *StatsService) MySections(ctx context.Context, principal *models.Principal) ([]models.SectionView, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	if principal.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors have assigned sections")
	}
	instructor, err := s.instructors.FindByUserID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load instructor profile")
	}
	views, err := s.sections.ListByInstructor(ctx, instructor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list assigned sections")
	}
	return views, nil
}

// SectionStatistics returns the status counts and grade distribution of one
// section. Restricted to the assigned instructor and ADMIN.
func (s *StatsService) SectionStatistics(ctx context.Context, principal *models.Principal, sectionID string) (*models.SectionStatistics, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load section")
	}
	if !principal.IsAdmin() {
		if principal.Role != models.RoleInstructor {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can view section statistics")
		}
		instructor, err := s.instructors.FindByUserID(ctx, principal.UserID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor profile not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load instructor profile")
		}
		if section.InstructorID == nil || *section.InstructorID != instructor.ID {
			return nil, appErrors.Clone(appErrors.ErrNotOwner, "section is assigned to another instructor")
		}
	}

	total, enrolled, dropped, err := s.enrollments.StatusCountsBySection(ctx, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to count enrollments")
	}
	if total == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "No students enrolled in this section")
	}
	histogram, err := s.enrollments.FinalGradeHistogram(ctx, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to build grade distribution")
	}

	return &models.SectionStatistics{
		SectionID:         section.ID,
		TotalStudents:     total,
		EnrolledStudents:  enrolled,
		DroppedStudents:   dropped,
		GradeDistribution: histogram,
	}, nil
}
