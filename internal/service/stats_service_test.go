package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type statsEnrollmentStub struct {
	total, enrolled, dropped int
	histogram                map[string]int
}

func (s statsEnrollmentStub) StatusCountsBySection(ctx context.Context, sectionID string) (int, int, int, error) {
	return s.total, s.enrolled, s.dropped, nil
}

func (s statsEnrollmentStub) FinalGradeHistogram(ctx context.Context, sectionID string) (map[string]int, error) {
	return s.histogram, nil
}

func newStatsFixture() *StatsService {
	insID := "ins-1"
	sections := sectionRepoStub{
		sections: map[string]*models.Section{
			"sec-1": {ID: "sec-1", InstructorID: &insID, Capacity: 30},
		},
		byInstructor: map[string][]models.SectionView{
			"ins-1": {{Section: models.Section{ID: "sec-1", Capacity: 30}, CourseCode: "CS201", EnrolledCount: 10}},
		},
	}
	instructors := instructorRepoStub{instructors: map[string]*models.Instructor{
		"user-ins": {ID: "ins-1", UserID: "user-ins"},
	}}
	enrollments := statsEnrollmentStub{
		total: 12, enrolled: 10, dropped: 2,
		histogram: map[string]int{"A": 4, "B": 3, "F": 1},
	}
	return NewStatsService(enrollments, sections, instructors, accessGateStub{}, nil)
}

func TestSectionStatisticsForAssignedInstructor(t *testing.T) {
	svc := newStatsFixture()

	stats, err := svc.SectionStatistics(context.Background(), instructorPrincipal(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalStudents)
	assert.Equal(t, 10, stats.EnrolledStudents)
	assert.Equal(t, 2, stats.DroppedStudents)
	assert.Equal(t, 4, stats.GradeDistribution["A"])
	assert.Equal(t, 1, stats.GradeDistribution["F"])
}

func TestSectionStatisticsAdminBypassesAssignment(t *testing.T) {
	svc := newStatsFixture()

	_, err := svc.SectionStatistics(context.Background(), adminPrincipal(), "sec-1")
	require.NoError(t, err)
}

func TestSectionStatisticsRejectsOtherInstructor(t *testing.T) {
	svc := newStatsFixture()
	otherID := "ins-other"
	svc.sections = sectionRepoStub{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", InstructorID: &otherID},
	}}

	_, err := svc.SectionStatistics(context.Background(), instructorPrincipal(), "sec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotOwner.Code, appErrors.FromError(err).Code)
}

func TestSectionStatisticsRejectsStudents(t *testing.T) {
	svc := newStatsFixture()

	_, err := svc.SectionStatistics(context.Background(), studentPrincipal(), "sec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMySectionsForInstructor(t *testing.T) {
	svc := newStatsFixture()

	views, err := svc.MySections(context.Background(), instructorPrincipal())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "CS201", views[0].CourseCode)
}

func TestMySectionsRejectsStudents(t *testing.T) {
	svc := newStatsFixture()

	_, err := svc.MySections(context.Background(), studentPrincipal())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSectionStatisticsFailsWithoutEnrollments(t *testing.T) {
	svc := newStatsFixture()
	svc.enrollments = statsEnrollmentStub{}

	_, err := svc.SectionStatistics(context.Background(), instructorPrincipal(), "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "No students enrolled")
}

func TestSectionStatisticsUnknownSection(t *testing.T) {
	svc := newStatsFixture()

	_, err := svc.SectionStatistics(context.Background(), adminPrincipal(), "sec-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
