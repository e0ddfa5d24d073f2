package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type gradeRepoStub struct {
	byEnrollment map[string][]models.Grade
	details      []models.GradeDetail
	upserted     []models.Grade
}

func (s *gradeRepoStub) Upsert(ctx context.Context, grade *models.Grade) error {
	s.upserted = append(s.upserted, *grade)
	return nil
}

func (s *gradeRepoStub) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	return s.byEnrollment[enrollmentID], nil
}

func (s *gradeRepoStub) ListDetailByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	return s.details, nil
}

type gradebookEnrollmentStub struct {
	byID       map[string]*models.Enrollment
	roster     []models.EnrollmentDetail
	finalGrade string
	finalFor   string
}

func (s *gradebookEnrollmentStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := s.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gradebookEnrollmentStub) ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	return s.roster, nil
}

func (s *gradebookEnrollmentStub) SetFinalGrade(ctx context.Context, id, letterGrade string) error {
	s.finalFor = id
	s.finalGrade = letterGrade
	return nil
}

type instructorRepoStub struct {
	instructors map[string]*models.Instructor
}

func (s instructorRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Instructor, error) {
	if i, ok := s.instructors[userID]; ok {
		copied := *i
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func instructorPrincipal() *models.Principal {
	return &models.Principal{UserID: "user-ins", Username: "instructor", Role: models.RoleInstructor}
}

func newGradebookFixture() (*GradebookService, *gradeRepoStub, *gradebookEnrollmentStub) {
	grades := &gradeRepoStub{byEnrollment: map[string][]models.Grade{}}
	insID := "ins-1"
	enrollments := &gradebookEnrollmentStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled},
	}}
	sections := sectionRepoStub{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", CourseID: "crs-1", InstructorID: &insID, Capacity: 30},
	}}
	instructors := instructorRepoStub{instructors: map[string]*models.Instructor{
		"user-ins": {ID: "ins-1", UserID: "user-ins", FullName: "Test Instructor"},
	}}
	students := studentRepoStub{students: map[string]*models.Student{
		"user-1": {ID: "stu-1", UserID: "user-1"},
	}}

	svc := NewGradebookService(grades, enrollments, sections, instructors, students, accessGateStub{}, nil)
	return svc, grades, enrollments
}

func TestEnterComponentUpperCasesName(t *testing.T) {
	svc, grades, _ := newGradebookFixture()

	grade, err := svc.EnterComponent(context.Background(), instructorPrincipal(), "enr-1", " quiz ", 18, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, "QUIZ", grade.Component)
	require.Len(t, grades.upserted, 1)
	assert.Equal(t, 18.0, grades.upserted[0].Score)
}

func TestEnterComponentRejectsScoreAboveMax(t *testing.T) {
	svc, _, _ := newGradebookFixture()

	_, err := svc.EnterComponent(context.Background(), instructorPrincipal(), "enr-1", "QUIZ", 25, 20, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnterComponentAcceptsZeroWeight(t *testing.T) {
	svc, grades, _ := newGradebookFixture()

	grade, err := svc.EnterComponent(context.Background(), instructorPrincipal(), "enr-1", "PRACTICE", 10, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, grade.Weight)
	require.Len(t, grades.upserted, 1)
}

func TestEnterComponentRejectsNegativeWeight(t *testing.T) {
	svc, _, _ := newGradebookFixture()

	_, err := svc.EnterComponent(context.Background(), instructorPrincipal(), "enr-1", "QUIZ", 10, 20, -5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnterComponentAllowsDroppedEnrollment(t *testing.T) {
	svc, grades, enrollments := newGradebookFixture()
	enrollments.byID["enr-1"].Status = models.EnrollmentStatusDropped

	// Grade entry keys on the enrollment row, not its status; an instructor
	// can still record work completed before the drop.
	_, err := svc.EnterComponent(context.Background(), instructorPrincipal(), "enr-1", "QUIZ", 10, 20, 20)
	require.NoError(t, err)
	require.Len(t, grades.upserted, 1)
}

func TestEnterComponentRejectsUnassignedInstructor(t *testing.T) {
	svc, _, _ := newGradebookFixture()
	otherID := "ins-other"
	svc.sections = sectionRepoStub{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", InstructorID: &otherID},
	}}

	_, err := svc.EnterComponent(context.Background(), instructorPrincipal(), "enr-1", "QUIZ", 10, 20, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotOwner.Code, appErrors.FromError(err).Code)
}

func TestComputeFinalGradeWeightedAverage(t *testing.T) {
	svc, grades, enrollments := newGradebookFixture()
	grades.byEnrollment["enr-1"] = []models.Grade{
		{EnrollmentID: "enr-1", Component: "QUIZ", Score: 18, MaxScore: 20, Weight: 20},
		{EnrollmentID: "enr-1", Component: "MIDTERM", Score: 24, MaxScore: 30, Weight: 30},
		{EnrollmentID: "enr-1", Component: "FINAL", Score: 45, MaxScore: 50, Weight: 50},
	}

	result, err := svc.ComputeFinalGrade(context.Background(), instructorPrincipal(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, 87.0, result.FinalPercentage)
	assert.Equal(t, "A", result.LetterGrade)
	assert.Equal(t, 100.0, result.TotalWeight)
	assert.Equal(t, "enr-1", enrollments.finalFor)
	assert.Equal(t, "A", enrollments.finalGrade)
}

func TestComputeFinalGradePerfectScore(t *testing.T) {
	svc, grades, _ := newGradebookFixture()
	grades.byEnrollment["enr-1"] = []models.Grade{
		{EnrollmentID: "enr-1", Component: "QUIZ", Score: 20, MaxScore: 20, Weight: 40},
		{EnrollmentID: "enr-1", Component: "FINAL", Score: 50, MaxScore: 50, Weight: 60},
	}

	result, err := svc.ComputeFinalGrade(context.Background(), instructorPrincipal(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.FinalPercentage)
	assert.Equal(t, "A+", result.LetterGrade)
}

func TestComputeFinalGradeRequiresFullWeight(t *testing.T) {
	svc, grades, enrollments := newGradebookFixture()
	grades.byEnrollment["enr-1"] = []models.Grade{
		{EnrollmentID: "enr-1", Component: "QUIZ", Score: 18, MaxScore: 20, Weight: 20},
		{EnrollmentID: "enr-1", Component: "MIDTERM", Score: 24, MaxScore: 30, Weight: 30},
	}

	_, err := svc.ComputeFinalGrade(context.Background(), instructorPrincipal(), "enr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "50")
	assert.Empty(t, enrollments.finalFor, "no final grade persisted on failure")
}

func TestComputeFinalGradeNoComponents(t *testing.T) {
	svc, _, _ := newGradebookFixture()

	_, err := svc.ComputeFinalGrade(context.Background(), instructorPrincipal(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradesForEnrollmentOwnerStudent(t *testing.T) {
	svc, grades, _ := newGradebookFixture()
	grades.byEnrollment["enr-1"] = []models.Grade{{EnrollmentID: "enr-1", Component: "QUIZ"}}

	rows, err := svc.GradesForEnrollment(context.Background(), studentPrincipal(), "enr-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestGradesForEnrollmentRejectsOtherStudent(t *testing.T) {
	svc, _, _ := newGradebookFixture()
	svc.students = studentRepoStub{students: map[string]*models.Student{
		"user-1": {ID: "stu-other", UserID: "user-1"},
	}}

	_, err := svc.GradesForEnrollment(context.Background(), studentPrincipal(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotOwner.Code, appErrors.FromError(err).Code)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 87.0, roundHalfUp(87.0, 2))
	assert.Equal(t, 0.13, roundHalfUp(0.125, 2))
	assert.InDelta(t, 66.6667, roundHalfUp(200.0/3.0, 4), 1e-9)
	assert.InDelta(t, 90.0, roundHalfUp(89.996, 2), 1e-9)
}

func TestLetterGradeThresholds(t *testing.T) {
	cases := map[float64]string{
		95:   "A+",
		90:   "A+",
		89.9: "A",
		80:   "A",
		79.9: "B+",
		70:   "B+",
		60:   "B",
		50:   "C",
		49.9: "F",
		0:    "F",
	}
	for percentage, expected := range cases {
		assert.Equal(t, expected, letterGrade(percentage), "percentage %v", percentage)
	}
}
