package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-erp-api/internal/models"
	"github.com/noah-isme/univ-erp-api/internal/repository"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type accessGateStub struct {
	readErr   error
	modifyErr error
}

func (a accessGateStub) CanRead(principal *models.Principal) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	return a.readErr
}

func (a accessGateStub) CanModify(ctx context.Context, principal *models.Principal) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	return a.modifyErr
}

type enrollmentRepoStub struct {
	byID          map[string]*models.Enrollment
	byPair        map[string]*models.Enrollment
	registerErr   error
	reactivateErr error

	registered  *models.Enrollment
	reactivated bool
	reactivateDeadline time.Time
	dropped     string
}

func pairKey(studentID, sectionID string) string { return studentID + "|" + sectionID }

func (s *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := s.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentRepoStub) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, err := s.FindByID(ctx, id)
	if err != nil {
		if s.registered != nil && s.registered.ID == id {
			return &models.EnrollmentDetail{Enrollment: *s.registered, CourseCode: "CS101"}, nil
		}
		return nil, err
	}
	return &models.EnrollmentDetail{Enrollment: *e, CourseCode: "CS101"}, nil
}

func (s *enrollmentRepoStub) FindByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	if e, ok := s.byPair[pairKey(studentID, sectionID)]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range s.byID {
		if e.StudentID == studentID {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (s *enrollmentRepoStub) RegisterIfSeatAvailable(ctx context.Context, enrollment *models.Enrollment) error {
	if s.registerErr != nil {
		return s.registerErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	s.registered = enrollment
	return nil
}

func (s *enrollmentRepoStub) ReactivateIfSeatAvailable(ctx context.Context, id, sectionID string, enrolledAt, dropDeadline time.Time) error {
	if s.reactivateErr != nil {
		return s.reactivateErr
	}
	s.reactivated = true
	s.reactivateDeadline = dropDeadline
	if e, ok := s.byID[id]; ok {
		e.Status = models.EnrollmentStatusEnrolled
		e.EnrolledAt = enrolledAt
		e.DropDeadline = dropDeadline
		e.DroppedAt = nil
	}
	return nil
}

func (s *enrollmentRepoStub) Drop(ctx context.Context, id string, droppedAt time.Time) error {
	s.dropped = id
	if e, ok := s.byID[id]; ok {
		e.Status = models.EnrollmentStatusDropped
		e.DroppedAt = &droppedAt
	}
	return nil
}

type sectionRepoStub struct {
	sections     map[string]*models.Section
	byInstructor map[string][]models.SectionView
}

func (s sectionRepoStub) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if sec, ok := s.sections[id]; ok {
		copied := *sec
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s sectionRepoStub) ListByInstructor(ctx context.Context, instructorID string) ([]models.SectionView, error) {
	return s.byInstructor[instructorID], nil
}

type courseRepoStub struct {
	courses map[string]*models.Course
}

func (s courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type studentRepoStub struct {
	students map[string]*models.Student
}

func (s studentRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if st, ok := s.students[userID]; ok {
		copied := *st
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, st := range s.students {
		if st.ID == id {
			copied := *st
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type gradeHistoryStub struct {
	rows []models.GradeHistoryRow
	err  error
}

func (s gradeHistoryStub) HistoryByStudent(ctx context.Context, studentID string) ([]models.GradeHistoryRow, error) {
	return s.rows, s.err
}

type deadlineStub struct {
	days int
}

func (s deadlineStub) DropDeadlineDays(ctx context.Context) (int, error) { return s.days, nil }

func strptr(v string) *string { return &v }

func newRegistrationFixture() (*RegistrationService, *enrollmentRepoStub) {
	enrollments := &enrollmentRepoStub{
		byID:   map[string]*models.Enrollment{},
		byPair: map[string]*models.Enrollment{},
	}
	sections := sectionRepoStub{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", CourseID: "crs-1", SectionNumber: "A", Capacity: 30},
	}}
	courses := courseRepoStub{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Code: "CS201", Title: "Data Structures", Prerequisites: strptr("CS101")},
	}}
	students := studentRepoStub{students: map[string]*models.Student{
		"user-1": {ID: "stu-1", UserID: "user-1", RollNo: "R001", FullName: "Test Student"},
	}}
	history := gradeHistoryStub{rows: []models.GradeHistoryRow{
		{CourseCode: "CS101", FinalGrade: strptr("B")},
	}}

	svc := NewRegistrationService(enrollments, sections, courses, students, history, deadlineStub{days: 14}, accessGateStub{}, nil)
	return svc, enrollments
}

func studentPrincipal() *models.Principal {
	return &models.Principal{UserID: "user-1", Username: "student", Role: models.RoleStudent}
}

func TestRegisterCreatesEnrollmentWithDeadline(t *testing.T) {
	svc, repo := newRegistrationFixture()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	detail, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.NoError(t, err)
	require.NotNil(t, repo.registered)
	assert.Equal(t, "stu-1", repo.registered.StudentID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.registered.Status)
	assert.Equal(t, now.AddDate(0, 0, 14), repo.registered.DropDeadline)
	assert.Equal(t, "CS101", detail.CourseCode)
}

func TestRegisterRejectsDuplicateActiveEnrollment(t *testing.T) {
	svc, repo := newRegistrationFixture()
	repo.byPair[pairKey("stu-1", "sec-1")] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusEnrolled,
	}

	_, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Already registered for CS201-A")
}

func TestRegisterReportsFullSection(t *testing.T) {
	svc, repo := newRegistrationFixture()
	repo.registerErr = repository.ErrSectionFull

	_, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Section is full. No seats available.", appErr.Message)
}

func TestRegisterNamesMissingPrerequisite(t *testing.T) {
	svc, repo := newRegistrationFixture()
	_ = repo
	svc.grades = gradeHistoryStub{rows: nil}

	_, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "CS101")
}

func TestRegisterFailingGradeDoesNotSatisfyPrerequisite(t *testing.T) {
	svc, _ := newRegistrationFixture()
	svc.grades = gradeHistoryStub{rows: []models.GradeHistoryRow{
		{CourseCode: "CS101", FinalGrade: strptr("F")},
	}}

	_, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "CS101")
}

func TestRegisterPrerequisiteMatchesCaseInsensitively(t *testing.T) {
	svc, repo := newRegistrationFixture()
	svc.grades = gradeHistoryStub{rows: []models.GradeHistoryRow{
		{CourseCode: "cs101", FinalGrade: strptr("C")},
	}}

	_, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.NoError(t, err)
	require.NotNil(t, repo.registered)
}

func TestRegisterReactivatesDroppedRow(t *testing.T) {
	svc, repo := newRegistrationFixture()
	droppedAt := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	existing := &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1",
		Status: models.EnrollmentStatusDropped, DroppedAt: &droppedAt,
		DropDeadline: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	repo.byPair[pairKey("stu-1", "sec-1")] = existing
	repo.byID["enr-1"] = existing

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	detail, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.NoError(t, err)
	assert.True(t, repo.reactivated)
	assert.Nil(t, repo.registered, "reactivation must not insert a second row")
	assert.Equal(t, "enr-1", detail.ID)
	assert.Equal(t, now.AddDate(0, 0, 14), repo.reactivateDeadline, "deadline is reset from the new registration time")
}

func TestRegisterBlockedByMaintenance(t *testing.T) {
	svc, _ := newRegistrationFixture()
	svc.access = accessGateStub{modifyErr: appErrors.ErrMaintenanceMode}

	_, err := svc.Register(context.Background(), studentPrincipal(), "sec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMaintenanceMode.Code, appErrors.FromError(err).Code)
}

func TestRegisterRequiresStudentRole(t *testing.T) {
	svc, _ := newRegistrationFixture()
	principal := &models.Principal{UserID: "user-9", Role: models.RoleInstructor}

	_, err := svc.Register(context.Background(), principal, "sec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDropBeforeDeadline(t *testing.T) {
	svc, repo := newRegistrationFixture()
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	repo.byID["enr-1"] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1",
		Status: models.EnrollmentStatusEnrolled, DropDeadline: now.AddDate(0, 0, 2),
	}

	detail, err := svc.Drop(context.Background(), studentPrincipal(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", repo.dropped)
	assert.Equal(t, models.EnrollmentStatusDropped, detail.Status)
}

func TestDropAfterDeadlineRejected(t *testing.T) {
	svc, repo := newRegistrationFixture()
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	repo.byID["enr-1"] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1",
		Status: models.EnrollmentStatusEnrolled, DropDeadline: now.AddDate(0, 0, -1),
	}

	_, err := svc.Drop(context.Background(), studentPrincipal(), "enr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Drop deadline has passed")
	assert.Empty(t, repo.dropped)
}

func TestDropExactlyAtDeadlineRejected(t *testing.T) {
	svc, repo := newRegistrationFixture()
	deadline := time.Date(2026, 1, 24, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return deadline }
	repo.byID["enr-1"] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1",
		Status: models.EnrollmentStatusEnrolled, DropDeadline: deadline,
	}

	_, err := svc.Drop(context.Background(), studentPrincipal(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDropRejectsOtherStudentsEnrollment(t *testing.T) {
	svc, repo := newRegistrationFixture()
	repo.byID["enr-1"] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-other", SectionID: "sec-1",
		Status: models.EnrollmentStatusEnrolled, DropDeadline: time.Now().UTC().AddDate(0, 0, 5),
	}

	_, err := svc.Drop(context.Background(), studentPrincipal(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotOwner.Code, appErrors.FromError(err).Code)
}

func TestDropInactiveEnrollmentRejected(t *testing.T) {
	svc, repo := newRegistrationFixture()
	repo.byID["enr-1"] = &models.Enrollment{
		ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1",
		Status: models.EnrollmentStatusDropped, DropDeadline: time.Now().UTC().AddDate(0, 0, 5),
	}

	_, err := svc.Drop(context.Background(), studentPrincipal(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestMyTimetableFiltersDroppedRows(t *testing.T) {
	svc, repo := newRegistrationFixture()
	repo.byID["enr-1"] = &models.Enrollment{ID: "enr-1", StudentID: "stu-1", Status: models.EnrollmentStatusEnrolled}
	repo.byID["enr-2"] = &models.Enrollment{ID: "enr-2", StudentID: "stu-1", Status: models.EnrollmentStatusDropped}

	rows, err := svc.MyTimetable(context.Background(), studentPrincipal())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "enr-1", rows[0].ID)
}
