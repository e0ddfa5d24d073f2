package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
)

type memoryStoreStub struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memoryStoreStub) Save(filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[filename] = data
	return filename, nil
}

func (s *memoryStoreStub) Read(filename string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[filename], nil
}

type transcriptEnrollmentStub struct {
	rows []models.EnrollmentDetail
}

func (s transcriptEnrollmentStub) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return s.rows, nil
}

func newTranscriptFixture(t *testing.T) (*TranscriptService, *memoryStoreStub) {
	t.Helper()
	final := "A"
	enrollments := transcriptEnrollmentStub{rows: []models.EnrollmentDetail{
		{
			Enrollment:    models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusEnrolled, FinalGrade: &final},
			CourseCode:    "CS101",
			CourseTitle:   "Intro to CS",
			SectionNumber: "A",
			Semester:      "Fall",
			Year:          2026,
			CourseCredits: 3,
		},
	}}
	students := studentRepoStub{students: map[string]*models.Student{
		"user-1": {ID: "stu-1", UserID: "user-1", RollNo: "R001", FullName: "Test Student", Program: "CS", Year: 2},
	}}
	store := &memoryStoreStub{}
	svc := NewTranscriptService(enrollments, students, store, accessGateStub{}, nil, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		svc.Stop()
	})
	return svc, store
}

func TestTranscriptCSVGeneration(t *testing.T) {
	svc, store := newTranscriptFixture(t)

	job, err := svc.Request(context.Background(), studentPrincipal(), "", models.TranscriptFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.TranscriptJobPending, job.Status)

	require.Eventually(t, func() bool {
		state, err := svc.Status(context.Background(), studentPrincipal(), job.ID)
		return err == nil && state.Status == models.TranscriptJobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	data, filename, err := svc.Download(context.Background(), studentPrincipal(), job.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".csv"))
	content := string(data)
	assert.Contains(t, content, "CS101")
	assert.Contains(t, content, "Fall 2026")
	assert.Contains(t, content, "A")

	store.mu.Lock()
	assert.Len(t, store.files, 1)
	store.mu.Unlock()
}

func TestTranscriptRejectsUnknownFormat(t *testing.T) {
	svc, _ := newTranscriptFixture(t)

	_, err := svc.Request(context.Background(), studentPrincipal(), "", models.TranscriptFormat("XLSX"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTranscriptStudentCannotRequestOthers(t *testing.T) {
	svc, _ := newTranscriptFixture(t)

	_, err := svc.Request(context.Background(), studentPrincipal(), "stu-other", models.TranscriptFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotOwner.Code, appErrors.FromError(err).Code)
}

func TestTranscriptDownloadBeforeCompletion(t *testing.T) {
	svc, _ := newTranscriptFixture(t)

	// Job state inserted directly so no worker can complete it first.
	svc.mu.Lock()
	svc.jobState["job-1"] = &models.TranscriptJob{
		ID: "job-1", StudentID: "stu-1", Format: models.TranscriptFormatCSV,
		Status: models.TranscriptJobPending, RequestedAt: time.Now().UTC(),
	}
	svc.mu.Unlock()

	_, _, err := svc.Download(context.Background(), studentPrincipal(), "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTranscriptStatusUnknownJob(t *testing.T) {
	svc, _ := newTranscriptFixture(t)

	_, err := svc.Status(context.Background(), studentPrincipal(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
