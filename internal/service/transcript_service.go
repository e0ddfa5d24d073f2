package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-erp-api/internal/models"
	appErrors "github.com/noah-isme/univ-erp-api/pkg/errors"
	"github.com/noah-isme/univ-erp-api/pkg/export"
	"github.com/noah-isme/univ-erp-api/pkg/jobs"
)

const jobTypeTranscript = "transcript.generate"

type transcriptEnrollmentRepo interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type transcriptStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type documentStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type transcriptPayload struct {
	jobID     string
	studentID string
	format    models.TranscriptFormat
}

// TranscriptService renders a student's enrollment history into CSV or PDF
// documents. Generation runs on a background queue; job state is held in
// memory and the document itself lands in local storage.
type TranscriptService struct {
	enrollments transcriptEnrollmentRepo
	students    transcriptStudentRepo
	store       documentStore
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	access      accessGate
	logger      *zap.Logger

	queue *jobs.Queue

	mu       sync.RWMutex
	jobState map[string]*models.TranscriptJob
}

// NewTranscriptService constructs a TranscriptService and its worker queue.
// Call Start before enqueueing and Stop on shutdown.
func NewTranscriptService(
	enrollments transcriptEnrollmentRepo,
	students transcriptStudentRepo,
	store documentStore,
	access accessGate,
	logger *zap.Logger,
	workers, retries int,
) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TranscriptService{
		enrollments: enrollments,
		students:    students,
		store:       store,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		access:      access,
		logger:      logger,
		jobState:    make(map[string]*models.TranscriptJob),
	}
	s.queue = jobs.NewQueue(jobTypeTranscript, s.handleJob, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the background workers.
func (s *TranscriptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background workers.
func (s *TranscriptService) Stop() {
	s.queue.Stop()
}

// Request enqueues transcript generation for a student. Students may only
// request their own transcript; ADMIN may request anyone's.
func (s *TranscriptService) Request(ctx context.Context, principal *models.Principal, studentID string, format models.TranscriptFormat) (*models.TranscriptJob, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	switch format {
	case models.TranscriptFormatCSV, models.TranscriptFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be CSV or PDF")
	}

	student, err := s.resolveTarget(ctx, principal, studentID)
	if err != nil {
		return nil, err
	}

	job := &models.TranscriptJob{
		ID:          uuid.NewString(),
		StudentID:   student.ID,
		Format:      format,
		Status:      models.TranscriptJobPending,
		RequestedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobState[job.ID] = job
	s.mu.Unlock()

	err = s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    jobTypeTranscript,
		Payload: transcriptPayload{jobID: job.ID, studentID: student.ID, format: format},
	})
	if err != nil {
		s.mu.Lock()
		delete(s.jobState, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "transcript queue unavailable")
	}

	s.logger.Info("transcript requested",
		zap.String("job_id", job.ID),
		zap.String("student_id", student.ID),
		zap.String("format", string(format)))
	return job, nil
}

// Status returns the state of a transcript job.
func (s *TranscriptService) Status(ctx context.Context, principal *models.Principal, jobID string) (*models.TranscriptJob, error) {
	if err := s.access.CanRead(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	job, ok := s.jobState[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "transcript job not found")
	}
	if _, err := s.resolveTarget(ctx, principal, job.StudentID); err != nil {
		return nil, err
	}
	copied := *job
	return &copied, nil
}

// Download returns the rendered document bytes of a completed job.
func (s *TranscriptService) Download(ctx context.Context, principal *models.Principal, jobID string) ([]byte, string, error) {
	job, err := s.Status(ctx, principal, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != models.TranscriptJobCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "transcript is not ready")
	}
	data, err := s.store.Read(job.Filename)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read transcript")
	}
	return data, job.Filename, nil
}

func (s *TranscriptService) resolveTarget(ctx context.Context, principal *models.Principal, studentID string) (*models.Student, error) {
	if principal.IsAdmin() {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student")
		}
		return student, nil
	}
	if principal.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students and administrators can request transcripts")
	}
	student, err := s.students.FindByUserID(ctx, principal.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student profile")
	}
	if studentID != "" && studentID != student.ID {
		return nil, appErrors.ErrNotOwner
	}
	return student, nil
}

func (s *TranscriptService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(transcriptPayload)
	if !ok {
		s.markFailed(job.ID, "invalid payload")
		return nil
	}

	filename, err := s.generate(ctx, payload)
	if err != nil {
		// The queue retries; mark failed only once retries are exhausted.
		if job.Attempt >= 1 {
			s.markFailed(payload.jobID, err.Error())
		}
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if state, ok := s.jobState[payload.jobID]; ok {
		state.Status = models.TranscriptJobCompleted
		state.Filename = filename
		state.CompletedAt = &now
	}
	s.mu.Unlock()

	s.logger.Info("transcript generated", zap.String("job_id", payload.jobID), zap.String("filename", filename))
	return nil
}

func (s *TranscriptService) generate(ctx context.Context, payload transcriptPayload) (string, error) {
	student, err := s.students.FindByID(ctx, payload.studentID)
	if err != nil {
		return "", fmt.Errorf("load student: %w", err)
	}
	rows, err := s.enrollments.ListByStudent(ctx, payload.studentID)
	if err != nil {
		return "", fmt.Errorf("load enrollments: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Title", "Section", "Term", "Credits", "Status", "Final Grade"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		final := ""
		if row.FinalGrade != nil {
			final = *row.FinalGrade
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":      row.CourseCode,
			"Title":       row.CourseTitle,
			"Section":     row.SectionNumber,
			"Term":        fmt.Sprintf("%s %d", row.Semester, row.Year),
			"Credits":     fmt.Sprintf("%d", row.CourseCredits),
			"Status":      string(row.Status),
			"Final Grade": final,
		})
	}

	var data []byte
	var ext string
	switch payload.format {
	case models.TranscriptFormatPDF:
		preamble := []string{
			fmt.Sprintf("Student: %s (%s)", student.FullName, student.RollNo),
			fmt.Sprintf("Program: %s, Year %d", student.Program, student.Year),
			fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 MST")),
		}
		data, err = s.pdf.Render(dataset, "Academic Transcript", preamble)
		ext = "pdf"
	default:
		data, err = s.csv.Render(dataset)
		ext = "csv"
	}
	if err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.%s", strings.ReplaceAll(student.RollNo, "/", "-"), payload.jobID[:8], ext)
	if _, err := s.store.Save(filename, data); err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	return filename, nil
}

func (s *TranscriptService) markFailed(jobID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.jobState[jobID]; ok {
		state.Status = models.TranscriptJobFailed
		state.Error = reason
	}
}
