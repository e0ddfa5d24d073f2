package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-erp-api/internal/models"
)

// ErrSectionFull is returned when a seat-guarded write finds no capacity left.
// The capacity check and the write happen inside one transaction holding a
// row lock on the section, so two concurrent registrations cannot both take
// the last seat.
var ErrSectionFull = errors.New("section is full")

const enrollmentDetailColumns = `e.id, e.student_id, e.section_id, e.status, e.enrolled_at, e.dropped_at, e.drop_deadline, e.final_grade,
        st.roll_no AS student_roll_no, st.full_name AS student_name,
        c.code AS course_code, c.title AS course_title, c.credits AS course_credits,
        s.section_number, s.semester, s.year, s.day_time, s.room,
        COALESCE(i.full_name, '') AS instructor_name`

const enrollmentDetailJoins = `FROM enrollments e
        JOIN students st ON st.id = e.student_id
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN instructors i ON i.id = s.instructor_id`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, status, enrolled_at, dropped_at, drop_deadline, final_grade FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with course and section context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByStudentAndSection returns the lifecycle row for the pair regardless
// of status. At most one row exists per (student, section).
func (r *EnrollmentRepository) FindByStudentAndSection(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, status, enrolled_at, dropped_at, drop_deadline, final_grade FROM enrollments WHERE student_id = $1 AND section_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, sectionID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns all enrollment rows for a student with context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC", enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListBySection returns all enrollment rows for a section with context.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.section_id = $1 ORDER BY st.roll_no", enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return enrollments, nil
}

// RegisterIfSeatAvailable inserts a new ENROLLED row only if the section
// still has a free seat. Returns ErrSectionFull otherwise.
func (r *EnrollmentRepository) RegisterIfSeatAvailable(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusEnrolled

	return r.withSeatLock(ctx, enrollment.SectionID, func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO enrollments (id, student_id, section_id, status, enrolled_at, dropped_at, drop_deadline, final_grade)
        VALUES (:id, :student_id, :section_id, :status, :enrolled_at, :dropped_at, :drop_deadline, :final_grade)`
		if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		return nil
	})
}

// ReactivateIfSeatAvailable flips a DROPPED row back to ENROLLED, resetting
// the enrollment timestamp and deadline, subject to the same seat guard.
// Grade rows tied to the enrollment are not touched.
func (r *EnrollmentRepository) ReactivateIfSeatAvailable(ctx context.Context, id, sectionID string, enrolledAt, dropDeadline time.Time) error {
	return r.withSeatLock(ctx, sectionID, func(tx *sqlx.Tx) error {
		const update = `UPDATE enrollments SET status = $2, enrolled_at = $3, dropped_at = NULL, drop_deadline = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, id, models.EnrollmentStatusEnrolled, enrolledAt, dropDeadline); err != nil {
			return fmt.Errorf("reactivate enrollment: %w", err)
		}
		return nil
	})
}

// Drop marks an enrollment DROPPED, leaving the deadline untouched.
func (r *EnrollmentRepository) Drop(ctx context.Context, id string, droppedAt time.Time) error {
	const query = `UPDATE enrollments SET status = $2, dropped_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusDropped, droppedAt); err != nil {
		return fmt.Errorf("drop enrollment: %w", err)
	}
	return nil
}

// SetFinalGrade persists the computed letter grade on the enrollment aggregate.
func (r *EnrollmentRepository) SetFinalGrade(ctx context.Context, id, letterGrade string) error {
	const query = `UPDATE enrollments SET final_grade = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, letterGrade); err != nil {
		return fmt.Errorf("set final grade: %w", err)
	}
	return nil
}

// StatusCountsBySection counts total, enrolled and dropped rows.
func (r *EnrollmentRepository) StatusCountsBySection(ctx context.Context, sectionID string) (total, enrolled, dropped int, err error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = $2) AS enrolled,
        COUNT(*) FILTER (WHERE status = $3) AS dropped
        FROM enrollments WHERE section_id = $1`
	row := r.db.QueryRowxContext(ctx, query, sectionID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped)
	if err = row.Scan(&total, &enrolled, &dropped); err != nil {
		return 0, 0, 0, fmt.Errorf("count section enrollments: %w", err)
	}
	return total, enrolled, dropped, nil
}

// FinalGradeHistogram tallies final letter grades of ENROLLED rows.
func (r *EnrollmentRepository) FinalGradeHistogram(ctx context.Context, sectionID string) (map[string]int, error) {
	const query = `SELECT final_grade, COUNT(*) FROM enrollments
        WHERE section_id = $1 AND status = $2 AND final_grade IS NOT NULL
        GROUP BY final_grade`
	rows, err := r.db.QueryxContext(ctx, query, sectionID, models.EnrollmentStatusEnrolled)
	if err != nil {
		return nil, fmt.Errorf("grade histogram: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	histogram := make(map[string]int)
	for rows.Next() {
		var letter string
		var count int
		if err := rows.Scan(&letter, &count); err != nil {
			return nil, fmt.Errorf("scan histogram row: %w", err)
		}
		histogram[letter] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grade histogram: %w", err)
	}
	return histogram, nil
}

// withSeatLock runs fn after locking the section row and verifying that the
// active enrollment count is below capacity.
func (r *EnrollmentRepository) withSeatLock(ctx context.Context, sectionID string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM sections WHERE id = $1 FOR UPDATE`, sectionID); err != nil {
		return fmt.Errorf("lock section: %w", err)
	}

	var enrolled int
	if err := tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return fmt.Errorf("count active enrollments: %w", err)
	}
	if enrolled >= capacity {
		return ErrSectionFull
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration tx: %w", err)
	}
	return nil
}
