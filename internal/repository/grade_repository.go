package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-erp-api/internal/models"
)

// GradeRepository handles persistence of grade component rows.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts the component row or overwrites score/max/weight in place
// when the (enrollment, component) pair already exists.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (id, enrollment_id, component, score, max_score, weight, created_at, updated_at)
        VALUES (:id, :enrollment_id, :component, :score, :max_score, :weight, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, component)
        DO UPDATE SET score = EXCLUDED.score, max_score = EXCLUDED.max_score, weight = EXCLUDED.weight, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// ListByEnrollment returns all component rows for an enrollment.
func (r *GradeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	const query = `SELECT id, enrollment_id, component, score, max_score, weight, created_at, updated_at
        FROM grades WHERE enrollment_id = $1 ORDER BY component`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment grades: %w", err)
	}
	return grades, nil
}

// ListDetailByStudent returns all of a student's component rows with course
// context and the shared final letter grade of each enrollment.
func (r *GradeRepository) ListDetailByStudent(ctx context.Context, studentID string) ([]models.GradeDetail, error) {
	const query = `SELECT g.id, g.enrollment_id, g.component, g.score, g.max_score, g.weight, g.created_at, g.updated_at,
        c.code AS course_code, c.title AS course_title, s.section_number, e.final_grade
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1
        ORDER BY c.code, g.component`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// HistoryByStudent returns one row per enrollment in the student's entire
// history: the course code and the enrollment's final letter grade, if any.
// The prerequisite check scans these rows.
func (r *GradeRepository) HistoryByStudent(ctx context.Context, studentID string) ([]models.GradeHistoryRow, error) {
	const query = `SELECT c.code AS course_code, e.final_grade
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1`
	var rows []models.GradeHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("grade history: %w", err)
	}
	return rows, nil
}
