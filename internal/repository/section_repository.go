package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-erp-api/internal/models"
)

const sectionViewColumns = `s.id, s.course_id, s.section_number, s.semester, s.year, s.capacity, s.instructor_id, s.day_time, s.room, s.created_at,
        c.code AS course_code, c.title AS course_title,
        COALESCE(i.full_name, '') AS instructor_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.section_id = s.id AND e.status = 'ENROLLED') AS enrolled_count`

const sectionViewJoins = `FROM sections s
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN instructors i ON i.id = s.instructor_id`

// SectionRepository handles persistence of sections. Enrolled counts are
// projected from ENROLLED rows at query time; they are never stored.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns the bare section row.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, section_number, semester, year, capacity, instructor_id, day_time, room, created_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindViewByID returns the section with its derived seat projection.
func (r *SectionRepository) FindViewByID(ctx context.Context, id string) (*models.SectionView, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", sectionViewColumns, sectionViewJoins)
	var view models.SectionView
	if err := r.db.GetContext(ctx, &view, query, id); err != nil {
		return nil, err
	}
	view.Derive()
	return &view, nil
}

// ListBySemesterYear returns catalog views for one term.
func (r *SectionRepository) ListBySemesterYear(ctx context.Context, semester string, year int) ([]models.SectionView, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.semester = $1 AND s.year = $2 ORDER BY c.code, s.section_number", sectionViewColumns, sectionViewJoins)
	return r.listViews(ctx, query, semester, year)
}

// ListByCourse returns catalog views for all sections of a course.
func (r *SectionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.SectionView, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.course_id = $1 ORDER BY s.year DESC, s.semester, s.section_number", sectionViewColumns, sectionViewJoins)
	return r.listViews(ctx, query, courseID)
}

// ListByInstructor returns catalog views for sections assigned to an instructor.
func (r *SectionRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.SectionView, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.instructor_id = $1 ORDER BY s.year DESC, s.semester, c.code", sectionViewColumns, sectionViewJoins)
	return r.listViews(ctx, query, instructorID)
}

// Create persists a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sections (id, course_id, section_number, semester, year, capacity, instructor_id, day_time, room, created_at)
        VALUES (:id, :course_id, :section_number, :semester, :year, :capacity, :instructor_id, :day_time, :room, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// AssignInstructor sets the assigned instructor for a section.
func (r *SectionRepository) AssignInstructor(ctx context.Context, sectionID, instructorID string) error {
	const query = `UPDATE sections SET instructor_id = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, sectionID, instructorID); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

func (r *SectionRepository) listViews(ctx context.Context, query string, args ...interface{}) ([]models.SectionView, error) {
	var views []models.SectionView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	for i := range views {
		views[i].Derive()
	}
	return views, nil
}
