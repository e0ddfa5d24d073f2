package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-erp-api/internal/models"
)

const instructorColumns = `id, user_id, employee_id, full_name, department, email, phone, created_at`

// InstructorRepository handles persistence of instructor profiles.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// FindByID returns an instructor by profile ID.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE id = $1", instructorColumns)
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// FindByUserID resolves the profile for an authenticated user.
func (r *InstructorRepository) FindByUserID(ctx context.Context, userID string) (*models.Instructor, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE user_id = $1", instructorColumns)
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, userID); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// FindByEmployeeID returns an instructor by employee ID.
func (r *InstructorRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*models.Instructor, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE employee_id = $1", instructorColumns)
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, employeeID); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// Create persists a new instructor profile.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO instructors (id, user_id, employee_id, full_name, department, email, phone, created_at)
        VALUES (:id, :user_id, :employee_id, :full_name, :department, :email, :phone, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}
