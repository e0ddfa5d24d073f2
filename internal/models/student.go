package models

import "time"

// Student is the profile record linked to a STUDENT user.
type Student struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	RollNo    string    `db:"roll_no" json:"roll_no"`
	FullName  string    `db:"full_name" json:"full_name"`
	Program   string    `db:"program" json:"program"`
	Year      int       `db:"year" json:"year"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Instructor is the profile record linked to an INSTRUCTOR user.
type Instructor struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Department string    `db:"department" json:"department"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
