package types

import "time"

// Student represents an account enrolled in the academy.
type Student struct {
	// ID is the unique identifier of the student.
	ID int `json:"id" db:"id"`

	// Name is the student's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the student's email address and lookup key.
	Email string `json:"email" db:"email"`

	// CreatedAt is the timestamp when the student account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
