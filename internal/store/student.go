package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jjudge-oj/catalog/types"
	"github.com/lib/pq"
)

// StudentRepository reads the student directory.
type StudentRepository struct {
	db *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByEmails returns the students registered under any of the given
// emails, compared case-insensitively. Unknown emails are skipped; the
// result order is unspecified.
func (r *StudentRepository) FindByEmails(ctx context.Context, emails []string) ([]types.Student, error) {
	if len(emails) == 0 {
		return []types.Student{}, nil
	}

	const query = `
		SELECT id, name, email, created_at
		FROM students
		WHERE lower(email) = ANY($1)`
	lowered := make([]string, len(emails))
	for i, email := range emails {
		lowered[i] = strings.ToLower(email)
	}
	rows, err := r.db.QueryContext(ctx, query, pq.Array(lowered))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]types.Student, 0, len(emails))
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Email,
			&student.CreatedAt,
		); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}
