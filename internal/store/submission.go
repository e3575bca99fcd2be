package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jjudge-oj/catalog/types"
)

// SubmissionRepository reads judged submission records.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindBestRecord returns the highest-graded judged submission of a student
// on a problem. Ties go to the earliest submission. Pending submissions are
// ignored. It returns ErrNotFound when the student has no judged attempt.
func (r *SubmissionRepository) FindBestRecord(ctx context.Context, problemID, studentID int) (types.SubmissionRecord, error) {
	const query = `
		SELECT id, problem_id, student_id, language, verdict, grade, created_at
		FROM submissions
		WHERE problem_id = $1 AND student_id = $2 AND verdict <> $3
		ORDER BY grade DESC, created_at ASC
		LIMIT 1`
	var record types.SubmissionRecord
	err := r.db.QueryRowContext(ctx, query, problemID, studentID, int(types.VerdictPending)).Scan(
		&record.ID,
		&record.ProblemID,
		&record.StudentID,
		&record.Language,
		&record.Verdict,
		&record.Grade,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.SubmissionRecord{}, ErrNotFound
		}
		return types.SubmissionRecord{}, err
	}
	return record, nil
}
