package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jjudge-oj/catalog/types"
	"github.com/lib/pq"
)

// HomeworkRepository reads homework definitions.
type HomeworkRepository struct {
	db *sql.DB
}

func NewHomeworkRepository(db *sql.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

func (r *HomeworkRepository) Get(ctx context.Context, id int) (types.Homework, error) {
	const query = `
		SELECT id, name, problem_ids, created_at
		FROM homeworks
		WHERE id = $1`
	var homework types.Homework
	var problemIDs pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&homework.ID,
		&homework.Name,
		&problemIDs,
		&homework.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Homework{}, ErrNotFound
		}
		return types.Homework{}, err
	}

	homework.ProblemIDs = make([]int, len(problemIDs))
	for i, problemID := range problemIDs {
		homework.ProblemIDs[i] = int(problemID)
	}
	return homework, nil
}
