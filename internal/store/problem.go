package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjudge-oj/catalog/types"
	"github.com/lib/pq"
)

const problemColumns = `id, title, description, tags, archived, language_envs, testcases,
	output_match_policy_plugin_tag, filter_plugin_tags, testcase_ios_file_id, version, created_at, updated_at`

// ProblemRepository handles persistence for problems. Each problem is stored
// as one row whose nested aggregates live in JSONB columns.
type ProblemRepository struct {
	db *sql.DB
}

func NewProblemRepository(db *sql.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (types.Problem, error) {
	var problem types.Problem
	var tagsJSON, envsJSON, testcasesJSON, matchJSON, filtersJSON []byte
	if err := row.Scan(
		&problem.ID,
		&problem.Title,
		&problem.Description,
		&tagsJSON,
		&problem.Archived,
		&envsJSON,
		&testcasesJSON,
		&matchJSON,
		&filtersJSON,
		&problem.TestcaseIOsFileID,
		&problem.Version,
		&problem.CreatedAt,
		&problem.UpdatedAt,
	); err != nil {
		return types.Problem{}, err
	}

	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{tagsJSON, &problem.Tags},
		{envsJSON, &problem.LanguageEnvs},
		{testcasesJSON, &problem.Testcases},
		{matchJSON, &problem.OutputMatchPolicyPluginTag},
		{filtersJSON, &problem.FilterPluginTags},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return types.Problem{}, fmt.Errorf("decode problem %d: %w", problem.ID, err)
		}
	}
	return problem, nil
}

// problemDocument holds the JSONB columns as text; lib/pq would send []byte
// parameters as bytea.
type problemDocument struct {
	tags, envs, testcases, match, filters string
}

func encodeProblem(problem types.Problem) (problemDocument, error) {
	var doc problemDocument
	if problem.Tags == nil {
		problem.Tags = []string{}
	}
	if problem.LanguageEnvs == nil {
		problem.LanguageEnvs = map[types.Language]types.LanguageEnv{}
	}
	if problem.Testcases == nil {
		problem.Testcases = []types.Testcase{}
	}
	if problem.FilterPluginTags == nil {
		problem.FilterPluginTags = []types.JudgePluginTag{}
	}
	for _, col := range []struct {
		value any
		dest  *string
	}{
		{problem.Tags, &doc.tags},
		{problem.LanguageEnvs, &doc.envs},
		{problem.Testcases, &doc.testcases},
		{problem.OutputMatchPolicyPluginTag, &doc.match},
		{problem.FilterPluginTags, &doc.filters},
	} {
		raw, err := json.Marshal(col.value)
		if err != nil {
			return doc, err
		}
		*col.dest = string(raw)
	}
	return doc, nil
}

func (r *ProblemRepository) Find(ctx context.Context, filter ProblemFilter) ([]types.Problem, error) {
	var where []string
	var args []any

	if !filter.IncludeArchived {
		where = append(where, "archived = FALSE")
	}
	switch {
	case len(filter.IDs) > 0:
		args = append(args, pq.Int64Array(toInt64s(filter.IDs)))
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	case len(filter.Tags) > 0:
		args = append(args, pq.Array(filter.Tags))
		where = append(where, fmt.Sprintf("tags ?| $%d::text[]", len(args)))
	}

	query := "SELECT " + problemColumns + " FROM problems"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if len(filter.IDs) == 0 && filter.Limit > 0 {
		args = append(args, filter.Offset, filter.Limit)
		query += fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	problems := make([]types.Problem, 0)
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return problems, nil
}

func (r *ProblemRepository) Get(ctx context.Context, id int) (types.Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE id = $1"
	problem, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Problem{}, ErrNotFound
		}
		return types.Problem{}, err
	}
	return problem, nil
}

// Create inserts a new problem. A zero ID is assigned by the database; a
// positive ID is used as given and fails with ErrConflict if already taken.
func (r *ProblemRepository) Create(ctx context.Context, problem types.Problem) (types.Problem, error) {
	now := time.Now()
	problem.CreatedAt = now
	problem.UpdatedAt = now
	problem.Version = 1

	doc, err := encodeProblem(problem)
	if err != nil {
		return types.Problem{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Problem{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if problem.ID == 0 {
		const query = `
			INSERT INTO problems (title, description, tags, archived, language_envs, testcases,
				output_match_policy_plugin_tag, filter_plugin_tags, testcase_ios_file_id, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			query,
			problem.Title,
			problem.Description,
			doc.tags,
			problem.Archived,
			doc.envs,
			doc.testcases,
			doc.match,
			doc.filters,
			problem.TestcaseIOsFileID,
			problem.Version,
			problem.CreatedAt,
			problem.UpdatedAt,
		).Scan(&problem.ID); err != nil {
			return types.Problem{}, err
		}
		if len(problem.Testcases) > 0 {
			if err := bindTestcases(ctx, tx, &problem); err != nil {
				return types.Problem{}, err
			}
		}
	} else {
		const query = `
			INSERT INTO problems (id, title, description, tags, archived, language_envs, testcases,
				output_match_policy_plugin_tag, filter_plugin_tags, testcase_ios_file_id, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING`
		result, err := tx.ExecContext(
			ctx,
			query,
			problem.ID,
			problem.Title,
			problem.Description,
			doc.tags,
			problem.Archived,
			doc.envs,
			doc.testcases,
			doc.match,
			doc.filters,
			problem.TestcaseIOsFileID,
			problem.Version,
			problem.CreatedAt,
			problem.UpdatedAt,
		)
		if err != nil {
			return types.Problem{}, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return types.Problem{}, err
		}
		if affected == 0 {
			return types.Problem{}, ErrConflict
		}
		// Keep the serial ahead of externally supplied ids.
		const bump = `SELECT setval(pg_get_serial_sequence('problems', 'id'), (SELECT MAX(id) FROM problems))`
		if _, err := tx.ExecContext(ctx, bump); err != nil {
			return types.Problem{}, err
		}
	}

	if err := recordTags(ctx, tx, problem.Tags); err != nil {
		return types.Problem{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Problem{}, err
	}
	return problem, nil
}

// Update overwrites the problem document if its stored version still equals
// problem.Version. The archived flag is not written here; see SetArchived.
func (r *ProblemRepository) Update(ctx context.Context, problem types.Problem) (types.Problem, error) {
	problem.UpdatedAt = time.Now()

	doc, err := encodeProblem(problem)
	if err != nil {
		return types.Problem{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Problem{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
		UPDATE problems
		SET title = $1,
			description = $2,
			tags = $3,
			language_envs = $4,
			testcases = $5,
			output_match_policy_plugin_tag = $6,
			filter_plugin_tags = $7,
			testcase_ios_file_id = $8,
			updated_at = $9,
			version = version + 1
		WHERE id = $10 AND version = $11`
	result, err := tx.ExecContext(
		ctx,
		query,
		problem.Title,
		problem.Description,
		doc.tags,
		doc.envs,
		doc.testcases,
		doc.match,
		doc.filters,
		problem.TestcaseIOsFileID,
		problem.UpdatedAt,
		problem.ID,
		problem.Version,
	)
	if err != nil {
		return types.Problem{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Problem{}, err
	}
	if affected == 0 {
		return types.Problem{}, r.missingOrConflict(ctx, tx, problem.ID)
	}

	if err := recordTags(ctx, tx, problem.Tags); err != nil {
		return types.Problem{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Problem{}, err
	}
	problem.Version++
	return problem, nil
}

// SetArchived flips the archived flag of a problem.
func (r *ProblemRepository) SetArchived(ctx context.Context, id int, archived bool) error {
	const query = `
		UPDATE problems
		SET archived = $1, updated_at = $2, version = version + 1
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, archived, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes an archived problem. Deleting a problem that is
// not archived fails with ErrConflict.
func (r *ProblemRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM problems WHERE id = $1 AND archived = TRUE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.missingOrConflict(ctx, r.db, id)
	}
	return nil
}

// ListTags returns every tag ever recorded on a problem, sorted.
func (r *ProblemRepository) ListTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM problem_tags ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *ProblemRepository) missingOrConflict(ctx context.Context, q queryer, id int) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM problems WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// bindTestcases stamps the freshly assigned problem id onto every testcase
// and rewrites the testcases column inside the inserting transaction.
func bindTestcases(ctx context.Context, tx *sql.Tx, problem *types.Problem) error {
	problem.Testcases = append([]types.Testcase(nil), problem.Testcases...)
	for i := range problem.Testcases {
		problem.Testcases[i].ProblemID = problem.ID
	}
	raw, err := json.Marshal(problem.Testcases)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE problems SET testcases = $1 WHERE id = $2`, string(raw), problem.ID)
	return err
}

func recordTags(ctx context.Context, tx *sql.Tx, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	const query = `INSERT INTO problem_tags (tag) SELECT unnest($1::text[]) ON CONFLICT DO NOTHING`
	_, err := tx.ExecContext(ctx, query, pq.Array(tags))
	return err
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
