package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jjudge-oj/catalog/types"
)

// MemoryProblemRepository keeps problems in process memory. It follows the
// same versioning and archive rules as ProblemRepository and backs tests and
// the STORE_BACKEND=memory development mode.
type MemoryProblemRepository struct {
	mu       sync.RWMutex
	problems map[int]types.Problem
	tags     map[string]struct{}
	nextID   int
}

func NewMemoryProblemRepository() *MemoryProblemRepository {
	return &MemoryProblemRepository{
		problems: make(map[int]types.Problem),
		tags:     make(map[string]struct{}),
		nextID:   1,
	}
}

func (r *MemoryProblemRepository) Find(ctx context.Context, filter ProblemFilter) ([]types.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var wanted map[int]struct{}
	if len(filter.IDs) > 0 {
		wanted = make(map[int]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			wanted[id] = struct{}{}
		}
	}

	matched := make([]types.Problem, 0)
	for id, problem := range r.problems {
		if !filter.IncludeArchived && problem.Archived {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[id]; !ok {
				continue
			}
		} else if len(filter.Tags) > 0 && !problem.HasAnyTag(filter.Tags) {
			continue
		}
		matched = append(matched, problem.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if wanted != nil || filter.Limit <= 0 {
		return matched, nil
	}
	if filter.Offset >= len(matched) {
		return []types.Problem{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (r *MemoryProblemRepository) Get(ctx context.Context, id int) (types.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	problem, ok := r.problems[id]
	if !ok {
		return types.Problem{}, ErrNotFound
	}
	return problem.Clone(), nil
}

func (r *MemoryProblemRepository) Create(ctx context.Context, problem types.Problem) (types.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if problem.ID == 0 {
		problem.ID = r.nextID
	} else if _, exists := r.problems[problem.ID]; exists {
		return types.Problem{}, ErrConflict
	}
	if problem.ID >= r.nextID {
		r.nextID = problem.ID + 1
	}
	problem.Testcases = append([]types.Testcase(nil), problem.Testcases...)
	for i := range problem.Testcases {
		problem.Testcases[i].ProblemID = problem.ID
	}

	now := time.Now()
	problem.CreatedAt = now
	problem.UpdatedAt = now
	problem.Version = 1
	r.problems[problem.ID] = problem.Clone()
	r.recordTags(problem.Tags)
	return problem, nil
}

func (r *MemoryProblemRepository) Update(ctx context.Context, problem types.Problem) (types.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.problems[problem.ID]
	if !ok {
		return types.Problem{}, ErrNotFound
	}
	if stored.Version != problem.Version {
		return types.Problem{}, ErrConflict
	}

	problem.Archived = stored.Archived
	problem.CreatedAt = stored.CreatedAt
	problem.UpdatedAt = time.Now()
	problem.Version++
	r.problems[problem.ID] = problem.Clone()
	r.recordTags(problem.Tags)
	return problem, nil
}

func (r *MemoryProblemRepository) SetArchived(ctx context.Context, id int, archived bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	problem, ok := r.problems[id]
	if !ok {
		return ErrNotFound
	}
	problem.Archived = archived
	problem.UpdatedAt = time.Now()
	problem.Version++
	r.problems[id] = problem
	return nil
}

func (r *MemoryProblemRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	problem, ok := r.problems[id]
	if !ok {
		return ErrNotFound
	}
	if !problem.Archived {
		return ErrConflict
	}
	delete(r.problems, id)
	return nil
}

func (r *MemoryProblemRepository) ListTags(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.tags))
	for tag := range r.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *MemoryProblemRepository) recordTags(tags []string) {
	for _, tag := range tags {
		r.tags[tag] = struct{}{}
	}
}
