package services

import (
	"context"
	"strings"

	"github.com/jjudge-oj/catalog/internal/store"
	"github.com/jjudge-oj/catalog/types"
)

// ProblemQuery selects a page of the catalog. IDs, when present, win over
// Tags and Page.
type ProblemQuery struct {
	Tags       []string
	IDs        []int
	Page       int
	Visibility Visibility
}

// PageSize is the fixed number of problems per listing page.
func (s *ProblemService) PageSize() int {
	return s.pageSize
}

// List returns the problems matching query, ordered by id. With IDs it
// returns the existing subset unpaginated; with Tags it matches problems
// carrying any of them. Page n covers items [n*PageSize, (n+1)*PageSize);
// a page past the end is empty.
func (s *ProblemService) List(ctx context.Context, query ProblemQuery) ([]types.Problem, error) {
	if query.Page < 0 {
		return nil, validationError("page must not be negative")
	}
	if len(query.IDs) > 0 {
		return s.FindByIDs(ctx, query.IDs, query.Visibility)
	}

	filter := store.ProblemFilter{
		Tags:            cleanTags(query.Tags),
		IncludeArchived: query.Visibility.includeArchived(),
		Offset:          query.Page * s.pageSize,
		Limit:           s.pageSize,
	}
	problems, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, classify(err)
	}
	return problems, nil
}

// ListTags returns every tag ever recorded on a problem.
func (s *ProblemService) ListTags(ctx context.Context) ([]string, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return tags, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
