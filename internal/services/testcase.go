package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jjudge-oj/catalog/types"
)

// TestcaseService edits the testcase sequence of a problem without touching
// its blobs.
type TestcaseService struct {
	problems *ProblemService
}

func NewTestcaseService(problems *ProblemService) *TestcaseService {
	return &TestcaseService{problems: problems}
}

// Upsert replaces the testcase called name in place, or appends it. The
// testcase is renamed to name and bound to problemID whatever it carried.
func (s *TestcaseService) Upsert(ctx context.Context, problemID int, name string, testcase types.Testcase) (types.Testcase, error) {
	testcase.Name = strings.TrimSpace(name)
	testcase.ProblemID = problemID
	if err := validateTestcase(testcase); err != nil {
		return types.Testcase{}, err
	}

	_, err := s.problems.modify(ctx, problemID, func(problem *types.Problem) error {
		if i := problem.TestcaseIndex(testcase.Name); i >= 0 {
			problem.Testcases[i] = testcase
			return nil
		}
		problem.Testcases = append(problem.Testcases, testcase)
		return nil
	})
	if err != nil {
		return types.Testcase{}, err
	}
	return testcase, nil
}

// Remove deletes the testcase called name.
func (s *TestcaseService) Remove(ctx context.Context, problemID int, name string) error {
	name = strings.TrimSpace(name)
	_, err := s.problems.modify(ctx, problemID, func(problem *types.Problem) error {
		i := problem.TestcaseIndex(name)
		if i < 0 {
			return fmt.Errorf("%w: testcase %q of problem %d", ErrNotFound, name, problemID)
		}
		problem.Testcases = append(problem.Testcases[:i], problem.Testcases[i+1:]...)
		return nil
	})
	return err
}

func validateTestcase(tc types.Testcase) error {
	if tc.Name == "" {
		return validationError("testcase name is required")
	}
	if tc.Grade < 0 {
		return validationError("testcase %q has negative grade", tc.Name)
	}
	if tc.TimeLimit < 0 || tc.MemoryLimit < 0 || tc.OutputLimit < 0 || tc.ThreadNumberLimit < 0 {
		return validationError("testcase %q has a negative limit", tc.Name)
	}
	return nil
}
