package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jjudge-oj/catalog/internal/logger"
	"github.com/jjudge-oj/catalog/internal/store"
	"github.com/jjudge-oj/catalog/types"
	"golang.org/x/sync/errgroup"
)

// HomeworkRepository resolves homeworks by id.
type HomeworkRepository interface {
	Get(ctx context.Context, id int) (types.Homework, error)
}

// StudentRepository resolves students by email.
type StudentRepository interface {
	FindByEmails(ctx context.Context, emails []string) ([]types.Student, error)
}

// SubmissionRepository finds a student's best record on a problem and
// reports store.ErrNotFound when there was no attempt.
type SubmissionRepository interface {
	FindBestRecord(ctx context.Context, problemID, studentID int) (types.SubmissionRecord, error)
}

// HomeworkService aggregates student progress over homework problems.
type HomeworkService struct {
	homeworks   HomeworkRepository
	students    StudentRepository
	submissions SubmissionRepository
	problems    *ProblemService
	workers     int
}

func NewHomeworkService(
	homeworks HomeworkRepository,
	students StudentRepository,
	submissions SubmissionRepository,
	problems *ProblemService,
	workers int,
) *HomeworkService {
	if workers < 1 {
		workers = 1
	}
	return &HomeworkService{
		homeworks:   homeworks,
		students:    students,
		submissions: submissions,
		problems:    problems,
		workers:     workers,
	}
}

// GetProgress returns one entry per resolved student, in the order of
// emails. Emails without a student are dropped. Scores hold the best grade
// per attempted problem; a failed lookup only drops that one score.
func (s *HomeworkService) GetProgress(ctx context.Context, homeworkID int, emails []string) ([]types.StudentProgress, error) {
	homework, err := s.homeworks.Get(ctx, homeworkID)
	if err != nil {
		return nil, classify(err)
	}

	emails = uniqueEmails(emails)
	if len(emails) == 0 {
		return []types.StudentProgress{}, nil
	}
	found, err := s.students.FindByEmails(ctx, emails)
	if err != nil {
		return nil, classify(err)
	}
	byEmail := make(map[string]types.Student, len(found))
	for _, student := range found {
		byEmail[strings.ToLower(student.Email)] = student
	}

	problemIDs := s.liveProblemIDs(ctx, homework)

	progress := make([]types.StudentProgress, 0, len(found))
	for _, email := range emails {
		student, ok := byEmail[strings.ToLower(email)]
		if !ok {
			continue
		}
		delete(byEmail, strings.ToLower(email))
		progress = append(progress, types.StudentProgress{
			StudentID:    student.ID,
			StudentName:  student.Name,
			StudentEmail: student.Email,
			Scores:       make(map[int]int, len(problemIDs)),
		})
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.workers)
	log := logger.FromContext(ctx)
	for i := range progress {
		entry := &progress[i]
		for _, problemID := range problemIDs {
			g.Go(func() error {
				record, err := s.submissions.FindBestRecord(ctx, problemID, entry.StudentID)
				switch {
				case err == nil && record.Verdict == types.VerdictPending:
					log.Debug("skipping unjudged record",
						"problem_id", problemID, "student_id", entry.StudentID, "verdict", record.Verdict.String())
				case err == nil:
					mu.Lock()
					entry.Scores[problemID] = record.Grade
					mu.Unlock()
				case errors.Is(err, store.ErrNotFound):
				default:
					log.Warn("failed to look up best record",
						"homework_id", homeworkID, "student_id", entry.StudentID, "problem_id", problemID, "error", err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return progress, nil
}

// liveProblemIDs drops homework problems that no longer exist in the
// catalog. On lookup failure the homework's list is used as is.
func (s *HomeworkService) liveProblemIDs(ctx context.Context, homework types.Homework) []int {
	if s.problems == nil || len(homework.ProblemIDs) == 0 {
		return homework.ProblemIDs
	}
	problems, err := s.problems.FindByIDs(ctx, homework.ProblemIDs, VisibilityElevated)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to resolve homework problems",
			"homework_id", homework.ID, "error", err)
		return homework.ProblemIDs
	}
	live := make(map[int]struct{}, len(problems))
	for _, problem := range problems {
		live[problem.ID] = struct{}{}
	}
	ids := make([]int, 0, len(problems))
	for _, id := range homework.ProblemIDs {
		if _, ok := live[id]; ok {
			ids = append(ids, id)
			delete(live, id)
		}
	}
	return ids
}

func uniqueEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(email)
		key := strings.ToLower(email)
		if email == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out
}
