package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jjudge-oj/catalog/internal/store"
	"github.com/jjudge-oj/catalog/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHomeworks map[int]types.Homework

func (f fakeHomeworks) Get(ctx context.Context, id int) (types.Homework, error) {
	homework, ok := f[id]
	if !ok {
		return types.Homework{}, store.ErrNotFound
	}
	return homework, nil
}

type fakeStudents []types.Student

func (f fakeStudents) FindByEmails(ctx context.Context, emails []string) ([]types.Student, error) {
	var out []types.Student
	for _, student := range f {
		for _, email := range emails {
			if student.Email == email {
				out = append(out, student)
			}
		}
	}
	return out, nil
}

type recordKey struct{ problemID, studentID int }

type fakeSubmissions struct {
	grades  map[recordKey]int
	pending map[recordKey]bool
	failing map[recordKey]bool
	calls   atomic.Int32
}

func (f *fakeSubmissions) FindBestRecord(ctx context.Context, problemID, studentID int) (types.SubmissionRecord, error) {
	f.calls.Add(1)
	key := recordKey{problemID, studentID}
	if f.failing[key] {
		return types.SubmissionRecord{}, errors.New("submission service unavailable")
	}
	grade, ok := f.grades[key]
	if !ok {
		return types.SubmissionRecord{}, store.ErrNotFound
	}
	verdict := types.VerdictAccepted
	if f.pending[key] {
		verdict = types.VerdictPending
	}
	return types.SubmissionRecord{ProblemID: problemID, StudentID: studentID, Verdict: verdict, Grade: grade}, nil
}

type progressFixture struct {
	catalog     *testCatalog
	submissions *fakeSubmissions
	service     *HomeworkService
	p1, p2      types.Problem
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()
	c := newTestCatalog(t)
	p1 := mustCreate(t, c.problems, "p1")
	p2 := mustCreate(t, c.problems, "p2")

	homeworks := fakeHomeworks{1: {ID: 1, Name: "week 1", ProblemIDs: []int{p1.ID, p2.ID}}}
	students := fakeStudents{
		{ID: 10, Name: "Alice", Email: "alice@example.com"},
		{ID: 20, Name: "Bob", Email: "bob@example.com"},
	}
	submissions := &fakeSubmissions{
		grades: map[recordKey]int{
			{p1.ID, 10}: 100,
			{p2.ID, 10}: 40,
			{p1.ID, 20}: 70,
			{p2.ID, 20}: 90,
		},
		pending: map[recordKey]bool{},
		failing: map[recordKey]bool{},
	}
	return &progressFixture{
		catalog:     c,
		submissions: submissions,
		service:     NewHomeworkService(homeworks, students, submissions, c.problems, 4),
		p1:          p1,
		p2:          p2,
	}
}

func TestGetProgressKeepsEmailOrderAndDropsUnknown(t *testing.T) {
	f := newProgressFixture(t)

	progress, err := f.service.GetProgress(context.Background(), 1,
		[]string{"bob@example.com", "nobody@example.com", "alice@example.com", "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, progress, 2)

	assert.Equal(t, 20, progress[0].StudentID)
	assert.Equal(t, "Bob", progress[0].StudentName)
	assert.Equal(t, map[int]int{f.p1.ID: 70, f.p2.ID: 90}, progress[0].Scores)
	assert.Equal(t, 10, progress[1].StudentID)
	assert.Equal(t, map[int]int{f.p1.ID: 100, f.p2.ID: 40}, progress[1].Scores)
}

func TestGetProgressOmitsUnattemptedAndFailedPairs(t *testing.T) {
	f := newProgressFixture(t)
	delete(f.submissions.grades, recordKey{f.p2.ID, 10})
	f.submissions.failing[recordKey{f.p1.ID, 20}] = true

	progress, err := f.service.GetProgress(context.Background(), 1,
		[]string{"alice@example.com", "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, progress, 2)
	assert.Equal(t, map[int]int{f.p1.ID: 100}, progress[0].Scores)
	assert.Equal(t, map[int]int{f.p2.ID: 90}, progress[1].Scores)
	assert.Equal(t, int32(4), f.submissions.calls.Load())
}

func TestGetProgressIgnoresUnjudgedRecords(t *testing.T) {
	f := newProgressFixture(t)
	f.submissions.pending[recordKey{f.p2.ID, 10}] = true

	progress, err := f.service.GetProgress(context.Background(), 1, []string{"alice@example.com"})
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, map[int]int{f.p1.ID: 100}, progress[0].Scores)
}

func TestGetProgressSkipsDeletedProblems(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()
	_, err := f.catalog.problems.DeleteOrArchive(ctx, f.p2.ID)
	require.NoError(t, err)
	_, err = f.catalog.problems.DeleteOrArchive(ctx, f.p2.ID)
	require.NoError(t, err)

	progress, err := f.service.GetProgress(ctx, 1, []string{"alice@example.com"})
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, map[int]int{f.p1.ID: 100}, progress[0].Scores)
}

func TestGetProgressUnknownHomework(t *testing.T) {
	f := newProgressFixture(t)
	_, err := f.service.GetProgress(context.Background(), 99, []string{"alice@example.com"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetProgressNoEmails(t *testing.T) {
	f := newProgressFixture(t)
	progress, err := f.service.GetProgress(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, progress)
}
