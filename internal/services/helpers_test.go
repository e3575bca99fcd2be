package services

import (
	"context"
	"io"
	"testing"

	"github.com/jjudge-oj/catalog/internal/storage"
	"github.com/jjudge-oj/catalog/internal/store"
	"github.com/jjudge-oj/catalog/types"
	"github.com/stretchr/testify/require"
)

type testCatalog struct {
	repo     *store.MemoryProblemRepository
	blobs    *storage.MemoryStorage
	problems *ProblemService
}

func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	repo := store.NewMemoryProblemRepository()
	blobs := storage.NewMemoryStorage("test")
	return &testCatalog{
		repo:     repo,
		blobs:    blobs,
		problems: NewProblemService(repo, NewBlobService(storage.NewStorage(blobs)), 50),
	}
}

func readBlob(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func problemWithEnvs(title string, langs ...types.Language) types.Problem {
	problem := types.NewProblem(title)
	for _, lang := range langs {
		problem.LanguageEnvs[lang] = types.LanguageEnv{
			Language:     lang,
			Compilation:  types.Compilation{Script: "make"},
			ResourceSpec: types.ResourceSpec{TimeLimit: 1000, MemoryLimit: 64 << 20},
		}
	}
	return problem
}

func mustCreate(t *testing.T, s *ProblemService, title string) types.Problem {
	t.Helper()
	problem, err := s.Create(context.Background(), title)
	require.NoError(t, err)
	return problem
}
