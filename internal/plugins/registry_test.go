package plugins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jjudge-oj/catalog/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistryNormalizesType(t *testing.T) {
	data := []byte(`
plugins:
  - group: judge-girl
    name: regex
    version: "2.1"
    type: output_match_policy
  - group: judge-girl
    name: strip
    version: "1.0"
    type: Filter
`)
	registry, err := ParseRegistry(data)
	require.NoError(t, err)

	tags, err := registry.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, types.JudgePluginTag{
		Group:   "judge-girl",
		Name:    "regex",
		Version: "2.1",
		Type:    types.JudgePluginTypeOutputMatchPolicy,
	}, tags[0])
	assert.Equal(t, types.JudgePluginTypeFilter, tags[1].Type)
}

func TestParseRegistryRejectsUnknownType(t *testing.T) {
	_, err := ParseRegistry([]byte("plugins:\n  - name: x\n    type: SCORER\n"))
	require.Error(t, err)
}

func TestParseRegistryRejectsEmptyName(t *testing.T) {
	_, err := ParseRegistry([]byte("plugins:\n  - group: g\n    type: FILTER\n"))
	require.Error(t, err)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugins:\n  - group: g\n    name: n\n    version: v\n    type: FILTER\n"), 0o600))

	registry, err := LoadRegistry(path)
	require.NoError(t, err)
	tags, err := registry.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.JudgePluginTag{{Group: "g", Name: "n", Version: "v", Type: types.JudgePluginTypeFilter}}, tags)
}

func TestLoadRegistryDefaults(t *testing.T) {
	registry, err := LoadRegistry("")
	require.NoError(t, err)
	tags, err := registry.ListTags(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tags)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
