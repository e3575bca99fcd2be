package plugins

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jjudge-oj/catalog/types"
	"gopkg.in/yaml.v3"
)

// defaultTags is the registry used when no registry file is configured.
var defaultTags = []types.JudgePluginTag{
	{Group: "jjudge", Name: "all-match", Version: "1.0", Type: types.JudgePluginTypeOutputMatchPolicy},
	{Group: "jjudge", Name: "regex-match", Version: "1.0", Type: types.JudgePluginTypeOutputMatchPolicy},
	{Group: "jjudge", Name: "trim-whitespace", Version: "1.0", Type: types.JudgePluginTypeFilter},
	{Group: "jjudge", Name: "ignore-case", Version: "1.0", Type: types.JudgePluginTypeFilter},
}

// registryFile is the on-disk layout of a plugin registry:
//
//	plugins:
//	  - group: jjudge
//	    name: all-match
//	    version: "1.0"
//	    type: OUTPUT_MATCH_POLICY
type registryFile struct {
	Plugins []types.JudgePluginTag `yaml:"plugins"`
}

// Registry is a static catalog of judge plugin tags. It is read-only once
// constructed and safe for concurrent use.
type Registry struct {
	tags []types.JudgePluginTag
}

// NewRegistry constructs a registry holding the given tags.
func NewRegistry(tags ...types.JudgePluginTag) *Registry {
	return &Registry{tags: append([]types.JudgePluginTag{}, tags...)}
}

// DefaultRegistry returns the built-in plugin registry.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultTags...)
}

// LoadRegistry reads a YAML registry file. An empty path yields the
// built-in registry.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes YAML registry data. Types are matched
// case-insensitively and every entry must name a recognized type.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode plugin registry: %w", err)
	}

	tags := make([]types.JudgePluginTag, 0, len(file.Plugins))
	for i, tag := range file.Plugins {
		pluginType, ok := types.ParseJudgePluginType(string(tag.Type))
		if !ok {
			return nil, fmt.Errorf("plugin at index %d has unknown type %q", i, tag.Type)
		}
		if strings.TrimSpace(tag.Name) == "" {
			return nil, fmt.Errorf("plugin at index %d has empty name", i)
		}
		tag.Type = pluginType
		tags = append(tags, tag)
	}
	return &Registry{tags: tags}, nil
}

// ListTags returns every registered tag in registration order.
func (r *Registry) ListTags(ctx context.Context) ([]types.JudgePluginTag, error) {
	return append([]types.JudgePluginTag{}, r.tags...), nil
}
