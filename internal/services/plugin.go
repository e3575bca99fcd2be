package services

import (
	"context"
	"strings"

	"github.com/jjudge-oj/catalog/types"
)

// PluginRegistry lists the judge plugins known to the grading engine.
type PluginRegistry interface {
	ListTags(ctx context.Context) ([]types.JudgePluginTag, error)
}

// PluginService validates plugin tags and answers registry lookups. Tags
// referenced by problems are never checked against the registry here; an
// unregistered tag surfaces when the grading engine loads it.
type PluginService struct {
	registry PluginRegistry
}

func NewPluginService(registry PluginRegistry) *PluginService {
	return &PluginService{registry: registry}
}

// Validate normalizes the tag type and rejects unknown kinds.
func (s *PluginService) Validate(tag types.JudgePluginTag) (types.JudgePluginTag, error) {
	return validatePluginTag(tag, "")
}

// ResolveAll returns the registered tags whose type matches pluginType
// case-insensitively. An empty pluginType returns every tag.
func (s *PluginService) ResolveAll(ctx context.Context, pluginType string) ([]types.JudgePluginTag, error) {
	tags, err := s.registry.ListTags(ctx)
	if err != nil {
		return nil, classify(err)
	}
	pluginType = strings.TrimSpace(pluginType)
	if pluginType == "" {
		return tags, nil
	}
	matched := make([]types.JudgePluginTag, 0, len(tags))
	for _, tag := range tags {
		if strings.EqualFold(string(tag.Type), pluginType) {
			matched = append(matched, tag)
		}
	}
	return matched, nil
}

// validatePluginTag normalizes the tag type. A non-empty want restricts the
// tag to that kind of plugin.
func validatePluginTag(tag types.JudgePluginTag, want types.JudgePluginType) (types.JudgePluginTag, error) {
	pluginType, ok := types.ParseJudgePluginType(string(tag.Type))
	if !ok {
		return types.JudgePluginTag{}, validationError("unknown plugin type %q", tag.Type)
	}
	if strings.TrimSpace(tag.Name) == "" {
		return types.JudgePluginTag{}, validationError("plugin name is required")
	}
	if want != "" && pluginType != want {
		return types.JudgePluginTag{}, validationError("plugin %s/%s is a %s plugin, expected %s", tag.Group, tag.Name, pluginType, want)
	}
	tag.Type = pluginType
	return tag, nil
}

// validatePluginTags validates every tag as a want plugin and drops repeats,
// keeping first occurrences in order.
func validatePluginTags(tags []types.JudgePluginTag, want types.JudgePluginType) ([]types.JudgePluginTag, error) {
	out := make([]types.JudgePluginTag, 0, len(tags))
	seen := make(map[types.JudgePluginTag]struct{}, len(tags))
	for _, tag := range tags {
		valid, err := validatePluginTag(tag, want)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[valid]; dup {
			continue
		}
		seen[valid] = struct{}{}
		out = append(out, valid)
	}
	return out, nil
}
