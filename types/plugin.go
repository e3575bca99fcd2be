package types

import (
	"fmt"
	"strings"
)

// JudgePluginType is the kind of stage a judge plugin implements.
type JudgePluginType string

// Recognized plugin kinds.
const (
	JudgePluginTypeOutputMatchPolicy JudgePluginType = "OUTPUT_MATCH_POLICY"
	JudgePluginTypeFilter            JudgePluginType = "FILTER"
)

// ParseJudgePluginType maps a case-insensitive name onto a recognized kind.
func ParseJudgePluginType(raw string) (JudgePluginType, bool) {
	switch t := JudgePluginType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case JudgePluginTypeOutputMatchPolicy, JudgePluginTypeFilter:
		return t, true
	default:
		return "", false
	}
}

// JudgePluginTag identifies a pluggable grading stage. It is resolved against
// a plugin registry by the grading engine; the catalog never loads plugin code.
// Two tags are equal when all four fields are equal.
type JudgePluginTag struct {
	Group   string          `json:"group" yaml:"group"`
	Name    string          `json:"name" yaml:"name"`
	Version string          `json:"version" yaml:"version"`
	Type    JudgePluginType `json:"type" yaml:"type"`
}

func (t JudgePluginTag) String() string {
	return fmt.Sprintf("%s:%s:%s(%s)", t.Group, t.Name, t.Version, t.Type)
}
