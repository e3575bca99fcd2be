package types

import (
	"strings"
	"time"
)

// Problem represents a gradable exercise in the jjudge catalog.
// It owns its language environments, testcases and judge plugin selection,
// and references (but does not own the bytes of) externally stored blobs.
type Problem struct {
	// ID is the unique identifier of the problem. It is immutable once assigned.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the problem.
	Title string `json:"title" db:"title"`

	// Description contains the full problem statement.
	Description string `json:"description" db:"description"`

	// Tags are free-form labels used for catalog filtering.
	Tags []string `json:"tags" db:"tags"`

	// Archived marks a soft-deleted problem. Archived problems are hidden from
	// ordinary listings and removed permanently by a second delete request.
	Archived bool `json:"archived" db:"archived"`

	// LanguageEnvs holds at most one environment per language.
	LanguageEnvs map[Language]LanguageEnv `json:"language_envs" db:"language_envs"`

	// Testcases is the ordered sequence of testcases, unique by name.
	Testcases []Testcase `json:"testcases" db:"testcases"`

	// OutputMatchPolicyPluginTag selects how a submission's output is compared
	// to the expected output. Nil until configured.
	OutputMatchPolicyPluginTag *JudgePluginTag `json:"output_match_policy_plugin_tag" db:"output_match_policy_plugin_tag"`

	// FilterPluginTags are additional judge plugin stages.
	FilterPluginTags []JudgePluginTag `json:"filter_plugin_tags" db:"filter_plugin_tags"`

	// TestcaseIOsFileID references the zipped input/output fixtures in blob
	// storage. Empty until uploaded.
	TestcaseIOsFileID string `json:"testcase_ios_file_id,omitempty" db:"testcase_ios_file_id"`

	// Version is bumped on every write and used to detect concurrent writers.
	Version int `json:"version" db:"version"`

	// CreatedAt is the timestamp at which the problem was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the problem.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewProblem returns a problem with only a title and documented defaults.
func NewProblem(title string) Problem {
	return Problem{
		Title:            title,
		Tags:             []string{},
		LanguageEnvs:     map[Language]LanguageEnv{},
		Testcases:        []Testcase{},
		FilterPluginTags: []JudgePluginTag{},
	}
}

// BlobIDs returns every blob identifier referenced by the problem.
func (p Problem) BlobIDs() []string {
	ids := make([]string, 0, len(p.LanguageEnvs)+1)
	for _, env := range p.LanguageEnvs {
		if env.ProvidedCodesFileID != "" {
			ids = append(ids, env.ProvidedCodesFileID)
		}
	}
	if p.TestcaseIOsFileID != "" {
		ids = append(ids, p.TestcaseIOsFileID)
	}
	return ids
}

// HasAnyTag reports whether the problem carries at least one of the given tags.
func (p Problem) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TestcaseIndex returns the position of the named testcase, or -1.
func (p Problem) TestcaseIndex(name string) int {
	for i, tc := range p.Testcases {
		if tc.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate it without aliasing.
func (p Problem) Clone() Problem {
	out := p
	out.Tags = append([]string{}, p.Tags...)
	out.Testcases = append([]Testcase{}, p.Testcases...)
	out.FilterPluginTags = append([]JudgePluginTag{}, p.FilterPluginTags...)
	out.LanguageEnvs = make(map[Language]LanguageEnv, len(p.LanguageEnvs))
	for lang, env := range p.LanguageEnvs {
		env.SubmittedCodeSpecs = append([]SubmittedCodeSpec{}, env.SubmittedCodeSpecs...)
		out.LanguageEnvs[lang] = env
	}
	if p.OutputMatchPolicyPluginTag != nil {
		tag := *p.OutputMatchPolicyPluginTag
		out.OutputMatchPolicyPluginTag = &tag
	}
	return out
}

// Language identifies a programming language supported by the judge.
type Language string

// Supported languages.
const (
	LanguageC      Language = "C"
	LanguageCPP    Language = "CPP"
	LanguageJava   Language = "JAVA"
	LanguagePython Language = "PYTHON"
)

// ParseLanguage maps a case-insensitive name onto a supported Language.
func ParseLanguage(raw string) (Language, bool) {
	switch lang := Language(strings.ToUpper(strings.TrimSpace(raw))); lang {
	case LanguageC, LanguageCPP, LanguageJava, LanguagePython:
		return lang, true
	default:
		return "", false
	}
}

// LanguageEnv is the per-language configuration of a problem.
type LanguageEnv struct {
	// Language is the language this environment applies to.
	Language Language `json:"language"`

	// Compilation describes how submitted code is built.
	Compilation Compilation `json:"compilation"`

	// ResourceSpec bounds the resources a run may consume.
	ResourceSpec ResourceSpec `json:"resource_spec"`

	// SubmittedCodeSpecs lists the files a submission is expected to contain.
	SubmittedCodeSpecs []SubmittedCodeSpec `json:"submitted_code_specs"`

	// ProvidedCodesFileID references the zipped starter code in blob storage.
	// Empty when the problem provides no starter code for this language.
	ProvidedCodesFileID string `json:"provided_codes_file_id,omitempty"`
}

// Compilation holds the build script for a language environment.
type Compilation struct {
	Script string `json:"script"`
}

// ResourceSpec holds the run limits for a language environment.
type ResourceSpec struct {
	// TimeLimit is expressed in milliseconds.
	TimeLimit int64 `json:"time_limit"`

	// MemoryLimit is expressed in bytes.
	MemoryLimit int64 `json:"memory_limit"`
}

// SubmittedCodeSpec names one file a submission must provide.
type SubmittedCodeSpec struct {
	Format   string `json:"format"`
	FileName string `json:"file_name"`
}

// Testcase represents a single graded input/output pair, identified by
// Name within its problem.
type Testcase struct {
	// Name is unique within a problem.
	Name string `json:"name"`

	// ProblemID is the identifier of the problem this testcase belongs to.
	ProblemID int `json:"problem_id"`

	// TimeLimit is expressed in milliseconds.
	TimeLimit int64 `json:"time_limit"`

	// MemoryLimit is expressed in bytes.
	MemoryLimit int64 `json:"memory_limit"`

	// OutputLimit is expressed in bytes.
	OutputLimit int64 `json:"output_limit"`

	// ThreadNumberLimit caps the threads a run may spawn.
	ThreadNumberLimit int `json:"thread_number_limit"`

	// Grade is the number of points awarded when the testcase passes.
	Grade int `json:"grade"`
}
