package types

// Optional wraps a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// ProblemPatch carries the fields of a partial problem update. Absent fields
// are left untouched; there is no way to clear a field through a patch.
type ProblemPatch struct {
	Title                      Optional[string]
	Description                Optional[string]
	OutputMatchPolicyPluginTag Optional[JudgePluginTag]
	FilterPluginTags           Optional[[]JudgePluginTag]
}

// Empty reports whether the patch carries no fields.
func (p ProblemPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.OutputMatchPolicyPluginTag.Set && !p.FilterPluginTags.Set
}
