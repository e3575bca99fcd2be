package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jjudge-oj/catalog/internal/logger"
	"github.com/jjudge-oj/catalog/internal/store"
	"github.com/jjudge-oj/catalog/types"
)

// ProblemRepository defines persistence operations for problems.
type ProblemRepository interface {
	Find(ctx context.Context, filter store.ProblemFilter) ([]types.Problem, error)
	Get(ctx context.Context, id int) (types.Problem, error)
	Create(ctx context.Context, problem types.Problem) (types.Problem, error)
	Update(ctx context.Context, problem types.Problem) (types.Problem, error)
	SetArchived(ctx context.Context, id int, archived bool) error
	Delete(ctx context.Context, id int) error
	ListTags(ctx context.Context) ([]string, error)
}

// Visibility decides whether archived problems can be seen.
type Visibility int

const (
	// VisibilityPublic hides archived problems.
	VisibilityPublic Visibility = iota
	// VisibilityElevated is granted to admins and includes archived problems.
	VisibilityElevated
)

func (v Visibility) includeArchived() bool {
	return v == VisibilityElevated
}

// ProblemService encapsulates problem use-cases. Writes to one problem are
// serialized in process; blob I/O happens outside that lock.
type ProblemService struct {
	repo     ProblemRepository
	blobs    *BlobService
	locks    *keyedMutex
	pageSize int

	events        EventPublisher
	eventsChannel string
}

func NewProblemService(repo ProblemRepository, blobs *BlobService, pageSize int) *ProblemService {
	if pageSize < 1 {
		pageSize = 50
	}
	return &ProblemService{
		repo:     repo,
		blobs:    blobs,
		locks:    newKeyedMutex(),
		pageSize: pageSize,
	}
}

// PublishEventsTo enables lifecycle events on the given channel.
func (s *ProblemService) PublishEventsTo(events EventPublisher, channel string) {
	s.events = events
	s.eventsChannel = channel
}

// Create allocates a problem holding only a title.
func (s *ProblemService) Create(ctx context.Context, title string) (types.Problem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.Problem{}, validationError("title is required")
	}
	created, err := s.repo.Create(ctx, types.NewProblem(title))
	if err != nil {
		return types.Problem{}, classify(err)
	}
	s.publishEvent(ctx, created.ID, created.Version, ProblemEventSaved)
	return created, nil
}

// Save upserts the whole aggregate. providedCodes uploads starter code for
// languages that already have an environment on problem; a non-empty
// testcaseIOs replaces the testcase IO archive. Blob references not being
// replaced are carried over from the stored problem, and references the
// write supersedes are released after it commits. The archived flag is
// never changed by Save.
func (s *ProblemService) Save(ctx context.Context, problem types.Problem, providedCodes map[types.Language][]byte, testcaseIOs []byte) (types.Problem, error) {
	problem = problem.Clone()
	if err := normalizeProblem(&problem); err != nil {
		return types.Problem{}, err
	}
	for lang := range providedCodes {
		if _, ok := problem.LanguageEnvs[lang]; !ok {
			return types.Problem{}, validationError("provided codes for %s have no language environment", lang)
		}
	}

	uploaded, uploadedIOs, err := s.uploadBlobs(ctx, providedCodes, testcaseIOs)
	if err != nil {
		return types.Problem{}, err
	}
	newBlobs := make([]string, 0, len(uploaded)+1)
	for _, id := range uploaded {
		newBlobs = append(newBlobs, id)
	}
	if uploadedIOs != "" {
		newBlobs = append(newBlobs, uploadedIOs)
	}

	saved, superseded, err := s.write(ctx, problem, uploaded, uploadedIOs)
	if err != nil {
		s.blobs.releaseAll(ctx, newBlobs)
		return types.Problem{}, err
	}
	s.blobs.releaseAll(ctx, superseded)
	s.publishEvent(ctx, saved.ID, saved.Version, ProblemEventSaved)
	return saved, nil
}

func (s *ProblemService) uploadBlobs(ctx context.Context, providedCodes map[types.Language][]byte, testcaseIOs []byte) (map[types.Language]string, string, error) {
	uploaded := make(map[types.Language]string, len(providedCodes))
	rollback := func() {
		ids := make([]string, 0, len(uploaded))
		for _, id := range uploaded {
			ids = append(ids, id)
		}
		s.blobs.releaseAll(ctx, ids)
	}
	for lang, data := range providedCodes {
		id, err := s.blobs.Upload(ctx, data)
		if err != nil {
			rollback()
			return nil, "", err
		}
		uploaded[lang] = id
	}
	var ioID string
	if len(testcaseIOs) > 0 {
		id, err := s.blobs.Upload(ctx, testcaseIOs)
		if err != nil {
			rollback()
			return nil, "", err
		}
		ioID = id
	}
	return uploaded, ioID, nil
}

// write persists problem under its id lock and returns the blob ids it no
// longer references.
func (s *ProblemService) write(ctx context.Context, problem types.Problem, uploaded map[types.Language]string, uploadedIOs string) (types.Problem, []string, error) {
	if problem.ID == 0 {
		adoptBlobRefs(&problem, nil, uploaded, uploadedIOs)
		created, err := s.create(ctx, problem)
		return created, nil, err
	}

	unlock := s.locks.Lock(problem.ID)
	defer unlock()

	stored, err := s.repo.Get(ctx, problem.ID)
	if errors.Is(err, store.ErrNotFound) {
		adoptBlobRefs(&problem, nil, uploaded, uploadedIOs)
		created, err := s.create(ctx, problem)
		return created, nil, err
	}
	if err != nil {
		return types.Problem{}, nil, classify(err)
	}

	adoptBlobRefs(&problem, &stored, uploaded, uploadedIOs)
	problem.Archived = stored.Archived
	problem.Version = stored.Version
	problem.CreatedAt = stored.CreatedAt
	updated, err := s.repo.Update(ctx, problem)
	if err != nil {
		return types.Problem{}, nil, classify(err)
	}
	return updated, blobDifference(stored.BlobIDs(), updated.BlobIDs()), nil
}

func (s *ProblemService) create(ctx context.Context, problem types.Problem) (types.Problem, error) {
	problem.Archived = false
	created, err := s.repo.Create(ctx, problem)
	if err != nil {
		return types.Problem{}, classify(err)
	}
	return created, nil
}

// adoptBlobRefs sets the blob references problem will be written with: fresh
// uploads win, other references come from stored (nil for a new problem).
func adoptBlobRefs(problem *types.Problem, stored *types.Problem, uploaded map[types.Language]string, uploadedIOs string) {
	for lang, env := range problem.LanguageEnvs {
		env.ProvidedCodesFileID = ""
		if id, ok := uploaded[lang]; ok {
			env.ProvidedCodesFileID = id
		} else if stored != nil {
			env.ProvidedCodesFileID = stored.LanguageEnvs[lang].ProvidedCodesFileID
		}
		problem.LanguageEnvs[lang] = env
	}
	switch {
	case uploadedIOs != "":
		problem.TestcaseIOsFileID = uploadedIOs
	case stored != nil:
		problem.TestcaseIOsFileID = stored.TestcaseIOsFileID
	default:
		problem.TestcaseIOsFileID = ""
	}
}

func blobDifference(before, after []string) []string {
	kept := make(map[string]struct{}, len(after))
	for _, id := range after {
		kept[id] = struct{}{}
	}
	var dropped []string
	for _, id := range before {
		if _, ok := kept[id]; !ok {
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// normalizeProblem validates the aggregate and fills in derived fields.
func normalizeProblem(problem *types.Problem) error {
	problem.Title = strings.TrimSpace(problem.Title)
	if problem.Title == "" {
		return validationError("title is required")
	}
	if problem.ID < 0 {
		return validationError("invalid problem id %d", problem.ID)
	}
	problem.Tags = cleanTags(problem.Tags)
	if problem.LanguageEnvs == nil {
		problem.LanguageEnvs = map[types.Language]types.LanguageEnv{}
	}
	for lang, env := range problem.LanguageEnvs {
		if err := normalizeLanguageEnv(&env, lang); err != nil {
			return err
		}
		problem.LanguageEnvs[lang] = env
	}

	if problem.Testcases == nil {
		problem.Testcases = []types.Testcase{}
	}
	seen := make(map[string]struct{}, len(problem.Testcases))
	for i := range problem.Testcases {
		tc := &problem.Testcases[i]
		if err := validateTestcase(*tc); err != nil {
			return err
		}
		if _, dup := seen[tc.Name]; dup {
			return validationError("duplicate testcase %q", tc.Name)
		}
		seen[tc.Name] = struct{}{}
		tc.ProblemID = problem.ID
	}

	if problem.OutputMatchPolicyPluginTag != nil {
		tag, err := validatePluginTag(*problem.OutputMatchPolicyPluginTag, types.JudgePluginTypeOutputMatchPolicy)
		if err != nil {
			return err
		}
		problem.OutputMatchPolicyPluginTag = &tag
	}
	filters, err := validatePluginTags(problem.FilterPluginTags, types.JudgePluginTypeFilter)
	if err != nil {
		return err
	}
	problem.FilterPluginTags = filters
	return nil
}

func normalizeLanguageEnv(env *types.LanguageEnv, key types.Language) error {
	lang, ok := types.ParseLanguage(string(key))
	if !ok || lang != key {
		return validationError("unsupported language %q", key)
	}
	if env.Language == "" {
		env.Language = key
	}
	if env.Language != key {
		return validationError("language environment %s is stored under %s", env.Language, key)
	}
	if env.ResourceSpec.TimeLimit < 0 || env.ResourceSpec.MemoryLimit < 0 {
		return validationError("negative resource limit for %s", key)
	}
	if env.SubmittedCodeSpecs == nil {
		env.SubmittedCodeSpecs = []types.SubmittedCodeSpec{}
	}
	return nil
}

// Patch applies the fields present in patch and leaves the rest untouched.
func (s *ProblemService) Patch(ctx context.Context, id int, patch types.ProblemPatch) (types.Problem, error) {
	if tag, ok := patch.OutputMatchPolicyPluginTag.Get(); ok {
		valid, err := validatePluginTag(tag, types.JudgePluginTypeOutputMatchPolicy)
		if err != nil {
			return types.Problem{}, err
		}
		patch.OutputMatchPolicyPluginTag = types.Some(valid)
	}
	if tags, ok := patch.FilterPluginTags.Get(); ok {
		valid, err := validatePluginTags(tags, types.JudgePluginTypeFilter)
		if err != nil {
			return types.Problem{}, err
		}
		patch.FilterPluginTags = types.Some(valid)
	}
	if title, ok := patch.Title.Get(); ok {
		title = strings.TrimSpace(title)
		if title == "" {
			return types.Problem{}, validationError("title must not be empty")
		}
		patch.Title = types.Some(title)
	}
	if patch.Empty() {
		return s.FindByID(ctx, id, VisibilityElevated)
	}

	return s.modify(ctx, id, func(problem *types.Problem) error {
		if title, ok := patch.Title.Get(); ok {
			problem.Title = title
		}
		if description, ok := patch.Description.Get(); ok {
			problem.Description = description
		}
		if tag, ok := patch.OutputMatchPolicyPluginTag.Get(); ok {
			problem.OutputMatchPolicyPluginTag = &tag
		}
		if tags, ok := patch.FilterPluginTags.Get(); ok {
			problem.FilterPluginTags = tags
		}
		return nil
	})
}

// PutLanguageEnv replaces the environment for env.Language. The provided
// codes reference of an existing environment is kept; it changes only
// through Save.
func (s *ProblemService) PutLanguageEnv(ctx context.Context, id int, env types.LanguageEnv) (types.Problem, error) {
	lang, ok := types.ParseLanguage(string(env.Language))
	if !ok {
		return types.Problem{}, validationError("unsupported language %q", env.Language)
	}
	env.Language = lang
	if err := normalizeLanguageEnv(&env, lang); err != nil {
		return types.Problem{}, err
	}

	return s.modify(ctx, id, func(problem *types.Problem) error {
		env.ProvidedCodesFileID = problem.LanguageEnvs[lang].ProvidedCodesFileID
		if problem.LanguageEnvs == nil {
			problem.LanguageEnvs = map[types.Language]types.LanguageEnv{}
		}
		problem.LanguageEnvs[lang] = env
		return nil
	})
}

// modify runs a locked load-mutate-store cycle. fn must not touch blob
// references; an error from fn aborts without writing.
func (s *ProblemService) modify(ctx context.Context, id int, fn func(problem *types.Problem) error) (types.Problem, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	problem, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Problem{}, classify(err)
	}
	if err := fn(&problem); err != nil {
		return types.Problem{}, err
	}
	updated, err := s.repo.Update(ctx, problem)
	if err != nil {
		return types.Problem{}, classify(err)
	}
	s.publishEvent(ctx, updated.ID, updated.Version, ProblemEventSaved)
	return updated, nil
}

// FindByID returns the problem. Archived problems are reported as missing
// unless visibility is elevated.
func (s *ProblemService) FindByID(ctx context.Context, id int, visibility Visibility) (types.Problem, error) {
	problem, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Problem{}, classify(err)
	}
	if problem.Archived && !visibility.includeArchived() {
		return types.Problem{}, fmt.Errorf("%w: problem %d", ErrNotFound, id)
	}
	return problem, nil
}

// FindByIDs returns the visible subset of ids that exist, ordered by id.
func (s *ProblemService) FindByIDs(ctx context.Context, ids []int, visibility Visibility) ([]types.Problem, error) {
	if len(ids) == 0 {
		return []types.Problem{}, nil
	}
	problems, err := s.repo.Find(ctx, store.ProblemFilter{
		IDs:             ids,
		IncludeArchived: visibility.includeArchived(),
	})
	if err != nil {
		return nil, classify(err)
	}
	return problems, nil
}

// DeleteOrArchive applies the delete event: a visible problem is archived,
// an archived one is removed together with every blob it references.
// It returns the state reached.
func (s *ProblemService) DeleteOrArchive(ctx context.Context, id int) (LifecycleState, error) {
	next, released, err := s.applyLifecycle(ctx, id, EventDelete)
	if err != nil {
		return next, err
	}
	if next == StateDeleted {
		s.blobs.releaseAll(ctx, released)
	}
	return next, nil
}

// Restore applies the restore event, bringing an archived problem back.
func (s *ProblemService) Restore(ctx context.Context, id int) (types.Problem, error) {
	if _, _, err := s.applyLifecycle(ctx, id, EventRestore); err != nil {
		return types.Problem{}, err
	}
	return s.FindByID(ctx, id, VisibilityElevated)
}

// applyLifecycle performs one transition under the id lock. For a hard
// delete it returns the blob ids the removed problem referenced.
func (s *ProblemService) applyLifecycle(ctx context.Context, id int, event LifecycleEvent) (LifecycleState, []string, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current := StateDeleted
	problem, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		current = stateOf(problem)
	case !errors.Is(err, store.ErrNotFound):
		return current, nil, classify(err)
	}

	next, err := Transition(current, event)
	if err != nil {
		return current, nil, err
	}

	var blobs []string
	var published string
	switch {
	case current == next:
	case next == StateArchived:
		err = s.repo.SetArchived(ctx, id, true)
		published = ProblemEventArchived
	case next == StateVisible:
		err = s.repo.SetArchived(ctx, id, false)
		published = ProblemEventRestored
	case next == StateDeleted:
		err = s.repo.Delete(ctx, id)
		blobs = problem.BlobIDs()
		published = ProblemEventDeleted
	}
	if err != nil {
		return current, nil, classify(err)
	}

	lifecycleTransitions.WithLabelValues(string(event), next.String()).Inc()
	if published != "" {
		logger.FromContext(ctx).Info("problem lifecycle transition",
			"problem_id", id, "event", event, "from", current.String(), "to", next.String())
		s.publishEvent(ctx, id, 0, published)
	}
	return next, blobs, nil
}

// DownloadProvidedCodes opens the provided codes archive of a language
// environment. fileID must be the reference currently held by the problem.
func (s *ProblemService) DownloadProvidedCodes(ctx context.Context, id int, lang types.Language, fileID string, visibility Visibility) (io.ReadCloser, error) {
	problem, err := s.FindByID(ctx, id, visibility)
	if err != nil {
		return nil, err
	}
	env, ok := problem.LanguageEnvs[lang]
	if !ok || env.ProvidedCodesFileID == "" || env.ProvidedCodesFileID != fileID {
		return nil, fmt.Errorf("%w: provided codes %s for %s", ErrNotFound, fileID, lang)
	}
	return s.blobs.Download(ctx, fileID)
}

// DownloadTestcaseIOs opens the testcase IO archive of a problem. fileID
// must be the reference currently held by the problem.
func (s *ProblemService) DownloadTestcaseIOs(ctx context.Context, id int, fileID string, visibility Visibility) (io.ReadCloser, error) {
	problem, err := s.FindByID(ctx, id, visibility)
	if err != nil {
		return nil, err
	}
	if problem.TestcaseIOsFileID == "" || problem.TestcaseIOsFileID != fileID {
		return nil, fmt.Errorf("%w: testcase IOs %s", ErrNotFound, fileID)
	}
	return s.blobs.Download(ctx, fileID)
}
