package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/jjudge-oj/catalog/internal/services"
	"github.com/jjudge-oj/catalog/types"
)

const (
	maxMultipartMemory       = 128 << 20
	maxBlobBytes             = 256 << 20
	formFieldProblem         = "problem"
	formFieldTestcaseIOs     = "testcaseIOs"
	formFieldProvidedPrefix  = "providedCodes."
	blobDownloadContentType  = "application/zip"
	providedCodesArchiveName = "provided-codes.zip"
	testcaseIOsArchiveName   = "testcase-ios.zip"
)

// ProblemHandler provides HTTP handlers for problems.
type ProblemHandler struct {
	problems  *services.ProblemService
	testcases *services.TestcaseService
}

// NewProblemHandler constructs a handler with the provided services.
func NewProblemHandler(problems *services.ProblemService, testcases *services.TestcaseService) *ProblemHandler {
	return &ProblemHandler{
		problems:  problems,
		testcases: testcases,
	}
}

// ProblemRouter registers problem routes on the given router.
func ProblemRouter(
	r chi.Router,
	problems *services.ProblemService,
	testcases *services.TestcaseService,
	auth *Auth,
) {
	handler := NewProblemHandler(problems, testcases)

	r.With(auth.Optional).Get("/", handler.ListProblems)
	r.With(auth.RequireAdmin).Post("/", handler.CreateProblem)
	r.With(auth.Optional).Get("/tags", handler.ListTags)
	r.Route("/{problemID}", func(r chi.Router) {
		r.With(auth.Optional).Get("/", handler.GetProblem)
		r.With(auth.RequireAdmin).Put("/", handler.SaveProblem)
		r.With(auth.RequireAdmin).Patch("/", handler.PatchProblem)
		r.With(auth.RequireAdmin).Delete("/", handler.DeleteProblem)
		r.With(auth.RequireAdmin).Post("/restore", handler.RestoreProblem)
		r.With(auth.RequireAdmin).Put("/testcases/{name}", handler.UpsertTestcase)
		r.With(auth.RequireAdmin).Delete("/testcases/{name}", handler.RemoveTestcase)
		r.With(auth.RequireAdmin).Put("/langEnvs/{language}", handler.PutLanguageEnv)
		r.With(auth.Optional).Get("/testcaseIOs/{fileID}", handler.DownloadTestcaseIOs)
		r.With(auth.Optional).Get("/{language}/providedCodes/{fileID}", handler.DownloadProvidedCodes)
	})
}

func (h *ProblemHandler) ListProblems(w http.ResponseWriter, r *http.Request) {
	query, err := parseProblemQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query.Visibility = visibilityFromContext(r.Context())

	items, err := h.problems.List(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err, "list problems")
		return
	}

	writeJSON(w, http.StatusOK, ProblemListResponse{
		Items:    items,
		Page:     query.Page,
		PageSize: h.problems.PageSize(),
	})
}

func (h *ProblemHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.problems.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list tags")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *ProblemHandler) GetProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	problem, err := h.problems.FindByID(r.Context(), id, visibilityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "fetch problem")
		return
	}
	writeJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) CreateProblem(w http.ResponseWriter, r *http.Request) {
	var req CreateProblemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.problems.Create(r.Context(), req.Title)
	if err != nil {
		writeServiceError(w, r, err, "create problem")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ProblemHandler) SaveProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseSaveForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Problem.ID = id

	saved, err := h.problems.Save(r.Context(), req.Problem, req.ProvidedCodes, req.TestcaseIOs)
	if err != nil {
		writeServiceError(w, r, err, "save problem")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *ProblemHandler) PatchProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ProblemPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patched, err := h.problems.Patch(r.Context(), id, req.toPatch())
	if err != nil {
		writeServiceError(w, r, err, "patch problem")
		return
	}
	writeJSON(w, http.StatusOK, patched)
}

func (h *ProblemHandler) DeleteProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.problems.DeleteOrArchive(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "delete problem")
		return
	}
	writeJSON(w, http.StatusOK, LifecycleResponse{ID: id, State: state.String()})
}

func (h *ProblemHandler) RestoreProblem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	restored, err := h.problems.Restore(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "restore problem")
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

func (h *ProblemHandler) UpsertTestcase(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var testcase types.Testcase
	if err := decodeJSON(r, &testcase); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.testcases.Upsert(r.Context(), id, chi.URLParam(r, "name"), testcase)
	if err != nil {
		writeServiceError(w, r, err, "save testcase")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *ProblemHandler) RemoveTestcase(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.testcases.Remove(r.Context(), id, chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, r, err, "remove testcase")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProblemHandler) PutLanguageEnv(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang, ok := types.ParseLanguage(chi.URLParam(r, "language"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	var env types.LanguageEnv
	if err := decodeJSON(r, &env); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	env.Language = lang

	updated, err := h.problems.PutLanguageEnv(r.Context(), id, env)
	if err != nil {
		writeServiceError(w, r, err, "save language environment")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ProblemHandler) DownloadProvidedCodes(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang, ok := types.ParseLanguage(chi.URLParam(r, "language"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	rc, err := h.problems.DownloadProvidedCodes(r.Context(), id, lang, chi.URLParam(r, "fileID"), visibilityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "download provided codes")
		return
	}
	streamBlob(w, r, rc, providedCodesArchiveName)
}

func (h *ProblemHandler) DownloadTestcaseIOs(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "problemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, err := h.problems.DownloadTestcaseIOs(r.Context(), id, chi.URLParam(r, "fileID"), visibilityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "download testcase IOs")
		return
	}
	streamBlob(w, r, rc, testcaseIOsArchiveName)
}

func streamBlob(w http.ResponseWriter, r *http.Request, rc io.ReadCloser, filename string) {
	defer rc.Close()
	w.Header().Set("Content-Type", blobDownloadContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		httplog.LogEntry(r.Context()).Warn("blob download interrupted", "error", err)
	}
}

// CreateProblemRequest is the payload of POST /problems.
type CreateProblemRequest struct {
	Title string `json:"title"`
}

// ProblemPatchRequest carries the fields to change. Omitted or null fields
// are left untouched.
type ProblemPatchRequest struct {
	Title                      *string                 `json:"title"`
	Description                *string                 `json:"description"`
	OutputMatchPolicyPluginTag *types.JudgePluginTag   `json:"output_match_policy_plugin_tag"`
	FilterPluginTags           *[]types.JudgePluginTag `json:"filter_plugin_tags"`
}

func (req ProblemPatchRequest) toPatch() types.ProblemPatch {
	var patch types.ProblemPatch
	if req.Title != nil {
		patch.Title = types.Some(*req.Title)
	}
	if req.Description != nil {
		patch.Description = types.Some(*req.Description)
	}
	if req.OutputMatchPolicyPluginTag != nil {
		patch.OutputMatchPolicyPluginTag = types.Some(*req.OutputMatchPolicyPluginTag)
	}
	if req.FilterPluginTags != nil {
		patch.FilterPluginTags = types.Some(*req.FilterPluginTags)
	}
	return patch
}

// ProblemListResponse is one page of the catalog. An empty page marks the end.
type ProblemListResponse struct {
	Items    []types.Problem `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// LifecycleResponse reports the state a delete request reached.
type LifecycleResponse struct {
	ID    int    `json:"id"`
	State string `json:"state"`
}

// SaveRequest is the parsed multipart payload of PUT /problems/{id}.
type SaveRequest struct {
	Problem       types.Problem
	ProvidedCodes map[types.Language][]byte
	TestcaseIOs   []byte
}

func parseProblemQuery(r *http.Request) (services.ProblemQuery, error) {
	values := r.URL.Query()
	query := services.ProblemQuery{Tags: splitList(values["tags"])}

	for _, raw := range splitList(values["ids"]) {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			return services.ProblemQuery{}, errors.New("invalid ids")
		}
		query.IDs = append(query.IDs, id)
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return services.ProblemQuery{}, errors.New("invalid page")
		}
		query.Page = page
	}
	return query, nil
}

func parseSaveForm(r *http.Request) (SaveRequest, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return SaveRequest{}, errors.New("invalid multipart form")
	}

	rawProblem := strings.TrimSpace(r.FormValue(formFieldProblem))
	if rawProblem == "" {
		return SaveRequest{}, errors.New("problem is required")
	}
	var problem types.Problem
	if err := json.Unmarshal([]byte(rawProblem), &problem); err != nil {
		return SaveRequest{}, errors.New("invalid problem")
	}

	req := SaveRequest{
		Problem:       problem,
		ProvidedCodes: make(map[types.Language][]byte),
	}
	for field, files := range r.MultipartForm.File {
		switch {
		case field == formFieldTestcaseIOs:
			data, err := readSingleFile(field, files)
			if err != nil {
				return SaveRequest{}, err
			}
			req.TestcaseIOs = data
		case strings.HasPrefix(field, formFieldProvidedPrefix):
			lang, ok := types.ParseLanguage(strings.TrimPrefix(field, formFieldProvidedPrefix))
			if !ok {
				return SaveRequest{}, fmt.Errorf("unsupported language in %s", field)
			}
			data, err := readSingleFile(field, files)
			if err != nil {
				return SaveRequest{}, err
			}
			req.ProvidedCodes[lang] = data
		default:
			return SaveRequest{}, fmt.Errorf("unexpected file field %s", field)
		}
	}
	return req, nil
}

func readSingleFile(field string, files []*multipart.FileHeader) ([]byte, error) {
	if len(files) != 1 {
		return nil, fmt.Errorf("exactly one %s file is allowed", field)
	}
	file, err := files[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()
	return readFileLimited(file, maxBlobBytes)
}
