package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/auth"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/features"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
	"github.com/helixir/research-assistant-service/internal/storage"
	"github.com/helixir/research-assistant-service/internal/temporal"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeAuth struct {
	byToken     map[string]*domain.User
	registered  []auth.RegisterInput
	registerErr error
	authErr     error
}

func (f *fakeAuth) Register(_ context.Context, in auth.RegisterInput) (*domain.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, in)
	return &domain.User{ID: uuid.New(), Email: in.Email, Name: in.Name, Role: in.Role, PasswordHash: "stored-hash"}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*auth.LoginResult, error) {
	for token, u := range f.byToken {
		if u.Email == email && password == "correct horse" {
			return &auth.LoginResult{AccessToken: token, User: u}, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	u, ok := f.byToken[token]
	if !ok {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return u, nil
}

// fakeFeatures implements the operations the tests reach; the embedded
// interface panics for anything else.
type fakeFeatures struct {
	FeatureService

	surveyFn     func(userID uuid.UUID, req features.SurveyRequest) (*features.SurveyResponse, error)
	benchmarkFn  func(req features.BenchmarkRequest) (*features.BenchmarkResponse, error)
	transcribeFn func(filename, contentType string, body []byte) (*features.TranscriptResponse, error)
	translateErr error
}

func (f *fakeFeatures) GenerateSurvey(_ context.Context, userID uuid.UUID, req features.SurveyRequest) (*features.SurveyResponse, error) {
	return f.surveyFn(userID, req)
}

func (f *fakeFeatures) RecommendBenchmarks(_ context.Context, req features.BenchmarkRequest) (*features.BenchmarkResponse, error) {
	return f.benchmarkFn(req)
}

func (f *fakeFeatures) Translate(context.Context, uuid.UUID, features.TranslateRequest) (*features.TranslateResponse, error) {
	return nil, f.translateErr
}

func (f *fakeFeatures) Transcribe(_ context.Context, filename, contentType string, r io.Reader) (*features.TranscriptResponse, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return f.transcribeFn(filename, contentType, body)
}

type memProjects struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Project
}

func (m *memProjects) Create(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = p
	return nil
}

func (m *memProjects) Get(_ context.Context, userID, id uuid.UUID) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return nil, domain.NewNotFoundError("project", id.String())
	}
	return p, nil
}

func (m *memProjects) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Project
	for _, p := range m.items {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memDocuments struct {
	mu        sync.Mutex
	items     []*domain.Document
	createErr error
}

func (m *memDocuments) Create(_ context.Context, d *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, d)
	return nil
}

func (m *memDocuments) Get(_ context.Context, userID, id uuid.UUID) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.items {
		if d.ID == id && d.UserID == userID {
			return d, nil
		}
	}
	return nil, domain.NewNotFoundError("document", id.String())
}

func (m *memDocuments) ListByProject(_ context.Context, userID, projectID uuid.UUID) ([]*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Document
	for _, d := range m.items {
		if d.UserID == userID && d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

type memSources struct {
	mu    sync.Mutex
	items []*domain.Source
}

func (m *memSources) Create(_ context.Context, src *domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, src)
	return nil
}

func (m *memSources) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Source
	for _, src := range m.items {
		if src.ProjectID == projectID {
			out = append(out, src)
		}
	}
	return out, nil
}

type memJobs struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Job
}

func (m *memJobs) Create(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.items[j.ID] = &cp
	return nil
}

func (m *memJobs) Get(_ context.Context, userID, id uuid.UUID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.items[id]
	if !ok || j.UserID != userID {
		return nil, domain.NewNotFoundError("job", id.String())
	}
	return j, nil
}

func (m *memJobs) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("job", id.String())
	}
	return j, nil
}

func (m *memJobs) SetWorkflowID(_ context.Context, id uuid.UUID, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.items[id]
	if !ok {
		return domain.NewNotFoundError("job", id.String())
	}
	j.WorkflowID = workflowID
	return nil
}

func (m *memJobs) UpdateStatus(_ context.Context, id uuid.UUID, status domain.JobStatus, message string, result json.RawMessage) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("job", id.String())
	}
	if j.Status.IsTerminal() {
		return nil, domain.ErrJobFinished
	}
	j.Status = status
	j.Message = message
	if result != nil {
		j.Result = result
	}
	return j, nil
}

type fakeJobStarter struct {
	inputs []temporal.SurveyJobInput
	err    error
}

func (f *fakeJobStarter) StartSurveyJob(_ context.Context, jobID uuid.UUID, input temporal.SurveyJobInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	input.JobID = jobID
	f.inputs = append(f.inputs, input)
	return temporal.SurveyJobWorkflowID(jobID), nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeScheduler struct{ err error }

func (f fakeScheduler) Health(context.Context) error { return f.err }

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

const (
	studentToken  = "student-token"
	reviewerToken = "reviewer-token"
	otherToken    = "other-token"
)

type testEnv struct {
	server    *Server
	auth      *fakeAuth
	features  *fakeFeatures
	projects  *memProjects
	documents *memDocuments
	sources   *memSources
	jobs      *memJobs
	starter   *fakeJobStarter
	storeDir  string
	student   *domain.User
	reviewer  *domain.User
	other     *domain.User
	metrics   *observability.Metrics
}

func newTestEnv(t *testing.T, mutate ...func(*Config, *Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		student:   &domain.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada", Role: domain.RoleStudent},
		reviewer:  &domain.User{ID: uuid.New(), Email: "rev@example.com", Name: "Rev", Role: domain.RoleReviewer},
		other:     &domain.User{ID: uuid.New(), Email: "bob@example.com", Name: "Bob", Role: domain.RoleScientist},
		features:  &fakeFeatures{},
		projects:  &memProjects{items: map[uuid.UUID]*domain.Project{}},
		documents: &memDocuments{},
		sources:   &memSources{},
		jobs:      &memJobs{items: map[uuid.UUID]*domain.Job{}},
		starter:   &fakeJobStarter{},
		storeDir:  t.TempDir(),
		metrics:   observability.NewMetricsWithRegisterer("test", prometheus.NewRegistry()),
	}
	env.auth = &fakeAuth{byToken: map[string]*domain.User{
		studentToken:  env.student,
		reviewerToken: env.reviewer,
		otherToken:    env.other,
	}}

	store, err := storage.NewLocalStore(env.storeDir, "http://files.test")
	require.NoError(t, err)

	cfg := Config{MaxUploadBytes: 1 << 20}
	deps := Deps{
		Auth:       env.auth,
		Features:   env.features,
		Projects:   env.projects,
		Documents:  env.documents,
		Sources:    env.sources,
		Jobs:       env.jobs,
		Store:      store,
		JobStarter: env.starter,
		DB:         fakePinger{},
		Metrics:    env.metrics,
		Logger:     zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&cfg, &deps)
	}

	env.server = NewServer(cfg, deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) addProject(owner *domain.User, title string) *domain.Project {
	p := &domain.Project{ID: uuid.New(), UserID: owner.ID, Title: title}
	e.projects.items[p.ID] = p
	return p
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody[map[string]string](t, rec)["status"])

	down := newTestEnv(t, func(_ *Config, d *Deps) { d.DB = fakePinger{err: errors.New("connection refused")} })
	rec = down.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decodeBody[map[string]string](t, rec)["status"])

	schedulerDown := newTestEnv(t, func(_ *Config, d *Deps) { d.Scheduler = fakeScheduler{err: errors.New("unavailable")} })
	rec = schedulerDown.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["database"])
	assert.Equal(t, "unhealthy", body["scheduler"])
}

func TestMetricsUseRoutePattern(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProject(env.student, "Graphs")

	rec := env.do(t, http.MethodGet, "/projects/"+p.ID.String(), studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/projects/{id}", "200")))
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestRegister(t *testing.T) {
	t.Run("creates a user without exposing the hash", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email": "new@example.com", "name": "New", "password": "pw", "role": "scientist",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "stored-hash")

		user := decodeBody[domain.User](t, rec)
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, domain.RoleScientist, user.Role)
		require.Len(t, env.auth.registered, 1)
		assert.Equal(t, "pw", env.auth.registered[0].Password)
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "nope", "password": "pw"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "email must be a valid email address", errorMessage(t, rec))
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.registerErr = domain.NewAlreadyExistsError("user", "new@example.com")
		rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "new@example.com", "password": "pw"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown role is a bad request", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.registerErr = domain.NewValidationError("role", `unknown role "wizard"`)
		rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "w@example.com", "password": "pw", "role": "wizard"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "role")
	})
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeBody[loginResponse](t, rec)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, studentToken, login.AccessToken)

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, env.student.ID, decodeBody[domain.User](t, rec).ID)
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = env.do(t, http.MethodGet, "/projects", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	broken := newTestEnv(t)
	broken.auth.authErr = errors.New("users table unreachable")
	rec = broken.do(t, http.MethodGet, "/projects", studentToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResearcherRoleGate(t *testing.T) {
	env := newTestEnv(t)
	env.features.surveyFn = func(userID uuid.UUID, req features.SurveyRequest) (*features.SurveyResponse, error) {
		return &features.SurveyResponse{Papers: []domain.PaperBrief{}, Draft: "survey of " + req.Topic}, nil
	}
	body := map[string]any{"topic": "graph neural networks"}

	rec := env.do(t, http.MethodPost, "/survey/generate", reviewerToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden for your role", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/survey/generate", studentToken, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "survey of graph neural networks", decodeBody[features.SurveyResponse](t, rec).Draft)

	// Open features accept every role.
	env.features.benchmarkFn = func(req features.BenchmarkRequest) (*features.BenchmarkResponse, error) {
		return &features.BenchmarkResponse{Metrics: []features.Metric{{Name: "BLEU"}}}, nil
	}
	rec = env.do(t, http.MethodPost, "/benchmark/recommend", reviewerToken, map[string]any{"task_type": "text-generation"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ---------------------------------------------------------------------------
// Projects and uploads
// ---------------------------------------------------------------------------

func TestProjects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/projects", studentToken, map[string]string{"title": "Graphs", "domain": "ML", "aim": "survey"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[domain.Project](t, rec)
	assert.Equal(t, env.student.ID, created.UserID)
	assert.Equal(t, "ML", created.Domain)

	rec = env.do(t, http.MethodPost, "/projects", studentToken, map[string]string{"domain": "ML"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title is required", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/projects", studentToken, map[string]string{"title": strings.Repeat("t", 256)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title must be at most 255 characters", errorMessage(t, rec))

	env.addProject(env.other, "Not mine")

	rec = env.do(t, http.MethodGet, "/projects", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[listProjectsResponse](t, rec)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, created.ID, list.Projects[0].ID)
	assert.Empty(t, list.NextPageToken)

	rec = env.do(t, http.MethodGet, "/projects/"+created.ID.String(), studentToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/projects/"+created.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/projects/not-a-uuid", studentToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProjectsPagination(t *testing.T) {
	env := newTestEnv(t)
	for _, title := range []string{"a", "b", "c"} {
		env.addProject(env.student, title)
	}

	rec := env.do(t, http.MethodGet, "/projects?page_size=2", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeBody[listProjectsResponse](t, rec)
	require.Len(t, first.Projects, 2)
	require.NotEmpty(t, first.NextPageToken)

	rec = env.do(t, http.MethodGet, "/projects?page_size=2&page_token="+first.NextPageToken, studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody[listProjectsResponse](t, rec)
	require.Len(t, second.Projects, 1)
	assert.Equal(t, "c", second.Projects[0].Title)
	assert.Empty(t, second.NextPageToken)
}

func TestListProjectSources(t *testing.T) {
	env := newTestEnv(t)
	mine := env.addProject(env.student, "Graphs")
	empty := env.addProject(env.student, "Empty")
	theirs := env.addProject(env.other, "Theirs")
	env.sources.items = []*domain.Source{
		{ID: uuid.New(), ProjectID: mine.ID, PaperBrief: domain.PaperBrief{Title: "GCN", DOI: "10.1/gcn"}},
		{ID: uuid.New(), ProjectID: theirs.ID, PaperBrief: domain.PaperBrief{Title: "Hidden"}},
	}

	rec := env.do(t, http.MethodGet, "/projects/"+mine.ID.String()+"/sources", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[listSourcesResponse](t, rec)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "GCN", got.Sources[0].Title)

	rec = env.do(t, http.MethodGet, "/projects/"+empty.ID.String()+"/sources", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sources":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/projects/"+theirs.ID.String()+"/sources", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	t.Run("stores the file and records the document", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.addProject(env.student, "Graphs")

		rec := env.upload(t, "/upload?project_id="+p.ID.String(), studentToken, "notes.txt", []byte("hello"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decodeBody[uploadResponse](t, rec)
		assert.Equal(t, "notes.txt", resp.Filename)

		require.Len(t, env.documents.items, 1)
		doc := env.documents.items[0]
		assert.Equal(t, resp.DocumentID, doc.ID)
		assert.Equal(t, p.ID, doc.ProjectID)
		assert.Equal(t, env.student.ID, doc.UserID)
		assert.Equal(t, "application/octet-stream", doc.MIME)

		data, err := os.ReadFile(filepath.Join(env.storeDir, filepath.FromSlash(doc.Path)))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("project of another user is not found", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.addProject(env.other, "Theirs")

		rec := env.upload(t, "/upload?project_id="+p.ID.String(), studentToken, "notes.txt", []byte("hello"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, env.documents.items)
	})

	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.addProject(env.student, "Graphs")

		rec := env.upload(t, "/upload?project_id="+p.ID.String(), studentToken, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file is required", errorMessage(t, rec))
	})

	t.Run("oversized body", func(t *testing.T) {
		env := newTestEnv(t, func(c *Config, _ *Deps) { c.MaxUploadBytes = 512 })
		p := env.addProject(env.student, "Graphs")

		rec := env.upload(t, "/upload?project_id="+p.ID.String(), studentToken, "big.bin", bytes.Repeat([]byte("x"), 4096))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("project id is required", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.upload(t, "/upload", studentToken, "notes.txt", []byte("hello"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("overlong filename is rejected before storing", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.addProject(env.student, "Graphs")

		rec := env.upload(t, "/upload?project_id="+p.ID.String(), studentToken, strings.Repeat("n", 300)+".txt", []byte("hello"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "filename must be at most 255 characters", errorMessage(t, rec))
		assert.Empty(t, env.documents.items)

		_, err := os.Stat(filepath.Join(env.storeDir, storage.UploadPrefix))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("stored file is removed when the document row fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.documents.createErr = errors.New("db down")
		p := env.addProject(env.student, "Graphs")

		rec := env.upload(t, "/upload?project_id="+p.ID.String(), studentToken, "notes.txt", []byte("hello"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		entries, err := os.ReadDir(filepath.Join(env.storeDir, storage.UploadPrefix))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

// ---------------------------------------------------------------------------
// Features
// ---------------------------------------------------------------------------

func TestFeatureRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/cross-domain/suggest", studentToken, map[string]any{"draft_text": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "target_domains is required", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/survey/generate", studentToken, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON request body", errorMessage(t, rec))

	// surveyFn is unset, so reaching the service would panic.
	rec = env.do(t, http.MethodPost, "/survey/generate", studentToken, map[string]any{"topic": strings.Repeat("a", 501)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "topic must be at most 500 characters", errorMessage(t, rec))
}

func TestFeatureErrors(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"topic": "graphs"}

	env.features.surveyFn = func(uuid.UUID, features.SurveyRequest) (*features.SurveyResponse, error) {
		return nil, fmt.Errorf("survey: %w", &llm.CallError{Provider: "openai", StatusCode: 500, Message: "boom"})
	}
	rec := env.do(t, http.MethodPost, "/survey/generate", studentToken, body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	env.features.surveyFn = func(uuid.UUID, features.SurveyRequest) (*features.SurveyResponse, error) {
		return nil, papersources.ErrNoSourcesAvailable
	}
	rec = env.do(t, http.MethodPost, "/survey/generate", studentToken, body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	env.features.translateErr = fmt.Errorf("translation: %w", domain.ErrFeatureDisabled)
	rec = env.do(t, http.MethodPost, "/translate", studentToken, map[string]any{"document_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "feature disabled", errorMessage(t, rec))
}

func TestTranscribe(t *testing.T) {
	env := newTestEnv(t)

	env.features.transcribeFn = func(filename, contentType string, body []byte) (*features.TranscriptResponse, error) {
		assert.Equal(t, "memo.wav", filename)
		return &features.TranscriptResponse{Transcript: fmt.Sprintf("%d bytes", len(body))}, nil
	}
	rec := env.upload(t, "/voice/transcribe", reviewerToken, "memo.wav", []byte("RIFF"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "4 bytes", decodeBody[features.TranscriptResponse](t, rec).Transcript)

	env.features.transcribeFn = func(string, string, []byte) (*features.TranscriptResponse, error) {
		return nil, llm.ErrTranscriptionUnsupported
	}
	rec = env.upload(t, "/voice/transcribe", reviewerToken, "memo.wav", []byte("RIFF"))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func TestSurveyJobs(t *testing.T) {
	t.Run("queues a job and starts its workflow", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/survey/jobs", studentToken, map[string]any{"topic": "graphs", "n_results": 5})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		job := decodeBody[domain.Job](t, rec)
		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.Equal(t, domain.JobTypeSurvey, job.Type)
		assert.Equal(t, temporal.SurveyJobWorkflowID(job.ID), job.WorkflowID)

		require.Len(t, env.starter.inputs, 1)
		assert.Equal(t, env.student.ID, env.starter.inputs[0].UserID)
		assert.Equal(t, "graphs", env.starter.inputs[0].Request.Topic)
		assert.Equal(t, 5, env.starter.inputs[0].Request.NResults)

		stored := env.jobs.items[job.ID]
		assert.Equal(t, job.WorkflowID, stored.WorkflowID)

		rec = env.do(t, http.MethodGet, "/jobs/"+job.ID.String(), studentToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		rec = env.do(t, http.MethodGet, "/jobs/"+job.ID.String(), otherToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("scheduler failure marks the job failed", func(t *testing.T) {
		env := newTestEnv(t)
		env.starter.err = temporal.ErrConnectionFailed

		rec := env.do(t, http.MethodPost, "/survey/jobs", studentToken, map[string]any{"topic": "graphs"})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		require.Len(t, env.jobs.items, 1)
		for _, j := range env.jobs.items {
			assert.Equal(t, domain.JobStatusFailed, j.Status)
		}
	})

	t.Run("disabled without a job starter", func(t *testing.T) {
		env := newTestEnv(t, func(_ *Config, d *Deps) { d.JobStarter = nil })
		rec := env.do(t, http.MethodPost, "/survey/jobs", studentToken, map[string]any{"topic": "graphs"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, env.jobs.items)
	})

	t.Run("reviewers cannot start surveys", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/survey/jobs", reviewerToken, map[string]any{"topic": "graphs"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("aim", "aim is required"), http.StatusBadRequest},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("project", "1"), http.StatusNotFound},
		{"feature disabled", domain.ErrFeatureDisabled, http.StatusNotFound},
		{"already exists", domain.ErrAlreadyExists, http.StatusConflict},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"transcription unsupported", llm.ErrTranscriptionUnsupported, http.StatusNotImplemented},
		{"llm call", &llm.CallError{Provider: "gemini", StatusCode: 401}, http.StatusBadGateway},
		{"no sources", papersources.ErrNoSourcesAvailable, http.StatusBadGateway},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, domain.NewValidationError("aim", "aim is required"))
	assert.Equal(t, "aim: aim is required", errorMessage(t, rec))
}

func TestExportsAreServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "survey.md"), []byte("# Survey"), 0o644))

	env := newTestEnv(t, func(c *Config, _ *Deps) {
		c.ExportsDir = dir
		c.ExportsRoute = "/files/exports"
	})

	rec := env.do(t, http.MethodGet, "/files/exports/survey.md", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Survey", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/files/exports/missing.md", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
