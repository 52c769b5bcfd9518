package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/bootstrap"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/directory"
	"mercator-hq/ganymede/pkg/store"
)

// fakeStore is a configurable store.Store for handler tests.
type fakeStore struct {
	doc        *store.Document
	docErr     error
	commits    []store.CommitRecord
	commitsErr error
	repos      []store.RepositoryInfo
	healthy    bool

	lastRef      string
	lastCategory store.Category
}

func (f *fakeStore) ResolveAndFetch(ctx context.Context, application, environment, ref string, category store.Category) (*store.Document, error) {
	f.lastRef = ref
	f.lastCategory = category
	return f.doc, f.docErr
}

func (f *fakeStore) ListCommits(ctx context.Context, application, environment string) ([]store.CommitRecord, error) {
	return f.commits, f.commitsErr
}

func (f *fakeStore) Bootstrap(ctx context.Context, application, environment string, documents map[store.Category][]byte) (*store.RepositoryInfo, error) {
	return &store.RepositoryInfo{
		Name:        store.RepositoryName(application, environment),
		Application: application,
		Environment: environment,
	}, nil
}

func (f *fakeStore) ListRepositories(ctx context.Context) ([]store.RepositoryInfo, error) {
	return f.repos, nil
}

func (f *fakeStore) Healthy(ctx context.Context) bool { return f.healthy }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T, st *fakeStore) (*Server, *directory.Cache) {
	t.Helper()

	cache, err := directory.NewCache(st, &config.DirectoryConfig{
		HealthInterval: time.Second,
		ListInterval:   time.Minute,
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	if err := cache.Start(context.Background()); err != nil {
		t.Fatalf("cache Start failed: %v", err)
	}
	t.Cleanup(cache.Stop)

	registryCfg := &config.RegistryConfig{
		Environments: map[string]config.EnvironmentConfig{
			"prod":    {},
			"staging": {},
		},
	}
	pipeline, err := bootstrap.NewPipeline(st,
		bootstrap.NewConfigRegistry(registryCfg),
		bootstrap.NewTemplateRenderer(registryCfg),
		cache, discardLogger())
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	handlers := NewHandlers(st, cache, pipeline, discardLogger())
	srv := NewServer(&config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}, handlers, nil, "", discardLogger())
	return srv, cache
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetConfig(t *testing.T) {
	st := &fakeStore{
		doc: &store.Document{
			Category: store.CategoryApplicationProperties,
			Revision: strings.Repeat("a", 40),
			Data:     json.RawMessage(`{"app.name": "billing"}`),
		},
		healthy: true,
	}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "GET", "/v1/configs/billing/prod/application-properties", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp documentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Revision != strings.Repeat("a", 40) {
		t.Errorf("Revision = %s", resp.Revision)
	}
	if resp.Application != "billing" || resp.Environment != "prod" {
		t.Errorf("resp = %+v", resp)
	}
	if st.lastRef != "HEAD" {
		t.Errorf("ref defaulted to %q, want HEAD", st.lastRef)
	}
}

func TestGetConfigRefQuery(t *testing.T) {
	st := &fakeStore{doc: &store.Document{}, healthy: true}
	srv, _ := testServer(t, st)

	doRequest(t, srv, "GET", "/v1/configs/billing/prod/launch-data?ref=HEAD~2", "")
	if st.lastRef != "HEAD~2" {
		t.Errorf("ref = %q, want HEAD~2", st.lastRef)
	}
	if st.lastCategory != store.CategoryLaunchData {
		t.Errorf("category = %s, want launch-data", st.lastCategory)
	}
}

func TestGetConfigErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		docErr     error
		wantStatus int
	}{
		{"unknown category", "/v1/configs/billing/prod/secrets", nil, http.StatusBadRequest},
		{"not found", "/v1/configs/billing/prod/launch-data", store.ErrNotFound, http.StatusNotFound},
		{"bad ref", "/v1/configs/billing/prod/launch-data?ref=main", store.ErrBadRef, http.StatusBadRequest},
		{"backend failure", "/v1/configs/billing/prod/launch-data",
			&store.RetrievalError{Op: "fetch document", Err: context.DeadlineExceeded}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{docErr: tt.docErr, healthy: true}
			srv, _ := testServer(t, st)

			rec := doRequest(t, srv, "GET", tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestGetCommits(t *testing.T) {
	date, _ := time.Parse(time.RFC3339, "2024-03-01T10:00:00Z")
	st := &fakeStore{
		commits: []store.CommitRecord{
			{SHA: strings.Repeat("b", 40), CommitterName: "ganymede", CommitterEmail: "ganymede@mercator-hq.dev", Date: date, Message: "Initial commit"},
		},
		healthy: true,
	}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "GET", "/v1/commits/billing/prod", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"commitDate":"2024-03-01T10:00:00Z"`) {
		t.Errorf("commitDate missing or wrong format: %s", body)
	}
	if !strings.Contains(body, strings.Repeat("b", 40)) {
		t.Errorf("sha missing: %s", body)
	}
}

func TestGetCommitsNotFound(t *testing.T) {
	st := &fakeStore{commitsErr: store.ErrNotFound, healthy: true}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "GET", "/v1/commits/billing/prod", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetRepositories(t *testing.T) {
	st := &fakeStore{
		repos: []store.RepositoryInfo{
			{Name: "billing-prod", Application: "billing", Environment: "prod"},
			{Name: "orders-staging", Application: "orders", Environment: "staging"},
		},
		healthy: true,
	}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "GET", "/v1/repositories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp repositoriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Repositories) != 2 {
		t.Errorf("repositories = %d, want 2", len(resp.Repositories))
	}
	if resp.Cached {
		t.Error("Cached = true, want false after live refresh")
	}

	rec = doRequest(t, srv, "GET", "/v1/repositories?environment=prod", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Repositories) != 1 || resp.Repositories[0].Name != "billing-prod" {
		t.Errorf("filtered repositories = %+v", resp.Repositories)
	}
}

func TestCreateApplication(t *testing.T) {
	st := &fakeStore{healthy: true}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "POST", "/v1/applications", `{"application": "billing"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp createdResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Created) != 2 {
		t.Errorf("created = %+v, want prod and staging", resp.Created)
	}
}

func TestCreateApplicationBadRequest(t *testing.T) {
	st := &fakeStore{healthy: true}
	srv, _ := testServer(t, st)

	if rec := doRequest(t, srv, "POST", "/v1/applications", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid body", rec.Code)
	}
	if rec := doRequest(t, srv, "POST", "/v1/applications", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing application", rec.Code)
	}
}

func TestCreateApplicationEnvironment(t *testing.T) {
	st := &fakeStore{healthy: true}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "POST", "/v1/applications/billing/environments/prod", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, srv, "POST", "/v1/applications/billing/environments/qa", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unregistered environment: %s", rec.Code, rec.Body)
	}
}

func TestHealthz(t *testing.T) {
	st := &fakeStore{healthy: true}
	srv, cache := testServer(t, st)

	rec := doRequest(t, srv, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	st.healthy = false
	cacheRefresh(cache)

	rec = doRequest(t, srv, "GET", "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503: %s", rec.Code, rec.Body)
	}
}

// cacheRefresh forces a health probe without waiting for the loop.
func cacheRefresh(cache *directory.Cache) {
	// The health loop runs every second in tests; poll until it fires.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !cache.Healthy() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRequestIDHeader(t *testing.T) {
	st := &fakeStore{healthy: true}
	srv, _ := testServer(t, st)

	rec := doRequest(t, srv, "GET", "/healthz", "")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("X-Request-ID header missing")
	}

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(RequestIDHeader, "client-chosen")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "client-chosen" {
		t.Errorf("X-Request-ID = %q, want client-chosen", got)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	st := &fakeStore{healthy: true}
	srv, _ := testServer(t, st)

	if rec := doRequest(t, srv, "GET", "/v1/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
