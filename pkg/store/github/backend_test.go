package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/store"
)

const (
	testOrg  = "acme-config"
	headSHA  = "1111111111111111111111111111111111111111"
	prevSHA  = "2222222222222222222222222222222222222222"
	thirdSHA = "3333333333333333333333333333333333333333"
)

// fakeHosting is an httptest-backed double for the hosting API.
type fakeHosting struct {
	mu sync.Mutex

	repos    []Repository
	files    map[string]map[string]string // repo -> path -> content
	commits  map[string][]Commit          // repo -> newest-first log
	requests []string

	failTree   bool
	failCommit bool
	failRef    bool

	createdTrees   []string
	createdCommits []string
	updatedRefs    []string
}

func newFakeHosting() *fakeHosting {
	return &fakeHosting{
		files:   make(map[string]map[string]string),
		commits: make(map[string][]Commit),
	}
}

func (f *fakeHosting) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)

		if got := r.Header.Get("Authorization"); got != "Bearer sekret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/orgs/"+testOrg:
			fmt.Fprint(w, `{"login":"acme-config"}`)

		case r.Method == http.MethodGet && r.URL.Path == "/orgs/"+testOrg+"/repos":
			json.NewEncoder(w).Encode(f.repos)

		case r.Method == http.MethodPost && r.URL.Path == "/orgs/"+testOrg+"/repos":
			var req struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			repo := Repository{
				Name:     req.Name,
				CloneURL: "https://git.example.com/" + testOrg + "/" + req.Name + ".git",
			}
			f.repos = append(f.repos, repo)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(repo)

		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/contents/"):
			parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/"+testOrg+"/"), "/contents/", 2)
			repo, path := parts[0], parts[1]
			content, ok := f.files[repo][path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			ref := r.URL.Query().Get("ref")
			json.NewEncoder(w).Encode(FileContent{
				Name:     path,
				Path:     path,
				Encoding: "base64",
				Content:  base64.StdEncoding.EncodeToString([]byte(content)),
				URL:      "https://api.example.com" + r.URL.Path + "?ref=" + ref,
			})

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/commits"):
			repo := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/repos/"+testOrg+"/"), "/commits")
			commits, ok := f.commits[repo]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(commits)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/git/trees"):
			if f.failTree {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.createdTrees = append(f.createdTrees, "tree-sha-1")
			fmt.Fprint(w, `{"sha":"tree-sha-1"}`)

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/git/commits"):
			if f.failCommit {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.createdCommits = append(f.createdCommits, headSHA)
			fmt.Fprintf(w, `{"sha":%q}`, headSHA)

		case strings.Contains(r.URL.Path, "/git/refs"):
			if f.failRef {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.updatedRefs = append(f.updatedRefs, r.Method+" "+r.URL.Path)
			fmt.Fprint(w, `{"ref":"refs/heads/main"}`)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestBackend(t *testing.T, f *fakeHosting) (*Backend, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, testOrg, StaticToken("sekret"), 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	backend, err := NewBackend(client, store.DefaultBranch, nil)
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	return backend, srv
}

func seedRepo(f *fakeHosting, app, env string) string {
	name := store.RepositoryName(app, env)
	f.repos = append(f.repos, Repository{
		Name:     name,
		CloneURL: "https://git.example.com/" + testOrg + "/" + name + ".git",
	})
	f.files[name] = map[string]string{
		"application-properties.json": `{"a": 1}`,
	}
	base := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	var commits []Commit
	for i, sha := range []string{headSHA, prevSHA, thirdSHA} {
		var c Commit
		c.SHA = sha
		c.Commit.Message = fmt.Sprintf("commit %d", i)
		c.Commit.Committer.Name = store.BotName
		c.Commit.Committer.Email = store.BotEmail
		c.Commit.Committer.Date = base.Add(-time.Duration(i) * time.Hour)
		commits = append(commits, c)
	}
	f.commits[name] = commits
	return name
}

func TestResolveAndFetchExactHash(t *testing.T) {
	f := newFakeHosting()
	seedRepo(f, "foo", "bar")
	backend, _ := newTestBackend(t, f)

	doc, err := backend.ResolveAndFetch(context.Background(), "foo", "bar", prevSHA, store.CategoryApplicationProperties)
	if err != nil {
		t.Fatalf("ResolveAndFetch failed: %v", err)
	}
	if doc.Revision != prevSHA {
		t.Errorf("Revision = %s, want %s", doc.Revision, prevSHA)
	}
	if string(doc.Data) != `{"a": 1}` {
		t.Errorf("Data = %s, want {\"a\": 1}", doc.Data)
	}

	// Exact hashes must not trigger a history lookup.
	for _, req := range f.requests {
		if strings.HasSuffix(req, "/commits") {
			t.Errorf("exact hash fetch hit the commit list: %v", f.requests)
		}
	}
}

func TestResolveAndFetchHeadRelative(t *testing.T) {
	f := newFakeHosting()
	seedRepo(f, "foo", "bar")
	backend, _ := newTestBackend(t, f)

	tests := []struct {
		ref  string
		want string
	}{
		{"HEAD", headSHA},
		{"HEAD~", prevSHA},
		{"HEAD~2", thirdSHA},
	}
	for _, tt := range tests {
		doc, err := backend.ResolveAndFetch(context.Background(), "foo", "bar", tt.ref, store.CategoryApplicationProperties)
		if err != nil {
			t.Fatalf("ResolveAndFetch(%s) failed: %v", tt.ref, err)
		}
		if doc.Revision != tt.want {
			t.Errorf("ResolveAndFetch(%s) revision = %s, want %s", tt.ref, doc.Revision, tt.want)
		}
	}
}

func TestResolveAndFetchNotFound(t *testing.T) {
	f := newFakeHosting()
	seedRepo(f, "foo", "bar")
	backend, _ := newTestBackend(t, f)
	ctx := context.Background()

	// Missing repository.
	if _, err := backend.ResolveAndFetch(ctx, "nope", "bar", "HEAD", store.CategoryApplicationProperties); !store.IsNotFound(err) {
		t.Errorf("missing repository error = %v, want ErrNotFound", err)
	}

	// Missing category file.
	if _, err := backend.ResolveAndFetch(ctx, "foo", "bar", headSHA, store.CategoryLaunchData); !store.IsNotFound(err) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}

	// Generation beyond history.
	if _, err := backend.ResolveAndFetch(ctx, "foo", "bar", "HEAD~10", store.CategoryApplicationProperties); !store.IsNotFound(err) {
		t.Errorf("out-of-range generation error = %v, want ErrNotFound", err)
	}
}

func TestResolveAndFetchBadRef(t *testing.T) {
	f := newFakeHosting()
	seedRepo(f, "foo", "bar")
	backend, _ := newTestBackend(t, f)

	_, err := backend.ResolveAndFetch(context.Background(), "foo", "bar", "HEAD~xyz", store.CategoryApplicationProperties)
	if !errors.Is(err, store.ErrBadRef) {
		t.Errorf("error = %v, want ErrBadRef", err)
	}
}

func TestListCommitsOrderAndCap(t *testing.T) {
	f := newFakeHosting()
	name := seedRepo(f, "foo", "bar")

	// Grow the log past the cap.
	base := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	f.commits[name] = nil
	for i := 0; i < 30; i++ {
		var c Commit
		c.SHA = fmt.Sprintf("%040d", i)
		c.Commit.Committer.Date = base.Add(-time.Duration(i) * time.Minute)
		f.commits[name] = append(f.commits[name], c)
	}

	backend, _ := newTestBackend(t, f)
	records, err := backend.ListCommits(context.Background(), "foo", "bar")
	if err != nil {
		t.Fatalf("ListCommits failed: %v", err)
	}
	if len(records) != store.MaxCommitLog {
		t.Fatalf("len = %d, want %d", len(records), store.MaxCommitLog)
	}
	for i := 1; i < len(records); i++ {
		if records[i].Date.After(records[i-1].Date) {
			t.Errorf("records not newest-first at index %d", i)
		}
	}
}

func TestListCommitsMissingRepository(t *testing.T) {
	f := newFakeHosting()
	backend, _ := newTestBackend(t, f)

	_, err := backend.ListCommits(context.Background(), "ghost", "env")
	if !store.IsNotFound(err) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestBootstrapProtocol(t *testing.T) {
	f := newFakeHosting()
	backend, _ := newTestBackend(t, f)

	docs := map[store.Category][]byte{
		store.CategoryApplicationProperties: []byte(`{"z": 1, "a": 2}`),
		store.CategoryDeploymentParams:      []byte(`{"region": "eu-west-1"}`),
		store.CategoryLaunchData:            []byte(`{"instances": 3}`),
	}

	info, err := backend.Bootstrap(context.Background(), "foo", "bar", docs)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if info.Name != "foo-bar" {
		t.Errorf("Name = %s, want foo-bar", info.Name)
	}
	if info.Application != "foo" || info.Environment != "bar" {
		t.Errorf("identity = %s/%s, want foo/bar", info.Application, info.Environment)
	}
	if info.RemoteURL == "" {
		t.Error("RemoteURL is empty")
	}

	if len(f.createdTrees) != 1 || len(f.createdCommits) != 1 || len(f.updatedRefs) != 1 {
		t.Errorf("protocol steps = %d trees, %d commits, %d refs; want 1 each",
			len(f.createdTrees), len(f.createdCommits), len(f.updatedRefs))
	}
}

func TestBootstrapRejectsSeparatorInApplication(t *testing.T) {
	f := newFakeHosting()
	backend, _ := newTestBackend(t, f)

	_, err := backend.Bootstrap(context.Background(), "foo-extra", "bar", nil)
	if err == nil {
		t.Fatal("Bootstrap succeeded for ambiguous application name")
	}
}

func TestBootstrapStepFailures(t *testing.T) {
	tests := []struct {
		name         string
		prepare      func(*fakeHosting)
		wantStep     string
		wantOrphaned int
	}{
		{
			name:     "tree step",
			prepare:  func(f *fakeHosting) { f.failTree = true },
			wantStep: "tree",
		},
		{
			name:         "commit step",
			prepare:      func(f *fakeHosting) { f.failCommit = true },
			wantStep:     "commit",
			wantOrphaned: 1,
		},
		{
			name:         "ref step",
			prepare:      func(f *fakeHosting) { f.failRef = true },
			wantStep:     "ref",
			wantOrphaned: 2,
		},
	}

	docs := map[store.Category][]byte{
		store.CategoryApplicationProperties: []byte(`{"a": 1}`),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeHosting()
			tt.prepare(f)
			backend, _ := newTestBackend(t, f)

			_, err := backend.Bootstrap(context.Background(), "foo", "bar", docs)
			var me *store.MutationError
			if !errors.As(err, &me) {
				t.Fatalf("error = %v, want MutationError", err)
			}
			if me.Step != tt.wantStep {
				t.Errorf("Step = %q, want %q", me.Step, tt.wantStep)
			}
			if len(me.Created) != tt.wantOrphaned {
				t.Errorf("Created = %v, want %d orphaned objects", me.Created, tt.wantOrphaned)
			}
		})
	}
}

func TestListRepositories(t *testing.T) {
	f := newFakeHosting()
	seedRepo(f, "foo", "bar")
	f.repos = append(f.repos, Repository{Name: "unparseable"})
	backend, _ := newTestBackend(t, f)

	infos, err := backend.ListRepositories(context.Background())
	if err != nil {
		t.Fatalf("ListRepositories failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len = %d, want 1 (unparseable names skipped)", len(infos))
	}
	if infos[0].Application != "foo" || infos[0].Environment != "bar" {
		t.Errorf("entry = %+v, want foo/bar", infos[0])
	}
}

func TestHealthy(t *testing.T) {
	f := newFakeHosting()
	backend, srv := newTestBackend(t, f)

	if !backend.Healthy(context.Background()) {
		t.Error("Healthy = false against a reachable API")
	}

	srv.Close()
	if backend.Healthy(context.Background()) {
		t.Error("Healthy = true against a closed server")
	}
}

func TestStageEntriesCanonicalizes(t *testing.T) {
	entries, err := stageEntries(map[store.Category][]byte{
		store.CategoryApplicationProperties: []byte(`{"z": 1, "a": {"k": [2, 1]}}`),
	})
	if err != nil {
		t.Fatalf("stageEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Mode != blobMode || entries[0].Type != "blob" {
		t.Errorf("entry staged as %s/%s, want %s/blob", entries[0].Mode, entries[0].Type, blobMode)
	}
	canonical, err := store.CanonicalJSON([]byte(entries[0].Content))
	if err != nil {
		t.Fatalf("staged content is not JSON: %v", err)
	}
	if string(canonical) != entries[0].Content {
		t.Errorf("staged content not canonical:\n%s", entries[0].Content)
	}
}
