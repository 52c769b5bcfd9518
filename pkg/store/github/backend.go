package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"mercator-hq/ganymede/pkg/store"
)

// blobMode is the file mode staged for every category document.
const blobMode = "100644"

var _ store.Store = (*Backend)(nil)

// Backend implements store.Store against the hosting API. It is
// stateless with respect to local storage; every operation is one or
// more API calls.
type Backend struct {
	client *Client
	branch string
	logger *slog.Logger
}

// NewBackend creates a remote-API backend publishing to the given
// primary branch.
func NewBackend(client *Client, branch string, logger *slog.Logger) (*Backend, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if branch == "" {
		branch = store.DefaultBranch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		client: client,
		branch: branch,
		logger: logger.With("component", "store.github"),
	}, nil
}

// ResolveAndFetch reads the category document at the given commit
// identifier. Relative identifiers are pinned to a concrete hash via the
// commit list before the content read; the returned revision is
// recovered from the "?ref=" segment of the content response's self
// locator.
func (b *Backend) ResolveAndFetch(ctx context.Context, application, environment, ref string, category store.Category) (*store.Document, error) {
	parsed, err := store.ParseRef(ref)
	if err != nil {
		return nil, err
	}

	repo := store.RepositoryName(application, environment)

	resolved := parsed.Hash
	if parsed.Kind == store.RefHeadRelative {
		history, err := b.ListCommits(ctx, application, environment)
		if err != nil {
			return nil, err
		}
		resolved, err = parsed.Resolve(history)
		if err != nil {
			return nil, err
		}
	}

	content, err := b.client.GetContents(ctx, repo, category.FileName(), resolved)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         err,
		}
	}

	data, err := decodeContent(content)
	if err != nil {
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         err,
		}
	}
	if !json.Valid(data) {
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         fmt.Errorf("document %s is not valid JSON", category.FileName()),
		}
	}

	revision := content.RefFromURL()
	if revision == "" {
		revision = resolved
	}

	return &store.Document{
		Category: category,
		Revision: revision,
		Data:     data,
	}, nil
}

// decodeContent unwraps a content response into raw bytes.
func decodeContent(content *FileContent) ([]byte, error) {
	if content.Encoding != "base64" {
		return []byte(content.Content), nil
	}
	// The API wraps base64 payloads across lines.
	compact := strings.ReplaceAll(content.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	return decoded, nil
}

// ListCommits returns up to store.MaxCommitLog commits of the primary
// branch, newest first.
func (b *Backend) ListCommits(ctx context.Context, application, environment string) ([]store.CommitRecord, error) {
	repo := store.RepositoryName(application, environment)

	commits, err := b.client.ListCommits(ctx, repo, b.branch, store.MaxCommitLog)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "list commits",
			Err:         err,
		}
	}

	records := make([]store.CommitRecord, 0, len(commits))
	for _, c := range commits {
		records = append(records, store.CommitRecord{
			SHA:            c.SHA,
			CommitterName:  c.Commit.Committer.Name,
			CommitterEmail: c.Commit.Committer.Email,
			Date:           c.Commit.Committer.Date,
			Message:        c.Commit.Message,
		})
	}
	if len(records) > store.MaxCommitLog {
		records = records[:store.MaxCommitLog]
	}
	return records, nil
}

// Bootstrap creates the repository and publishes its initial commit via
// the three-step object protocol: tree, commit, reference. The first
// failing step aborts the operation; objects created by earlier steps
// stay orphaned on the hosting side.
func (b *Backend) Bootstrap(ctx context.Context, application, environment string, documents map[store.Category][]byte) (*store.RepositoryInfo, error) {
	if strings.Contains(application, store.NameSeparator) {
		return nil, fmt.Errorf("application name %q must not contain %q", application, store.NameSeparator)
	}

	name := store.RepositoryName(application, environment)
	mutation := func(step string, created []string, err error) error {
		return &store.MutationError{
			Application: application,
			Environment: environment,
			Op:          "bootstrap repository",
			Step:        step,
			Created:     created,
			Err:         err,
		}
	}

	repo, err := b.client.CreateRepository(ctx, name)
	if err != nil {
		return nil, mutation("repository", nil, err)
	}

	entries, err := stageEntries(documents)
	if err != nil {
		return nil, mutation("tree", nil, err)
	}

	treeSHA, err := b.client.CreateTree(ctx, name, entries)
	if err != nil {
		return nil, mutation("tree", nil, err)
	}

	commitSHA, err := b.client.CreateCommit(ctx, name, store.BotMessage, treeSHA, nil, CommitIdentity{
		Name:  store.BotName,
		Email: store.BotEmail,
	})
	if err != nil {
		return nil, mutation("commit", []string{"tree " + treeSHA}, err)
	}

	if err := b.client.UpdateRef(ctx, name, b.branch, commitSHA); err != nil {
		return nil, mutation("ref", []string{"tree " + treeSHA, "commit " + commitSHA}, err)
	}

	b.logger.Info("bootstrapped repository",
		"application", application,
		"environment", environment,
		"repository", name,
		"commit", commitSHA)

	return &store.RepositoryInfo{
		Name:        name,
		RemoteURL:   repo.CloneURL,
		Application: application,
		Environment: environment,
	}, nil
}

// stageEntries canonicalizes each document and stages it as a blob tree
// entry, in deterministic category order.
func stageEntries(documents map[store.Category][]byte) ([]TreeEntry, error) {
	categories := make([]store.Category, 0, len(documents))
	for c := range documents {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", c)
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	entries := make([]TreeEntry, 0, len(categories))
	for _, c := range categories {
		canonical, err := store.CanonicalJSON(documents[c])
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c, err)
		}
		entries = append(entries, TreeEntry{
			Path:    c.FileName(),
			Mode:    blobMode,
			Type:    "blob",
			Content: string(canonical),
		})
	}
	return entries, nil
}

// ListRepositories maps the organization's repositories into directory
// entries. Names that do not parse as "<application>-<environment>" are
// skipped; the organization may host repositories this store did not
// create.
func (b *Backend) ListRepositories(ctx context.Context) ([]store.RepositoryInfo, error) {
	repos, err := b.client.ListRepositories(ctx)
	if err != nil {
		return nil, &store.RetrievalError{Op: "list repositories", Err: err}
	}

	infos := make([]store.RepositoryInfo, 0, len(repos))
	for _, r := range repos {
		app, env, ok := store.SplitRepositoryName(r.Name)
		if !ok {
			b.logger.Debug("skipping repository with unparseable name", "repository", r.Name)
			continue
		}
		infos = append(infos, store.RepositoryInfo{
			Name:        r.Name,
			RemoteURL:   r.CloneURL,
			Application: app,
			Environment: env,
		})
	}
	return infos, nil
}

// Healthy reports API reachability. Probe failures resolve silently to
// unhealthy.
func (b *Backend) Healthy(ctx context.Context) bool {
	return b.client.Ping(ctx) == nil
}
