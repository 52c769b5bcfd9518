package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/store"
)

var _ store.Store = (*Backend)(nil)

// Backend implements store.Store against local mirrors synchronized
// with their remotes on demand.
type Backend struct {
	cfg    *config.MirrorConfig
	branch string
	auth   AuthProvider
	logger *slog.Logger
}

// NewBackend creates a local-clone backend rooted at cfg.RootPath. The
// root directory is created if absent.
func NewBackend(cfg *config.MirrorConfig, branch string, logger *slog.Logger) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}
	if cfg.RemoteBase == "" {
		return nil, fmt.Errorf("remote base cannot be empty")
	}
	if branch == "" {
		branch = store.DefaultBranch
	}
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := NewAuthProvider(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	if err := os.MkdirAll(cfg.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror root: %w", err)
	}

	return &Backend{
		cfg:    cfg,
		branch: branch,
		auth:   auth,
		logger: logger.With("component", "store.mirror"),
	}, nil
}

// mirrorPath returns the on-disk location of a repository's mirror.
func (b *Backend) mirrorPath(name string) string {
	return filepath.Join(b.cfg.RootPath, name)
}

// remoteURL derives the remote locator for a repository name.
func (b *Backend) remoteURL(name string) string {
	return strings.TrimSuffix(b.cfg.RemoteBase, "/") + "/" + name + ".git"
}

// ensureUpToDate synchronizes the mirror for a repository: clone when
// absent, fetch plus fast-forward merge of the primary branch otherwise.
// A remote whose history is not a strict extension of the local mirror
// fails here; divergence is a precondition violation, not a condition
// this backend repairs.
func (b *Backend) ensureUpToDate(ctx context.Context, name string) (*gogit.Repository, error) {
	path := b.mirrorPath(name)

	auth, err := b.auth.GetAuth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	if _, statErr := os.Stat(filepath.Join(path, ".git")); statErr == nil {
		repo, err := gogit.PlainOpen(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open mirror: %w", err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("failed to get worktree: %w", err)
		}

		pullCtx, cancel := context.WithTimeout(ctx, b.cfg.CloneTimeout)
		defer cancel()

		err = worktree.PullContext(pullCtx, &gogit.PullOptions{
			RemoteName:    "origin",
			ReferenceName: plumbing.NewBranchReferenceName(b.branch),
			SingleBranch:  true,
			Auth:          auth,
		})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return nil, fmt.Errorf("failed to synchronize mirror: %w", err)
		}
		return repo, nil
	}

	cloneCtx, cancel := context.WithTimeout(ctx, b.cfg.CloneTimeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, path, false, &gogit.CloneOptions{
		URL:           b.remoteURL(name),
		ReferenceName: plumbing.NewBranchReferenceName(b.branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		if errors.Is(err, transport.ErrRepositoryNotFound) ||
			errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to clone %s: %w", name, err)
	}
	return repo, nil
}

// resolveRevision pins a parsed reference to a concrete commit hash
// using the repository's native revision grammar.
func resolveRevision(repo *gogit.Repository, ref store.Ref) (plumbing.Hash, error) {
	if ref.Kind == store.RefExact {
		hash := plumbing.NewHash(ref.Hash)
		if _, err := repo.CommitObject(hash); err != nil {
			return plumbing.ZeroHash, store.ErrNotFound
		}
		return hash, nil
	}

	// Ref.String() yields the upper-cased HEAD~n alias the plumbing
	// expects.
	hash, err := repo.ResolveRevision(plumbing.Revision(ref.String()))
	if err != nil {
		return plumbing.ZeroHash, store.ErrNotFound
	}
	return *hash, nil
}

// ResolveAndFetch synchronizes the mirror, resolves the commit
// identifier, and reads the category document from the resolved
// commit's tree.
func (b *Backend) ResolveAndFetch(ctx context.Context, application, environment, ref string, category store.Category) (*store.Document, error) {
	parsed, err := store.ParseRef(ref)
	if err != nil {
		return nil, err
	}

	name := store.RepositoryName(application, environment)
	repo, err := b.ensureUpToDate(ctx, name)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         err,
		}
	}

	hash, err := resolveRevision(repo, parsed)
	if err != nil {
		return nil, store.ErrNotFound
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, store.ErrNotFound
	}

	file, err := commit.File(category.FileName())
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         err,
		}
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         err,
		}
	}
	if !json.Valid([]byte(contents)) {
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "fetch document",
			Err:         fmt.Errorf("document %s is not valid JSON", category.FileName()),
		}
	}

	return &store.Document{
		Category: category,
		Revision: hash.String(),
		Data:     json.RawMessage(contents),
	}, nil
}

// ListCommits synchronizes the mirror and walks the primary branch log,
// newest first, capped at store.MaxCommitLog.
func (b *Backend) ListCommits(ctx context.Context, application, environment string) ([]store.CommitRecord, error) {
	name := store.RepositoryName(application, environment)
	repo, err := b.ensureUpToDate(ctx, name)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "list commits",
			Err:         err,
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, store.ErrNotFound
	}

	iter, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, &store.RetrievalError{
			Application: application,
			Environment: environment,
			Op:          "list commits",
			Err:         err,
		}
	}
	defer iter.Close()

	var records []store.CommitRecord
	for len(records) < store.MaxCommitLog {
		c, err := iter.Next()
		if err != nil {
			break
		}
		records = append(records, store.CommitRecord{
			SHA:            c.Hash.String(),
			CommitterName:  c.Committer.Name,
			CommitterEmail: c.Committer.Email,
			Date:           c.Committer.When,
			Message:        strings.TrimRight(c.Message, "\n"),
		})
	}
	return records, nil
}

// Bootstrap initializes a fresh mirror, materializes one canonical
// document per category, commits under the bot identity, and pushes the
// primary branch. Push failure is a mutation failure and is never
// retried; the local commit stays behind for inspection.
func (b *Backend) Bootstrap(ctx context.Context, application, environment string, documents map[store.Category][]byte) (*store.RepositoryInfo, error) {
	if strings.Contains(application, store.NameSeparator) {
		return nil, fmt.Errorf("application name %q must not contain %q", application, store.NameSeparator)
	}

	name := store.RepositoryName(application, environment)
	path := b.mirrorPath(name)
	remote := b.remoteURL(name)

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

	repo, err := gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(b.branch),
		},
		Bare: false,
	})
	if err != nil {
		return nil, mutation("init", nil, err)
	}

	if _, err := repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{remote},
	}); err != nil {
		return nil, mutation("init", nil, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, mutation("commit", nil, err)
	}

	categories := make([]store.Category, 0, len(documents))
	for c := range documents {
		if !c.Valid() {
			return nil, mutation("commit", nil, fmt.Errorf("unknown category %q", c))
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, c := range categories {
		canonical, err := store.CanonicalJSON(documents[c])
		if err != nil {
			return nil, mutation("commit", nil, fmt.Errorf("category %s: %w", c, err))
		}
		if err := os.WriteFile(filepath.Join(path, c.FileName()), canonical, 0o644); err != nil {
			return nil, mutation("commit", nil, err)
		}
		if _, err := worktree.Add(c.FileName()); err != nil {
			return nil, mutation("commit", nil, err)
		}
	}

	commitHash, err := worktree.Commit(store.BotMessage, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  store.BotName,
			Email: store.BotEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, mutation("commit", nil, err)
	}

	auth, err := b.auth.GetAuth()
	if err != nil {
		return nil, mutation("push", []string{"commit " + commitHash.String()}, err)
	}

	pushCtx, cancel := context.WithTimeout(ctx, b.cfg.PushTimeout)
	defer cancel()

	err = repo.PushContext(pushCtx, &gogit.PushOptions{
		RemoteName: "origin",
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, mutation("push", []string{"commit " + commitHash.String()}, err)
	}

	b.logger.Info("bootstrapped repository",
		"application", application,
		"environment", environment,
		"repository", name,
		"commit", commitHash.String())

	return &store.RepositoryInfo{
		Name:        name,
		RemoteURL:   remote,
		Application: application,
		Environment: environment,
	}, nil
}

// ListRepositories lists the mirrors present under the root path. Names
// that do not parse as "<application>-<environment>" are skipped.
func (b *Backend) ListRepositories(ctx context.Context) ([]store.RepositoryInfo, error) {
	entries, err := os.ReadDir(b.cfg.RootPath)
	if err != nil {
		return nil, &store.RetrievalError{Op: "list repositories", Err: err}
	}

	var infos []store.RepositoryInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := os.Stat(filepath.Join(b.cfg.RootPath, name, ".git")); err != nil {
			continue
		}
		app, env, ok := store.SplitRepositoryName(name)
		if !ok {
			b.logger.Debug("skipping mirror with unparseable name", "repository", name)
			continue
		}
		infos = append(infos, store.RepositoryInfo{
			Name:        name,
			RemoteURL:   b.remoteURL(name),
			Application: app,
			Environment: env,
		})
	}
	return infos, nil
}

// Healthy probes the mirror root. The local backend's reachability is
// its filesystem; remote reachability surfaces on the next
// synchronization.
func (b *Backend) Healthy(ctx context.Context) bool {
	info, err := os.Stat(b.cfg.RootPath)
	return err == nil && info.IsDir()
}
