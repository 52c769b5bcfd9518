package store

import "context"

// MaxCommitLog caps the number of entries returned by ListCommits.
const MaxCommitLog = 20

// DefaultBranch is the primary branch all reads and writes go through.
// The store never creates or follows any other branch.
const DefaultBranch = "main"

// Fixed bot identity used for every commit the store publishes.
const (
	BotName    = "ganymede"
	BotEmail   = "ganymede@mercator-hq.dev"
	BotMessage = "Initial commit"
)

// Store is the capability contract all backends implement.
//
// Operations are synchronous and blocking: each runs to completion on the
// caller's goroutine. Mutating operations carry bounded timeouts
// internally; plain reads rely on the transport's own limits.
type Store interface {
	// ResolveAndFetch resolves the commit identifier against the
	// repository for (application, environment), reads the category
	// document at the resolved revision, and returns it pinned to the
	// concrete commit hash. A missing repository, revision, or document
	// yields ErrNotFound.
	ResolveAndFetch(ctx context.Context, application, environment, ref string, category Category) (*Document, error)

	// ListCommits returns up to MaxCommitLog commits of the repository's
	// primary branch, newest first. Backend unavailability yields a
	// RetrievalError.
	ListCommits(ctx context.Context, application, environment string) ([]CommitRecord, error)

	// Bootstrap creates the repository for (application, environment)
	// and publishes exactly one initial commit holding one canonical
	// pretty-printed JSON file per supplied category, on the primary
	// branch, under the fixed bot identity.
	//
	// Bootstrap is not idempotent. Invoking it again for the same pair
	// duplicates content or fails; callers must not re-bootstrap.
	Bootstrap(ctx context.Context, application, environment string, documents map[Category][]byte) (*RepositoryInfo, error)

	// ListRepositories returns every repository known to the backend.
	ListRepositories(ctx context.Context) ([]RepositoryInfo, error)

	// Healthy probes backend reachability. It never returns an error;
	// any failure reads as unhealthy.
	Healthy(ctx context.Context) bool
}
