// Package bootstrap provisions configuration repositories for new
// applications.
//
// The pipeline renders one document per category from the environment
// registry's templates, bootstraps the repository through the store,
// and triggers a single fire-and-forget directory refresh once all
// environments are processed. Environments are provisioned
// sequentially; a failure stops the pipeline and reports what was
// already created.
package bootstrap
