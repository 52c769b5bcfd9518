package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category identifies one configuration document kind within a repository.
type Category string

// The three well-known configuration categories. Every bootstrapped
// repository carries exactly one file per category at its root.
const (
	CategoryApplicationProperties Category = "application-properties"
	CategoryDeploymentParams      Category = "deployment-params"
	CategoryLaunchData            Category = "launch-data"
)

// Categories returns all well-known categories in their canonical order.
func Categories() []Category {
	return []Category{
		CategoryApplicationProperties,
		CategoryDeploymentParams,
		CategoryLaunchData,
	}
}

// FileName returns the repository file name backing the category.
func (c Category) FileName() string {
	return string(c) + ".json"
}

// Valid reports whether c is one of the well-known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryApplicationProperties, CategoryDeploymentParams, CategoryLaunchData:
		return true
	}
	return false
}

// NameSeparator joins application and environment into a repository name.
const NameSeparator = "-"

// RepositoryName derives the repository name for an (application,
// environment) pair.
func RepositoryName(application, environment string) string {
	return application + NameSeparator + environment
}

// SplitRepositoryName recovers the (application, environment) pair from a
// repository name by splitting on the first separator.
//
// The split is ambiguous when the application name itself contains the
// separator; Bootstrap rejects such applications up front, so names
// produced by this store always round-trip. Names created out of band may
// not.
func SplitRepositoryName(name string) (application, environment string, ok bool) {
	idx := strings.Index(name, NameSeparator)
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

// DateFormat is the fixed ISO-8601 form commit dates are emitted in.
// Sub-second precision is deliberately dropped.
const DateFormat = "2006-01-02T15:04:05Z07:00"

// CommitRecord describes one commit in a repository's history.
// Histories are ordered newest-first by commit time.
type CommitRecord struct {
	SHA            string    `json:"sha"`
	CommitterName  string    `json:"committerName"`
	CommitterEmail string    `json:"committerEmail"`
	Date           time.Time `json:"-"`
	Message        string    `json:"message"`
}

// MarshalJSON emits the commit date in DateFormat.
func (r CommitRecord) MarshalJSON() ([]byte, error) {
	type alias CommitRecord
	return json.Marshal(struct {
		alias
		Date string `json:"commitDate"`
	}{
		alias: alias(r),
		Date:  r.Date.Truncate(time.Second).Format(DateFormat),
	})
}

// UnmarshalJSON accepts the DateFormat emitted by MarshalJSON.
func (r *CommitRecord) UnmarshalJSON(data []byte) error {
	type alias CommitRecord
	var aux struct {
		alias
		Date string `json:"commitDate"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = CommitRecord(aux.alias)
	if aux.Date != "" {
		t, err := time.Parse(DateFormat, aux.Date)
		if err != nil {
			return fmt.Errorf("invalid commit date %q: %w", aux.Date, err)
		}
		r.Date = t
	}
	return nil
}

// Document is a read-only snapshot of one category document at a concrete
// revision. It is never persisted by the store itself.
type Document struct {
	Category Category        `json:"category"`
	Revision string          `json:"revision"`
	Data     json.RawMessage `json:"data"`
}

// RepositoryInfo is a projection of one known repository. The directory
// cache replaces its set of RepositoryInfo entries wholesale on every
// refresh.
type RepositoryInfo struct {
	Name        string `json:"name"`
	RemoteURL   string `json:"remoteUrl"`
	Application string `json:"application"`
	Environment string `json:"environment"`
}
