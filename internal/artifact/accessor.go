// Package artifact defines the privileged host accessor that sandboxed job
// code reaches through the scheduler's shim protocol. Jobs never hold a
// reference to an Accessor directly; the scheduler's shim host resolves
// exactly three read-only request types against it and relays results back
// over the message channel.
package artifact

import (
	"time"

	"github.com/fenwick/toolplane/internal/errors"
)

// Metadata describes one version of a stored artifact.
type Metadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Revision    int       `json:"revision"`
	VersionID   string    `json:"version_id"`
	SizeBytes   int       `json:"size_bytes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Accessor is the read-only view of the artifact store exposed to jobs
// through the shim. Implementations must be safe for concurrent use; the
// shim host serializes requests, but multiple hosts may share an accessor.
type Accessor interface {
	// Content returns the content of one artifact version. A negative
	// revision or an empty versionID selects the latest version.
	Content(id string, revision int, versionID string) (string, error)

	// Metadata returns the metadata of one artifact version. An empty
	// versionID selects the latest version.
	Metadata(id string, versionID string) (Metadata, error)

	// AllMetadata returns the latest metadata of every stored artifact.
	AllMetadata() ([]Metadata, error)
}

// version is one stored revision of an artifact.
type version struct {
	meta    Metadata
	content string
}

// notFound builds the standard error for a missing artifact or version.
func notFound(id string) error {
	return errors.NewNotFoundError("artifact", id)
}
