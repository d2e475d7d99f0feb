package artifact

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryAccessor is an in-memory Accessor used by tests and the demo
// command. Put appends a new revision per artifact ID.
type MemoryAccessor struct {
	mu       sync.RWMutex
	versions map[string][]version // artifact ID -> revisions in order
}

// NewMemoryAccessor creates an empty MemoryAccessor.
func NewMemoryAccessor() *MemoryAccessor {
	return &MemoryAccessor{
		versions: make(map[string][]version),
	}
}

// Put stores a new revision of an artifact and returns its metadata.
func (m *MemoryAccessor) Put(id, name, contentType, content string) Metadata {
	m.mu.Lock()
	defer m.mu.Unlock()

	revision := len(m.versions[id])
	meta := Metadata{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Revision:    revision,
		VersionID:   fmt.Sprintf("%s-v%d", id, revision),
		SizeBytes:   len(content),
		UpdatedAt:   time.Now(),
	}
	m.versions[id] = append(m.versions[id], version{meta: meta, content: content})
	return meta
}

// Content returns the content of one artifact version.
func (m *MemoryAccessor) Content(id string, revision int, versionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, err := m.resolve(id, revision, versionID)
	if err != nil {
		return "", err
	}
	return v.content, nil
}

// Metadata returns the metadata of one artifact version.
func (m *MemoryAccessor) Metadata(id string, versionID string) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, err := m.resolve(id, -1, versionID)
	if err != nil {
		return Metadata{}, err
	}
	return v.meta, nil
}

// AllMetadata returns the latest metadata of every stored artifact,
// ordered by artifact ID for deterministic output.
func (m *MemoryAccessor) AllMetadata() ([]Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.versions))
	for id := range m.versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	metas := make([]Metadata, 0, len(ids))
	for _, id := range ids {
		revs := m.versions[id]
		metas = append(metas, revs[len(revs)-1].meta)
	}
	return metas, nil
}

// resolve locates one version by versionID if given, else by revision,
// else the latest. Caller holds the read lock.
func (m *MemoryAccessor) resolve(id string, revision int, versionID string) (version, error) {
	revs, ok := m.versions[id]
	if !ok || len(revs) == 0 {
		return version{}, notFound(id)
	}

	if versionID != "" {
		for _, v := range revs {
			if v.meta.VersionID == versionID {
				return v, nil
			}
		}
		return version{}, notFound(id)
	}

	if revision < 0 {
		return revs[len(revs)-1], nil
	}
	if revision >= len(revs) {
		return version{}, notFound(id)
	}
	return revs[revision], nil
}
