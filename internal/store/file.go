package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

const lockFileName = "store.lock"

// FileStore persists each key as a JSON-safe file inside a directory.
// Writes are atomic (temp file plus rename) and guarded by an flock(2)
// lock file for cross-process safety.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating the directory
// if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// keyPath maps a key to a file path, flattening separators so keys like
// "approval.policy" stay inside the store directory.
func (f *FileStore) keyPath(key string) string {
	safe := strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}

// Get returns the value for key, or ErrNotFound.
func (f *FileStore) Get(key string) ([]byte, error) {
	fl := newFileLock(f.dir)
	if err := fl.lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.unlock() }()

	data, err := os.ReadFile(f.keyPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read value file: %w", err)
	}
	return data, nil
}

// Set writes the value for key. The write is atomic: data is written to a
// temporary file first, then renamed into place.
func (f *FileStore) Set(key string, value []byte) error {
	fl := newFileLock(f.dir)
	if err := fl.lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.unlock() }()

	target := f.keyPath(key)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, value, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Delete removes the value for key. Deleting an absent key is not an error.
func (f *FileStore) Delete(key string) error {
	fl := newFileLock(f.dir)
	if err := fl.lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.unlock() }()

	err := os.Remove(f.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove value file: %w", err)
	}
	return nil
}

// fileLock provides cross-process mutual exclusion using flock(2) on a
// lock file inside the store directory.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(dir string) *fileLock {
	return &fileLock{path: filepath.Join(dir, lockFileName)}
}

// lock acquires an exclusive file lock, blocking until available.
func (fl *fileLock) lock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	fl.file = f

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		fl.file = nil
		return fmt.Errorf("flock: %w", err)
	}
	return nil
}

// unlock releases the file lock and closes the lock file.
func (fl *fileLock) unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	return err
}
