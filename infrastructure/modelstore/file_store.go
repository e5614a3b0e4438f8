// Package modelstore persists host model snapshots.
package modelstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"gopkg.in/yaml.v3"
)

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     "model.yaml",
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the model file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.path = path
	}
}

// WithFilePermissions sets the file permissions for the model file.
// Default is 0o600.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions of created directories.
// Default is 0o755.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore keeps a model snapshot in a YAML file.
type FileStore struct {
	config fileStoreConfig
}

var _ ports.ModelStore = (*FileStore)(nil)

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (s *FileStore) Load() (entities.ModelSnapshot, error) {
	data, err := os.ReadFile(s.config.path)
	if os.IsNotExist(err) {
		return entities.ModelSnapshot{}, nil
	}
	if err != nil {
		return entities.ModelSnapshot{}, fmt.Errorf("failed to read model store: %w", err)
	}

	var rec snapshotRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return entities.ModelSnapshot{}, fmt.Errorf("failed to parse model store: %w", err)
	}
	snapshot, err := rec.snapshot()
	if err != nil {
		return entities.ModelSnapshot{}, fmt.Errorf("failed to parse model store: %w", err)
	}
	return snapshot, nil
}

// Save writes the snapshot. The file is replaced atomically so a failed
// save leaves the previous snapshot intact.
func (s *FileStore) Save(snapshot entities.ModelSnapshot) error {
	data, err := yaml.Marshal(newSnapshotRecord(snapshot))
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create model store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write model store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write model store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model store: %w", err)
	}
	if err := os.Chmod(tmp.Name(), s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write model store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.config.path); err != nil {
		return fmt.Errorf("failed to write model store: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the backing store.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}
