// Package cas implements the file backed materialization index.
package cas

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	memofs "go.trai.ch/memo/internal/adapters/fs"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

const latestFileName = "latest.json"

var _ ports.MaterializationIndex = (*Store)(nil)

// Store implements ports.MaterializationIndex using a directory per step key.
// Each directory holds one record per data version plus a copy of the latest
// record.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a new Store backed by the directory at the given path.
// The directory is created on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Has reports whether a record of stepKey at version exists.
func (s *Store) Has(ctx context.Context, stepKey string, version domain.DataVersion) (bool, error) {
	m, err := s.Find(ctx, stepKey, version)
	return m != nil, err
}

// Find returns the record of stepKey at version, or nil. File names are
// hashes, so a record stored for another key or version is treated as absent.
func (s *Store) Find(_ context.Context, stepKey string, version domain.DataVersion) (*domain.Materialization, error) {
	m, err := s.read(stepKey, s.versionFile(stepKey, version))
	if err != nil || m == nil {
		return nil, err
	}
	if m.StepKey != stepKey || m.DataVersion != version {
		return nil, nil
	}
	return m, nil
}

// Get returns the latest record of stepKey, or nil.
func (s *Store) Get(_ context.Context, stepKey string) (*domain.Materialization, error) {
	m, err := s.read(stepKey, filepath.Join(s.stepDir(stepKey), latestFileName))
	if err != nil || m == nil || m.StepKey != stepKey {
		return nil, err
	}
	return m, nil
}

// Record writes the version record first and the latest pointer second, so a
// crash in between leaves a record that is found by version but not yet
// reported as latest.
func (s *Store) Record(_ context.Context, materialization domain.Materialization) error {
	data, err := json.MarshalIndent(materialization, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "step", materialization.StepKey)
	}

	dir := s.stepDir(materialization.StepKey)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "step", materialization.StepKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{
		s.versionFile(materialization.StepKey, materialization.DataVersion),
		filepath.Join(dir, latestFileName),
	} {
		if err := memofs.WriteFileAtomic(name, data); err != nil {
			return zerr.With(err, "step", materialization.StepKey)
		}
	}
	return nil
}

func (s *Store) read(stepKey, filename string) (*domain.Materialization, error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "step", stepKey)
	}

	var m domain.Materialization
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "step", stepKey)
	}
	return &m, nil
}

// stepDir hashes the step key since keys contain characters such as "[?]"
// and "<-" that are not portable in file names.
func (s *Store) stepDir(stepKey string) string {
	return filepath.Join(s.dir, strconv.FormatUint(xxhash.Sum64String(stepKey), 16))
}

func (s *Store) versionFile(stepKey string, version domain.DataVersion) string {
	return filepath.Join(s.stepDir(stepKey), strconv.FormatUint(xxhash.Sum64String(version.String()), 16)+".json")
}
