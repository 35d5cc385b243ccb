// Package runstore implements the file backed run store.
package runstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	memofs "go.trai.ch/memo/internal/adapters/fs"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RunStore = (*Store)(nil)

// Store implements ports.RunStore with one directory per run. The run record
// is rewritten atomically on every status change and events are appended to
// a JSON lines file.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates a new Store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir), now: time.Now}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// CreateRun writes the run record of a new run.
func (s *Store) CreateRun(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.runDir(run.ID)
	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "run_id", run.ID.String())
	}
	if err := os.Mkdir(dir, domain.DirPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return zerr.With(zerr.Wrap(domain.ErrRunAlreadyExists, "create run"), "run_id", run.ID.String())
		}
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "run_id", run.ID.String())
	}
	return s.writeRun(run)
}

// UpdateStatus rewrites the run record with status.
func (s *Store) UpdateStatus(_ context.Context, runID uuid.UUID, status domain.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.readRun(runID)
	if err != nil {
		return err
	}
	run.Status = status
	run.UpdatedAt = s.now()
	return s.writeRun(run)
}

// AppendEvent appends event as one line of the run's event log.
func (s *Store) AppendEvent(_ context.Context, runID uuid.UUID, event domain.RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "run_id", runID.String())
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.runFile(runID)); err != nil {
		return s.statError(runID, err)
	}

	//nolint:gosec // Path is constructed from trusted directory and run id
	f, err := os.OpenFile(s.eventsFile(runID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "run_id", runID.String())
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "run_id", runID.String())
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "run_id", runID.String())
	}
	return nil
}

// GetRun reads the run record.
func (s *Store) GetRun(_ context.Context, runID uuid.UUID) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readRun(runID)
}

// Events reads the run's event log in append order. A truncated trailing
// line, left by a crash mid-append, is ignored.
func (s *Store) Events(_ context.Context, runID uuid.UUID) ([]domain.RunEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readEvents(runID)
}

// GetParentMaterializations derives the materializations known to a run from
// its record and event log.
func (s *Store) GetParentMaterializations(
	_ context.Context,
	runID uuid.UUID,
) (map[string]domain.Materialization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.readRun(runID)
	if err != nil {
		return nil, err
	}
	events, err := s.readEvents(runID)
	if err != nil {
		return nil, err
	}
	return domain.MaterializationsFromRun(run, events), nil
}

// List returns the ids of every stored run, most recently created first.
func (s *Store) List(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	type entry struct {
		id      uuid.UUID
		created time.Time
	}
	runs := make([]entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := uuid.Parse(e.Name())
		if err != nil {
			continue
		}
		run, err := s.readRun(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, entry{id: id, created: run.CreatedAt})
	}

	slices.SortFunc(runs, func(a, b entry) int {
		return b.created.Compare(a.created)
	})
	ids := make([]uuid.UUID, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}

func (s *Store) readRun(runID uuid.UUID) (*domain.Run, error) {
	//nolint:gosec // Path is constructed from trusted directory and run id
	data, err := os.ReadFile(s.runFile(runID))
	if err != nil {
		return nil, s.statError(runID, err)
	}
	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "run_id", runID.String())
	}
	return &run, nil
}

func (s *Store) writeRun(run *domain.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error()), "run_id", run.ID.String())
	}
	if err := memofs.WriteFileAtomic(s.runFile(run.ID), data); err != nil {
		return zerr.With(err, "run_id", run.ID.String())
	}
	return nil
}

func (s *Store) readEvents(runID uuid.UUID) ([]domain.RunEvent, error) {
	if _, err := os.Stat(s.runFile(runID)); err != nil {
		return nil, s.statError(runID, err)
	}

	//nolint:gosec // Path is constructed from trusted directory and run id
	data, err := os.ReadFile(s.eventsFile(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "run_id", runID.String())
	}

	// Only complete lines are decoded.
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	} else {
		data = nil
	}

	var events []domain.RunEvent
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var e domain.RunEvent
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "run_id", runID.String())
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *Store) statError(runID uuid.UUID, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrRunNotFound, "lookup run"), "run_id", runID.String())
	}
	return zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "run_id", runID.String())
}

func (s *Store) runDir(runID uuid.UUID) string {
	return filepath.Join(s.dir, runID.String())
}

func (s *Store) runFile(runID uuid.UUID) string {
	return filepath.Join(s.runDir(runID), domain.RunFileName)
}

func (s *Store) eventsFile(runID uuid.UUID) string {
	return filepath.Join(s.runDir(runID), domain.EventsFileName)
}
