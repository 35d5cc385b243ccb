package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/fs"
	"go.trai.ch/memo/internal/core/domain"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "record.json")

	require.NoError(t, fs.WriteFileAtomic(name, []byte("first")))
	require.NoError(t, fs.WriteFileAtomic(name, []byte("second")))

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.FilePerm), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are removed")
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	err := fs.WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "record.json"), []byte("x"))
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrStoreWriteFailed.Error())
}
