package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("models/current.json", []byte("v1"), 0644))

	data, err := m.ReadFile("models/current.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data)

	assert.True(t, m.Exists("models/current.json"))
	assert.True(t, m.Exists("models"))
	assert.False(t, m.Exists("models/other.json"))

	require.NoError(t, m.Remove("models/current.json"))
	_, err = m.ReadFile("models/current.json")
	assert.Error(t, err)
}

func TestMemoryFileSystemRename(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("a.json", []byte("new"), 0644))
	require.NoError(t, m.WriteFile("b.json", []byte("old"), 0644))

	require.NoError(t, m.Rename("a.json", "b.json"))
	data, err := m.ReadFile("b.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
	assert.False(t, m.Exists("a.json"))

	assert.Error(t, m.Rename("missing.json", "b.json"))
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("current.json", []byte("old"), 0644))
	require.NoError(t, WriteFileAtomic(m, "current.json", []byte("new"), 0644))

	data, err := m.ReadFile("current.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
	assert.False(t, m.Exists("current.json.tmp"))
}

func TestOSFileSystem(t *testing.T) {
	t.Parallel()

	var fsys OSFileSystem
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "artifact.json")

	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, WriteFileAtomic(fsys, path, []byte("payload"), 0644))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.True(t, fsys.Exists(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp file left behind")
}
