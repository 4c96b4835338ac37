package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")

	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer\n"), 0644))
	require.NoError(t, WriteLines(path, []string{"b", "a"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", string(data))

	require.NoError(t, os.WriteFile(path, []byte("  one \n\n\ttwo\n   \n"), 0644))
	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestWriteLinesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, WriteLines(path, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestReadLinesMissing(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, Unique([]string{"b", "", "a", "b", "c", "a"}))
	assert.Nil(t, Unique([]string{"", ""}))
}
