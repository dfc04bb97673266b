package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListPending(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mov", "a.MOV", "c.mp4", "notes.txt"} {
		touch(t, filepath.Join(dir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.mov"), 0o755))

	files, err := ListPending(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.MOV"), filepath.Join(dir, "b.mov")}, files)

	files, err = ListPending(dir, []string{".mov", ".mp4"})
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = ListPending(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mov")
	touch(t, src)
	archive := filepath.Join(dir, "done", "videos")

	dst, err := Archive(src, archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "a.mov"), dst)
	assert.FileExists(t, dst)
	assert.NoFileExists(t, src)

	touch(t, src)
	_, err = Archive(src, archive)
	assert.ErrorIs(t, err, os.ErrExist)
	assert.FileExists(t, src)
}
