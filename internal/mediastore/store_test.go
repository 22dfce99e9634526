package mediastore

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(afero.NewMemMapFs(), "media")
}

func TestSaveAndOpen(t *testing.T) {
	store := newTestStore()

	rel, err := store.Save("videos", "lesson-1.mp4", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "videos/lesson-1.mp4", rel)

	f, err := store.Open(rel)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	size, err := store.Stat(rel)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), size)
}

func TestSaveStripsDirectoryComponents(t *testing.T) {
	store := newTestStore()

	rel, err := store.Save("videos", "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "videos/passwd", rel)
}

func TestSaveRejectsBadBucket(t *testing.T) {
	store := newTestStore()

	_, err := store.Save("", "a.mp4", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Save("../videos", "a.mp4", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := newTestStore()

	_, err := store.Open("videos/../../secret")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	store := newTestStore()

	_, err := store.Save("pdfs", "unit-1.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	_, err = store.Save("pdfs", "unit-2.pdf", strings.NewReader("two"))
	require.NoError(t, err)
	_, err = store.Save("videos", "lesson-1.mp4", strings.NewReader("v"))
	require.NoError(t, err)

	entries, err := store.List("pdfs")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Contains(t, []string{"unit-1.pdf", "unit-2.pdf"}, e.Name)
		assert.True(t, strings.HasPrefix(e.Path, "pdfs/"))
	}
}

func TestRemove(t *testing.T) {
	store := newTestStore()

	rel, err := store.Save("videos", "lesson-1.mp4", strings.NewReader("v"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(rel))
	_, err = store.Open(rel)
	assert.Error(t, err)

	// Removing again is not an error
	assert.NoError(t, store.Remove(rel))
}
