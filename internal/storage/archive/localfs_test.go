package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Storage = (*LocalFS)(nil)

func TestLocalFS_WriteRead(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "test/file.json", []byte(`{"a":1}`)))

	got, err := fs.Read(ctx, "test/file.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestLocalFS_RequiresPath(t *testing.T) {
	_, err := NewLocalFS("")
	assert.Error(t, err)
}

func TestLocalFS_RejectsEscapingPaths(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../outside.json", "a/../../outside.json"} {
		assert.Error(t, fs.Write(context.Background(), p, []byte("x")), p)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "nonexistent.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fs.Write(ctx, "exists.json", []byte("data")))
	exists, err = fs.Exists(ctx, "exists.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "transcripts/2026/01/01/a.json", []byte("a")))
	require.NoError(t, fs.Write(ctx, "transcripts/2026/01/01/b.json", []byte("b")))
	require.NoError(t, fs.Write(ctx, "transcripts/2026/01/02/c.json", []byte("c")))

	paths, err := fs.List(ctx, "transcripts/2026/01/01")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"transcripts/2026/01/01/a.json",
		"transcripts/2026/01/01/b.json",
	}, paths)

	paths, err = fs.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalFS_Delete(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "delete.json", []byte("data")))
	require.NoError(t, fs.Delete(ctx, "delete.json"))

	exists, err := fs.Exists(ctx, "delete.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
