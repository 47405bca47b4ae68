package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, lines ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	return buf.Bytes()
}

// TestReader_Next verifies that objects are decoded line by line and that
// the stream ends with io.EOF.
func TestReader_Next(t *testing.T) {
	data := compress(t,
		`{"id":"abc","title":"Chiefs win","score":120}`,
		``,
		`{"id":"def","title":"Trade deadline","score":45}`,
	)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	obj, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", obj["id"])
	assert.Equal(t, float64(120), obj["score"])

	obj, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "Trade deadline", obj["title"])

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

// TestReadPreview_Limit verifies that reading stops after the limit.
func TestReadPreview_Limit(t *testing.T) {
	data := compress(t, `{"n":1}`, `{"n":2}`, `{"n":3}`)

	p, err := ReadPreview(bytes.NewReader(data), 2)
	require.NoError(t, err)
	require.Len(t, p.Objects, 2)
	assert.Equal(t, float64(2), p.Objects[1]["n"])
}

// TestReadPreview_BadLines verifies that unparseable lines are reported
// with their line number and do not stop the preview.
func TestReadPreview_BadLines(t *testing.T) {
	data := compress(t, `{"n":1}`, `not json`, `{"n":2}`)

	p, err := ReadPreview(bytes.NewReader(data), 10)
	require.NoError(t, err)
	assert.Len(t, p.Objects, 2)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, 2, p.Errors[0].Line)
	assert.Contains(t, p.Errors[0].Error(), "line 2")
}

// TestReadPreview_NoLimit verifies that a limit of 0 reads every object.
func TestReadPreview_NoLimit(t *testing.T) {
	data := compress(t, `{"n":1}`, `{"n":2}`, `{"n":3}`)

	p, err := ReadPreview(bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Len(t, p.Objects, 3)
}

// TestReadPreview_NotZstd verifies that a stream that is not zstandard
// returns an error.
func TestReadPreview_NotZstd(t *testing.T) {
	_, err := ReadPreview(strings.NewReader(`{"n":1}`+"\n"), 10)
	assert.Error(t, err)
}

// TestPreviewFile verifies reading from disk and the missing file error.
func TestPreviewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nfl_submissions.zst")
	require.NoError(t, os.WriteFile(path, compress(t, `{"subreddit":"nfl"}`), 0o644))

	p, err := PreviewFile(path, 10)
	require.NoError(t, err)
	require.Len(t, p.Objects, 1)
	assert.Equal(t, "nfl", p.Objects[0]["subreddit"])

	_, err = PreviewFile(filepath.Join(t.TempDir(), "missing.zst"), 10)
	assert.Error(t, err)
}
