package files

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("content of " + r.URL.Path))
	}))
}

func TestDownload(t *testing.T) {
	srv := fileServer(t)
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(srv.URL+"/", dir, false)

	path, err := d.Download(context.Background(), "abc123", "logo.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logo.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content of /abc123", string(data))
}

func TestDownloadUniqueSuffix(t *testing.T) {
	srv := fileServer(t)
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(srv.URL+"/", dir, false)

	first, err := d.Download(context.Background(), "key1", "logo.png")
	require.NoError(t, err)
	second, err := d.Download(context.Background(), "key2", "logo.png")
	require.NoError(t, err)
	third, err := d.Download(context.Background(), "key3", "logo.png")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "logo.png"), first)
	assert.Equal(t, filepath.Join(dir, "logo_1.png"), second)
	assert.Equal(t, filepath.Join(dir, "logo_2.png"), third)
}

func TestDownloadOverwrite(t *testing.T) {
	srv := fileServer(t)
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(srv.URL+"/", dir, true)

	_, err := d.Download(context.Background(), "key1", "logo.png")
	require.NoError(t, err)
	path, err := d.Download(context.Background(), "key2", "logo.png")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "logo.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content of /key2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadNotFound(t *testing.T) {
	srv := fileServer(t)
	defer srv.Close()

	d := NewDownloader(srv.URL+"/", t.TempDir(), false)
	_, err := d.Download(context.Background(), "missing", "gone.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
