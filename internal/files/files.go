// Package files downloads remote file store objects into a local assets
// directory.
package files

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Downloader fetches files from the remote file store by storage key and
// writes them under a destination directory.
type Downloader struct {
	BaseURL   string
	Dir       string
	Overwrite bool

	httpc *http.Client
}

func NewDownloader(baseURL, dir string, overwrite bool) *Downloader {
	return &Downloader{
		BaseURL:   baseURL,
		Dir:       dir,
		Overwrite: overwrite,
		httpc:     &http.Client{Timeout: 120 * time.Second},
	}
}

// Download fetches the object stored under key and saves it as filename
// inside the destination directory. When overwriting is disabled and the
// name is taken, a numeric suffix is appended before the extension. The
// local path actually written is returned.
func (d *Downloader) Download(ctx context.Context, key, filename string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create assets dir: %w", err)
	}

	path := filepath.Join(d.Dir, filename)
	if !d.Overwrite {
		path = uniquePath(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+key, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: %s", key, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// uniquePath returns path unchanged when free, otherwise the first
// name_N variant that does not exist yet.
func uniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
