// Package fetcher opens street feeds from local paths, HTTP and FTP, and
// streams their rows from CSV and XLSX.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options configures the fetchers used by Open and Localize.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// IsRemote reports whether src is an http, https or ftp URL.
func IsRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://")
}

// ForSource returns the fetcher that serves src's scheme.
func ForSource(src string, opts Options) (Fetcher, error) {
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPFetcher(opts.HTTP), nil
	case strings.HasPrefix(lower, "ftp://"):
		return NewFTPFetcher(opts.FTP), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported source %q", src)
	}
}

// Open returns a reader over src, a local path or a remote URL.
func Open(ctx context.Context, src string, opts Options) (io.ReadCloser, error) {
	if !IsRemote(src) {
		f, err := os.Open(src)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", src)
		}
		return f, nil
	}

	f, err := ForSource(src, opts)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, src)
}

// Localize returns a filesystem path holding src. Remote sources are
// downloaded into a temp file that cleanup removes; for local paths cleanup
// is a no-op.
func Localize(ctx context.Context, src string, opts Options) (path string, cleanup func(), err error) {
	if !IsRemote(src) {
		if _, err := os.Stat(src); err != nil {
			return "", func() {}, eris.Wrapf(err, "fetcher: stat %s", src)
		}
		return src, func() {}, nil
	}

	f, err := ForSource(src, opts)
	if err != nil {
		return "", func() {}, err
	}

	dir, err := os.MkdirTemp("", "servicearea-feed-*")
	if err != nil {
		return "", func() {}, eris.Wrap(err, "fetcher: create temp dir")
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	path = filepath.Join(dir, "feed"+filepath.Ext(strings.SplitN(src, "?", 2)[0]))
	if _, err := f.DownloadToFile(ctx, src, path); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}

// writeToFile copies r into a new file at path.
func writeToFile(r io.Reader, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
