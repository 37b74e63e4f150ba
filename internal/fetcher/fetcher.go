package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote survey files.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written and the hex SHA-256 of the content.
	DownloadToFile(ctx context.Context, url string, path string) (int64, string, error)
}

// Router dispatches each URL to the fetcher registered for its scheme.
type Router struct {
	HTTP Fetcher // http and https
	FTP  Fetcher // ftp
}

// NewRouter returns a Router backed by an HTTP and an FTP fetcher.
func NewRouter(httpOpts HTTPOptions, ftpOpts FTPOptions) *Router {
	return &Router{HTTP: NewHTTPFetcher(httpOpts), FTP: NewFTPFetcher(ftpOpts)}
}

func (r *Router) route(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = r.HTTP
	case "ftp":
		f = r.FTP
	}
	if f == nil {
		return nil, eris.Errorf("fetch: unsupported scheme %q in %s", u.Scheme, rawURL)
	}
	return f, nil
}

// Download fetches rawURL with the fetcher for its scheme.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile saves rawURL to path with the fetcher for its scheme.
func (r *Router) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, string, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return 0, "", err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

// saveStream copies body to a new file at path, hashing it on the way.
func saveStream(body io.Reader, path string) (int64, string, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, "", eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(file, h), body)
	if err != nil {
		return n, "", eris.Wrap(err, "write file")
	}
	if err := file.Close(); err != nil {
		return n, "", eris.Wrap(err, "close file")
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
