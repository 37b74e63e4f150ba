package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	anonymousUser     = "anonymous"
	anonymousPassword = "retail-cli@"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout    time.Duration
	MaxRetries int           // connection attempts per download
	Backoff    time.Duration // base delay between attempts, doubled each time
}

// FTPFetcher retrieves survey files from FTP mirrors such as ftp2.census.gov.
// Credentials come from the URL; without them the login is anonymous.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher returns an FTPFetcher, filling unset options with defaults.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	if opts.Backoff == 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &FTPFetcher{opts: opts}
}

// ftpSource is a parsed ftp:// URL.
type ftpSource struct {
	addr     string // host:port
	path     string
	user     string
	password string
}

func parseFTPSource(rawURL string) (ftpSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpSource{}, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpSource{}, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpSource{}, eris.Errorf("no file path in %s", rawURL)
	}

	src := ftpSource{addr: u.Host, path: u.Path, user: anonymousUser, password: anonymousPassword}
	if _, _, err := net.SplitHostPort(src.addr); err != nil {
		src.addr = net.JoinHostPort(src.addr, "21")
	}
	if u.User != nil && u.User.Username() != "" {
		src.user = u.User.Username()
		src.password, _ = u.User.Password()
	}
	return src, nil
}

// parseFTPURL splits an ftp:// URL into host:port and path.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	src, err := parseFTPSource(rawURL)
	return src.addr, src.path, err
}

// retrieval streams one RETR transfer; Close ends it and logs out.
type retrieval struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (r *retrieval) Close() error {
	if err := r.Response.Close(); err != nil {
		r.conn.Quit() //nolint:errcheck
		return eris.Wrap(err, "close ftp transfer")
	}
	return eris.Wrap(r.conn.Quit(), "quit ftp connection")
}

// connect dials and logs in, retrying dial failures. Login failures are
// returned at once.
func (f *FTPFetcher) connect(ctx context.Context, src ftpSource) (*ftp.ServerConn, error) {
	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if attempt > 0 {
			sleepBackoff(ctx, f.opts.Backoff, attempt-1)
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ftp dial")
		}

		conn, err := ftp.Dial(src.addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("ftp dial failed",
				zap.String("addr", src.addr),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		if err := conn.Login(src.user, src.password); err != nil {
			conn.Quit() //nolint:errcheck
			return nil, eris.Wrapf(err, "ftp login as %s", src.user)
		}
		return conn, nil
	}
	return nil, eris.Wrapf(lastErr, "ftp dial %s after %d attempts", src.addr, f.opts.MaxRetries)
}

// Download retrieves the file named by ftpURL. Closing the returned reader
// releases the connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	src, err := parseFTPSource(ftpURL)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("ftp retrieve", zap.String("addr", src.addr), zap.String("path", src.path))

	conn, err := f.connect(ctx, src)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Retr(src.path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrapf(err, "ftp retrieve %s", src.path)
	}
	return &retrieval{Response: resp, conn: conn}, nil
}

// DownloadToFile saves the file named by ftpURL to path and returns its size
// and SHA-256.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, string, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, "", err
	}
	defer rc.Close() //nolint:errcheck

	return saveStream(rc, path)
}
