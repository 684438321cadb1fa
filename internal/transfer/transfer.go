package transfer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/nerrad567/printlink/internal/infrastructure/config"
	"github.com/nerrad567/printlink/internal/pathsafe"
)

// deviceUsername is the fixed file-transfer username, shared with the
// messaging channel.
const deviceUsername = "bblp"

// implicitTLSPort selects implicit-TLS mode: dialing this port wraps
// the control connection in TLS before the first protocol byte.
const implicitTLSPort = 990

// ProgressFunc receives the cumulative byte count during an upload.
// Called inline on the transfer goroutine; keep it cheap.
type ProgressFunc func(sent int64)

// Entry is one remote directory listing entry.
type Entry struct {
	Name     string
	Size     uint64
	Modified time.Time
	IsDir    bool
}

// conn is the subset of the protocol library the client drives,
// narrowed so tests can substitute a fake device.
type conn interface {
	Stor(path string, r io.Reader) error
	List(path string) ([]*ftp.Entry, error)
	Delete(path string) error
	Retr(path string) (io.ReadCloser, error)
	MakeDir(path string) error
	ChangeDir(path string) error
	CurrentDir() (string, error)
	Quit() error
}

// serverConn adapts *ftp.ServerConn to the conn interface.
type serverConn struct {
	*ftp.ServerConn
}

func (s serverConn) Retr(path string) (io.ReadCloser, error) {
	return s.ServerConn.Retr(path)
}

// Client is a file-transfer client for one device.
//
// Thread Safety:
//   - All methods are safe for concurrent use, but the underlying
//     protocol serializes operations on the single control connection.
type Client struct {
	printer config.PrinterConfig
	cfg     config.TransferConfig

	mu   sync.Mutex
	conn conn

	// dial is swapped by tests.
	dial func() (conn, error)
}

// New creates an unconnected transfer client for one device.
func New(printer config.PrinterConfig, cfg config.TransferConfig) *Client {
	c := &Client{printer: printer, cfg: cfg}
	c.dial = c.dialDevice
	return c
}

// Connect dials the device and logs in with the access code.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrAlreadyConnected
	}

	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.conn = conn
	return nil
}

// dialDevice opens the control connection. The device presents a
// self-signed certificate, so chain verification is disabled.
func (c *Client) dialDevice() (conn, error) {
	addr := fmt.Sprintf("%s:%d", c.printer.Host, c.cfg.Port)
	timeout := time.Duration(c.cfg.Timeout) * time.Second

	opts := []ftp.DialOption{ftp.DialWithTimeout(timeout)}
	if c.cfg.Port == implicitTLSPort {
		opts = append(opts, ftp.DialWithTLS(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, // #nosec G402 -- devices use self-signed certificates
		}))
	}

	sc, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	if err := sc.Login(deviceUsername, c.printer.AccessCode); err != nil {
		_ = sc.Quit()
		return nil, fmt.Errorf("logging in: %w", err)
	}
	return serverConn{sc}, nil
}

// Close logs out and drops the connection. Idempotent; a close on an
// unconnected client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("closing transfer connection: %w", err)
	}
	return nil
}

// active returns the live connection or ErrNotConnected.
func (c *Client) active() (conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Upload streams a reader to a remote path.
//
// Parameters:
//   - remotePath: Destination on the device, validated before use
//   - r: Content source
//   - progress: Optional cumulative byte callback, nil to disable
func (c *Client) Upload(remotePath string, r io.Reader, progress ProgressFunc) error {
	clean, err := pathsafe.Sanitize(remotePath)
	if err != nil {
		return err
	}
	conn, err := c.active()
	if err != nil {
		return err
	}

	if progress != nil {
		r = &countingReader{inner: r, progress: progress}
	}
	if err := conn.Stor(clean, r); err != nil {
		return fmt.Errorf("%w: uploading %s: %w", ErrTransferFailed, clean, err)
	}
	return nil
}

// UploadBytes uploads an in-memory payload.
func (c *Client) UploadBytes(remotePath string, data []byte, progress ProgressFunc) error {
	return c.Upload(remotePath, bytes.NewReader(data), progress)
}

// UploadFile uploads a local file.
func (c *Client) UploadFile(remotePath, localPath string, progress ProgressFunc) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()
	return c.Upload(remotePath, f, progress)
}

// List returns the entries of a remote directory.
func (c *Client) List(remoteDir string) ([]Entry, error) {
	clean, err := pathsafe.Sanitize(remoteDir)
	if err != nil {
		return nil, err
	}
	conn, err := c.active()
	if err != nil {
		return nil, err
	}

	raw, err := conn.List(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", ErrTransferFailed, clean, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, Entry{
			Name:     e.Name,
			Size:     e.Size,
			Modified: e.Time,
			IsDir:    e.Type == ftp.EntryTypeFolder,
		})
	}
	return entries, nil
}

// Delete removes a remote file.
func (c *Client) Delete(remotePath string) error {
	clean, err := pathsafe.Sanitize(remotePath)
	if err != nil {
		return err
	}
	conn, err := c.active()
	if err != nil {
		return err
	}
	if err := conn.Delete(clean); err != nil {
		return fmt.Errorf("%w: deleting %s: %w", ErrTransferFailed, clean, err)
	}
	return nil
}

// Download retrieves a remote file into memory.
func (c *Client) Download(remotePath string) ([]byte, error) {
	clean, err := pathsafe.Sanitize(remotePath)
	if err != nil {
		return nil, err
	}
	conn, err := c.active()
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieving %s: %w", ErrTransferFailed, clean, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransferFailed, clean, err)
	}
	return data, nil
}

// MakeDir creates a remote directory.
func (c *Client) MakeDir(remotePath string) error {
	clean, err := pathsafe.Sanitize(remotePath)
	if err != nil {
		return err
	}
	conn, err := c.active()
	if err != nil {
		return err
	}
	if err := conn.MakeDir(clean); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrTransferFailed, clean, err)
	}
	return nil
}

// ChangeDir changes the remote working directory.
func (c *Client) ChangeDir(remotePath string) error {
	clean, err := pathsafe.Sanitize(remotePath)
	if err != nil {
		return err
	}
	conn, err := c.active()
	if err != nil {
		return err
	}
	if err := conn.ChangeDir(clean); err != nil {
		return fmt.Errorf("%w: entering %s: %w", ErrTransferFailed, clean, err)
	}
	return nil
}

// CurrentDir returns the remote working directory.
func (c *Client) CurrentDir() (string, error) {
	conn, err := c.active()
	if err != nil {
		return "", err
	}
	dir, err := conn.CurrentDir()
	if err != nil {
		return "", fmt.Errorf("%w: reading working directory: %w", ErrTransferFailed, err)
	}
	return dir, nil
}

// countingReader reports cumulative bytes read to a progress callback.
type countingReader struct {
	inner    io.Reader
	sent     int64
	progress ProgressFunc
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.progress(r.sent)
	}
	return n, err
}
