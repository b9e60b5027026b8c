package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/gobeaver/formkit"
	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Adapter saves files on a remote host over SFTP
type Adapter struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	dirFunc  formkit.DirectoryFunc
	nameFunc formkit.NameFunc
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string

	// HostKey pins the server key. When nil any host key is accepted.
	HostKey ssh.PublicKey
}

// AdapterOption is a function that configures SFTP Adapter
type AdapterOption func(*Adapter)

// WithBasePath sets the remote directory files are saved under
func WithBasePath(basePath string) AdapterOption {
	return func(a *Adapter) {
		a.basePath = basePath
	}
}

// WithDirectoryFunc computes the remote directory per save from the base path
func WithDirectoryFunc(fn formkit.DirectoryFunc) AdapterOption {
	return func(a *Adapter) {
		a.dirFunc = fn
	}
}

// WithNameFunc computes the remote file name of every file
func WithNameFunc(fn formkit.NameFunc) AdapterOption {
	return func(a *Adapter) {
		a.nameFunc = fn
	}
}

// New dials the host and creates an SFTP adapter
func New(cfg Config, options ...AdapterOption) (*Adapter, error) {
	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if cfg.HostKey != nil {
		sshConfig.HostKeyCallback = ssh.FixedHostKey(cfg.HostKey)
	}

	if len(cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(cfg.Password))
	}
	if len(sshConfig.Auth) == 0 {
		return nil, fmt.Errorf("no authentication method provided")
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH: %w", err)
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	adapter := NewWithClient(client, cfg.BasePath, options...)
	adapter.sshConn = sshConn
	return adapter, nil
}

// NewWithClient creates an adapter over an established SFTP session
func NewWithClient(client *sftp.Client, basePath string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client:   client,
		basePath: basePath,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Close closes the SFTP and SSH connections
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}
	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}
	return errors.Join(errs...)
}

func (a *Adapter) sftpClient() (*sftp.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, errors.New("sftp: adapter is closed")
	}
	return a.client, nil
}

// Directory resolves the remote directory of a save
func (a *Adapter) Directory(ctx context.Context, o formkit.SaveOptions) (string, error) {
	dir := a.basePath
	if a.dirFunc != nil {
		d, err := a.dirFunc(ctx, a.basePath)
		if err != nil {
			return "", err
		}
		dir = d
	}
	if dir == "" {
		return "", formkit.DestinationRequired("sftp", "base path is required")
	}
	dir = path.Clean(dir)
	if o.Path == "" {
		return dir, nil
	}

	full := path.Join(dir, o.Path)
	if full != dir && !strings.HasPrefix(full, strings.TrimSuffix(dir, "/")+"/") {
		return "", &formkit.PersistenceError{Op: "save", Name: o.Path, Err: formkit.ErrNotAllowed}
	}
	return full, nil
}

// Save implements formkit.Strategy. The content is written to a temporary
// name and renamed into place. The returned location is the remote path.
func (a *Adapter) Save(ctx context.Context, f *formkit.File, options ...formkit.SaveOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f == nil {
		return "", formkit.ErrInvalidName
	}

	o := formkit.ApplySaveOptions(options...)
	dir, err := a.Directory(ctx, o)
	if err != nil {
		return "", err
	}
	name, err := formkit.ResolveName(ctx, f, o, a.nameFunc)
	if err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: f.FullName, Err: err}
	}

	client, err := a.sftpClient()
	if err != nil {
		return "", err
	}

	if err := client.MkdirAll(dir); err != nil {
		return "", &formkit.PersistenceError{Op: "mkdir", Name: dir, Err: err}
	}

	target := path.Join(dir, name)
	if err := writeAtomic(ctx, client, target, f); err != nil {
		return "", &formkit.PersistenceError{Op: "save", Name: name, Err: err}
	}
	return target, nil
}

// SaveMany implements formkit.BulkStrategy
func (a *Adapter) SaveMany(ctx context.Context, files []*formkit.File, options ...formkit.SaveOption) ([]string, error) {
	return formkit.SaveMany(ctx, a, files, options...)
}

func writeAtomic(ctx context.Context, client *sftp.Client, target string, f *formkit.File) error {
	tmp := path.Join(path.Dir(target), ".formkit-"+uuid.NewString()+".tmp")

	out, err := client.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, f.Reader()); err != nil {
		out.Close()
		client.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		client.Remove(tmp)
		return err
	}
	if err := ctx.Err(); err != nil {
		client.Remove(tmp)
		return err
	}

	return replace(client, tmp, target)
}

// renamer is the part of *sftp.Client that moves an upload into place
type renamer interface {
	PosixRename(oldname, newname string) error
	Rename(oldname, newname string) error
	Remove(path string) error
}

// replace moves tmp over target. Only servers without the posix-rename
// extension get the remove and rename fallback; any other failure keeps
// target and drops tmp.
func replace(r renamer, tmp, target string) error {
	err := r.PosixRename(tmp, target)
	if err == nil {
		return nil
	}
	if !renameUnsupported(err) {
		r.Remove(tmp)
		return err
	}

	if err := r.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.Remove(tmp)
		return err
	}
	if err := r.Rename(tmp, target); err != nil {
		r.Remove(tmp)
		return err
	}
	return nil
}

func renameUnsupported(err error) bool {
	var se *sftp.StatusError
	return errors.As(err, &se) && se.FxCode() == sftp.ErrSSHFxOpUnsupported
}

// Verify interface compliance at compile time
var _ formkit.BulkStrategy = (*Adapter)(nil)
