// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/toeirei/clusterkey/internal/logging"
	"github.com/toeirei/clusterkey/internal/security"
)

// KeyFileMode is the permission of an installed key file.
const KeyFileMode fs.FileMode = 0o400

// RemoteFS is the subset of SFTP used to install a key.
type RemoteFS interface {
	Stat(p string) (os.FileInfo, error)
	MkdirAll(p string) error
	Create(p string) (io.WriteCloser, error)
	Chmod(p string, mode os.FileMode) error
	Rename(oldname, newname string) error
	Remove(p string) error
}

type sftpFS struct{ c *sftp.Client }

func (s sftpFS) Stat(p string) (os.FileInfo, error)      { return s.c.Stat(p) }
func (s sftpFS) MkdirAll(p string) error                 { return s.c.MkdirAll(p) }
func (s sftpFS) Create(p string) (io.WriteCloser, error) { return s.c.Create(p) }
func (s sftpFS) Chmod(p string, mode os.FileMode) error  { return s.c.Chmod(p, mode) }
func (s sftpFS) Remove(p string) error                   { return s.c.Remove(p) }

// Rename prefers the POSIX extension, which replaces atomically.
func (s sftpFS) Rename(oldname, newname string) error {
	if err := s.c.PosixRename(oldname, newname); err == nil {
		return nil
	}
	return s.c.Rename(oldname, newname)
}

// NewRemoteFS wraps an SFTP client.
func NewRemoteFS(c *sftp.Client) RemoteFS { return sftpFS{c} }

// Install writes secret to keyPath on rfs unless a file already exists
// there. The key is uploaded to a temporary file, restricted to 0400 and
// renamed into place. It reports whether it installed the key.
func Install(rfs RemoteFS, keyPath string, secret security.Secret) (bool, error) {
	if _, err := rfs.Stat(keyPath); err == nil {
		return false, nil
	} else if !isNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", keyPath, err)
	}

	dir := path.Dir(keyPath)
	if err := rfs.MkdirAll(dir); err != nil {
		return false, fmt.Errorf("create %s: %w", dir, err)
	}

	tmpPath := path.Join(dir, fmt.Sprintf(".%s.clusterkey.%d", path.Base(keyPath), time.Now().UnixNano()))
	f, err := rfs.Create(tmpPath)
	if err != nil {
		return false, fmt.Errorf("failed to create temporary file on remote: %w", err)
	}
	if _, err := f.Write(secret); err != nil {
		_ = f.Close()
		_ = rfs.Remove(tmpPath)
		return false, fmt.Errorf("failed to write temporary file on remote: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = rfs.Remove(tmpPath)
		return false, fmt.Errorf("failed to close temporary file on remote: %w", err)
	}
	if err := rfs.Chmod(tmpPath, KeyFileMode); err != nil {
		_ = rfs.Remove(tmpPath)
		return false, fmt.Errorf("failed to chmod temporary file: %w", err)
	}
	if err := rfs.Rename(tmpPath, keyPath); err != nil {
		_ = rfs.Remove(tmpPath)
		return false, fmt.Errorf("failed to rename key file into place: %w", err)
	}
	return true, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Outcome is the result of pushing to one host.
type Outcome struct {
	Host      string
	Installed bool
	Err       error
}

// SessionOpener opens a remote filesystem for a host.
type SessionOpener interface {
	Open(ctx context.Context, host string) (RemoteFS, io.Closer, error)
}

// Open implements SessionOpener.
func (d *Dialer) Open(ctx context.Context, host string) (RemoteFS, io.Closer, error) {
	s, err := d.Dial(ctx, host)
	if err != nil {
		return nil, nil, err
	}
	return s.FS(), s, nil
}

// Distributor pushes one key to many hosts in parallel.
type Distributor struct {
	Opener  SessionOpener
	KeyPath string
	Secret  security.Secret
	// Parallel bounds concurrent connections; 0 means 8.
	Parallel int
}

// Distribute installs the key on every host and returns one outcome per
// host, in the order given.
func (d *Distributor) Distribute(ctx context.Context, hosts []string) []Outcome {
	limit := d.Parallel
	if limit <= 0 {
		limit = 8
	}
	out := make([]Outcome, len(hosts))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, h := range hosts {
		wg.Add(1)
		go func(i int, host string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = d.pushOne(ctx, host)
		}(i, h)
	}
	wg.Wait()
	return out
}

func (d *Distributor) pushOne(ctx context.Context, host string) Outcome {
	res := Outcome{Host: host}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	rfs, closer, err := d.Opener.Open(ctx, host)
	if err != nil {
		res.Err = err
		logging.Warnf("distribute to %s failed: %v", host, err)
		return res
	}
	defer closer.Close()

	res.Installed, res.Err = Install(rfs, d.KeyPath, d.Secret)
	if res.Err != nil {
		logging.Warnf("distribute to %s failed: %v", host, res.Err)
	} else {
		logging.Info("distributed authkey", "host", host, "installed", res.Installed)
	}
	return res
}
