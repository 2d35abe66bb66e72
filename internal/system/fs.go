// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// FS is the filesystem surface used for the key file.
type FS interface {
	Exists(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	// WriteFile atomically replaces path with data, perm and owner. An empty
	// owner leaves ownership to the running user.
	WriteFile(path string, data []byte, perm fs.FileMode, owner string) error
	Chmod(path string, perm fs.FileMode) error
}

// OSFS implements FS on the local filesystem.
type OSFS struct{}

// Exists reports whether path exists. Errors other than "not exist" are
// returned so a permission problem is not mistaken for a missing key.
func (OSFS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadFile implements FS.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Chmod implements FS.
func (OSFS) Chmod(path string, perm fs.FileMode) error {
	return os.Chmod(path, perm)
}

// WriteFile writes to a temporary file in the target directory and renames
// it into place, so readers never observe a partial key.
func (OSFS) WriteFile(path string, data []byte, perm fs.FileMode, owner string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temporary file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := chownTo(tmpName, owner); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// chownTo hands path to owner (and owner's primary group). Only root can
// give files away, so for other users it is a no-op.
func chownTo(path, owner string) error {
	if owner == "" || os.Geteuid() != 0 {
		return nil
	}
	u, err := user.Lookup(owner)
	if err != nil {
		return fmt.Errorf("lookup owner %s: %w", owner, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("owner %s has non-numeric uid %q", owner, u.Uid)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("owner %s has non-numeric gid %q", owner, u.Gid)
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s to %s: %w", path, owner, err)
	}
	return nil
}
