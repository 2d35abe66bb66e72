// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package system

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"
)

// FakeRunner records commands instead of executing them.
type FakeRunner struct {
	mu       sync.Mutex
	Commands []string
	// Errs maps a program name to the error Run returns for it.
	Errs map[string]error
	// OnRun, if set, is called for every command after recording it.
	OnRun func(name string, args []string) error
}

// Run implements Runner.
func (r *FakeRunner) Run(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	r.Commands = append(r.Commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	err := r.Errs[name]
	hook := r.OnRun
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		return hook(name, args)
	}
	return nil
}

// MemFile is a file held by MemFS.
type MemFile struct {
	Data  []byte
	Mode  fs.FileMode
	Owner string
}

// MemFS is an in-memory FS that counts mutations.
type MemFS struct {
	mu     sync.Mutex
	Files  map[string]MemFile
	Writes int
	// WriteErr, if non-nil, is returned by WriteFile.
	WriteErr error
}

// NewMemFS returns an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{Files: map[string]MemFile{}}
}

// Exists implements FS.
func (m *MemFS) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Files[path]
	return ok, nil
}

// ReadFile implements FS.
func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	out := make([]byte, len(f.Data))
	copy(out, f.Data)
	return out, nil
}

// WriteFile implements FS.
func (m *MemFS) WriteFile(path string, data []byte, perm fs.FileMode, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.Files[path] = MemFile{Data: buf, Mode: perm, Owner: owner}
	m.Writes++
	return nil
}

// Chmod implements FS.
func (m *MemFS) Chmod(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Files[path]
	if !ok {
		return fmt.Errorf("chmod %s: %w", path, fs.ErrNotExist)
	}
	f.Mode = perm
	m.Files[path] = f
	m.Writes++
	return nil
}

// FakePackageManager records installed packages.
type FakePackageManager struct {
	Installed []string
	Err       error
}

// Install implements PackageManager.
func (p *FakePackageManager) Install(ctx context.Context, name string) error {
	if p.Err != nil {
		return p.Err
	}
	p.Installed = append(p.Installed, name)
	return nil
}

// FakeServiceManager records enabled and started services.
type FakeServiceManager struct {
	Enabled  []string
	Started  []string
	StartErr error
}

// Enable implements ServiceManager.
func (s *FakeServiceManager) Enable(ctx context.Context, name string) error {
	s.Enabled = append(s.Enabled, name)
	return nil
}

// Start implements ServiceManager.
func (s *FakeServiceManager) Start(ctx context.Context, name string) error {
	if s.StartErr != nil {
		return s.StartErr
	}
	s.Started = append(s.Started, name)
	return nil
}

// FakeKeyGenerator writes fixed key material through an FS.
type FakeKeyGenerator struct {
	FS    FS
	Key   []byte
	Err   error
	Calls int
}

// Generate implements KeyGenerator.
func (g *FakeKeyGenerator) Generate(ctx context.Context, path string) (bool, error) {
	g.Calls++
	if g.Err != nil {
		return false, g.Err
	}
	if ok, err := g.FS.Exists(path); err != nil || ok {
		return false, err
	}
	return true, g.FS.WriteFile(path, g.Key, KeyFileMode, "")
}
