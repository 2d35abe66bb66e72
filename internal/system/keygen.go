// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package system

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// KeyFileMode is the permission every key file ends up with.
const KeyFileMode = 0o400

// DefaultKeySize matches the size corosync-keygen produces.
const DefaultKeySize = 128

// DefaultKeygenCommand is used when no command is configured.
var DefaultKeygenCommand = []string{"corosync-keygen", "-k", "{path}"}

// KeyGenerator creates the key file at path unless it already exists.
type KeyGenerator interface {
	// Generate reports whether it created the file.
	Generate(ctx context.Context, path string) (bool, error)
}

// CommandKeyGenerator runs an external key generation tool. The literal
// "{path}" in Args is replaced by the target path.
type CommandKeyGenerator struct {
	Runner Runner
	FS     FS
	Args   []string
}

// Generate implements KeyGenerator.
func (g *CommandKeyGenerator) Generate(ctx context.Context, path string) (bool, error) {
	exists, err := g.FS.Exists(path)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	argv := g.Args
	if len(argv) == 0 {
		argv = DefaultKeygenCommand
	}
	args := make([]string, 0, len(argv)-1)
	for _, a := range argv[1:] {
		args = append(args, strings.ReplaceAll(a, "{path}", path))
	}
	err = withUmask(0o077, func() error {
		return g.Runner.Run(ctx, argv[0], args...)
	})
	if err != nil {
		return false, fmt.Errorf("key generation: %w", err)
	}
	if ok, err := g.FS.Exists(path); err != nil {
		return false, err
	} else if !ok {
		return false, fmt.Errorf("key generation: %s did not create %s", argv[0], path)
	}
	if err := g.FS.Chmod(path, KeyFileMode); err != nil {
		return false, fmt.Errorf("key generation: %w", err)
	}
	return true, nil
}

// RandomKeyGenerator writes Size random bytes without any external tool.
type RandomKeyGenerator struct {
	FS    FS
	Size  int
	Owner string
}

// Generate implements KeyGenerator.
func (g *RandomKeyGenerator) Generate(ctx context.Context, path string) (bool, error) {
	exists, err := g.FS.Exists(path)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	size := g.Size
	if size <= 0 {
		size = DefaultKeySize
	}
	if size > 4096 {
		return false, errors.New("key generation: size exceeds 4096 bytes")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("key generation: %w", err)
	}
	defer func() {
		for i := range buf {
			buf[i] = 0
		}
	}()
	if err := g.FS.WriteFile(path, buf, KeyFileMode, g.Owner); err != nil {
		return false, fmt.Errorf("key generation: %w", err)
	}
	return true, nil
}
