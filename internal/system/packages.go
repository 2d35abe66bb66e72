// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// PackageManager installs operating system packages.
type PackageManager interface {
	Install(ctx context.Context, name string) error
}

// ServiceManager controls system services.
type ServiceManager interface {
	Enable(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
}

// osReleasePath is a variable so tests can point detection at a fixture.
var osReleasePath = "/etc/os-release"

// CommandPackageManager shells out to the distribution's package tool.
type CommandPackageManager struct {
	Runner Runner
	Tool   string // apt-get, dnf, yum or zypper
}

// Install implements PackageManager. Installing an already present package
// is a no-op for every supported tool.
func (p *CommandPackageManager) Install(ctx context.Context, name string) error {
	var args []string
	switch p.Tool {
	case "apt-get":
		args = []string{"install", "-y", "-q", name}
	case "dnf", "yum":
		args = []string{"install", "-y", "-q", name}
	case "zypper":
		args = []string{"--non-interactive", "install", name}
	default:
		return fmt.Errorf("unsupported package tool %q", p.Tool)
	}
	if err := p.Runner.Run(ctx, p.Tool, args...); err != nil {
		return fmt.Errorf("install package %s: %w", name, err)
	}
	return nil
}

// DetectPackageManager picks the package tool for the running distribution
// from /etc/os-release (Ubuntu/Debian, Fedora/RHEL, SUSE).
func DetectPackageManager(r Runner) (*CommandPackageManager, error) {
	ids, err := readOSRelease(osReleasePath)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		switch id {
		case "ubuntu", "debian":
			return &CommandPackageManager{Runner: r, Tool: "apt-get"}, nil
		case "fedora":
			return &CommandPackageManager{Runner: r, Tool: "dnf"}, nil
		case "rhel", "centos":
			return &CommandPackageManager{Runner: r, Tool: "yum"}, nil
		case "suse", "opensuse", "sles", "opensuse-leap", "opensuse-tumbleweed":
			return &CommandPackageManager{Runner: r, Tool: "zypper"}, nil
		}
	}
	return nil, fmt.Errorf("unsupported distribution %v", ids)
}

// readOSRelease returns ID followed by the ID_LIKE entries, lower-cased.
func readOSRelease(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read os-release: %w", err)
	}
	defer f.Close()

	var id string
	var like []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		value = strings.ToLower(strings.Trim(value, `"'`))
		switch key {
		case "ID":
			id = value
		case "ID_LIKE":
			like = strings.Fields(value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read os-release: %w", err)
	}
	return append([]string{id}, like...), nil
}

// Systemd manages services through systemctl.
type Systemd struct {
	Runner Runner
}

// Enable implements ServiceManager.
func (s *Systemd) Enable(ctx context.Context, name string) error {
	if err := s.Runner.Run(ctx, "systemctl", "enable", name); err != nil {
		return fmt.Errorf("enable service %s: %w", name, err)
	}
	return nil
}

// Start implements ServiceManager.
func (s *Systemd) Start(ctx context.Context, name string) error {
	if err := s.Runner.Run(ctx, "systemctl", "start", name); err != nil {
		return fmt.Errorf("start service %s: %w", name, err)
	}
	return nil
}
