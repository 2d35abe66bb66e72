// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/toeirei/clusterkey/internal/deploy"
	"github.com/toeirei/clusterkey/internal/i18n"
	"github.com/toeirei/clusterkey/internal/logging"
	"github.com/toeirei/clusterkey/internal/model"
	"github.com/toeirei/clusterkey/internal/registry"
	"github.com/toeirei/clusterkey/internal/security"
)

// testEnv is one node's view of a shared test registry.
type testEnv struct {
	dir     string
	dbPath  string
	keyPath string
	cfgPath string
	app     *app
}

// isolate keeps the user's real configuration out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	logging.SetOutput(io.Discard)
	t.Cleanup(func() { logging.SetOutput(os.Stderr) })
	i18n.Init("en")
	return dir
}

// newEnv writes a config for node into dir. Nodes sharing dir share the
// registry database.
func newEnv(t *testing.T, dir, node, cluster string) *testEnv {
	t.Helper()
	e := &testEnv{
		dir:     dir,
		dbPath:  filepath.Join(dir, "registry.db"),
		keyPath: filepath.Join(dir, node, "authkey"),
		cfgPath: filepath.Join(dir, node+".yaml"),
		app:     newApp(),
	}
	body := fmt.Sprintf(`cluster:
  name: %q
  authkey_file: %q
  environment: prod
node:
  name: %q
  owner: ""
database:
  type: sqlite
  dsn: %q
entropy:
  package: ""
  service: ""
keygen:
  builtin: true
language: en
log:
  level: error
`, cluster, e.keyPath, node, e.dbPath)
	if err := os.WriteFile(e.cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return e
}

// run executes the CLI with args and returns everything it printed.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(e.app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("clusterkey %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// seed stores recs directly in the env's registry.
func (e *testEnv) seed(t *testing.T, recs ...model.NodeRecord) {
	t.Helper()
	s, err := registry.NewStoreFromDSN("sqlite", e.dbPath)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	defer s.Close()
	for i := range recs {
		if err := s.SaveNode(context.Background(), &recs[i]); err != nil {
			t.Fatalf("seed %s: %v", recs[i].Name, err)
		}
	}
}

func published(name, cluster, hostname string, secret string) model.NodeRecord {
	rec := model.NodeRecord{Name: name, Environment: "prod", ClusterName: model.ClusterIdentity(cluster), Hostname: hostname}
	rec.SetAuthkey(security.Encode(security.FromString(secret)))
	return rec
}

// memRemote is a deploy.RemoteFS over a map.
type memRemote struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemRemote() *memRemote { return &memRemote{files: map[string][]byte{}} }

func (m *memRemote) Stat(p string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; ok {
		return nil, nil
	}
	return nil, fs.ErrNotExist
}

func (m *memRemote) MkdirAll(string) error { return nil }

func (m *memRemote) Create(p string) (io.WriteCloser, error) {
	return &memWriter{m: m, path: p}, nil
}

func (m *memRemote) Chmod(string, os.FileMode) error { return nil }

func (m *memRemote) Rename(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[newname] = m.files[oldname]
	delete(m.files, oldname)
	return nil
}

func (m *memRemote) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
	return nil
}

func (m *memRemote) get(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[p]
	return b, ok
}

type memWriter struct {
	m    *memRemote
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	w.m.files[w.path] = w.buf.Bytes()
	return nil
}

// memOpener hands out memRemotes by host name.
type memOpener struct {
	hosts map[string]*memRemote
}

func (o *memOpener) Open(ctx context.Context, host string) (deploy.RemoteFS, io.Closer, error) {
	r, ok := o.hosts[host]
	if !ok {
		return nil, nil, fmt.Errorf("connection to %s refused", host)
	}
	return r, io.NopCloser(nil), nil
}
