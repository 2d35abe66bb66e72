// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// TestLoggingHelpers_WriteToBuffer swaps `L` with a buffer-backed logger and
// checks every helper reaches it.
func TestLoggingHelpers_WriteToBuffer(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	L.SetLevel(clog.DebugLevel)
	defer func() { L = prev }()

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")
	Info("structured", "node", "n1")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E", "node=n1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output; got: %s", want, out)
		}
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	defer func() { L = prev }()

	if err := SetLevel("error"); err != nil {
		t.Fatalf("SetLevel(error) failed: %v", err)
	}
	Infof("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info message logged at error level: %s", buf.String())
	}
	if err := SetLevel("nonsense"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := SetLevel(""); err != nil {
		t.Fatalf("empty level should be a no-op, got %v", err)
	}
}
