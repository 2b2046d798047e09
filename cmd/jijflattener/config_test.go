// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndShow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")

	stdout, _, err := executeCommand(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init error: %v", err)
	}
	if !strings.Contains(stdout, "Created default configuration at "+path) {
		t.Errorf("config init output:\n%s", stdout)
	}

	stdout, _, err = executeCommand(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("second config init error: %v", err)
	}
	if !strings.Contains(stdout, "already exists") {
		t.Errorf("second config init should not overwrite:\n%s", stdout)
	}

	stdout, _, err = executeCommand(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show error: %v", err)
	}
	for _, want := range []string{"// source: " + path, `log_level: "info"`, `jars_dir:   "META-INF/jars/"`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigShow_InvalidFile(t *testing.T) {
	t.Parallel()

	path := quietConfig(t, `colour: "red"`)
	_, stderr, err := executeCommand(t, "config", "show", "--config", path)
	if exitCode(err) != ExitFailure {
		t.Fatalf("exitCode() = %d, want %d (err %v)", exitCode(err), ExitFailure, err)
	}
	if !strings.Contains(stderr, "load configuration") {
		t.Errorf("stderr should describe the failed load:\n%s", stderr)
	}
}
