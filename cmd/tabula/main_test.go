package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/sambeau/tabula/config"
	"github.com/sambeau/tabula/pkg/session"
)

func noEnv(string) string { return "" }

const peopleJSON = `[
  {"name": "ada", "age": 36, "tags": ["a", "b"]},
  {"name": "bob", "age": 25, "tags": []},
  {"name": "cy", "age": 41, "tags": ["c"]}
]`

// writeConfig creates a data directory with people.json and a config that
// points at it.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "people.json"), []byte(peopleJSON), 0644); err != nil {
		t.Fatalf("Failed to write data: %v", err)
	}
	path := filepath.Join(dir, "tabula.yaml")
	content := `
logging:
  level: warn
editors:
  - name: people
    source_type: json
    json_source: people.json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"version"}, nil, &stdout, &stderr, noEnv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "tabula version dev") {
		t.Errorf("expected version output, got %q", stdout.String())
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, nil, &stdout, &stderr, noEnv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := stdout.String()
	for _, want := range []string{"--config", "serve", "view", "export", "shell"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in help, got %q", want, output)
		}
	}
}

func TestRunInvalidFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--invalid-flag"}, nil, &stdout, &stderr, noEnv); err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestRunMissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--config", "/nonexistent/tabula.yaml", "view", "people"}, nil, &stdout, &stderr, noEnv)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %q", err.Error())
	}
}

func TestView(t *testing.T) {
	path := writeConfig(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--config", path, "view", "people",
		"--filter", "age:GT:30", "--sort", "age", "--order", "desc",
	}, nil, &stdout, &stderr, noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "root (arrObjs)\n") {
		t.Errorf("expected scope line first, got %q", out)
	}
	if strings.Contains(out, "bob") {
		t.Errorf("filtered row shown: %q", out)
	}
	if i, j := strings.Index(out, "cy"), strings.Index(out, "ada"); i < 0 || j < 0 || i > j {
		t.Errorf("expected cy before ada, got %q", out)
	}
	if !strings.Contains(out, "page 1 of 1, 2 rows") {
		t.Errorf("expected footer, got %q", out)
	}
}

func TestViewScope(t *testing.T) {
	path := writeConfig(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--config", path, "view", "0", "index-0/tags"}, nil, &stdout, &stderr, noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "root[0].tags (arr)\n") {
		t.Errorf("unexpected scope line: %q", out)
	}
	if !strings.Contains(out, "Values") {
		t.Errorf("expected Values column, got %q", out)
	}
}

func TestViewErrors(t *testing.T) {
	path := writeConfig(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"--config", path, "view", "nobody"}, nil, &stdout, &stderr, noEnv)
	if !errors.Is(err, session.ErrNoEditor) {
		t.Errorf("expected ErrNoEditor, got %v", err)
	}

	err = run(context.Background(), []string{"--config", path, "view", "people", "--filter", "age"}, nil, &stdout, &stderr, noEnv)
	if err == nil {
		t.Error("expected error for malformed filter")
	}
}

func TestExport(t *testing.T) {
	path := writeConfig(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--config", path, "export", "people", "--filter", "age:GT:30", "--sort", "name",
	}, nil, &stdout, &stderr, noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&stdout).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	want := [][]string{
		{"age", "name", "tags"},
		{"36", "ada", `["a","b"]`},
		{"41", "cy", `["c"]`},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestExportDir(t *testing.T) {
	path := writeConfig(t)
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--config", path, "export", "people", "--dir", dir, "--title", "People: all",
	}, nil, &stdout, &stderr, noEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "People_ all.csv")); err != nil {
		t.Errorf("expected export file: %v", err)
	}

	err = run(context.Background(), []string{
		"--config", path, "export", "people", "--dir", dir, "--out", "x.csv",
	}, nil, &stdout, &stderr, noEnv)
	if err == nil {
		t.Error("expected error for --out with --dir")
	}
}

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Load(writeConfig(t), noEnv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	base, err := cfg.TableConfig()
	if err != nil {
		t.Fatalf("TableConfig failed: %v", err)
	}
	var sf scopeFlags
	sess, loc, err := sf.open(context.Background(), cfg, zap.NewNop(), []string{"people"})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	out := &bytes.Buffer{}
	return &shell{sess: sess, loc: loc, base: base, out: out, log: zap.NewNop()}, out
}

func TestShellNavigate(t *testing.T) {
	sh, out := newTestShell(t)

	steps := []struct {
		line    string
		scopeID string
		wantErr bool
	}{
		{"cd index-0/tags", "root[0].tags", false},
		{"cd ..", "root[0]", false},
		{"cd missing", "root[0]", true},
		{"cd /", "root", false},
		{"cd index-2", "root[2]", false},
		{"cd /index-1/tags", "root[1].tags", false},
	}
	for _, step := range steps {
		err := sh.exec(step.line)
		if (err != nil) != step.wantErr {
			t.Fatalf("%q: unexpected error state: %v", step.line, err)
		}
		if got := sh.sess.Navigator().ScopeID(); got != step.scopeID {
			t.Fatalf("%q: expected scope %s, got %s", step.line, step.scopeID, got)
		}
	}

	if err := sh.exec("hash"); err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if got := out.String(); got != "#cli/0/index-1/tags/\n" {
		t.Errorf("unexpected hash output: %q", got)
	}
	if sh.loc.Hash() != "cli/0/index-1/tags/" {
		t.Errorf("location not updated: %q", sh.loc.Hash())
	}
}

func TestShellEdit(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.exec(`cd index-1`); err != nil {
		t.Fatalf("cd failed: %v", err)
	}
	if err := sh.exec(`set tags ["x", "y"]`); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got := sh.sess.Navigator().ScopeID(); got != "root[1].tags" {
		t.Errorf("expected to descend into tags, got %s", got)
	}

	if err := sh.exec(`put ["zebra"]`); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := sh.exec("ls"); err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if !strings.Contains(out.String(), "zebra") {
		t.Errorf("expected written value in listing, got %q", out.String())
	}

	if err := sh.exec(`put {bad`); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := sh.exec("set tags"); err == nil {
		t.Error("expected usage error")
	}
}

func TestShellCommands(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.exec("meta"); err != nil {
		t.Fatalf("meta failed: %v", err)
	}
	if !strings.Contains(out.String(), `"name"`) {
		t.Errorf("expected name field in metadata, got %q", out.String())
	}

	if err := sh.exec("frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
	if err := sh.exec("quit"); !errors.Is(err, errQuit) {
		t.Errorf("expected errQuit, got %v", err)
	}
	if err := sh.exec("   "); err != nil {
		t.Errorf("blank line: %v", err)
	}
}

func TestShellComplete(t *testing.T) {
	sh, _ := newTestShell(t)

	if diff := cmp.Diff([]string{"cd"}, sh.complete("c")); diff != "" {
		t.Errorf("command completion mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hash", "help"}, sh.complete("h")); diff != "" {
		t.Errorf("command completion mismatch (-want +got):\n%s", diff)
	}
	if got := sh.complete("ls x"); got != nil {
		t.Errorf("expected no completion for ls, got %v", got)
	}
}
