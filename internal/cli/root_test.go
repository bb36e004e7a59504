package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/config"
)

var fixturePath = filepath.Join("..", "scan", "testdata", "etsy_listings.json")

// sandbox isolates a CLI run from the caller's environment and working
// directory files.
type sandbox struct {
	dir string
}

func newSandbox(t *testing.T) sandbox {
	t.Helper()
	for _, key := range []string{config.EnvPolicy, config.EnvReportsDir, config.EnvThreads, config.EnvPlatform} {
		t.Setenv(key, "")
	}
	setClock(t, time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC))
	return sandbox{dir: t.TempDir()}
}

func setClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return at }
	t.Cleanup(func() { clock = prev })
}

func (s sandbox) path(name string) string {
	return filepath.Join(s.dir, name)
}

// globals are the flags every sandboxed command gets.
func (s sandbox) globals() []string {
	return []string{"--env-file", s.path(".env")}
}

func (s sandbox) scanArgs(extra ...string) []string {
	args := []string{"scan", fixturePath,
		"--policy", s.path("policy.yaml"),
		"--baseline", s.path("baseline.json"),
		"--reports-dir", s.path("reports"),
	}
	return append(append(args, extra...), s.globals()...)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, logs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

func TestRootCommandContainsTopLevelCommands(t *testing.T) {
	root := NewRootCommand()

	expected := []string{
		"scan",
		"report",
		"compare",
		"rules",
		"policy",
		"baseline",
		"watch",
		"schedule",
		"version",
	}

	for _, name := range expected {
		if findCommand(root, name) == nil {
			t.Fatalf("expected command %q to exist", name)
		}
	}
}

func TestGroupCommandsContainSubcommands(t *testing.T) {
	root := NewRootCommand()
	groups := map[string][]string{
		"policy":   {"init", "check"},
		"rules":    {"list", "test"},
		"baseline": {"create", "update"},
	}
	for group, subs := range groups {
		parent := findCommand(root, group)
		if parent == nil {
			t.Fatalf("%s command missing", group)
		}
		for _, name := range subs {
			if findCommand(parent, name) == nil {
				t.Fatalf("expected %s subcommand %q", group, name)
			}
		}
	}
}

func TestVersionListsCatalogs(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, BuildVersion) || !strings.Contains(out, "etsy rules 2025.1 (48)") || !strings.Contains(out, "amazon rules 2025.1 (66)") {
		t.Fatalf("unexpected version output: %s", out)
	}
}

func TestPolicyInitAndCheck(t *testing.T) {
	s := newSandbox(t)
	path := s.path(filepath.Join(".sellerguard", "policy.yaml"))

	out, err := run(t, append([]string{"policy", "init", "--path", path}, s.globals()...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "policy created") {
		t.Fatalf("unexpected init output: %s", out)
	}
	out, err = run(t, append([]string{"policy", "init", "--path", path}, s.globals()...)...)
	if err != nil || !strings.Contains(out, "policy already exists") {
		t.Fatalf("second init should be a no-op: %v %s", err, out)
	}

	out, err = run(t, append([]string{"policy", "check", "--path", path}, s.globals()...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "policy valid") {
		t.Fatalf("unexpected check output: %s", out)
	}

	bad := s.path("bad.yaml")
	writeTestFile(t, bad, "severity:\n  fail_on: high\n")
	_, err = run(t, append([]string{"policy", "check", "--path", bad}, s.globals()...)...)
	if exitCode(t, err) != ExitUsage {
		t.Fatalf("expected usage exit code, got %v", err)
	}
}

func TestRulesListAndTest(t *testing.T) {
	s := newSandbox(t)
	out, err := run(t, append([]string{"rules", "list", "--platform", "amazon", "--category", "fba", "--policy", s.path("policy.yaml")}, s.globals()...)...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "AMZN-FBA-001") || !strings.Contains(out, "8 rules, catalog amazon 2025.1") {
		t.Fatalf("unexpected rules list output: %s", out)
	}
	if strings.Contains(out, "AMZN-PDP-001") {
		t.Fatalf("category filter ignored: %s", out)
	}

	_, err = run(t, append([]string{"rules", "list", "--category", "nope", "--policy", s.path("policy.yaml")}, s.globals()...)...)
	if exitCode(t, err) != ExitUsage {
		t.Fatalf("expected usage error for unknown category")
	}

	out, err = run(t, append([]string{"rules", "test", "--policy", s.path("policy.yaml")}, s.globals()...)...)
	if err != nil {
		t.Fatalf("rule tests failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "fail=0") {
		t.Fatalf("unexpected rules test output: %s", out)
	}
}

func findCommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}
