package cmd

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atikulmunna/colorlog/internal/pager"
)

const (
	red   = "\x1b[1;31m"
	green = "\x1b[1;32m"
	rst   = "\x1b[m"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeConfig points the run at an explicit, empty-by-default config so the
// user's own ~/.colorlog.yaml cannot leak into tests.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return writeLog(t, t.TempDir(), "colorlog.yaml", content)
}

func TestStdinWhenNoArgs(t *testing.T) {
	cfg := writeConfig(t, "")
	res := execute(t, "INFO up\nplain\n", "--config", cfg)
	if res.err != nil {
		t.Fatal(res.err)
	}

	want := green + "INFO up\n" + rst + "plain\n"
	if res.stdout != want {
		t.Errorf("expected %q, got %q", want, res.stdout)
	}
}

func TestFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", "ERROR a\n")
	b := writeLog(t, dir, "b.log", "INFO b\n")
	cfg := writeConfig(t, "")

	res := execute(t, "", "--config", cfg, b, a)
	if res.err != nil {
		t.Fatal(res.err)
	}

	want := green + "INFO b\n" + rst + red + "ERROR a\n" + rst
	if res.stdout != want {
		t.Errorf("expected %q, got %q", want, res.stdout)
	}
}

func TestMissingFileIsFatal(t *testing.T) {
	cfg := writeConfig(t, "")
	res := execute(t, "", "--config", cfg, filepath.Join(t.TempDir(), "nope.log"))

	if !errors.Is(res.err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", res.err)
	}
}

func TestPolicyFlag(t *testing.T) {
	cfg := writeConfig(t, "")
	line := "ERROR while handling INFO request\n"

	res := execute(t, line, "--config", cfg, "--policy", "priority")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.stdout != green+line+rst {
		t.Errorf("priority: expected green line, got %q", res.stdout)
	}

	res = execute(t, line, "--config", cfg)
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.stdout != red+line+rst {
		t.Errorf("leftmost: expected red line, got %q", res.stdout)
	}
}

func TestColorNeverAndAuto(t *testing.T) {
	cfg := writeConfig(t, "")

	for _, mode := range []string{"never", "auto"} {
		// A bytes.Buffer is not a terminal, so auto behaves like never.
		res := execute(t, "FATAL boom\n", "--config", cfg, "--color", mode)
		if res.err != nil {
			t.Fatal(res.err)
		}
		if res.stdout != "FATAL boom\n" {
			t.Errorf("%s: expected plain output, got %q", mode, res.stdout)
		}
	}
}

func TestInvalidSettingFromConfigFile(t *testing.T) {
	cfg := writeConfig(t, "color: rainbow\n")
	res := execute(t, "", "--config", cfg)

	if res.err == nil || !strings.Contains(res.err.Error(), "color:") {
		t.Errorf("expected color validation error, got %v", res.err)
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	res := execute(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if res.err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestShowRules(t *testing.T) {
	cfg := writeConfig(t, "")
	res := execute(t, "", "--config", cfg, "--show-rules")
	if res.err != nil {
		t.Fatal(res.err)
	}
	for _, kw := range []string{"TRACE", "INFO", "WARN", "DEBUG", "ERROR", "FATAL"} {
		if !strings.Contains(res.stdout, kw) {
			t.Errorf("expected %s in rule table", kw)
		}
	}
}

func TestShowRulesColorNever(t *testing.T) {
	cfg := writeConfig(t, "")
	res := execute(t, "", "--config", cfg, "--show-rules", "--color", "never")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if strings.Contains(res.stdout, red) || strings.Contains(res.stdout, green) {
		t.Errorf("expected no rule escapes with --color never, got %q", res.stdout)
	}
	if !strings.Contains(res.stdout, "FATAL") {
		t.Error("expected the table to still list the rules")
	}
}

func TestSummary(t *testing.T) {
	cfg := writeConfig(t, "")
	res := execute(t, "ERROR a\nERROR b\nplain\n", "--config", cfg, "--summary")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.Contains(res.stderr, "total") || !strings.Contains(res.stderr, "ERROR") {
		t.Errorf("expected summary on stderr, got %q", res.stderr)
	}
	if strings.Contains(res.stdout, "total") {
		t.Error("summary must not be mixed into colorized output")
	}
}

func TestFollowNeedsFile(t *testing.T) {
	cfg := writeConfig(t, "")
	res := execute(t, "", "--config", cfg, "-f")
	if res.err == nil {
		t.Error("expected error when following stdin")
	}
}

func TestLessPipesAllFilesThroughOnePager(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skipf("cat not available: %v", err)
	}

	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", "WARN first\n")
	b := writeLog(t, dir, "b.log", "second\nERROR last")
	cfg := writeConfig(t, "pager: cat\n")

	res := execute(t, "", "--config", cfg, "-L", a, b)
	if res.err != nil {
		t.Fatal(res.err)
	}

	// cat only exits after its stdin is closed, so a complete stream here
	// means the pager saw EOF after both files.
	want := "\x1b[1;33mWARN first\n" + rst + "second\n" + red + "ERROR last" + rst
	if res.stdout != want {
		t.Errorf("expected %q, got %q", want, res.stdout)
	}
}

func TestPagerExitStatusPropagates(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skipf("false not available: %v", err)
	}

	cfg := writeConfig(t, "pager: \"false\"\n")
	res := execute(t, "INFO x\n", "--config", cfg, "--less")

	var exitErr *pager.ExitError
	if !errors.As(res.err, &exitErr) {
		t.Fatalf("expected pager exit error, got %v", res.err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %d", exitErr.ExitCode())
	}
}

func TestPagerStartFailure(t *testing.T) {
	cfg := writeConfig(t, "pager: colorlog-no-such-pager-binary\n")
	res := execute(t, "INFO x\n", "--config", cfg, "-L")
	if res.err == nil {
		t.Error("expected error when the pager cannot start")
	}
}

func TestBrokenPipeIsNotAnError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	r.Close()
	defer w.Close()

	cfg := writeConfig(t, "")
	var stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader("INFO a\nINFO b\n"), w, &stderr)
	cmd.SetArgs([]string{"--config", cfg})

	if err := cmd.Execute(); err != nil {
		t.Errorf("expected broken pipe to end quietly, got %v", err)
	}
}
