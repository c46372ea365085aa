package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/dshills/tenantmix/internal/dashboard"
	"github.com/dshills/tenantmix/internal/render"
	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/testutil"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// exitCode returns the code carried by err, or 0 for nil.
func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var ee *exitErr
	if !errors.As(err, &ee) {
		t.Fatalf("expected exitErr, got %T: %v", err, err)
	}
	return ee.code
}

// runArgs writes a synthetic portfolio to a temp dir and returns the run
// arguments for it plus the artifact path.
func runArgs(t *testing.T) ([]string, string) {
	t.Helper()
	dir := t.TempDir()
	p := testutil.WriteCSV(t, dir, testutil.Portfolio(3, 20))
	out := filepath.Join(dir, schema.DefaultArtifactName)
	return []string{
		"run",
		"--env-file", filepath.Join(dir, "missing.env"),
		"--malls", p.Malls,
		"--stores", p.Stores,
		"--sales", p.Sales,
		"--out", out,
		"--summary", filepath.Join(dir, "summary.json"),
	}, out
}

func TestRun_WritesArtifact(t *testing.T) {
	args, artifactPath := runArgs(t)
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "60 stores") {
		t.Errorf("unexpected run output: %q", out)
	}
	if _, err := os.Stat(artifactPath); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}

	out, err = execute(t, "validate", artifactPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "schema v1 ok") {
		t.Errorf("unexpected validate output: %q", out)
	}
}

func TestRun_MissingInput(t *testing.T) {
	args, _ := runArgs(t)
	args = append(args, "--sales", filepath.Join(t.TempDir(), "nope.csv"))
	_, err := execute(t, args...)
	if code := exitCode(t, err); code != exitInvalid {
		t.Errorf("exit code = %d, want %d (%v)", code, exitInvalid, err)
	}
}

func TestRun_InvalidProfile(t *testing.T) {
	args, _ := runArgs(t)
	args = append(args, "--profile", "reckless")
	_, err := execute(t, args...)
	if code := exitCode(t, err); code != exitInvalid {
		t.Errorf("exit code = %d, want %d", code, exitInvalid)
	}
}

func TestRun_UnwritableArtifact(t *testing.T) {
	args, _ := runArgs(t)
	args = append(args, "--out", filepath.Join(t.TempDir(), "missing", "out.csv"))
	_, err := execute(t, args...)
	if code := exitCode(t, err); code != exitWriteErr {
		t.Errorf("exit code = %d, want %d (%v)", code, exitWriteErr, err)
	}
}

func TestReport_JSON(t *testing.T) {
	args, artifactPath := runArgs(t)
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := execute(t, "report", "--artifact", artifactPath, "--format", "json", "--mall", "M1")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var rep dashboard.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if len(rep.Malls) != 1 || rep.Malls[0].MallID != "M1" {
		t.Fatalf("expected only M1, got %+v", rep.Malls)
	}
	found := false
	for _, o := range rep.Malls[0].Table {
		if o.StoreCode == testutil.LowStore {
			found = true
		}
	}
	if !found {
		t.Errorf("low store %s missing from the opportunities table", testutil.LowStore)
	}
}

func TestReport_Markdown(t *testing.T) {
	args, artifactPath := runArgs(t)
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, err := execute(t, "report", "--artifact", artifactPath, "--format", "md")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "# Tenant Mix Opportunities") {
		t.Errorf("markdown missing header")
	}
	if !strings.Contains(out, "## Mall M3") {
		t.Errorf("markdown missing mall M3")
	}
}

func TestReport_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), schema.DefaultArtifactName)
	_, err := execute(t, "report", "--artifact", missing)
	if code := exitCode(t, err); code != exitInvalid {
		t.Errorf("missing artifact: exit code = %d, want %d", code, exitInvalid)
	}
	if err != nil && !strings.Contains(err.Error(), "tenantmix run") {
		t.Errorf("missing artifact message should tell the user what to run: %v", err)
	}

	_, err = execute(t, "report", "--artifact", missing, "--format", "xml")
	if code := exitCode(t, err); code != exitInvalid {
		t.Errorf("bad format: exit code = %d, want %d", code, exitInvalid)
	}

	args, artifactPath := runArgs(t)
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("run: %v", err)
	}
	_, err = execute(t, "report", "--artifact", artifactPath, "--mall", "M9")
	if code := exitCode(t, err); code != exitInvalid {
		t.Errorf("unknown mall: exit code = %d, want %d", code, exitInvalid)
	}
}

func TestReport_FormatHelpListsFormats(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"report"})
	if err != nil {
		t.Fatalf("find report: %v", err)
	}
	usage := cmd.Flags().Lookup("format").Usage
	for _, f := range render.Formats {
		if !strings.Contains(usage, f) {
			t.Errorf("--format help %q does not mention %q", usage, f)
		}
	}
}

func TestValidate_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.csv")
	if err := os.WriteFile(path, []byte("Mall_ID,Store_Code\nM1,S1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "validate", path)
	if code := exitCode(t, err); code != exitSchema {
		t.Errorf("exit code = %d, want %d", code, exitSchema)
	}
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	if err := os.WriteFile(a, []byte("h\nM1,S1,10.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("h\nM1,S1,12.00\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "diff", a, a); err != nil {
		t.Errorf("identical files: %v", err)
	}

	out, err := execute(t, "diff", a, b)
	if code := exitCode(t, err); code != exitDiff {
		t.Errorf("exit code = %d, want %d", code, exitDiff)
	}
	if !strings.Contains(out, "+2: M1,S1,12.00") {
		t.Errorf("diff output missing changed line: %q", out)
	}

	_, err = execute(t, "diff", a, filepath.Join(dir, "nope.csv"))
	if code := exitCode(t, err); code != exitInvalid {
		t.Errorf("missing file: exit code = %d, want %d", code, exitInvalid)
	}
}

func TestProfiles(t *testing.T) {
	out, err := execute(t, "profiles")
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	for _, name := range []string{"aggressive", "balanced", "conservative"} {
		if !strings.Contains(out, "Profile: "+name) {
			t.Errorf("profiles output missing %s", name)
		}
	}
}
