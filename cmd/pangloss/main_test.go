package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testTable has two languages with equal scores on unknown tokens, so the
// extension hint alone decides files made of unknown tokens.
const testTable = `default = 0.0001
prior = 1.1

[[language]]
label = "Alpha"
extensions = [".a"]
[language.probabilities]
"x" = 0.5
"y" = 0.5

[[language]]
label = "Beta"
extensions = [".b"]
[language.probabilities]
"z" = 1.0
`

// workspace creates an isolated directory holding the test table and the
// given files, and makes it the working directory.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "PANGLOSS_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	files["models.toml"] = testTable
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

type runResult struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	code := execute(root, args, &stderr)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestClassifyExplicitFilesWithExt(t *testing.T) {
	workspace(t, map[string]string{
		"q1.txt": "q\n",
		"q2.txt": "q\n",
		"q.b":    "q\n",
		"xs.txt": "x x y\n",
	})
	res := run(t, "", "--models", "models.toml", "q1.txt", "q2.txt", "--ext", ".b", "q.b", "xs.txt")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	got := lines(res.stdout)
	if len(got) != 4 {
		t.Fatalf("expected 4 lines, got %q", got)
	}
	if got[0] != "q1.txt,Alpha,1.0" {
		t.Fatalf("line 1 = %q, want tie kept by the first language", got[0])
	}
	if !strings.HasPrefix(got[1], "q2.txt,Beta,0.0909090909") {
		t.Fatalf("line 2 = %q, want --ext .b to pick Beta", got[1])
	}
	if !strings.HasPrefix(got[2], "q.b,Beta,") {
		t.Fatalf("line 3 = %q, want derived .b to pick Beta", got[2])
	}
	if got[3] != "xs.txt,Alpha,1.0" {
		t.Fatalf("line 4 = %q", got[3])
	}
}

func TestClassifyGuardedConfidence(t *testing.T) {
	workspace(t, map[string]string{"q1.txt": "q\n"})
	res := run(t, "", "--models", "models.toml", "--confidence", "guarded", "q1.txt")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	if res.stdout != "q1.txt,Alpha,undefined\n" {
		t.Fatalf("stdout = %q", res.stdout)
	}
}

func TestClassifyBatch(t *testing.T) {
	workspace(t, map[string]string{
		"q1.txt":    "q\n",
		"q2.txt":    "q\n",
		"list.txt":  "q1.txt\r\n\nq2.txt,.b\n",
		"empty.txt": "",
	})
	res := run(t, "", "--models", "models.toml", "--batch", "list.txt")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	got := lines(res.stdout)
	if len(got) != 2 || !strings.HasPrefix(got[0], "q1.txt,Alpha,") || !strings.HasPrefix(got[1], "q2.txt,Beta,") {
		t.Fatalf("stdout = %q", res.stdout)
	}
}

func TestClassifyUsageErrors(t *testing.T) {
	workspace(t, map[string]string{"q1.txt": "q\n", "list.txt": "q1.txt\n"})
	cases := []struct {
		name string
		args []string
	}{
		{"no inputs", nil},
		{"batch with files", []string{"--batch", "list.txt", "q1.txt"}},
		{"leading ext", []string{"--ext", ".b", "q1.txt"}},
		{"unknown flag", []string{"--bogus", "q1.txt"}},
		{"bad format value", []string{"--format", "xml", "q1.txt"}},
		{"bad confidence value", []string{"--confidence", "loose", "q1.txt"}},
		{"negative jobs", []string{"--jobs", "-1", "q1.txt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := run(t, "", tc.args...)
			if res.code != 1 {
				t.Fatalf("exit %d, want 1", res.code)
			}
			if res.stdout != "" {
				t.Fatalf("unexpected stdout %q", res.stdout)
			}
			if !strings.Contains(res.stderr, "Usage:") {
				t.Fatalf("stderr missing usage:\n%s", res.stderr)
			}
		})
	}
}

func TestClassifyMissingFileKeepsEarlierResults(t *testing.T) {
	workspace(t, map[string]string{"a.txt": "x\n", "c.txt": "z\n"})
	for _, jobs := range []string{"1", "3"} {
		res := run(t, "", "--models", "models.toml", "--jobs", jobs, "a.txt", "missing.txt", "c.txt")
		if res.code != 1 {
			t.Fatalf("jobs=%s: exit %d, want 1", jobs, res.code)
		}
		if res.stdout != "a.txt,Alpha,1.0\n" {
			t.Fatalf("jobs=%s: stdout = %q", jobs, res.stdout)
		}
		if !strings.Contains(res.stderr, "missing.txt") || !strings.Contains(res.stderr, "stopped at input #2") {
			t.Fatalf("jobs=%s: stderr = %q", jobs, res.stderr)
		}
		if strings.Contains(res.stderr, "Usage:") {
			t.Fatalf("jobs=%s: read errors must not print usage", jobs)
		}
	}
}

func TestClassifyJobsParity(t *testing.T) {
	files := map[string]string{}
	var args []string
	for i, body := range []string{"x", "z z", "q", "x y y", "z q", "y", "q q q", "z x"} {
		name := "f" + string(rune('0'+i)) + ".txt"
		files[name] = body + "\n"
		args = append(args, name)
	}
	workspace(t, files)

	seq := run(t, "", append([]string{"--models", "models.toml", "--jobs", "1"}, args...)...)
	par := run(t, "", append([]string{"--models", "models.toml", "--jobs", "4"}, args...)...)
	if seq.code != 0 || par.code != 0 {
		t.Fatalf("exit codes %d/%d, stderr:\n%s\n%s", seq.code, par.code, seq.stderr, par.stderr)
	}
	if seq.stdout != par.stdout {
		t.Fatalf("parallel output differs:\n%s\nvs\n%s", seq.stdout, par.stdout)
	}
	if n := len(lines(seq.stdout)); n != len(args) {
		t.Fatalf("expected %d lines, got %d", len(args), n)
	}
}

func TestClassifyJSONFormat(t *testing.T) {
	workspace(t, map[string]string{"q2.txt": "q\n"})
	res := run(t, "", "--models", "models.toml", "--format", "json", "--explain", "q2.txt", "--ext", ".b")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	var got jsonResult
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("decode %q: %v", res.stdout, err)
	}
	if got.Label != "Beta" || got.Ext != ".b" || got.File != "q2.txt" || got.Tokens != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Best == nil || got.Second == nil {
		t.Fatalf("expected finite best and second, got %+v", got)
	}
	if len(got.Scores) != 2 || got.Scores[0].Label != "Alpha" || got.Scores[1].Label != "Beta" {
		t.Fatalf("unexpected scores %+v", got.Scores)
	}
}

func TestClassifyConfigFile(t *testing.T) {
	workspace(t, map[string]string{
		"q1.txt":        "q\n",
		"pangloss.toml": "models = \"models.toml\"\nconfidence = \"guarded\"\n",
	})
	res := run(t, "", "q1.txt")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	if res.stdout != "q1.txt,Alpha,undefined\n" {
		t.Fatalf("stdout = %q", res.stdout)
	}
}

func TestClassifyDiskCache(t *testing.T) {
	workspace(t, map[string]string{"q2.txt": "q\n"})
	args := []string{"--models", "models.toml", "--cache", "disk", "--cache-dir", "results", "q2.txt", "--ext", ".b"}
	first := run(t, "", args...)
	second := run(t, "", args...)
	if first.code != 0 || second.code != 0 {
		t.Fatalf("exit codes %d/%d, stderr:\n%s\n%s", first.code, second.code, first.stderr, second.stderr)
	}
	if first.stdout != second.stdout {
		t.Fatalf("cached output differs: %q vs %q", first.stdout, second.stdout)
	}
	entries, err := os.ReadDir("results")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected cache entries, err=%v", err)
	}
}

func TestClassifyCacheClear(t *testing.T) {
	workspace(t, map[string]string{"q1.txt": "x y\n", "q2.txt": "q\n"})
	base := []string{"--models", "models.toml", "--cache", "disk", "--cache-dir", "results"}
	if res := run(t, "", append(base, "q1.txt")...); res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	res := run(t, "", append(base, "--cache-clear", "q2.txt")...)
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	entries, err := filepath.Glob(filepath.Join("results", "results", "*", "*.mp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the entry written after the clear, got %v", entries)
	}
}

func TestCountLiteral(t *testing.T) {
	workspace(t, map[string]string{})
	res := run(t, "b a b\nc b a\n", "count")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	if want := "{ 'b' : 3 ,  'a' : 2 ,  'c' : 1 }\n"; res.stdout != want {
		t.Fatalf("stdout = %q, want %q", res.stdout, want)
	}
}

func TestCountTopAndIgnore(t *testing.T) {
	workspace(t, map[string]string{"in.txt": "b a b c b a d"})
	res := run(t, "", "count", "--top", "2", "--ignore", "b", "in.txt")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	if want := "{ 'a' : 2 }\n"; res.stdout != want {
		t.Fatalf("stdout = %q, want %q", res.stdout, want)
	}
}

func TestTokenizeJSON(t *testing.T) {
	workspace(t, map[string]string{"in.txt": "def f\n\n  end\n"})
	res := run(t, "", "tokenize", "--format", "json", "in.txt")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	var got []tokenRecord
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []tokenRecord{{0, 1, "def"}, {1, 1, "f"}, {2, 3, "end"}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestModelsJSON(t *testing.T) {
	workspace(t, map[string]string{})
	res := run(t, "", "models", "--format", "json", "--models", "models.toml")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	var got modelsPayload
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Languages) != 2 || got.Languages[0].Label != "Alpha" || got.Languages[1].Extensions[0] != ".b" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got.Prior != 1.1 || got.Default != 0.0001 {
		t.Fatalf("unexpected constants %v %v", got.Prior, got.Default)
	}
}

func TestModelsBuiltinPretty(t *testing.T) {
	workspace(t, map[string]string{})
	res := run(t, "", "models", "--color", "off")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	for _, label := range []string{"C++", "JavaScript", "Objective-C"} {
		if !strings.Contains(res.stdout, label) {
			t.Fatalf("models output missing %s:\n%s", label, res.stdout)
		}
	}
}

func TestModelsSource(t *testing.T) {
	workspace(t, map[string]string{})
	res := run(t, "", "models", "--format", "source")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, `label = "C++"`) || !strings.HasPrefix(res.stdout, "#") {
		t.Fatalf("expected the embedded table source, got:\n%.200s", res.stdout)
	}

	res = run(t, "", "models", "--format", "source", "--models", "models.toml")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	if res.stdout != testTable {
		t.Fatalf("source = %q, want the file as written", res.stdout)
	}
}

func TestModelsUnknownFormatIsUsageError(t *testing.T) {
	workspace(t, map[string]string{})
	res := run(t, "", "models", "--format", "yaml")
	if res.code == 0 {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.stderr, "Usage:") {
		t.Fatalf("expected usage on stderr, got:\n%s", res.stderr)
	}
}

func TestVersionJSON(t *testing.T) {
	workspace(t, map[string]string{})
	res := run(t, "", "version", "--format", "json", "--full")
	if res.code != 0 {
		t.Fatalf("exit %d, stderr:\n%s", res.code, res.stderr)
	}
	var got versionPayload
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tool != "pangloss" || got.Version == "" || got.GitCommit != "unknown" {
		t.Fatalf("unexpected payload %+v", got)
	}
}
