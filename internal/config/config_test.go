package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bytecomp/internal/compiler"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[interpreter]
binary = "/usr/bin/python3.11"
env = { PYTHONHASHSEED = "0" }

[driver]
suffix = "o"
temp-dir = "tmp"

[sources]
root = "src"
include = ["*.py", "pkg/..."]
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Interpreter.Binary != "/usr/bin/python3.11" {
		t.Errorf("binary = %q", c.Interpreter.Binary)
	}
	if !reflect.DeepEqual(c.Interpreter.Env, map[string]string{"PYTHONHASHSEED": "0"}) {
		t.Errorf("env = %v", c.Interpreter.Env)
	}
	if c.Driver.Name != "python" {
		t.Errorf("expected default driver name, got %q", c.Driver.Name)
	}
	if c.SourceRoot() != filepath.Join(dir, "src") {
		t.Errorf("source root = %q", c.SourceRoot())
	}
	if c.TempDir() != filepath.Join(dir, "tmp") {
		t.Errorf("temp dir = %q", c.TempDir())
	}
	if want := []string{"*.py", "pkg/..."}; !reflect.DeepEqual(c.Sources.Include, want) {
		t.Errorf("include = %v", c.Sources.Include)
	}

	d, err := c.NewDriver()
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	if d.Suffix != "o" || d.Extension != ".py" {
		t.Errorf("driver suffix/extension = %q/%q", d.Suffix, d.Extension)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[interpreter]
binary = "python3"
bianry = "typo"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "interpreter.bianry") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[interpreter\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.Interpreter.Binary != DefaultInterpreter {
		t.Errorf("binary = %q", c.Interpreter.Binary)
	}
	if c.Driver.Suffix != compiler.DefaultSuffix {
		t.Errorf("suffix = %q", c.Driver.Suffix)
	}
	if c.SourceRoot() != "" {
		t.Errorf("unanchored relative root should not resolve, got %q", c.SourceRoot())
	}
	if c.TempDir() != "" {
		t.Errorf("temp dir = %q", c.TempDir())
	}
}

func TestFindAndLoad_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[sources]\nroot = \"lib\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("expected config to be found")
	}
	if c.SourceRoot() != filepath.Join(root, "lib") {
		t.Errorf("source root = %q", c.SourceRoot())
	}
}

func TestNewDriver_CustomTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "driver.sh.tmpl"), []byte("echo {{shquote .Root}}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, dir, "[driver]\ntemplate = \"driver.sh.tmpl\"\nsuffix = \".out\"\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	d, err := c.NewDriver()
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	if d.Extension != ".sh" {
		t.Errorf("expected extension derived from template name, got %q", d.Extension)
	}
	out, err := d.Render(compiler.Request{Root: "/x", RelPaths: []string{"a"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(out) != "echo '/x'\n" {
		t.Errorf("rendered %q", out)
	}
}

func TestNewDriver_UnknownName(t *testing.T) {
	c := Default()
	c.Driver.Name = "cobol"
	if _, err := c.NewDriver(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
