package compiler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// DefaultSuffix is appended to a source relpath to name its artifact when
// the built-in Python driver is used (foo.py -> foo.pyc).
const DefaultSuffix = "c"

//go:embed driver_python.py.tmpl
var pythonDriverSource string

// Driver is the program handed to the interpreter. Its template renders the
// batch (root, relpaths, suffix) as literal data, so the generated file is
// self-contained.
type Driver struct {
	// Name identifies the driver in logs.
	Name string

	// Extension is used as the suffix of the temporary driver file.
	Extension string

	// Suffix is appended to each source relpath to form its artifact path.
	Suffix string

	// Template renders the driver program from a driverData value.
	Template *template.Template
}

type driverData struct {
	Root     string
	RelPaths []string
	Suffix   string
}

var driverFuncs = template.FuncMap{
	"json":    jsonLiteral,
	"shquote": shellQuote,
}

// NewDriver parses text as a driver template.
//
// Templates may use {{json .X}} to emit a JSON literal (valid as a Python or
// JavaScript string or list literal) and {{shquote .X}} to emit a POSIX
// single-quoted shell word.
func NewDriver(name, extension, suffix, text string) (*Driver, error) {
	if err := validateSuffix(suffix); err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(driverFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing driver template %q: %w", name, err)
	}
	return &Driver{
		Name:      name,
		Extension: extension,
		Suffix:    suffix,
		Template:  tmpl,
	}, nil
}

// LoadDriver reads a driver template from path.
func LoadDriver(path, extension, suffix string) (*Driver, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading driver template: %w", err)
	}
	if extension == "" {
		extension = filepath.Ext(strings.TrimSuffix(path, ".tmpl"))
	}
	return NewDriver(filepath.Base(path), extension, suffix, string(text))
}

// NewPythonDriver returns the built-in driver, which compiles each file with
// py_compile and names diagnostics after the source relpath.
func NewPythonDriver(suffix string) (*Driver, error) {
	return NewDriver("python", ".py", suffix, pythonDriverSource)
}

// PythonDriver returns the built-in Python driver with DefaultSuffix.
func PythonDriver() *Driver {
	d, err := NewPythonDriver(DefaultSuffix)
	if err != nil {
		panic(err)
	}
	return d
}

// Render produces the driver program for req.
func (d *Driver) Render(req Request) ([]byte, error) {
	if d == nil || d.Template == nil {
		return nil, fmt.Errorf("driver has no template")
	}
	relpaths := req.RelPaths
	if relpaths == nil {
		relpaths = []string{}
	}
	var buf bytes.Buffer
	err := d.Template.Execute(&buf, driverData{
		Root:     req.Root,
		RelPaths: relpaths,
		Suffix:   d.Suffix,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering driver %q: %w", d.Name, err)
	}
	return buf.Bytes(), nil
}

func validateSuffix(suffix string) error {
	if suffix == "" {
		return fmt.Errorf("artifact suffix must not be empty")
	}
	if strings.ContainsAny(suffix, `/\`) {
		return fmt.Errorf("artifact suffix %q must not contain a path separator", suffix)
	}
	return nil
}

func jsonLiteral(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// shellQuote wraps s in single quotes; embedded quotes become '\''.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
