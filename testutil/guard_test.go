package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"domain", DomainImportForbidden, "brickcore/pkg/domain", true},
		{"domain versioned", DomainImportForbidden, "example.com/mod/pkg/domain@v1.2.3", true},
		{"domain sub", DomainImportForbidden, "example.com/pkg/domain/sub", false},
		{"domain lookalike", DomainImportForbidden, "example.com/pkg/domainutil", false},
		{"internal", InternalImportForbidden, "brickcore/internal/core", true},
		{"internal bare", InternalImportForbidden, "example.com/internal", false},
		{"internal pkg", InternalImportForbidden, "brickcore/pkg/domain", false},
		{"infra", InfraImportForbidden, "brickcore/internal/infra/blob/s3", true},
		{"infra root", InfraImportForbidden, "brickcore/internal/infra", true},
		{"blob facade", InfraImportForbidden, "brickcore/internal/blob", false},
		{"third party", ThirdPartyImport, "github.com/rs/zerolog", true},
		{"vanity", ThirdPartyImport, "gopkg.in/yaml.v3", true},
		{"stdlib", ThirdPartyImport, "net/url", false},
		{"module", ThirdPartyImport, "brickcore/pkg/domain", false},
		{"empty", ThirdPartyImport, "", false},
	}
	for _, c := range cases {
		if got := c.fn(c.in); got != c.want {
			t.Errorf("%s: (%q) = %v, want %v", c.name, c.in, got, c.want)
		}
	}
}

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

type recordingT struct {
	testing.TB
	msg string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\talias \"github.com/rs/zerolog\"\n)\nvar _ = fmt.Sprint\nvar _ alias.Logger\n")
	writeGo(t, dir, "a_test.go", "package tmp\nimport \"gopkg.in/yaml.v3\"\n")
	writeGo(t, dir, "notes.txt", "import \"github.com/x/y\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	writeGo(t, filepath.Join(dir, "sub"), "s.go", "package sub\nimport \"github.com/x/y\"\n")

	viols, err := directImportViolations(dir, ThirdPartyImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "github.com/rs/zerolog (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	rec := &recordingT{TB: t}
	AssertNoDirectImports(rec, dir, ThirdPartyImport, "stdlib only")
	if !strings.Contains(rec.msg, "stdlib only") || !strings.Contains(rec.msg, "zerolog") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}

	if _, err := directImportViolations(filepath.Join(dir, "missing"), ThirdPartyImport); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	writeGo(t, dir, "broken.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, ThirdPartyImport); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })

	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nbrickcore/pkg/domain\nbrickcore/internal/core\n\n"), nil
	}
	viols, _, err := transitiveDependencyViolations(".", InternalImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "brickcore/internal/core" {
		t.Fatalf("unexpected result %v %v", viols, err)
	}
	rec := &recordingT{TB: t}
	AssertNoTransitiveDependency(rec, ".", InternalImportForbidden, "layering")
	if !strings.Contains(rec.msg, "brickcore/internal/core") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	rec = &recordingT{TB: t}
	AssertNoTransitiveDependency(rec, ".", InternalImportForbidden, "layering")
	if !strings.Contains(rec.msg, "go list failed") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}
}
