package registry

import (
	"reflect"
	"strings"
	"testing"
)

func TestRegisterAndResolveIgnoresCase(t *testing.T) {
	t.Parallel()

	reg := New[string]("service")
	if err := reg.Register("matrix", "matrix", "MatrixS"); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, scheme := range []string{"matrix", "MATRIX", "matrixs", "MATRIXS"} {
		got, ok := reg.Resolve(scheme)
		if !ok || got != "matrix" {
			t.Fatalf("resolve %q: got %q,%v", scheme, got, ok)
		}
	}
	if _, ok := reg.Resolve("slack"); ok {
		t.Fatalf("unexpected match for unregistered scheme")
	}
	if !reflect.DeepEqual(reg.Schemes(), []string{"matrix", "matrixs"}) {
		t.Fatalf("unexpected schemes %v", reg.Schemes())
	}
}

func TestRegisterRejectsCollisions(t *testing.T) {
	t.Parallel()

	reg := New[string]("service")
	if err := reg.Register("json", "json", "jsons"); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := reg.Register("other", "xml", "JSON")
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected collision error, got %v", err)
	}
	if _, ok := reg.Resolve("xml"); ok {
		t.Fatalf("failed registration must not leave partial entries")
	}
	if reg.Len() != 2 {
		t.Fatalf("unexpected registry size %d", reg.Len())
	}
}

func TestRegisterRejectsInvalidSchemes(t *testing.T) {
	t.Parallel()

	reg := New[int]("source")
	if err := reg.Register(1); err == nil {
		t.Fatalf("expected error without schemes")
	}
	if err := reg.Register(1, " "); err == nil {
		t.Fatalf("expected error for blank scheme")
	}
	if err := reg.Register(1, "file", "FILE"); err == nil {
		t.Fatalf("expected error for duplicate scheme in one descriptor")
	}
}
