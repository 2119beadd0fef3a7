package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("SECRET_TEST_TOKEN", "from-env")

	got, err := Load(Source{Name: "token", Value: "from-value", File: path, Env: "SECRET_TEST_TOKEN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected trimmed file secret, got %q", got)
	}
}

func TestLoadFallsBackToValueThenEnv(t *testing.T) {
	t.Setenv("SECRET_TEST_TOKEN", "from-env")

	got, err := Load(Source{Name: "token", Value: "from-value", Env: "SECRET_TEST_TOKEN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-value" {
		t.Fatalf("expected inline value, got %q", got)
	}

	got, err = Load(Source{Name: "token", Env: "SECRET_TEST_TOKEN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "token"}); err == nil {
		t.Fatalf("expected error for unconfigured secret")
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	if _, err := Load(Source{Name: "token", File: empty}); err == nil {
		t.Fatalf("expected error for empty secret file")
	}

	if _, err := Load(Source{Name: "token", File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for missing secret file")
	}
}
