package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"linkwatch/internal/domain"
)

func TestResolvePassword(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "r1"), []byte("mounted-pass\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(first, "r2"), []byte("first-wins"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(second, "r2"), []byte("shadowed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LW_SECRET_NAME", "r1")
	dirs := []string{first, second}

	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{raw: "plain", want: "plain"},
		{raw: "", want: ""},
		{raw: "secret:r1", want: "mounted-pass"},
		{raw: "secret:r2", want: "first-wins"},
		{raw: "secret:${LW_SECRET_NAME}", want: "mounted-pass"},
		{raw: "secret:missing", wantErr: ErrSecretNotFound},
		{raw: "secret:../etc/passwd"},
		{raw: "secret:"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := resolvePassword(tt.raw, dirs)
			if tt.want == "" && tt.raw != "" {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseYAMLSecretReference(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "r1-password"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	orig := SecretDirs
	SecretDirs = []string{dir}
	t.Cleanup(func() { SecretDirs = orig })

	data := []byte(`
devices:
  - {name: R1, kind: router, address: 10.0.0.1, username: admin, password: "secret:r1-password"}
`)
	topo, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r1, _ := topo.Device("R1")
	if r1.Credentials.Password != "from-file" {
		t.Errorf("expected password from mounted secret, got %q", r1.Credentials.Password)
	}

	missing := []byte(`
devices:
  - {name: R1, kind: router, address: 10.0.0.1, username: admin, password: "secret:absent"}
`)
	_, err = ParseYAML(missing)
	if !errors.Is(err, domain.ErrInvalidTopology) {
		t.Errorf("expected ErrInvalidTopology, got %v", err)
	}
}
