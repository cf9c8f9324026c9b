package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `
# comment line
PLAIN_KEY=plain-value
QUOTED_KEY="quoted value"
ALREADY_SET=from-file
malformed line without equals
  SPACED_KEY = spaced-value
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	for _, key := range []string{"PLAIN_KEY", "QUOTED_KEY", "SPACED_KEY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("ALREADY_SET", "from-environment")

	loadEnvFiles(path, "does-not-exist.env")

	tests := []struct {
		key  string
		want string
	}{
		{"PLAIN_KEY", "plain-value"},
		{"QUOTED_KEY", "quoted value"},
		{"SPACED_KEY", "spaced-value"},
		{"ALREADY_SET", "from-environment"},
	}
	for _, tc := range tests {
		if got := os.Getenv(tc.key); got != tc.want {
			t.Errorf("%s = %q, want %q", tc.key, got, tc.want)
		}
	}
}
