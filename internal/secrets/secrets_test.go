// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, NCBIAPIKey, "  abc123  \n")
				writeFile(t, dir, NCBIEmail, "curator@example.org\n")
				return dir
			},
			want: map[string]string{
				NCBIAPIKey: "abc123",
				NCBIEmail:  "curator@example.org",
			},
		},
		{
			name: "nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files dotfiles and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, NCBIAPIKey, "key")
				writeFile(t, dir, "blank", "  \n\t")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: map[string]string{NCBIAPIKey: "key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, NCBIEmail, "a@b.c")
	bad := filepath.Join(dir, NCBIAPIKey)
	require.NoError(t, os.WriteFile(bad, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	var logs bytes.Buffer
	got, err := Load(dir, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{NCBIEmail: "a@b.c"}, got)
	assert.Contains(t, logs.String(), "could not read secret")
	assert.Contains(t, logs.String(), "name="+NCBIAPIKey)
}

func TestValue(t *testing.T) {
	loaded := map[string]string{NCBIEmail: "file@example.org"}
	assert.Equal(t, "flag@example.org", Value(loaded, NCBIEmail, "flag@example.org"))
	assert.Equal(t, "file@example.org", Value(loaded, NCBIEmail, ""))
	assert.Empty(t, Value(loaded, NCBIAPIKey, ""))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
