// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runErr        error

	ranName string
	ranArgs []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) Run(_ context.Context, name string, args []string, _ io.Writer) error {
	m.ranName, m.ranArgs = name, args
	return m.runErr
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		bins     map[string]bool
		cmds     map[string]bool
		wantName string
	}{
		{"docker available", map[string]bool{"docker": true}, map[string]bool{"docker info": true}, "docker"},
		{"podman fallback", map[string]bool{"podman": true}, map[string]bool{"podman info": true}, "podman"},
		{"docker info fails", map[string]bool{"docker": true, "podman": true}, map[string]bool{"podman info": true}, "podman"},
		{"docker preferred", map[string]bool{"docker": true, "podman": true}, map[string]bool{"docker info": true, "podman info": true}, "docker"},
		{"neither available", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(&mockExecutor{availableBins: tt.bins, runnableCmds: tt.cmds})
			if tt.wantName == "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	const image = "poppler:latest"
	tests := []struct {
		name    string
		rt      func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{"docker found", func(e *mockExecutor) Runtime { return newDockerRuntime(e) }, map[string]bool{"docker image inspect " + image: true}, false},
		{"docker missing", func(e *mockExecutor) Runtime { return newDockerRuntime(e) }, nil, true},
		{"podman found", func(e *mockExecutor) Runtime { return newPodmanRuntime(e) }, map[string]bool{"podman image exists " + image: true}, false},
		{"podman missing", func(e *mockExecutor) Runtime { return newPodmanRuntime(e) }, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rt(&mockExecutor{runnableCmds: tt.cmds}).ImageExists(image)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), image)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRun_MountsWorkdir(t *testing.T) {
	e := &mockExecutor{}
	dir := t.TempDir()
	err := newPodmanRuntime(e).Run(context.Background(), "poppler:latest", dir, []string{"pdftohtml", "-xml", "a.pdf", "a"}, io.Discard)
	require.NoError(t, err)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, "podman", e.ranName)
	assert.Equal(t, []string{
		"run", "--rm", "-v", abs + ":" + DataDir, "-w", DataDir, "poppler:latest",
		"pdftohtml", "-xml", "a.pdf", "a",
	}, e.ranArgs)
}

func TestRun_Failure(t *testing.T) {
	e := &mockExecutor{runErr: errors.New("exit status 1")}
	err := newDockerRuntime(e).Run(context.Background(), "poppler:latest", ".", nil, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running docker container poppler:latest")
}
