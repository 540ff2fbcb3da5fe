// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a container runtime and runs converter images
// against a mounted working directory.
// Implements: containerised pdftohtml conversion; docs/ARCHITECTURE § Conversion.
package container

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
)

const (
	binDocker = "docker"
	binPodman = "podman"

	// DataDir is where Run mounts the working directory inside the container.
	DataDir = "/data"
)

// Runtime runs containers through a docker-compatible binary.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary is on PATH and responds
	// to an info command.
	Available() bool

	// ImageExists returns nil when image is present locally.
	ImageExists(image string) error

	// Run executes image with args, mounting workdir at DataDir and using it
	// as the working directory. Container stderr is copied to stderr.
	Run(ctx context.Context, image, workdir string, args []string, stderr io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Run(ctx context.Context, name string, args []string, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (osExecutor) Run(ctx context.Context, name string, args []string, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime implements Runtime for one container binary. Docker and Podman
// differ only in the binary and the image check subcommand.
type runtime struct {
	bin        string
	imageCheck []string
	exec       executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := append(append([]string{}, r.imageCheck...), image)
	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, image, workdir string, args []string, stderr io.Writer) error {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", workdir, err)
	}
	full := []string{"run", "--rm", "-v", abs + ":" + DataDir, "-w", DataDir, image}
	full = append(full, args...)
	if err := r.exec.Run(ctx, r.bin, full, stderr); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

func newDockerRuntime(e executor) *runtime {
	return &runtime{bin: binDocker, imageCheck: []string{"image", "inspect"}, exec: e}
}

func newPodmanRuntime(e executor) *runtime {
	return &runtime{bin: binPodman, imageCheck: []string{"image", "exists"}, exec: e}
}

// DetectRuntime returns docker when it is operational, then podman.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(osExecutor{})
}

func detectRuntime(e executor) (Runtime, error) {
	for _, rt := range []*runtime{newDockerRuntime(e), newPodmanRuntime(e)} {
		if rt.Available() {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman)
}
