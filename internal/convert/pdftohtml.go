// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdiddy/guideline-engine/internal/container"
)

const (
	binPdftohtml = "pdftohtml"

	// DefaultImage is the container image expected to provide pdftohtml.
	DefaultImage = "poppler:latest"
)

// pdftohtmlArgs returns the converter arguments. pdftohtml appends .xml to
// the output base itself.
func pdftohtmlArgs(pdf, xmlPath string) []string {
	return []string{"-xml", "-i", "-q", "-enc", "UTF-8", pdf, strings.TrimSuffix(xmlPath, ".xml")}
}

// runFunc runs a command, returning its combined error output on failure.
type runFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// LocalConverter runs a pdftohtml binary found on PATH.
type LocalConverter struct {
	bin string
	run runFunc
}

// NewLocalConverter locates pdftohtml on PATH.
func NewLocalConverter() (*LocalConverter, error) {
	bin, err := exec.LookPath(binPdftohtml)
	if err != nil {
		return nil, fmt.Errorf("%s not found on PATH (install poppler-utils or use --container): %w", binPdftohtml, err)
	}
	return &LocalConverter{bin: bin, run: runCommand}, nil
}

// Convert runs pdftohtml -xml on pdfPath.
func (l *LocalConverter) Convert(ctx context.Context, pdfPath, xmlPath string) error {
	if err := l.run(ctx, l.bin, pdftohtmlArgs(pdfPath, xmlPath)...); err != nil {
		return fmt.Errorf("converting %s: %w", pdfPath, err)
	}
	return checkOutput(xmlPath)
}

// ContainerConverter runs pdftohtml inside a container image. The PDF's
// directory is mounted into the container and receives the output.
type ContainerConverter struct {
	runtime container.Runtime
	image   string
}

// NewContainerConverter verifies that image exists in rt.
func NewContainerConverter(rt container.Runtime, image string) (*ContainerConverter, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("converter image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerConverter{runtime: rt, image: image}, nil
}

// Convert runs the containerised pdftohtml on pdfPath. An xmlPath outside
// the PDF's directory is moved into place afterwards.
func (c *ContainerConverter) Convert(ctx context.Context, pdfPath, xmlPath string) error {
	dir := filepath.Dir(pdfPath)
	local := filepath.Join(dir, filepath.Base(xmlPath))
	args := append([]string{binPdftohtml}, pdftohtmlArgs(filepath.Base(pdfPath), filepath.Base(xmlPath))...)

	var stderr bytes.Buffer
	if err := c.runtime.Run(ctx, c.image, dir, args, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("converting %s: %w: %s", pdfPath, err, msg)
		}
		return fmt.Errorf("converting %s: %w", pdfPath, err)
	}
	if filepath.Clean(local) != filepath.Clean(xmlPath) {
		if err := os.Rename(local, xmlPath); err != nil {
			return fmt.Errorf("moving %s: %w", local, err)
		}
	}
	return checkOutput(xmlPath)
}

func checkOutput(xmlPath string) error {
	info, err := os.Stat(xmlPath)
	if err != nil {
		return fmt.Errorf("converter wrote no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("converter produced empty output %s", xmlPath)
	}
	return nil
}
