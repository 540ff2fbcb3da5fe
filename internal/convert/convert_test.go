// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConverter writes canned XML or returns an error.
type fakeConverter struct {
	output string
	err    error
	calls  int
}

func (f *fakeConverter) Convert(_ context.Context, _, xmlPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(xmlPath, []byte(f.output), 0o644)
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestXMLPath(t *testing.T) {
	assert.Equal(t, "docs/acc/guideline.xml", XMLPath("docs/acc/guideline.pdf"))
	assert.Equal(t, "a.xml", XMLPath("a.PDF"))
}

func TestConvertBatch(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf")
	b := writePDF(t, dir, "b.pdf")
	require.NoError(t, os.WriteFile(XMLPath(b), []byte("<pdf2xml/>"), 0o644))

	conv := &fakeConverter{output: "<pdf2xml></pdf2xml>"}
	var log bytes.Buffer
	result := ConvertBatch(context.Background(), conv, []string{a, b}, false, &log)

	assert.Equal(t, BatchResult{Converted: 1, Skipped: 1}, result)
	assert.Contains(t, log.String(), "converted: a.xml")
	assert.Contains(t, log.String(), "skipped:   b.xml")
	assert.Contains(t, log.String(), "Batch summary: 1 converted, 1 skipped, 0 failed (total: 2)")
	assert.FileExists(t, XMLPath(a))

	result = ConvertBatch(context.Background(), conv, []string{b}, true, io.Discard)
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 2, conv.calls)
}

func TestConvertBatch_Failure(t *testing.T) {
	pdf := writePDF(t, t.TempDir(), "a.pdf")
	var log bytes.Buffer
	result := ConvertBatch(context.Background(), &fakeConverter{err: errors.New("bad pdf")}, []string{pdf}, false, &log)
	assert.True(t, result.HasFailures())
	assert.Contains(t, log.String(), "failed:    a.pdf (bad pdf)")
}

func TestConvertBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conv := &fakeConverter{}
	result := ConvertBatch(ctx, conv, []string{writePDF(t, t.TempDir(), "a.pdf")}, false, io.Discard)
	assert.Equal(t, 0, result.Total())
	assert.Zero(t, conv.calls)
}

func TestFindPDFs(t *testing.T) {
	root := t.TempDir()
	top := writePDF(t, root, "top.pdf")
	g := writePDF(t, filepath.Join(root, "acc"), "guideline.pdf")
	s := writePDF(t, filepath.Join(root, "acc"), "supplement.pdf")
	writePDF(t, filepath.Join(root, "acc", "deep"), "ignored.pdf")
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), nil, 0o644))

	got, err := FindPDFs([]string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{g, s, top}, got)

	got, err = FindPDFs([]string{g})
	require.NoError(t, err)
	assert.Equal(t, []string{g}, got)

	_, err = FindPDFs([]string{filepath.Join(root, "missing.pdf")})
	assert.Error(t, err)
}

func TestLocalConverter(t *testing.T) {
	dir := t.TempDir()
	pdf := writePDF(t, dir, "guideline.pdf")
	xmlPath := XMLPath(pdf)

	var gotName string
	var gotArgs []string
	l := &LocalConverter{bin: "/usr/bin/pdftohtml", run: func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return os.WriteFile(args[len(args)-1]+".xml", []byte("<pdf2xml/>"), 0o644)
	}}
	require.NoError(t, l.Convert(context.Background(), pdf, xmlPath))
	assert.Equal(t, "/usr/bin/pdftohtml", gotName)
	assert.Equal(t, []string{"-xml", "-i", "-q", "-enc", "UTF-8", pdf, filepath.Join(dir, "guideline")}, gotArgs)

	l.run = func(context.Context, string, ...string) error { return nil }
	require.NoError(t, os.Remove(xmlPath))
	err := l.Convert(context.Background(), pdf, xmlPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output")

	l.run = func(context.Context, string, ...string) error { return errors.New("exit status 1") }
	err = l.Convert(context.Background(), pdf, xmlPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converting")
}

// fakeRuntime emulates a container that writes the converter output into
// the mounted directory.
type fakeRuntime struct {
	image   string
	workdir string
	args    []string
	missing bool
	err     error
}

func (f *fakeRuntime) Name() string    { return "docker" }
func (f *fakeRuntime) Available() bool { return true }

func (f *fakeRuntime) ImageExists(image string) error {
	if f.missing {
		return errors.New("image " + image + " not found")
	}
	return nil
}

func (f *fakeRuntime) Run(_ context.Context, image, workdir string, args []string, stderr io.Writer) error {
	f.image, f.workdir, f.args = image, workdir, args
	if f.err != nil {
		stderr.Write([]byte("Syntax Error: bad xref"))
		return f.err
	}
	return os.WriteFile(filepath.Join(workdir, args[len(args)-1]+".xml"), []byte("<pdf2xml/>"), 0o644)
}

func TestContainerConverter(t *testing.T) {
	dir := t.TempDir()
	pdf := writePDF(t, dir, "guideline.pdf")

	rt := &fakeRuntime{}
	c, err := NewContainerConverter(rt, "")
	require.NoError(t, err)
	require.NoError(t, c.Convert(context.Background(), pdf, XMLPath(pdf)))

	assert.Equal(t, DefaultImage, rt.image)
	assert.Equal(t, dir, rt.workdir)
	assert.Equal(t, []string{"pdftohtml", "-xml", "-i", "-q", "-enc", "UTF-8", "guideline.pdf", "guideline"}, rt.args)
	assert.FileExists(t, XMLPath(pdf))

	elsewhere := filepath.Join(t.TempDir(), "guideline.xml")
	require.NoError(t, c.Convert(context.Background(), pdf, elsewhere))
	assert.FileExists(t, elsewhere)

	rt.err = errors.New("exit status 1")
	err = c.Convert(context.Background(), pdf, XMLPath(pdf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad xref")
}

func TestNewContainerConverter_MissingImage(t *testing.T) {
	_, err := NewContainerConverter(&fakeRuntime{missing: true}, "poppler:22")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poppler:22")
}
