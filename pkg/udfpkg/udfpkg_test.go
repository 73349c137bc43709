package udfpkg

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modware/udfhost/pkg/wire"
)

func samplePackage() *Package {
	return &Package{
		Manifest: Manifest{
			Name:        "driving-rules",
			Version:     "1.2.0",
			Description: "age checks for licensing",
			Authors:     []string{"ops team"},
		},
		Module: []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00},
		Signatures: []wire.FunctionSignature{
			{Name: "can_drive", Params: []wire.Kind{wire.KindInt64}, Returns: wire.KindBool},
			{Name: "describe", Params: []wire.Kind{wire.KindMap}, Returns: wire.KindString},
		},
	}
}

// TestWriteReadRoundTrip packs a bundle and reads everything back.
func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "driving-rules"+Extension)
	want := samplePackage()
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, want.Manifest, got.Manifest)
	assert.Equal(t, want.Module, got.Module)
	require.Len(t, got.Signatures, 2)
	for i := range want.Signatures {
		assert.Equal(t, want.Signatures[i].String(), got.Signatures[i].String())
	}
}

// TestInspectSkipsModule verifies metadata extraction without the binary.
func TestInspectSkipsModule(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundle"+Extension)
	want := samplePackage()
	require.NoError(t, Write(path, want))

	manifest, sigs, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, want.Manifest, manifest)
	require.Len(t, sigs, 2)
	assert.Equal(t, "can_drive(int64) -> bool", sigs[0].String())
}

// TestWriteRejectsIncomplete verifies required fields.
func TestWriteRejectsIncomplete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	noName := samplePackage()
	noName.Manifest.Name = ""
	assert.Error(t, Write(filepath.Join(dir, "a"+Extension), noName))

	noModule := samplePackage()
	noModule.Module = nil
	assert.Error(t, Write(filepath.Join(dir, "b"+Extension), noModule))
}

// TestWriteReportsFilesystemErrors verifies that a failed write path never
// returns success.
func TestWriteReportsFilesystemErrors(t *testing.T) {
	t.Parallel()

	// The target is a directory, so the bundle file cannot be created.
	err := Write(t.TempDir(), samplePackage())
	require.Error(t, err)
	assert.ErrorContains(t, err, "bundle")
}

// TestReadRejectsBrokenBundles covers missing entries and non-archives.
func TestReadRejectsBrokenBundles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	notZip := filepath.Join(dir, "garbage"+Extension)
	require.NoError(t, os.WriteFile(notZip, []byte("not an archive"), 0o644))
	_, err := Read(notZip)
	assert.Error(t, err)

	// Archive without a module entry.
	partial := filepath.Join(dir, "partial"+Extension)
	f, err := os.Create(partial)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("manifest.yaml")
	require.NoError(t, err)
	_, err = w.Write([]byte("name: \"x\"\nversion: \"0.0.1\"\n"))
	require.NoError(t, err)
	w, err = zw.Create("signatures.bin")
	require.NoError(t, err)
	_, err = w.Write(wire.EncodeSignatures(nil))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Read(partial)
	assert.ErrorContains(t, err, "module.wasm")

	// Inspect still works because metadata entries are present.
	manifest, sigs, err := Inspect(partial)
	require.NoError(t, err)
	assert.Equal(t, "x", manifest.Name)
	assert.Empty(t, sigs)
}

// TestManifestNameRequired verifies manifest validation on read.
func TestManifestNameRequired(t *testing.T) {
	t.Parallel()

	_, err := parseManifest([]byte("version: \"1.0.0\"\n"))
	assert.ErrorContains(t, err, "name")
}
