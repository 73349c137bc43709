// Package udfpkg reads and writes packaged module bundles. A bundle is a
// zip archive carrying the compiled wasm binary, a YAML manifest and the
// encoded signature table, so tooling can inspect a package without
// instantiating the module inside it.
package udfpkg

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/modware/udfhost/pkg/wire"
)

// Extension is the conventional file extension for module bundles.
const Extension = ".udfpkg"

// Archive entry names inside a bundle.
const (
	moduleEntry     = "module.wasm"
	manifestEntry   = "manifest.yaml"
	signaturesEntry = "signatures.bin"
)

// Manifest describes a packaged module.
type Manifest struct {
	Name        string
	Version     string
	Description string
	Authors     []string
}

// Package is a fully materialized bundle.
type Package struct {
	Manifest   Manifest
	Module     []byte
	Signatures []wire.FunctionSignature
}

// Write serializes the package to path as a zip bundle.
func Write(path string, p *Package) error {
	if p.Manifest.Name == "" {
		return fmt.Errorf("manifest name is required")
	}
	if len(p.Module) == 0 {
		return fmt.Errorf("module binary is required")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}

	zw := zip.NewWriter(f)

	entries := []struct {
		name string
		data []byte
	}{
		{manifestEntry, renderManifest(p.Manifest)},
		{signaturesEntry, wire.EncodeSignatures(p.Signatures)},
		{moduleEntry, p.Module},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize bundle: %w", err)
	}

	// A close failure here can mean an unflushed, truncated bundle.
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finalize bundle: %w", err)
	}

	return nil
}

// Read opens a bundle and materializes all of its contents, module binary
// included.
func Read(path string) (*Package, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", path, err)
	}
	defer zr.Close()

	manifest, sigs, err := readMetadata(&zr.Reader)
	if err != nil {
		return nil, err
	}

	module, err := readEntry(&zr.Reader, moduleEntry)
	if err != nil {
		return nil, err
	}

	return &Package{
		Manifest:   manifest,
		Module:     module,
		Signatures: sigs,
	}, nil
}

// Inspect reads the manifest and signature table without touching the
// module binary.
func Inspect(path string) (Manifest, []wire.FunctionSignature, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("failed to open bundle %s: %w", path, err)
	}
	defer zr.Close()

	return readMetadata(&zr.Reader)
}

// readMetadata extracts and parses the manifest and signature entries.
func readMetadata(zr *zip.Reader) (Manifest, []wire.FunctionSignature, error) {
	manifestData, err := readEntry(zr, manifestEntry)
	if err != nil {
		return Manifest{}, nil, err
	}
	manifest, err := parseManifest(manifestData)
	if err != nil {
		return Manifest{}, nil, err
	}

	sigData, err := readEntry(zr, signaturesEntry)
	if err != nil {
		return Manifest{}, nil, err
	}
	sigs, err := wire.DecodeSignatures(sigData)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("corrupt signature table: %w", err)
	}

	return manifest, sigs, nil
}

// readEntry returns the contents of one named archive entry.
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("bundle is missing entry %s", name)
}

// renderManifest serializes a manifest as YAML.
func renderManifest(m Manifest) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %q\n", m.Name)
	fmt.Fprintf(&b, "version: %q\n", m.Version)
	if m.Description != "" {
		fmt.Fprintf(&b, "description: %q\n", m.Description)
	}
	if len(m.Authors) > 0 {
		b.WriteString("authors:\n")
		for _, a := range m.Authors {
			fmt.Fprintf(&b, "  - %q\n", a)
		}
	}

	return []byte(b.String())
}

// parseManifest decodes a YAML manifest.
func parseManifest(data []byte) (Manifest, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Manifest{}, fmt.Errorf("malformed manifest: %w", err)
	}

	m := Manifest{
		Name:        v.GetString("name"),
		Version:     v.GetString("version"),
		Description: v.GetString("description"),
		Authors:     v.GetStringSlice("authors"),
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("manifest name is required")
	}

	return m, nil
}
