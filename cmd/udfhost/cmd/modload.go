package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modware/udfhost/pkg/udfpkg"
)

// loadBinary reads a module binary and a display name from path, unpacking
// a bundle when given one.
func loadBinary(path string) (string, []byte, error) {
	if strings.EqualFold(filepath.Ext(path), udfpkg.Extension) {
		pkg, err := udfpkg.Read(path)
		if err != nil {
			return "", nil, err
		}

		return pkg.Manifest.Name, pkg.Module, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read module %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return name, data, nil
}
