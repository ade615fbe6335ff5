package normalize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/whitedwarf/pkg/kernel"
)

// Extensions lists the container formats Open understands.
var Extensions = []string{".obj", ".gltf", ".glb"}

// Open parses the mesh file at path into a Container, choosing the reader
// by file extension. A missing file is ErrNotFound and is reported before
// any parse is attempted.
func Open(path string) (*Container, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("normalize: %s: %w", path, kernel.ErrNotFound)
		}
		return nil, fmt.Errorf("normalize: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("normalize: %s is a directory: %w", path, kernel.ErrUnsupportedGeometry)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return openOBJ(path)
	case ".gltf", ".glb":
		return openGLTF(path)
	default:
		return nil, fmt.Errorf("normalize: unknown container extension %q: %w", ext, kernel.ErrUnsupportedGeometry)
	}
}

// Load opens the file at path and flattens it to one mesh.
func Load(path string) (*kernel.Mesh, error) {
	c, err := Open(path)
	if err != nil {
		return nil, err
	}
	m, err := Flatten(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
