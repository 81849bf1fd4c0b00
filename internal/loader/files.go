package loader

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

var extensions = map[simdex.Kind]map[string]bool{
	simdex.KindImage: {
		".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
		".gif": true, ".tif": true, ".tiff": true, ".webp": true,
	},
	simdex.KindMesh: {
		".obj": true, ".stl": true, ".ply": true, ".off": true,
		".glb": true, ".gltf": true,
	},
}

// Supported reports whether name has an extension the kind's extractor accepts.
func Supported(kind simdex.Kind, name string) bool {
	return extensions[kind][strings.ToLower(filepath.Ext(name))]
}

// Discover walks root and returns every supported file, sorted so that a
// cursor offset means the same file across runs.
func Discover(root string, kind simdex.Kind) ([]string, error) {
	if _, ok := extensions[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", simdex.ErrUnknownKind, kind)
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(kind, d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
