package normalize

import (
	"fmt"

	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func openGLTF(path string) (*Container, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalize: gltf %s: %v: %w", path, err, kernel.ErrUnsupportedGeometry)
	}
	c, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// fromDocument makes one member per glTF mesh. Only triangle primitives
// contribute; positions stay in mesh-local space.
func fromDocument(doc *gltf.Document) (*Container, error) {
	members := make([]Member, 0, len(doc.Meshes))
	for i, gm := range doc.Meshes {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}

		var parts []*kernel.Mesh
		for _, primitive := range gm.Primitives {
			part, err := readPrimitive(doc, primitive)
			if err != nil {
				return nil, fmt.Errorf("normalize: mesh %q: %w", name, err)
			}
			if part != nil {
				parts = append(parts, part)
			}
		}

		m := Member{Name: name}
		if len(parts) > 0 {
			m.Mesh = kernel.Concat(name, parts...)
		}
		members = append(members, m)
	}
	return newContainer(members), nil
}

// readPrimitive returns nil for primitives that carry no triangles.
func readPrimitive(doc *gltf.Document, primitive *gltf.Primitive) (*kernel.Mesh, error) {
	if primitive.Mode != gltf.PrimitiveTriangles {
		return nil, nil
	}
	posIdx, ok := primitive.Attributes[gltf.POSITION]
	if !ok || posIdx >= len(doc.Accessors) {
		return nil, nil
	}

	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %v: %w", err, kernel.ErrUnsupportedGeometry)
	}

	var indices []uint32
	if primitive.Indices != nil {
		if *primitive.Indices >= len(doc.Accessors) {
			return nil, fmt.Errorf("index accessor %d missing: %w", *primitive.Indices, kernel.ErrUnsupportedGeometry)
		}
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %v: %w", err, kernel.ErrUnsupportedGeometry)
		}
	} else {
		indices = make([]uint32, len(positions))
		for k := range indices {
			indices[k] = uint32(k)
		}
	}
	indices = indices[:len(indices)-len(indices)%3]

	m := &kernel.Mesh{
		Vertices: make([]float64, 0, len(positions)*3),
		Indices:  indices,
	}
	for _, p := range positions {
		m.Vertices = append(m.Vertices, float64(p[0]), float64(p[1]), float64(p[2]))
	}
	if m.IsEmpty() {
		return nil, nil
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
