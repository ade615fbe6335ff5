package export

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// GLBEncoder writes binary glTF 2.0: one node and one mesh per scene
// object, each with a POSITION accessor and an index accessor.
type GLBEncoder struct{}

// Document builds the glTF document for s.
func (GLBEncoder) Document(s *Scene) *gltf.Document {
	doc := gltf.NewDocument()
	for _, o := range s.Objects {
		m := o.Mesh
		positions := make([][3]float32, m.VertexCount())
		for i := range positions {
			v := m.Vertex(i)
			positions[i] = [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
		}
		indices := append([]uint32(nil), m.Indices...)

		prim := &gltf.Primitive{
			Mode:       gltf.PrimitiveTriangles,
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: map[string]int{gltf.POSITION: modeler.WritePosition(doc, positions)},
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: o.Name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: o.Name, Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	return doc
}

// Encode writes s to path.
func (e GLBEncoder) Encode(s *Scene, path string) error {
	if err := gltf.SaveBinary(e.Document(s), path); err != nil {
		return fmt.Errorf("glb: %w", err)
	}
	return nil
}
