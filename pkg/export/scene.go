package export

import (
	"fmt"

	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/normalize"
)

// Object is one named mesh in a scene.
type Object struct {
	Name string
	Mesh *kernel.Mesh
}

// Scene is the container encoders consume.
type Scene struct {
	Objects []Object
}

// NewScene wraps a bare mesh as a one-object scene named "mesh".
func NewScene(m *kernel.Mesh) *Scene {
	return &Scene{Objects: []Object{{Name: "mesh", Mesh: m}}}
}

// FromContainer keeps each mesh member of c as its own object. Point and
// line members are dropped.
func FromContainer(c *normalize.Container) *Scene {
	s := &Scene{}
	for _, m := range c.Members {
		if !m.IsMesh() {
			continue
		}
		name := m.Name
		if name == "" {
			name = "mesh"
		}
		s.Objects = append(s.Objects, Object{Name: name, Mesh: m.Mesh})
	}
	return s
}

// Merged returns every object's geometry as one mesh.
func (s *Scene) Merged() *kernel.Mesh {
	if len(s.Objects) == 1 {
		return s.Objects[0].Mesh
	}
	meshes := make([]*kernel.Mesh, len(s.Objects))
	for i, o := range s.Objects {
		meshes[i] = o.Mesh
	}
	return kernel.Concat("scene", meshes...)
}

func (s *Scene) validate() error {
	if len(s.Objects) == 0 {
		return fmt.Errorf("export: empty scene: %w", kernel.ErrUnsupportedGeometry)
	}
	for _, o := range s.Objects {
		if o.Mesh == nil || o.Mesh.IsEmpty() {
			return fmt.Errorf("export: object %q has no triangles: %w", o.Name, kernel.ErrUnsupportedGeometry)
		}
		if err := o.Mesh.Validate(); err != nil {
			return fmt.Errorf("export: object %q: %w", o.Name, err)
		}
	}
	return nil
}
