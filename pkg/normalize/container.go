// Package normalize reads mesh containers from disk and reduces them to a
// single triangulated kernel.Mesh. One container may hold a single mesh or
// a scene of named members; either way every other stage sees one mesh.
package normalize

import (
	"fmt"

	"github.com/chazu/whitedwarf/pkg/kernel"
)

// Kind tags what a container held when it was parsed.
type Kind int

const (
	// KindSingle is a container with exactly one member.
	KindSingle Kind = iota
	// KindScene is a container with zero or several members.
	KindScene
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindScene:
		return "scene"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Member is one named geometry of a container. Mesh is nil for members that
// carry no triangles (line sets, point clouds, non-triangle primitives).
type Member struct {
	Name string
	Mesh *kernel.Mesh
}

// IsMesh reports whether the member contributes triangles.
func (m Member) IsMesh() bool {
	return m.Mesh != nil && !m.Mesh.IsEmpty()
}

// Container is a parsed mesh file, resolved once into a tagged variant.
type Container struct {
	Kind    Kind
	Members []Member
}

func newContainer(members []Member) *Container {
	c := &Container{Kind: KindScene, Members: members}
	if len(members) == 1 {
		c.Kind = KindSingle
	}
	return c
}

// Flatten concatenates every mesh member into one mesh, re-indexing faces
// against the merged vertex list. Non-mesh members are skipped. A container
// without any usable triangles is ErrUnsupportedGeometry.
func Flatten(c *Container) (*kernel.Mesh, error) {
	if c == nil {
		return nil, fmt.Errorf("normalize: nil container: %w", kernel.ErrUnsupportedGeometry)
	}

	var meshes []*kernel.Mesh
	for _, m := range c.Members {
		if !m.IsMesh() {
			continue
		}
		meshes = append(meshes, m.Mesh)
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("normalize: %s container with %d members has no triangle geometry: %w",
			c.Kind, len(c.Members), kernel.ErrUnsupportedGeometry)
	}

	var mesh *kernel.Mesh
	switch c.Kind {
	case KindSingle:
		single := *meshes[0]
		mesh = &single
		if mesh.Name == "" {
			mesh.Name = "mesh"
		}
	case KindScene:
		mesh = kernel.Concat("scene", meshes...)
	default:
		return nil, fmt.Errorf("normalize: unknown container kind %v", c.Kind)
	}

	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return mesh, nil
}
