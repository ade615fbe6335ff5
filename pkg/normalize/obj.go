package normalize

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/whitedwarf/pkg/kernel"
)

func openOBJ(path string) (*Container, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	defer file.Close()
	c, err := LoadOBJFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// objMember accumulates one o/g section. Faces hold indices into the
// file-wide vertex list until the member is closed.
type objMember struct {
	name     string
	faces    []int
	elements int // l and p statements
}

func (m *objMember) empty() bool {
	return len(m.faces) == 0 && m.elements == 0
}

// build keeps only the vertices the member references, in first-use order.
func (m *objMember) build(vs []float64) Member {
	if len(m.faces) == 0 {
		return Member{Name: m.name}
	}
	mesh := &kernel.Mesh{Name: m.name, Indices: make([]uint32, len(m.faces))}
	local := make(map[int]uint32)
	for i, g := range m.faces {
		idx, ok := local[g]
		if !ok {
			idx = uint32(len(local))
			local[g] = idx
			mesh.Vertices = append(mesh.Vertices, vs[g*3], vs[g*3+1], vs[g*3+2])
		}
		mesh.Indices[i] = idx
	}
	return Member{Name: m.name, Mesh: mesh}
}

// LoadOBJFromReader parses Wavefront OBJ text. Polygons are fan
// triangulated; o and g statements start a new member.
func LoadOBJFromReader(r io.Reader) (*Container, error) {
	var vs []float64
	var members []Member
	cur := &objMember{name: "mesh"}

	closeMember := func(next string) {
		if !cur.empty() {
			members = append(members, cur.build(vs))
		}
		cur = &objMember{name: next}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if len(text) < 2 || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, objError(line, "vertex needs 3 coordinates")
			}
			for _, f := range fields[1:4] {
				x, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, objError(line, fmt.Sprintf("bad coordinate %q", f))
				}
				vs = append(vs, x)
			}
		case "o", "g":
			name := strings.Join(fields[1:], " ")
			if name == "" {
				name = fmt.Sprintf("%s%d", fields[0], len(members))
			}
			if cur.empty() {
				cur.name = name
				continue
			}
			closeMember(name)
		case "f":
			if len(fields) < 4 {
				return nil, objError(line, "face needs at least 3 vertices")
			}
			n := len(vs) / 3
			idx := make([]int, len(fields)-1)
			for i, arg := range fields[1:] {
				v, err := fixIndex(strings.SplitN(arg, "/", 2)[0], n)
				if err != nil {
					return nil, objError(line, err.Error())
				}
				idx[i] = v
			}
			for i := 1; i < len(idx)-1; i++ {
				cur.faces = append(cur.faces, idx[0], idx[i], idx[i+1])
			}
		case "l", "p":
			cur.elements++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("normalize: read obj: %w", err)
	}
	closeMember("")

	return newContainer(members), nil
}

// fixIndex converts a 1-based or negative OBJ index to a 0-based one.
func fixIndex(value string, n int) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("bad vertex index %q", value)
	}
	switch {
	case parsed < 0:
		parsed += n
	case parsed > 0:
		parsed--
	default:
		return 0, fmt.Errorf("vertex index 0 is invalid")
	}
	if parsed < 0 || parsed >= n {
		return 0, fmt.Errorf("vertex index %s out of range (%d vertices)", value, n)
	}
	return parsed, nil
}

func objError(line int, msg string) error {
	return fmt.Errorf("normalize: obj line %d: %s: %w", line, msg, kernel.ErrUnsupportedGeometry)
}
