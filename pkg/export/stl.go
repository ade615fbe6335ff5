package export

import "github.com/chazu/whitedwarf/pkg/kernel/sdfx"

// STLEncoder writes binary STL of the merged scene geometry.
type STLEncoder struct{}

// Encode writes s to path.
func (STLEncoder) Encode(s *Scene, path string) error {
	return sdfx.SaveSTL(path, s.Merged())
}
