package depth

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

// Resample scales im to size x size with nearest-neighbour interpolation,
// so every output sample is one of the input samples.
func Resample(im *Image, size int) (*Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, size)
	}
	if size == im.Resolution {
		out := &Image{Resolution: size, Pix: make([]uint8, len(im.Pix))}
		copy(out.Pix, im.Pix)
		return out, nil
	}

	scaled := resize.Resize(uint(size), uint(size), im.Gray(), resize.NearestNeighbor)
	g, ok := scaled.(*image.Gray)
	if !ok {
		g = image.NewGray(scaled.Bounds())
		draw.Draw(g, g.Bounds(), scaled, scaled.Bounds().Min, draw.Src)
	}
	return FromGray(g)
}
