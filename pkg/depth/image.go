// Package depth renders orthographic depth maps of meshes for use as
// conditioning images. Near surfaces are dark, far surfaces and empty
// background are white.
package depth

import (
	"fmt"
	"image"
	"image/png"
	"io"
)

// Background is the sample value of pixels no geometry reached.
const Background uint8 = 255

// Image is a square single-channel depth image stored row-major from the
// top row down.
type Image struct {
	Resolution int
	Pix        []uint8
}

// NewImage returns a Resolution x Resolution image filled with Background.
func NewImage(resolution int) *Image {
	pix := make([]uint8, resolution*resolution)
	for i := range pix {
		pix[i] = Background
	}
	return &Image{Resolution: resolution, Pix: pix}
}

// At returns the sample at column x, row y.
func (im *Image) At(x, y int) uint8 {
	return im.Pix[y*im.Resolution+x]
}

// plot keeps the nearer of the current and the new sample.
func (im *Image) plot(x, y int, d uint8) {
	if x < 0 || y < 0 || x >= im.Resolution || y >= im.Resolution {
		return
	}
	i := y*im.Resolution + x
	if d < im.Pix[i] {
		im.Pix[i] = d
	}
}

// Coverage returns the number of pixels holding something other than
// Background.
func (im *Image) Coverage() int {
	n := 0
	for _, p := range im.Pix {
		if p != Background {
			n++
		}
	}
	return n
}

// Gray returns the image as an *image.Gray sharing no memory with im.
func (im *Image) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, im.Resolution, im.Resolution))
	copy(g.Pix, im.Pix)
	return g
}

// FromGray converts a square grayscale image back into an Image.
func FromGray(g *image.Gray) (*Image, error) {
	b := g.Bounds()
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("depth: image is %dx%d, want square", b.Dx(), b.Dy())
	}
	im := &Image{Resolution: b.Dx(), Pix: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(im.Pix[y*b.Dx():(y+1)*b.Dx()], g.Pix[off:off+b.Dx()])
	}
	return im, nil
}

// EncodePNG writes the image to w as an 8-bit grayscale PNG.
func (im *Image) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, im.Gray()); err != nil {
		return fmt.Errorf("depth: encode png: %w", err)
	}
	return nil
}
