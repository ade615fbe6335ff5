package depth

import (
	"math"

	"github.com/chazu/whitedwarf/pkg/kernel"
)

type point struct {
	x, y, d float64
}

func edge(a, b, c point) float64 {
	return (b.x-c.x)*(a.y-c.y) - (b.y-c.y)*(a.x-c.x)
}

// fill rasterizes every triangle with edge functions, sampling at integer
// pixel positions so a filled image agrees with the vertex samples at the
// corners.
func fill(im *Image, m *kernel.Mesh, pr projection) {
	maxIdx := float64(im.Resolution - 1)
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		var s [3]point
		for i, p := range [3][3]float64{a, b, c} {
			s[i].x, s[i].y, s[i].d = pr.screen(p)
		}

		area := edge(s[0], s[1], s[2])
		if area == 0 {
			continue
		}
		sign := 1.0
		if area < 0 {
			sign, area = -1, -area
		}

		x0 := clamp(math.Ceil(math.Min(s[0].x, math.Min(s[1].x, s[2].x))), 0, maxIdx)
		x1 := clamp(math.Floor(math.Max(s[0].x, math.Max(s[1].x, s[2].x))), 0, maxIdx)
		y0 := clamp(math.Ceil(math.Min(s[0].y, math.Min(s[1].y, s[2].y))), 0, maxIdx)
		y1 := clamp(math.Floor(math.Max(s[0].y, math.Max(s[1].y, s[2].y))), 0, maxIdx)

		for y := int(y0); y <= int(y1); y++ {
			for x := int(x0); x <= int(x1); x++ {
				p := point{x: float64(x), y: float64(y)}
				w0 := sign * edge(s[1], s[2], p)
				w1 := sign * edge(s[2], s[0], p)
				w2 := sign * edge(s[0], s[1], p)
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				im.plot(x, y, quantize((w0*s[0].d+w1*s[1].d+w2*s[2].d)/area))
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
