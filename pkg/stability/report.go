package stability

// Report is the result of one stability analysis.
type Report struct {
	IsStable         bool       `json:"is_stable"`
	CenterOfMassY    float64    `json:"center_of_mass_y"`
	BaseSupportRatio float64    `json:"base_support_ratio"`
	BoundingBox      [3]float64 `json:"bounding_box"` // width, height, depth
	Verdict          string     `json:"verdict"`
}

// Metrics returns the measurements the report was classified from.
func (r Report) Metrics() Metrics {
	return Metrics{ComY: r.CenterOfMassY, Base: r.BaseSupportRatio}
}
