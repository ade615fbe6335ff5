// Package stability decides whether a mesh will stand up on its own. It
// measures how high the mass centroid sits and how much of the footprint
// the base covers, then classifies the pair with an ordered rule table.
package stability

// Classification thresholds.
const (
	// ComHigh is the normalized centroid height at or above which an
	// object is top-heavy.
	ComHigh = 0.6
	// BaseNarrow is the support ratio at or below which the base is too
	// small.
	BaseNarrow = 0.3
	// ComLow and BaseWide bound the "very stable" region.
	ComLow   = 0.4
	BaseWide = 0.6
	// ComMid separates "stable" from "marginally stable".
	ComMid = 0.5
)

// Verdict messages.
const (
	VerdictVeryStable = "Very Stable — Low center of mass with wide base"
	VerdictStable     = "Stable — Good weight distribution"
	VerdictMarginal   = "Marginally Stable — Center of mass is moderate"
	VerdictTopHeavy   = "Top-Heavy — Center of mass is high, may tip over"
	VerdictNarrowBase = "Narrow Base — Support area is too small for stability"
	VerdictUnstable   = "Unstable — Consider widening the base or lowering the center of mass"
)

// Metrics are the two normalized measurements a rule looks at.
type Metrics struct {
	ComY float64 `json:"com_y"` // centroid height, 0 = bottom, 1 = top
	Base float64 `json:"base"`  // base support ratio in [0,1]
}

// Rule is one row of the classification table.
type Rule struct {
	Name    string
	Match   func(Metrics) bool
	Stable  bool
	Verdict string
}

func standing(m Metrics) bool {
	return m.ComY < ComHigh && m.Base > BaseNarrow
}

// DefaultRules returns the built-in table. The last row matches
// everything, so Classify over it always yields a verdict.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "very-stable",
			Match:   func(m Metrics) bool { return standing(m) && m.ComY < ComLow && m.Base > BaseWide },
			Stable:  true,
			Verdict: VerdictVeryStable,
		},
		{
			Name:    "stable",
			Match:   func(m Metrics) bool { return standing(m) && m.ComY < ComMid },
			Stable:  true,
			Verdict: VerdictStable,
		},
		{
			Name:    "marginal",
			Match:   standing,
			Stable:  true,
			Verdict: VerdictMarginal,
		},
		{
			Name:    "top-heavy",
			Match:   func(m Metrics) bool { return m.ComY >= ComHigh },
			Verdict: VerdictTopHeavy,
		},
		{
			Name:    "narrow-base",
			Match:   func(m Metrics) bool { return m.Base <= BaseNarrow },
			Verdict: VerdictNarrowBase,
		},
		{
			Name:    "unstable",
			Match:   func(Metrics) bool { return true },
			Verdict: VerdictUnstable,
		},
	}
}

// Classify returns the first rule in rules that matches m. When nothing
// matches (a custom table without a catch-all) it returns the "unstable"
// row.
func Classify(rules []Rule, m Metrics) Rule {
	for _, r := range rules {
		if r.Match != nil && r.Match(m) {
			return r
		}
	}
	return Rule{Name: "unstable", Verdict: VerdictUnstable}
}
