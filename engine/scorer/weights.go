package scorer

// Weights holds the fixed, documented group weights for the 18-metric
// aggregate (spec.md §4.3, frozen per DESIGN.md Open Question
// resolution 2). Metrics within a group are weighted equally; the group
// weights themselves sum to 1.0.
type Weights struct {
	ValueAlignment float64
	PathProperties float64
	Market         float64
	Risk           float64
	Historical     float64
}

// DefaultWeights is the one weight vector this engine ships —
// tenant-overridable weighting is explicitly out of scope (spec.md §9).
var DefaultWeights = Weights{
	ValueAlignment: 0.35,
	PathProperties: 0.25,
	Market:         0.15,
	Risk:           0.15,
	Historical:     0.10,
}

const (
	valueAlignmentMetrics = 4
	pathPropertiesMetrics = 4
	marketMetrics         = 3
	riskMetrics           = 4
	historicalMetrics     = 3
)
