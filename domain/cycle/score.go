package cycle

// Score holds the 18 named fairness/quality metrics in [0,1] plus the two
// aggregates (spec.md §3/§4.3). Defined alongside Cycle (rather than in
// engine/scorer, which computes it) so Cycle can embed a Score value
// without an import cycle between domain/cycle and engine/scorer.
type Score struct {
	// Value alignment group (weight 0.35).
	ValueVariance   float64 `json:"valueVariance"`
	ValueRatio      float64 `json:"valueRatio"`
	ValueBalance    float64 `json:"valueBalance"`
	ValueConfidence float64 `json:"valueConfidence"`

	// Path properties group (weight 0.25).
	LengthPenalty        float64 `json:"lengthPenalty"`
	ParticipantDiversity float64 `json:"participantDiversity"`
	AssetDiversity       float64 `json:"assetDiversity"`
	PathSimplicity       float64 `json:"pathSimplicity"`

	// Market group (weight 0.15).
	FloorLiquidity float64 `json:"floorLiquidity"`
	VolumeProxy    float64 `json:"volumeProxy"`
	BuyerDemand    float64 `json:"buyerDemand"`

	// Risk group (weight 0.15).
	Volatility              float64 `json:"volatility"`
	CounterpartyFamiliarity float64 `json:"counterpartyFamiliarity"`
	ExecutionRisk           float64 `json:"executionRisk"`
	ConcentrationRisk       float64 `json:"concentrationRisk"`

	// Historical signals group (weight 0.10).
	EdgeSuccessRate    float64 `json:"edgeSuccessRate"`
	ParticipantHistory float64 `json:"participantHistory"`
	RecencyBonus       float64 `json:"recencyBonus"`

	// Aggregates.
	QualityScore float64 `json:"qualityScore"`
	Efficiency   float64 `json:"efficiency"`
}
