// Package scorer implements the deterministic 18-metric quality score
// for a discovered cycle (spec.md §4.3). Score is a pure function: equal
// inputs always produce equal outputs (testable property 5), and any
// missing external signal (valuation, floor price, trade history)
// degrades to the documented neutral value of 0.5 rather than an error,
// except ValueConfidence, which is 0 when no valuation is known.
package scorer

import (
	"context"
	"math"

	"github.com/nftbarter/discovery-engine/domain/asset"
	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/engine/pricefeed"
)

const neutral = 0.5

// ScoringConfig tunes the path-properties group's notion of an "ideal"
// cycle length.
type ScoringConfig struct {
	IdealLength int
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{IdealLength: 3}
}

// Score computes the full 18-metric vector plus the two aggregates for
// one cycle. assets supplies the valuation/collection data that Step
// only references by id; prices and history are optional external
// signals consulted per-step/per-wallet.
func Score(ctx context.Context, c cycle.Cycle, assets map[identity.AssetID]asset.Asset, cfg ScoringConfig, prices pricefeed.FloorPriceSource, history HistorySource) cycle.Score {
	if cfg.IdealLength <= 0 {
		cfg = DefaultScoringConfig()
	}
	if prices == nil {
		prices = pricefeed.NeutralSource{}
	}
	if history == nil {
		history = NeutralHistory{}
	}

	s := cycle.Score{
		ValueVariance:   scoreValueVariance(c, assets),
		ValueRatio:      scoreValueRatio(c, assets),
		ValueBalance:    scoreValueBalance(c, assets),
		ValueConfidence: scoreValueConfidence(c, assets),

		LengthPenalty:        scoreLengthPenalty(c, cfg),
		ParticipantDiversity: scoreParticipantDiversity(c),
		AssetDiversity:       scoreAssetDiversity(c),
		PathSimplicity:       scorePathSimplicity(c, cfg),

		FloorLiquidity: scoreFloorLiquidity(ctx, c, assets, prices),
		VolumeProxy:    scoreVolumeProxy(ctx, c, assets, prices),
		BuyerDemand:    scoreBuyerDemand(c),

		Volatility:              scoreVolatility(c, assets),
		CounterpartyFamiliarity: scoreCounterpartyFamiliarity(c, history),
		ExecutionRisk:           scoreExecutionRisk(c, cfg),
		ConcentrationRisk:       scoreConcentrationRisk(c, assets),

		EdgeSuccessRate:    scoreEdgeSuccessRate(c, history),
		ParticipantHistory: scoreParticipantHistory(c, history),
		RecencyBonus:       scoreRecencyBonus(c, history),
	}

	valueGroupAvg := average(s.ValueVariance, s.ValueRatio, s.ValueBalance, s.ValueConfidence)
	pathGroupAvg := average(s.LengthPenalty, s.ParticipantDiversity, s.AssetDiversity, s.PathSimplicity)
	marketGroupAvg := average(s.FloorLiquidity, s.VolumeProxy, s.BuyerDemand)
	riskGroupAvg := average(s.Volatility, s.CounterpartyFamiliarity, s.ExecutionRisk, s.ConcentrationRisk)
	historyGroupAvg := average(s.EdgeSuccessRate, s.ParticipantHistory, s.RecencyBonus)

	s.QualityScore = DefaultWeights.ValueAlignment*valueGroupAvg +
		DefaultWeights.PathProperties*pathGroupAvg +
		DefaultWeights.Market*marketGroupAvg +
		DefaultWeights.Risk*riskGroupAvg +
		DefaultWeights.Historical*historyGroupAvg

	// Efficiency blends value-alignment with path-length quality, weighted
	// by how much valuation data actually went into the value-alignment
	// group: a cycle with no known valuations at all (ValueConfidence=0)
	// can't be judged on value alignment, so efficiency falls back to how
	// well-shaped the path itself is rather than being dragged down by an
	// uninformative neutral average.
	s.Efficiency = s.ValueConfidence*valueGroupAvg + (1-s.ValueConfidence)*pathGroupAvg

	return s
}

func average(vals ...float64) float64 {
	if len(vals) == 0 {
		return neutral
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return neutral
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func stepValuations(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) []float64 {
	var out []float64
	for _, step := range c.Steps {
		if len(step.Assets) == 0 {
			continue
		}
		a, ok := assets[step.Assets[0]]
		if !ok || a.Valuation == nil {
			continue
		}
		out = append(out, a.Valuation.Amount)
	}
	return out
}

// scoreValueVariance rewards cycles whose traded values are close
// together: score is 1 minus the coefficient of variation, clamped.
func scoreValueVariance(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) float64 {
	vals := stepValuations(c, assets)
	if len(vals) < 2 {
		return neutral
	}
	mean := average(vals...)
	if mean == 0 {
		return neutral
	}
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	cv := math.Sqrt(variance) / mean
	return clamp01(1 - cv)
}

// scoreValueRatio rewards a small max/min valuation ratio among traded
// assets (a large ratio suggests an unbalanced trade).
func scoreValueRatio(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) float64 {
	vals := stepValuations(c, assets)
	if len(vals) < 2 {
		return neutral
	}
	min, max := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min <= 0 {
		return neutral
	}
	ratio := max / min
	return clamp01(1 / ratio)
}

// scoreValueBalance penalizes a single step whose value dominates the
// total value moved around the cycle.
func scoreValueBalance(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) float64 {
	vals := stepValuations(c, assets)
	if len(vals) < 2 {
		return neutral
	}
	var total, max float64
	for _, v := range vals {
		total += v
		if v > max {
			max = v
		}
	}
	if total <= 0 {
		return neutral
	}
	share := max / total
	evenShare := 1.0 / float64(len(vals))
	if share <= evenShare {
		return 1
	}
	return clamp01(1 - (share-evenShare)/(1-evenShare))
}

// scoreValueConfidence is the fraction of steps whose chosen asset
// carries a known valuation.
func scoreValueConfidence(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) float64 {
	if len(c.Steps) == 0 {
		return neutral
	}
	known := len(stepValuations(c, assets))
	return clamp01(float64(known) / float64(len(c.Steps)))
}

// scoreLengthPenalty rewards cycle lengths close to cfg.IdealLength. The
// penalty scales over a full IdealLength's worth of deviation rather than
// just 1-2 steps, so the shortest possible cycle (length 2) still scores
// well rather than falling straight to 0 for being one step short of ideal.
func scoreLengthPenalty(c cycle.Cycle, cfg ScoringConfig) float64 {
	n := c.Len()
	if n == 0 {
		return neutral
	}
	deviation := math.Abs(float64(n - cfg.IdealLength))
	maxDeviation := math.Max(float64(cfg.IdealLength), 1)
	return clamp01(1 - deviation/maxDeviation)
}

// scoreParticipantDiversity verifies the cycle's structural invariant
// that every wallet in it is distinct — defensively recomputed here
// rather than assumed, since the scorer has no other reason to trust
// its caller.
func scoreParticipantDiversity(c cycle.Cycle) float64 {
	wallets := c.Wallets()
	if len(wallets) == 0 {
		return neutral
	}
	seen := make(map[identity.WalletID]struct{}, len(wallets))
	for _, w := range wallets {
		seen[w] = struct{}{}
	}
	return clamp01(float64(len(seen)) / float64(len(wallets)))
}

// scoreAssetDiversity is the fraction of steps whose chosen asset is
// distinct from every other step's chosen asset.
func scoreAssetDiversity(c cycle.Cycle) float64 {
	if len(c.Steps) == 0 {
		return neutral
	}
	seen := make(map[identity.AssetID]struct{}, len(c.Steps))
	for _, step := range c.Steps {
		if len(step.Assets) > 0 {
			seen[step.Assets[0]] = struct{}{}
		}
	}
	return clamp01(float64(len(seen)) / float64(len(c.Steps)))
}

// scorePathSimplicity rewards shorter cycles: each additional
// participant beyond the ideal length adds execution complexity.
func scorePathSimplicity(c cycle.Cycle, cfg ScoringConfig) float64 {
	n := c.Len()
	if n <= cfg.IdealLength {
		return 1
	}
	return clamp01(float64(cfg.IdealLength) / float64(n))
}

func collectionFor(assetID identity.AssetID, assets map[identity.AssetID]asset.Asset) (identity.CollectionID, bool) {
	a, ok := assets[assetID]
	if !ok || a.Metadata.Collection == nil {
		return "", false
	}
	return *a.Metadata.Collection, true
}

func scoreFloorLiquidity(ctx context.Context, c cycle.Cycle, assets map[identity.AssetID]asset.Asset, prices pricefeed.FloorPriceSource) float64 {
	var total float64
	var n int
	for _, step := range c.Steps {
		if len(step.Assets) == 0 {
			continue
		}
		collectionID, ok := collectionFor(step.Assets[0], assets)
		if !ok {
			continue
		}
		quote, ok := prices.Quote(ctx, collectionID)
		if !ok || quote.FloorPrice <= 0 {
			continue
		}
		total += clamp01(1 - 1/(1+quote.FloorPrice))
		n++
	}
	if n == 0 {
		return neutral
	}
	return clamp01(total / float64(n))
}

func scoreVolumeProxy(ctx context.Context, c cycle.Cycle, assets map[identity.AssetID]asset.Asset, prices pricefeed.FloorPriceSource) float64 {
	var total float64
	var n int
	for _, step := range c.Steps {
		if len(step.Assets) == 0 {
			continue
		}
		collectionID, ok := collectionFor(step.Assets[0], assets)
		if !ok {
			continue
		}
		quote, ok := prices.Quote(ctx, collectionID)
		if !ok {
			continue
		}
		total += clamp01(quote.VolumeProxy)
		n++
	}
	if n == 0 {
		return neutral
	}
	return clamp01(total / float64(n))
}

// scoreBuyerDemand always returns the neutral default: the scorer
// receives no inverted "wanters" index, so it does not count the
// wallets wanting each traded asset.
func scoreBuyerDemand(c cycle.Cycle) float64 {
	return neutral
}

func scoreVolatility(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) float64 {
	vals := stepValuations(c, assets)
	if len(vals) < 2 {
		return neutral
	}
	return scoreValueVariance(c, assets)
}

func scoreCounterpartyFamiliarity(c cycle.Cycle, history HistorySource) float64 {
	wallets := c.Wallets()
	if len(wallets) == 0 {
		return neutral
	}
	var total float64
	var n int
	for _, w := range wallets {
		if v, ok := history.ParticipantHistory(w); ok {
			total += clamp01(v)
			n++
		}
	}
	if n == 0 {
		return neutral
	}
	return clamp01(total / float64(n))
}

func scoreExecutionRisk(c cycle.Cycle, cfg ScoringConfig) float64 {
	n := c.Len()
	if n <= 2 {
		return 1
	}
	maxLen := math.Max(float64(cfg.IdealLength)*3, float64(n))
	return clamp01(1 - float64(n-2)/maxLen)
}

func scoreConcentrationRisk(c cycle.Cycle, assets map[identity.AssetID]asset.Asset) float64 {
	return scoreValueBalance(c, assets)
}

func scoreEdgeSuccessRate(c cycle.Cycle, history HistorySource) float64 {
	if len(c.Steps) == 0 {
		return neutral
	}
	var total float64
	var n int
	for _, step := range c.Steps {
		if v, ok := history.EdgeSuccessRate(step.From, step.To); ok {
			total += clamp01(v)
			n++
		}
	}
	if n == 0 {
		return neutral
	}
	return clamp01(total / float64(n))
}

func scoreParticipantHistory(c cycle.Cycle, history HistorySource) float64 {
	wallets := c.Wallets()
	if len(wallets) == 0 {
		return neutral
	}
	var total float64
	var n int
	for _, w := range wallets {
		if v, ok := history.ParticipantHistory(w); ok {
			total += clamp01(v)
			n++
		}
	}
	if n == 0 {
		return neutral
	}
	return clamp01(total / float64(n))
}

func scoreRecencyBonus(c cycle.Cycle, history HistorySource) float64 {
	wallets := c.Wallets()
	if v, ok := history.RecencyBonus(wallets); ok {
		return clamp01(v)
	}
	return neutral
}
