package cycleengine

import (
	"context"
	"sort"
	"time"

	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// Discover runs the full pipeline of spec.md §4.2 against one graph
// snapshot: SCC decomposition, scoping to components touching dirty
// (nil means "run over the whole graph"), bounded simple-cycle
// enumeration per affected SCC, asset-witness selection, canonical
// deduplication, and optional bundle detection. The supplied context
// bounds wall-clock time; on deadline it stops enumerating further SCCs
// and reports TimedOut.
func Discover(ctx context.Context, view *graph.View, dirty graph.DirtySet, cfg Config) Result {
	edges := buildEdgeIndex(view)
	sccs := sccsTouchingDirtySet(stronglyConnectedComponents(view, edges), dirty)

	result := Result{Truncated: make(map[SCCID]bool)}
	seen := make(map[cycle.CanonicalID]struct{})

	for i, component := range sccs {
		id := SCCID(i)

		select {
		case <-ctx.Done():
			result.TimedOut = true
			return result
		default:
		}

		sequences, timedOut, truncated := enumerateSCC(ctx, edges, component, cfg)
		if truncated {
			result.Truncated[id] = true
		}

		for _, seq := range sequences {
			c, bundle := materializeCycle(view.Tenant, edges, seq, cfg)
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			result.Cycles = append(result.Cycles, c)
			if bundle != nil {
				result.Bundles = append(result.Bundles, *bundle)
			}
		}

		if timedOut {
			result.TimedOut = true
			return result
		}
	}

	return result
}

// materializeCycle picks, for each step of a wallet sequence, the
// lexicographically smallest witnessing asset as the cycle's canonical
// representative, and (when cfg.BundleDetection is enabled and any step
// has more than one witness) builds the Bundle of alternative asset
// choices over the same wallet sequence (spec.md §4.2 stage 4).
func materializeCycle(tenant identity.TenantID, edges edgeIndex, seq []identity.WalletID, cfg Config) (cycle.Cycle, *Bundle) {
	n := len(seq)
	steps := make([]cycle.Step, n)
	alternativeWitnesses := make([][]identity.AssetID, n)
	hasAlternatives := false

	for i := 0; i < n; i++ {
		from := seq[i]
		to := seq[(i+1)%n]
		witnesses := witnessesFor(edges, from, to)
		chosen := witnesses[0]
		steps[i] = cycle.Step{From: from, To: to, Assets: []identity.AssetID{chosen}}
		alternativeWitnesses[i] = witnesses
		if len(witnesses) > 1 {
			hasAlternatives = true
		}
	}

	now := time.Now()
	c := cycle.Cycle{
		ID:           cycle.ComputeCanonicalID(steps),
		Tenant:       tenant,
		Steps:        steps,
		State:        cycle.Candidate,
		FirstSeen:    now,
		LastVerified: now,
	}

	var bundle *Bundle
	if cfg.BundleDetection && hasAlternatives {
		bundle = buildBundle(seq, alternativeWitnesses, cfg.MaxBundleSize)
	}

	return c, bundle
}

func witnessesFor(edges edgeIndex, from, to identity.WalletID) []identity.AssetID {
	for _, e := range edges.edgesFrom(from) {
		if e.To == to {
			return e.Witnesses
		}
	}
	return nil
}

// buildBundle enumerates the cartesian product of per-step witness
// choices, capped at maxSize alternatives (spec.md §4.2 stage 4 "bundle
// detection is best-effort and bounded").
func buildBundle(seq []identity.WalletID, perStepWitnesses [][]identity.AssetID, maxSize int) *Bundle {
	if maxSize <= 0 {
		maxSize = 1
	}

	combos := [][]identity.AssetID{{}}
	for _, witnesses := range perStepWitnesses {
		var next [][]identity.AssetID
		for _, combo := range combos {
			for _, w := range witnesses {
				if len(next) >= maxSize {
					break
				}
				extended := make([]identity.AssetID, len(combo)+1)
				copy(extended, combo)
				extended[len(combo)] = w
				next = append(next, extended)
			}
			if len(next) >= maxSize {
				break
			}
		}
		combos = next
		if len(combos) >= maxSize {
			combos = combos[:maxSize]
		}
	}

	sort.Slice(combos, func(i, j int) bool {
		for k := range combos[i] {
			if combos[i][k] != combos[j][k] {
				return combos[i][k] < combos[j][k]
			}
		}
		return false
	})

	return &Bundle{WalletSequence: seq, Alternatives: combos}
}
