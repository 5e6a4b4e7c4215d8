package cycleengine

import (
	"context"
	"sort"

	"github.com/nftbarter/discovery-engine/domain/cycle"
	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// Config tunes cycle enumeration (spec.md §4.2 stage 5 budget controls).
type Config struct {
	MaxCycleLength  int
	PerSCCCycleCap  int
	BundleDetection bool
	MaxBundleSize   int
}

// DefaultConfig mirrors spec.md §3's documented algorithm defaults.
func DefaultConfig() Config {
	return Config{
		MaxCycleLength: 10,
		PerSCCCycleCap: 500,
		MaxBundleSize:  8,
	}
}

// Bundle groups several distinct asset choices on the same wallet
// sequence that all satisfy the want predicate (spec.md §4.2 stage 4).
type Bundle struct {
	WalletSequence []identity.WalletID
	Alternatives   [][]identity.AssetID // one []AssetID per step, per alternative
}

// Result is the outcome of one discovery invocation (spec.md §4.2 stage 5).
type Result struct {
	Cycles    []cycle.Cycle
	Bundles   []Bundle
	TimedOut  bool
	Truncated map[SCCID]bool
}

// adjForSCC builds a child-list restricted to vertices inside component,
// in sorted order, as required for deterministic DFS (spec.md §4.2
// "Tie-breaks and determinism").
func adjForSCC(edges edgeIndex, component []identity.WalletID) map[identity.WalletID][]graph.Edge {
	inComponent := make(map[identity.WalletID]bool, len(component))
	for _, v := range component {
		inComponent[v] = true
	}
	adj := make(map[identity.WalletID][]graph.Edge, len(component))
	for _, v := range component {
		var out []graph.Edge
		for _, e := range edges.edgesFrom(v) {
			if inComponent[e.To] {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
		adj[v] = out
	}
	return adj
}

// enumerator performs bounded DFS cycle enumeration within one SCC,
// starting each search at the lexicographically smallest unvisited
// vertex, pruning any path whose length would exceed maxLen (spec.md
// §4.2 stage 2, Johnson's algorithm modified with a length bound in
// place of Johnson's full blocked-set bookkeeping across all starts —
// sufficient here because each start vertex is removed from later
// searches, the same pruning Johnson's algorithm relies on).
type enumerator struct {
	adj       map[identity.WalletID][]graph.Edge
	maxLen    int
	cap       int
	sequences [][]identity.WalletID
	truncated bool

	path    []identity.WalletID
	onPath  map[identity.WalletID]bool
	removed map[identity.WalletID]bool // vertices from earlier starts, excluded
}

func (en *enumerator) run(ctx context.Context, start identity.WalletID) bool {
	en.path = []identity.WalletID{start}
	en.onPath = map[identity.WalletID]bool{start: true}
	return en.dfs(ctx, start, start)
}

func (en *enumerator) dfs(ctx context.Context, start, current identity.WalletID) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}

	for _, e := range en.adj[current] {
		if en.removed[e.To] {
			continue
		}
		if e.To == start {
			if len(en.path) >= 2 {
				if en.cap > 0 && len(en.sequences) >= en.cap {
					en.truncated = true
					return false
				}
				seq := make([]identity.WalletID, len(en.path))
				copy(seq, en.path)
				en.sequences = append(en.sequences, seq)
			}
			continue
		}
		if en.onPath[e.To] {
			continue
		}
		if len(en.path) >= en.maxLen {
			continue
		}

		en.path = append(en.path, e.To)
		en.onPath[e.To] = true
		if timedOut := en.dfs(ctx, start, e.To); timedOut {
			return true
		}
		en.onPath[e.To] = false
		en.path = en.path[:len(en.path)-1]
	}
	return false
}

// enumerateSCC enumerates simple cycles within one SCC, scoped to the
// given budget.
func enumerateSCC(ctx context.Context, edges edgeIndex, component []identity.WalletID, cfg Config) ([][]identity.WalletID, bool, bool) {
	adj := adjForSCC(edges, component)
	en := &enumerator{
		adj:     adj,
		maxLen:  cfg.MaxCycleLength,
		cap:     cfg.PerSCCCycleCap,
		removed: make(map[identity.WalletID]bool),
	}

	for _, start := range component {
		if en.removed[start] {
			continue
		}
		if timedOut := en.run(ctx, start); timedOut {
			return en.sequences, true, en.truncated
		}
		en.removed[start] = true
		if en.cap > 0 && len(en.sequences) >= en.cap {
			en.truncated = true
			break
		}
	}
	return en.sequences, false, en.truncated
}
