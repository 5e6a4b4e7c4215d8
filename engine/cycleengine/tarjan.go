// Package cycleengine implements canonical cycle discovery over a tenant's
// trade graph: Tarjan's SCC decomposition scoped to the dirty set, followed
// by Johnson's bounded simple-cycle enumeration within each affected SCC,
// canonical deduplication, optional bundle detection, and budget controls
// (spec.md §4.2).
package cycleengine

import (
	"sort"

	"github.com/nftbarter/discovery-engine/domain/graph"
	"github.com/nftbarter/discovery-engine/domain/identity"
)

// SCCID identifies one strongly connected component within a single
// discovery invocation.
type SCCID int

type tarjanState struct {
	edges   edgeIndex
	index   map[identity.WalletID]int
	lowlink map[identity.WalletID]int
	onStack map[identity.WalletID]bool
	stack   []identity.WalletID
	counter int
	sccs    [][]identity.WalletID
}

// stronglyConnectedComponents computes the SCCs of the full graph view
// using Tarjan's algorithm. Vertices are visited in sorted order so
// results are reproducible (spec.md §4.2 "Tie-breaks and determinism").
func stronglyConnectedComponents(view *graph.View, edges edgeIndex) [][]identity.WalletID {
	st := &tarjanState{
		edges:   edges,
		index:   make(map[identity.WalletID]int),
		lowlink: make(map[identity.WalletID]int),
		onStack: make(map[identity.WalletID]bool),
	}

	for _, v := range view.WalletIDs() {
		if _, visited := st.index[v]; !visited {
			st.strongConnect(v)
		}
	}
	return st.sccs
}

func (st *tarjanState) strongConnect(v identity.WalletID) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, e := range st.edges.edgesFrom(v) {
		w := e.To
		if _, visited := st.index[w]; !visited {
			st.strongConnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var component []identity.WalletID
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		st.sccs = append(st.sccs, component)
	}
}

// sccsTouchingDirtySet filters components to those containing at least
// one wallet from dirty. A simple cycle lies entirely within one SCC, so
// enumeration is scoped to components that intersect the dirty set
// (spec.md §4.2 stage 1).
func sccsTouchingDirtySet(sccs [][]identity.WalletID, dirty graph.DirtySet) [][]identity.WalletID {
	if dirty == nil {
		return sccs
	}
	var out [][]identity.WalletID
	for _, component := range sccs {
		if len(component) < 2 {
			continue
		}
		for _, w := range component {
			if _, touched := dirty[w]; touched {
				out = append(out, component)
				break
			}
		}
	}
	return out
}
