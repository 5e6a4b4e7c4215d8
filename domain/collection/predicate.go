// Package collection implements richer collection-want filters than a
// bare collection id match: a tenant can attach a predicate over an
// asset's metadata (e.g. a trait threshold) that must also hold before
// an asset satisfies a collection want (spec.md §3 "collection want",
// Open Question 1).
package collection

import (
	"encoding/json"

	"github.com/PaesslerAG/jsonpath"

	"github.com/nftbarter/discovery-engine/domain/asset"
)

// Predicate decides whether an asset's metadata satisfies some
// additional, tenant-supplied filter beyond plain collection membership.
type Predicate interface {
	Matches(metadata asset.Metadata) bool
}

// AnyPredicate matches every asset — the default when a collection want
// carries no extra filter.
type AnyPredicate struct{}

func (AnyPredicate) Matches(asset.Metadata) bool { return true }

// JSONPathPredicate matches when the JSONPath expression resolves to a
// non-empty, truthy result against the asset's metadata, marshaled to a
// generic map first since jsonpath.Get operates on
// map[string]interface{}/[]interface{} trees rather than Go structs.
type JSONPathPredicate struct {
	Expression string
}

func (p JSONPathPredicate) Matches(metadata asset.Metadata) bool {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return false
	}
	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return false
	}

	result, err := jsonpath.Get(p.Expression, tree)
	if err != nil {
		return false
	}
	return truthy(result)
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []interface{}:
		return len(val) > 0
	default:
		return true
	}
}
