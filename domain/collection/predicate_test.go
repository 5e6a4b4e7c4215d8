package collection

import (
	"testing"

	"github.com/nftbarter/discovery-engine/domain/asset"
)

func TestAnyPredicate_AlwaysMatches(t *testing.T) {
	var p AnyPredicate
	if !p.Matches(asset.Metadata{Name: "whatever"}) {
		t.Fatal("expected AnyPredicate to match")
	}
}

func TestJSONPathPredicate_MatchesField(t *testing.T) {
	p := JSONPathPredicate{Expression: "$.symbol"}
	if !p.Matches(asset.Metadata{Name: "Ape", Symbol: "APE"}) {
		t.Fatal("expected predicate to match non-empty symbol")
	}
}

func TestJSONPathPredicate_NoMatchOnEmptyField(t *testing.T) {
	p := JSONPathPredicate{Expression: "$.symbol"}
	if p.Matches(asset.Metadata{Name: "Ape"}) {
		t.Fatal("expected predicate to reject empty symbol")
	}
}

func TestJSONPathPredicate_InvalidExpressionFailsClosed(t *testing.T) {
	p := JSONPathPredicate{Expression: "not a jsonpath expression $$$"}
	if p.Matches(asset.Metadata{Name: "Ape", Symbol: "APE"}) {
		t.Fatal("expected an invalid expression to fail closed")
	}
}
