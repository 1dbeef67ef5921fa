package source

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ohler55/ojg/jp"
)

const exprCacheSize = 256

// Walker runs JSONPath queries against decoded source records.
// Compiled expressions are cached, since rule criteria are evaluated once
// per candidate node.
type Walker struct {
	cache *lru.Cache[string, jp.Expr]
}

func NewWalker() *Walker {
	c, err := lru.New[string, jp.Expr](exprCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Walker{cache: c}
}

// Compile parses selector, reusing a cached expression when possible.
func (w *Walker) Compile(selector string) (jp.Expr, error) {
	if x, ok := w.cache.Get(selector); ok {
		return x, nil
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	w.cache.Add(selector, x)
	return x, nil
}

// Query executes selector against root.
func (w *Walker) Query(root any, selector string) ([]any, error) {
	x, err := w.Compile(selector)
	if err != nil {
		return nil, err
	}
	return x.Get(root), nil
}

// FilterSelector turns a bare predicate ("@.name == 'dcache'") into a
// selector over a one-element list. Full selectors starting with "$" pass
// through unchanged.
func FilterSelector(filter string) string {
	filter = strings.TrimSpace(filter)
	if strings.HasPrefix(filter, "$") {
		return filter
	}
	return "$[?(" + filter + ")]"
}

// Matches reports whether node satisfies filter. The node is wrapped in a
// one-element list so that "$[?(...)]" selects it when the predicate holds.
func (w *Walker) Matches(node any, filter string) (bool, error) {
	results, err := w.Query([]any{node}, FilterSelector(filter))
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
