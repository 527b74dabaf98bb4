package processor

import (
	"sort"
	"strings"
)

// SymbolFilter is an immutable allow-list of upper-case symbols.
// The zero value allows every symbol.
type SymbolFilter struct {
	symbols map[string]struct{}
}

// NewSymbolFilter normalizes symbols to upper case and drops blanks.
func NewSymbolFilter(symbols []string) SymbolFilter {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return SymbolFilter{symbols: set}
}

// Allows reports whether symbol should be processed.
func (f SymbolFilter) Allows(symbol string) bool {
	if len(f.symbols) == 0 {
		return true
	}
	_, ok := f.symbols[symbol]
	return ok
}

// Len returns the number of symbols in the filter; 0 means all are allowed.
func (f SymbolFilter) Len() int {
	return len(f.symbols)
}

// Symbols returns the sorted allow-list.
func (f SymbolFilter) Symbols() []string {
	out := make([]string, 0, len(f.symbols))
	for s := range f.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
