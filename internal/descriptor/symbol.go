package descriptor

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Symbol is a node of the symbol tree produced by an external static-analysis
// provider. Every field is optional.
type Symbol struct {
	Name     string    `json:"name,omitempty"`
	Kind     Kind      `json:"kind,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Children []*Symbol `json:"children,omitempty"`
}

// Kind is a symbol kind. Providers send either an LSP SymbolKind number or a
// lowercase name, so both are accepted.
type Kind string

// LSP SymbolKind values the extractor cares about.
const (
	lspKindMethod      = 6
	lspKindConstructor = 9
	lspKindFunction    = 12
)

const (
	KindMethod      Kind = "method"
	KindFunction    Kind = "function"
	KindConstructor Kind = "constructor"
)

// UnmarshalJSON accepts a JSON string or number.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = Kind(strings.ToLower(strings.TrimSpace(s)))
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		// Unknown shapes are ignored; the extractor never fails on input.
		*k = ""
		return nil
	}

	switch n {
	case lspKindMethod:
		*k = KindMethod
	case lspKindFunction:
		*k = KindFunction
	case lspKindConstructor:
		*k = KindConstructor
	default:
		*k = Kind(strconv.Itoa(n))
	}
	return nil
}

// IsCallable reports whether the kind denotes a method or function.
func (k Kind) IsCallable() bool {
	return k == KindMethod || k == KindFunction
}

// IsConstructor reports whether the kind denotes a constructor.
func (k Kind) IsConstructor() bool {
	return k == KindConstructor
}

// ParseSymbol decodes provider JSON into a Symbol. A nil or empty payload
// yields nil so callers fall back to regex extraction.
func ParseSymbol(raw json.RawMessage) (*Symbol, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var sym Symbol
	if err := json.Unmarshal(raw, &sym); err != nil {
		return nil, err
	}
	return &sym, nil
}
