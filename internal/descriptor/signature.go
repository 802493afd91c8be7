package descriptor

import (
	"strings"
)

const (
	defaultParamName      = "param"
	defaultDependencyName = "dependency"
	defaultParamType      = "Any"
	defaultReturnType     = "Unit"
)

// leadingModifiers are stripped from constructor parameter names.
var leadingModifiers = map[string]bool{
	"val":       true,
	"var":       true,
	"private":   true,
	"protected": true,
	"internal":  true,
	"public":    true,
	"override":  true,
}

// parenthesized returns the contents of the first balanced (...) group in s.
func parenthesized(s string) (inner string, rest string, ok bool) {
	start := strings.IndexByte(s, '(')
	if start < 0 {
		return "", s, false
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[start+1 : i], s[i+1:], true
			}
		}
	}
	return "", s, false
}

// splitTopLevel splits s on sep, ignoring separators nested inside <>, (),
// [] or {}.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

// parseParameters parses "a: A, b: Map<K, V> = x" into name/type pairs.
func parseParameters(list, fallbackName string) []Parameter {
	if strings.TrimSpace(list) == "" {
		return []Parameter{}
	}

	var params []Parameter
	for _, raw := range splitTopLevel(list, ',') {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		name, typ, _ := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		typ = strings.TrimSpace(stripDefault(typ))

		if name == "" {
			name = fallbackName
		}
		if typ == "" {
			typ = defaultParamType
		}
		params = append(params, Parameter{Name: name, Type: typ})
	}
	if params == nil {
		return []Parameter{}
	}
	return params
}

// stripDefault drops a top-level "= default" suffix from a parameter type.
func stripDefault(typ string) string {
	parts := splitTopLevel(typ, '=')
	return parts[0]
}

// stripModifiers removes leading val/var and visibility keywords from a
// constructor parameter name.
func stripModifiers(name string) string {
	fields := strings.Fields(name)
	for len(fields) > 1 && leadingModifiers[fields[0]] {
		fields = fields[1:]
	}
	if len(fields) == 1 && leadingModifiers[fields[0]] {
		return ""
	}
	return strings.Join(fields, " ")
}

// returnTypeFromDetail derives a return type from a detail signature such as
// "(id: String): FooDto". A detail without a parameter list is taken as the
// type itself.
func returnTypeFromDetail(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return defaultReturnType
	}

	_, rest, ok := parenthesized(detail)
	if !ok {
		return detail
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return defaultReturnType
	}
	if typ := strings.TrimSpace(strings.TrimPrefix(rest, ":")); typ != "" {
		return typ
	}
	return defaultReturnType
}
