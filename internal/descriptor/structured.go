package descriptor

import "strings"

// StructuredExtractor builds a Descriptor from a provider symbol tree.
type StructuredExtractor struct {
	opts Options
}

// NewStructuredExtractor creates a structured extractor.
func NewStructuredExtractor(opts Options) *StructuredExtractor {
	return &StructuredExtractor{opts: opts}
}

func (e *StructuredExtractor) Fidelity() Fidelity {
	return FidelityStructured
}

func (e *StructuredExtractor) Extract(in Input) Descriptor {
	d := Descriptor{
		PackageName:  packageFromPath(in.SourcePath, e.opts.SourceRoots),
		Dependencies: []Dependency{},
		Methods:      []Method{},
		Imports:      []string{},
	}

	sym := in.Symbols
	if sym == nil {
		sym = &Symbol{}
	}

	d.ClassName = strings.TrimSpace(sym.Name)
	if d.ClassName == "" {
		d.ClassName = classFromPath(in.SourcePath)
	}

	for _, child := range sym.Children {
		if child == nil {
			continue
		}
		switch {
		case child.Kind.IsCallable():
			d.Methods = append(d.Methods, methodFromSymbol(child))
		case child.Kind.IsConstructor():
			d.Dependencies = append(d.Dependencies, dependenciesFromDetail(child.Detail)...)
		}
	}

	return d
}

func methodFromSymbol(sym *Symbol) Method {
	params := []Parameter{}
	if inner, _, ok := parenthesized(sym.Detail); ok {
		params = parseParameters(inner, defaultParamName)
	}

	return Method{
		Name:       sym.Name,
		ReturnType: returnTypeFromDetail(sym.Detail),
		Parameters: params,
		IsPrivate:  strings.HasPrefix(sym.Name, "_") || strings.HasPrefix(strings.TrimSpace(sym.Detail), "private"),
	}
}

// dependenciesFromDetail parses a constructor detail such as
// "(private val repo: FooRepository)".
func dependenciesFromDetail(detail string) []Dependency {
	inner, _, ok := parenthesized(detail)
	if !ok {
		return nil
	}

	var deps []Dependency
	for _, p := range parseParameters(inner, defaultDependencyName) {
		name := stripModifiers(p.Name)
		if name == "" {
			name = defaultDependencyName
		}
		deps = append(deps, Dependency{Name: name, Type: p.Type})
	}
	return deps
}
