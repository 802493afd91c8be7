// Package descriptor normalizes a service class into a Descriptor, either from
// structured symbol data supplied by a static-analysis provider or, as a
// lower-fidelity fallback, from the raw source text.
package descriptor

// Descriptor is the canonical shape of a service under test.
type Descriptor struct {
	PackageName  string       `json:"packageName"`
	ClassName    string       `json:"className"`
	Dependencies []Dependency `json:"dependencies"`
	Methods      []Method     `json:"methods"`
	Imports      []string     `json:"imports"`
}

// Dependency is a constructor-injected collaborator.
type Dependency struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method is a method signature on the service.
type Method struct {
	Name       string      `json:"name"`
	ReturnType string      `json:"returnType"`
	Parameters []Parameter `json:"parameters"`
	IsPrivate  bool        `json:"isPrivate"`
}

// Parameter is a single method parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PublicMethods returns the methods that are not private, in declaration order.
func (d Descriptor) PublicMethods() []Method {
	public := make([]Method, 0, len(d.Methods))
	for _, m := range d.Methods {
		if !m.IsPrivate {
			public = append(public, m)
		}
	}
	return public
}

// TopImports returns at most n imports, preserving file order.
func (d Descriptor) TopImports(n int) []string {
	if len(d.Imports) <= n {
		return d.Imports
	}
	return d.Imports[:n]
}

// Fidelity records which extraction variant produced a Descriptor.
type Fidelity string

const (
	FidelityStructured Fidelity = "structured"
	FidelityRegex      Fidelity = "regex"
)

// Degraded reports whether the descriptor came from the regex fallback.
func (f Fidelity) Degraded() bool {
	return f == FidelityRegex
}
