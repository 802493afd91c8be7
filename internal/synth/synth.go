// Package synth renders a service Descriptor into a Kotlin test scaffold.
package synth

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/vampirenirmal/testloop/internal/descriptor"
)

//go:embed templates/*.kt.tmpl
var templates embed.FS

// Flavor selects the scaffold a test is rendered into.
type Flavor string

const (
	FlavorUnit        Flavor = "unit"
	FlavorIntegration Flavor = "integration"
)

// CasesPerMethod is the number of test cases emitted for every public method.
const CasesPerMethod = 2

// Document is a rendered test source file.
type Document struct {
	Text  string
	Cases []string
}

// CaseCount returns the number of generated test cases.
func (d Document) CaseCount() int {
	return len(d.Cases)
}

// Synthesizer renders descriptors. It is safe for concurrent use once built.
type Synthesizer struct {
	flavor Flavor
	tmpl   *template.Template
}

type scaffoldData struct {
	Package      string
	Service      string
	ServiceVar   string
	Dependencies []descriptor.Dependency
	Methods      []caseData
}

type caseData struct {
	Name        string
	ServiceVar  string
	SuccessCase string
	ErrorCase   string
}

// New parses the scaffold for the given flavor.
func New(flavor Flavor) (*Synthesizer, error) {
	var file string
	switch flavor {
	case FlavorUnit, "":
		flavor = FlavorUnit
		file = "templates/unit.kt.tmpl"
	case FlavorIntegration:
		file = "templates/integration.kt.tmpl"
	default:
		return nil, fmt.Errorf("unknown test flavor %q", flavor)
	}

	tmpl, err := template.New(string(flavor)).ParseFS(templates, file, "templates/cases.kt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing %s scaffold: %w", flavor, err)
	}

	return &Synthesizer{flavor: flavor, tmpl: tmpl}, nil
}

// MustNew is New for the built-in flavors, which always parse.
func MustNew(flavor Flavor) *Synthesizer {
	s, err := New(flavor)
	if err != nil {
		panic(err)
	}
	return s
}

// Flavor returns the scaffold flavor.
func (s *Synthesizer) Flavor() Flavor {
	return s.flavor
}

// Synthesize renders d. Private methods are skipped; every public method gets
// a <name>_success and a <name>_error case. Degenerate descriptors still
// render, with empty identifiers.
func (s *Synthesizer) Synthesize(d descriptor.Descriptor) Document {
	data := scaffoldData{
		Package:      d.PackageName,
		Service:      d.ClassName,
		ServiceVar:   serviceVar(d.ClassName),
		Dependencies: d.Dependencies,
	}

	var cases []string
	for _, m := range d.PublicMethods() {
		c := caseData{
			Name:        m.Name,
			ServiceVar:  data.ServiceVar,
			SuccessCase: m.Name + "_success",
			ErrorCase:   m.Name + "_error",
		}
		data.Methods = append(data.Methods, c)
		cases = append(cases, c.SuccessCase, c.ErrorCase)
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "scaffold", data); err != nil {
		// The scaffold only references fields of scaffoldData, so execution
		// cannot fail for any descriptor.
		panic(fmt.Sprintf("rendering %s scaffold: %v", s.flavor, err))
	}

	return Document{Text: buf.String(), Cases: cases}
}

// serviceVar lower-cases the first rune: FooServiceImpl -> fooServiceImpl.
func serviceVar(className string) string {
	if className == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(className)
	return string(unicode.ToLower(r)) + className[size:]
}
