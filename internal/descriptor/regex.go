package descriptor

import (
	"regexp"
	"strings"
)

var (
	packagePattern     = regexp.MustCompile(`package\s+([\w.]+)`)
	classPattern       = regexp.MustCompile(`class\s+(\w+)`)
	importPattern      = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	constructorPattern = regexp.MustCompile(`class\s+\w+\s*\(([\s\S]*?)\)\s*:`)
	dependencyPattern  = regexp.MustCompile(`(?:val|var)\s+(\w+)\s*:\s*([\w<>?., ]+)`)
	methodPattern      = regexp.MustCompile(`(?:override\s+)?fun\s+(\w+)\s*\(([\s\S]*?)\)\s*:\s*([\w<>?]+)`)
)

// RegexExtractor reads a Descriptor out of raw source text. It cannot see
// visibility, so every method it finds is reported as public.
type RegexExtractor struct{}

func (e *RegexExtractor) Fidelity() Fidelity {
	return FidelityRegex
}

func (e *RegexExtractor) Extract(in Input) Descriptor {
	code := in.Source
	d := Descriptor{
		PackageName:  firstGroup(packagePattern, code),
		ClassName:    firstGroup(classPattern, code),
		Dependencies: []Dependency{},
		Methods:      []Method{},
		Imports:      []string{},
	}

	for _, m := range importPattern.FindAllStringSubmatch(code, -1) {
		d.Imports = append(d.Imports, m[1])
	}

	if m := constructorPattern.FindStringSubmatch(code); m != nil {
		for _, param := range splitTopLevel(m[1], ',') {
			dm := dependencyPattern.FindStringSubmatch(strings.TrimSpace(param))
			if dm == nil {
				continue
			}
			d.Dependencies = append(d.Dependencies, Dependency{
				Name: dm[1],
				Type: strings.TrimSpace(stripDefault(dm[2])),
			})
		}
	}

	for _, m := range methodPattern.FindAllStringSubmatch(code, -1) {
		d.Methods = append(d.Methods, Method{
			Name:       m[1],
			ReturnType: m[3],
			Parameters: parseParameters(m[2], defaultParamName),
			IsPrivate:  false,
		})
	}

	return d
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
