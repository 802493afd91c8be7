package descriptor

import (
	"path"
	"strings"
)

// Input is everything an extractor may look at. Symbols is nil when no
// static-analysis result was supplied.
type Input struct {
	SourcePath string
	Source     string
	Symbols    *Symbol
}

// Extractor turns an Input into a Descriptor. Implementations never fail:
// anything they cannot find falls back to a default value.
type Extractor interface {
	Extract(in Input) Descriptor
	Fidelity() Fidelity
}

// Options tunes path-derived fallbacks shared by both variants.
type Options struct {
	// SourceRoots are directory names after which the package path starts,
	// e.g. "kotlin" in src/main/kotlin/com/x/Foo.kt.
	SourceRoots []string
}

// DefaultOptions returns the source roots used by Kotlin and Java projects.
func DefaultOptions() Options {
	return Options{SourceRoots: []string{"kotlin", "java"}}
}

// Select picks the structured extractor when symbol data is present and the
// regex fallback otherwise.
func Select(in Input, opts Options) Extractor {
	if in.Symbols != nil {
		return &StructuredExtractor{opts: opts}
	}
	return &RegexExtractor{}
}

// Extract is a convenience for Select(in, opts).Extract(in).
func Extract(in Input, opts Options) (Descriptor, Fidelity) {
	ex := Select(in, opts)
	return ex.Extract(in), ex.Fidelity()
}

// packageFromPath derives a dotted package from the directories following the
// first source root segment.
func packageFromPath(sourcePath string, roots []string) string {
	dir := path.Dir(strings.ReplaceAll(sourcePath, "\\", "/"))
	segments := strings.Split(dir, "/")

	for i, seg := range segments {
		for _, root := range roots {
			if seg == root && i+1 < len(segments) {
				return strings.Join(segments[i+1:], ".")
			}
		}
	}
	return ""
}

// classFromPath guesses the class name from the file name.
func classFromPath(sourcePath string) string {
	base := path.Base(strings.ReplaceAll(sourcePath, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
