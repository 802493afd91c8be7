package toolchain

import (
	"path"
	"regexp"
	"strings"
)

var modulePattern = regexp.MustCompile(`^([\w-]+)/`)

// ModuleOf returns the build module owning a project-relative path: its first
// path segment, or fallback when the path has none.
func ModuleOf(relPath, fallback string) string {
	if m := modulePattern.FindStringSubmatch(toSlash(relPath)); m != nil {
		return m[1]
	}
	return fallback
}

// TestClassOf returns the test class name for a test file: its base name
// without extension.
func TestClassOf(relPath string) string {
	base := path.Base(toSlash(relPath))
	return strings.TrimSuffix(base, path.Ext(base))
}

// InferTestPath mirrors a service path into the test source tree:
// the first /main/ becomes /test/ and "Test" is inserted before the extension.
func InferTestPath(servicePath string) string {
	p := strings.Replace(toSlash(servicePath), "/main/", "/test/", 1)
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + "Test" + ext
}

// CoverageReportPath joins the module with the tool's report location.
func CoverageReportPath(module, reportPath string) string {
	return path.Join(module, reportPath)
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
