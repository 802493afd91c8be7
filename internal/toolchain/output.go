package toolchain

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	passedPattern = regexp.MustCompile(`(?i)(\d+) passed`)
	failedPattern = regexp.MustCompile(`(?i)(\d+) failed`)
)

// Counts are the pass/fail totals reported by a test run.
type Counts struct {
	Passed int `json:"passed_tests"`
	Failed int `json:"failed_tests"`
}

// ParseCounts reads "<n> passed" and "<n> failed" from test output. Missing
// counts are zero.
func ParseCounts(output string) Counts {
	return Counts{
		Passed: firstInt(passedPattern, output),
		Failed: firstInt(failedPattern, output),
	}
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// HasCompileError reports whether compiler diagnostics contain an error
// marker: "error:" anywhere, or a Kotlin "e: " diagnostic line.
func HasCompileError(diagnostics string) bool {
	if strings.Contains(diagnostics, "error:") {
		return true
	}
	for _, line := range strings.Split(diagnostics, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "e: ") {
			return true
		}
	}
	return false
}
