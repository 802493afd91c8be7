// Package remedy holds the deterministic text rewrites applied to a generated
// test when the toolchain rejects it. The rule set is closed: a failure that
// matches no rule is not fixable and ends the retry loop.
package remedy

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Rule rewrites a test document when a failure message contains Signature.
type Rule struct {
	Name      string
	Signature string
	Rewrite   func(text string) string
}

// Fix is the outcome of a remediation attempt.
type Fix struct {
	Text  string   `json:"-"`
	Fixed bool     `json:"fixed"`
	Rules []string `json:"rules,omitempty"`
	Patch string   `json:"patch,omitempty"`
}

// Policy is an ordered rule set.
type Policy struct {
	rules []Rule
}

// NewPolicy creates a policy from rules, evaluated in order.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// CompilePolicy returns the rules for compile failures.
func CompilePolicy() *Policy {
	return NewPolicy(
		Rule{
			Name:      "unit-to-long",
			Signature: "Unit but Long",
			Rewrite: func(text string) string {
				return strings.ReplaceAll(text, "returns Unit", "returns 1L")
			},
		},
		Rule{
			Name:      "string-to-boolean",
			Signature: "String but Boolean",
			Rewrite: func(text string) string {
				return strings.NewReplacer(`"Y"`, "true", `"N"`, "false").Replace(text)
			},
		},
	)
}

// ExecutePolicy returns the rules for test execution failures. No
// deterministic fix is known for a failing test, so the set is empty.
func ExecutePolicy() *Policy {
	return NewPolicy()
}

// Rules returns the rule names in evaluation order.
func (p *Policy) Rules() []string {
	names := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		names = append(names, r.Name)
	}
	return names
}

// AttemptFix applies every rule whose signature appears in failure. When no
// rule matches the text is returned unchanged with Fixed=false.
func (p *Policy) AttemptFix(text, failure string) Fix {
	fix := Fix{Text: text}
	for _, r := range p.rules {
		if !strings.Contains(failure, r.Signature) {
			continue
		}
		fix.Text = r.Rewrite(fix.Text)
		fix.Fixed = true
		fix.Rules = append(fix.Rules, r.Name)
	}

	if fix.Fixed && fix.Text != text {
		fix.Patch = patch(text, fix.Text)
	}
	return fix
}

func patch(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}
