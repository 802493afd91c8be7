package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/testloop/internal/descriptor"
)

// declaredCases returns the names of every `fun \`name\`()` in text.
func declaredCases(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "fun `") {
			continue
		}
		name, _, ok := strings.Cut(strings.TrimPrefix(line, "fun `"), "`")
		if ok {
			names = append(names, name)
		}
	}
	return names
}

func fooDescriptor() descriptor.Descriptor {
	return descriptor.Descriptor{
		PackageName:  "com.x.domainA",
		ClassName:    "FooServiceImpl",
		Dependencies: []descriptor.Dependency{{Name: "repo", Type: "FooRepository"}},
		Methods: []descriptor.Method{
			{Name: "get", ReturnType: "FooDto"},
		},
	}
}

func TestSynthesize_EndToEndService(t *testing.T) {
	doc := MustNew(FlavorUnit).Synthesize(fooDescriptor())

	assert.True(t, strings.HasPrefix(doc.Text, "package com.x.domainA\n"))
	assert.Contains(t, doc.Text, "class FooServiceImplTest {")
	assert.Equal(t, 1, strings.Count(doc.Text, "= mockk()"))
	assert.Contains(t, doc.Text, "    private val repo: FooRepository = mockk()\n")
	assert.Contains(t, doc.Text, "private val fooServiceImpl: FooServiceImpl = spyk(")
	assert.Equal(t, []string{"get_success", "get_error"}, doc.Cases)
	assert.Equal(t, doc.Cases, declaredCases(doc.Text))
	assert.Contains(t, doc.Text, "val result = fooServiceImpl.get()")
	assert.Contains(t, doc.Text, "assertThrows<Exception>")
	assert.Contains(t, doc.Text, "// TODO: stub collaborator behavior")
	assert.Contains(t, doc.Text, "// TODO: set up the error scenario")
}

func TestSynthesize_EmptyDescriptor(t *testing.T) {
	for _, flavor := range []Flavor{FlavorUnit, FlavorIntegration} {
		t.Run(string(flavor), func(t *testing.T) {
			var doc Document
			require.NotPanics(t, func() {
				doc = MustNew(flavor).Synthesize(descriptor.Descriptor{})
			})

			assert.Zero(t, doc.CaseCount())
			assert.Empty(t, declaredCases(doc.Text))
			assert.NotContains(t, doc.Text, "mockk()\n")
			assert.Contains(t, doc.Text, "class Test {")
			assert.True(t, strings.HasSuffix(doc.Text, "    }\n}\n"))
		})
	}
}

func TestSynthesize_CaseCountIsTwicePublicMethods(t *testing.T) {
	tests := []struct {
		name    string
		methods []descriptor.Method
		want    int
	}{
		{"none", nil, 0},
		{"one public", []descriptor.Method{{Name: "a"}}, 2},
		{"only private", []descriptor.Method{{Name: "a", IsPrivate: true}}, 0},
		{"mixed", []descriptor.Method{{Name: "a"}, {Name: "b", IsPrivate: true}, {Name: "c"}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fooDescriptor()
			d.Methods = tt.methods
			doc := MustNew(FlavorUnit).Synthesize(d)

			assert.Equal(t, tt.want, doc.CaseCount())
			assert.Equal(t, tt.want, CasesPerMethod*len(d.PublicMethods()))
			assert.Len(t, declaredCases(doc.Text), tt.want)
		})
	}
}

func TestSynthesize_PrivateMethodsSkipped(t *testing.T) {
	d := fooDescriptor()
	d.Methods = append(d.Methods, descriptor.Method{Name: "hidden", IsPrivate: true})

	doc := MustNew(FlavorUnit).Synthesize(d)

	assert.NotContains(t, doc.Text, "hidden")
}

func TestSynthesize_Idempotent(t *testing.T) {
	s := MustNew(FlavorIntegration)
	first := s.Synthesize(fooDescriptor())
	second := s.Synthesize(fooDescriptor())

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Cases, second.Cases)
}

func TestSynthesize_GeneratedContentIsNotReinterpreted(t *testing.T) {
	d := fooDescriptor()
	d.ClassName = "{{.Package}}"

	doc := MustNew(FlavorUnit).Synthesize(d)

	assert.Contains(t, doc.Text, "class {{.Package}}Test {")
}

func TestIntegrationFlavor(t *testing.T) {
	doc := MustNew(FlavorIntegration).Synthesize(fooDescriptor())

	assert.Contains(t, doc.Text, "@SpringBootTest")
	assert.Contains(t, doc.Text, `@Tag("integration")`)
	assert.Equal(t, []string{"get_success", "get_error"}, declaredCases(doc.Text))
}

func TestNew_UnknownFlavor(t *testing.T) {
	_, err := New("e2e")
	assert.Error(t, err)

	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, FlavorUnit, s.Flavor())
}
