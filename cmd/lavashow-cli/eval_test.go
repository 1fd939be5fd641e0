package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)
	return eng
}

func TestParseFixture(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
		want    int
	}{
		{
			name: "valid",
			data: `cases:
  - message: Safety and evacuation
    query_type: safety
    expect_types: [emergency_procedures]
  - message: xyzzy
    query_type: general
`,
			want: 2,
		},
		{name: "empty", data: "cases: []\n", wantErr: "no cases"},
		{name: "missing message", data: "cases:\n  - query_type: safety\n", wantErr: "message is required"},
		{name: "missing type", data: "cases:\n  - message: hi\n", wantErr: "query_type is required"},
		{name: "bad yaml", data: "cases: [", wantErr: "parse fixture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFixture([]byte(tt.data))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, f.Cases, tt.want)
		})
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cases:\n  - message: xyzzy\n    query_type: general\n"), 0o600))

	f, err := loadFixture(path)
	require.NoError(t, err)
	assert.Equal(t, "xyzzy", f.Cases[0].Message)

	_, err = loadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCaseTypes(t *testing.T) {
	names, totals := caseTypes([]EvalCase{
		{Message: "a", QueryType: "safety"},
		{Message: "b", QueryType: "general"},
		{Message: "c", QueryType: "safety"},
	})

	assert.Equal(t, []string{"general", "safety"}, names)
	assert.Equal(t, map[string]int{"general": 1, "safety": 2}, totals)
}

func TestEvaluate(t *testing.T) {
	eng := newTestEngine(t)
	cases := []EvalCase{
		{Message: "Safety and evacuation", QueryType: "safety", ExpectTypes: []string{"emergency_procedures", "safety_protocols"}},
		{Message: "What is the price for 2 adults and 1 child?", QueryType: "pricing"},
		{Message: "xyzzy", QueryType: "general"},
		{Message: "xyzzy", QueryType: "pricing"},
		{Message: "Safety and evacuation", QueryType: "safety", ExpectTypes: []string{"gift_shop"}},
	}

	var seen int
	report := evaluate(eng, cases, func(EvalCase) { seen++ })

	assert.Equal(t, len(cases), seen)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 3, report.Correct)
	assert.InDelta(t, 0.6, report.Accuracy, 1e-9)

	require.Contains(t, report.ByType, "safety")
	assert.Equal(t, 2, report.ByType["safety"].Total)
	assert.Equal(t, 1, report.ByType["safety"].Correct)
	assert.InDelta(t, 0.5, report.ByType["safety"].Rate, 1e-9)
	assert.Equal(t, 1, report.ByType["general"].Correct)
	assert.Equal(t, 2, report.ByType["pricing"].Total)
	assert.Equal(t, 1, report.ByType["pricing"].Correct)

	require.Len(t, report.Failures, 2)
	assert.Equal(t, "general", report.Failures[0].GotType)
	assert.Empty(t, report.Failures[0].GotMatches)
	assert.Equal(t, []string{"gift_shop"}, report.Failures[1].Missing)
}

func TestMissingTypes(t *testing.T) {
	assert.Nil(t, missingTypes(nil, []string{"faq"}))
	assert.Nil(t, missingTypes([]string{"faq"}, []string{"location", "faq"}))
	assert.Equal(t, []string{"pricing"}, missingTypes([]string{"faq", "pricing"}, []string{"faq"}))
}

func TestFAQCoverage(t *testing.T) {
	eng := newTestEngine(t)
	doc := knowledge.MustDefault()
	entries := doc.FAQ()
	require.NotEmpty(t, entries)

	calls := 0
	cov := faqCoverage(eng, entries, func() { calls++ })

	assert.Equal(t, len(entries), cov.Total)
	assert.Equal(t, len(entries), calls)
	assert.Equal(t, cov.Total, cov.Covered+len(cov.Missed))
}

func TestFAQCoverage_Unmatched(t *testing.T) {
	eng := newTestEngine(t)

	cov := faqCoverage(eng, []knowledge.FAQEntry{{Source: "faq", Question: "xyzzy"}}, nil)

	assert.Equal(t, 0, cov.Covered)
	require.Len(t, cov.Missed, 1)
	assert.Equal(t, "xyzzy", cov.Missed[0].Question)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", preview("a\n  b"))
	long := ""
	for i := 0; i < previewLength+10; i++ {
		long += "x"
	}
	got := preview(long)
	assert.Len(t, []rune(got), previewLength+3)
	assert.Contains(t, got, "...")
}
