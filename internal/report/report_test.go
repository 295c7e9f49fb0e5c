package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/procharness/internal/harness"
)

// assertGolden compares got against testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/report -update
func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

type recorded struct {
	name    string
	outcome harness.Outcome
	d       time.Duration
}

func buildReport(t *testing.T, planned []string, entries ...recorded) *harness.Report {
	t.Helper()
	b := harness.Begin(planned...)
	for _, e := range entries {
		require.NoError(t, b.Record(e.name, e.outcome, e.d))
	}
	return b.Finish()
}

func mixedReport(t *testing.T) *harness.Report {
	return buildReport(t, []string{"noop", "an_actual_test", "explodes"},
		recorded{"noop", harness.Pass(), 0},
		recorded{"an_actual_test", harness.Fail("expected false, got true"), 0},
		recorded{"explodes", harness.Terminated("boom"), 0},
	)
}

func abortedReport(t *testing.T) *harness.Report {
	return buildReport(t, []string{"A", "B", "C"},
		recorded{"A", harness.Pass(), time.Millisecond},
		recorded{"B", harness.Aborted("abort()"), 0},
	)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"table", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "text, json, or yaml")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColorMode(t *testing.T) {
	m, err := ParseColorMode("")
	require.NoError(t, err)
	assert.Equal(t, ColorAuto, m)

	m, err = ParseColorMode("Always")
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, m)

	_, err = ParseColorMode("sometimes")
	assert.Error(t, err)
}

func TestExitStatus(t *testing.T) {
	passing := buildReport(t, []string{"A"}, recorded{"A", harness.Pass(), 0})
	assert.Equal(t, 0, ExitStatus(passing))

	empty := harness.Begin().Finish()
	assert.Equal(t, 0, ExitStatus(empty))

	assert.Equal(t, 1, ExitStatus(mixedReport(t)))
	assert.Equal(t, 1, ExitStatus(abortedReport(t)))
}

func TestRender_FailureMessageSurfaced(t *testing.T) {
	r := buildReport(t, []string{"A", "B"},
		recorded{"A", harness.Pass(), 0},
		recorded{"B", harness.Fail("x≠y"), 0},
	)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))

	assert.Equal(t, 1, ExitStatus(r))
	assert.Contains(t, buf.String(), "x≠y")
	assert.Contains(t, buf.String(), "✗ B (failed)")
}

func TestRender_Golden(t *testing.T) {
	tests := []struct {
		name   string
		report func(t *testing.T) *harness.Report
	}{
		{"text_mixed", mixedReport},
		{"text_aborted", abortedReport},
		{"text_blank_line", func(t *testing.T) *harness.Report {
			return buildReport(t, []string{"A"},
				recorded{"A", harness.Terminated("first paragraph\n\nsecond paragraph\n"), 0},
			)
		}},
		{"text_all_passed", func(t *testing.T) *harness.Report {
			return buildReport(t, []string{"A", "B"},
				recorded{"A", harness.Pass(), 0},
				recorded{"B", harness.Pass(), 0},
			)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, tt.report(t)))
			assertGolden(t, tt.name, buf.Bytes())
		})
	}
}

func TestRender_MultilineMessageIndented(t *testing.T) {
	r := buildReport(t, []string{"A"}, recorded{"A", harness.Terminated("line one\nline two"), 0})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	assert.Contains(t, buf.String(), "  line one\n  line two\n")
}

func TestRender_BlankMessageLinesKept(t *testing.T) {
	r := buildReport(t, []string{"A"}, recorded{"A", harness.Fail("got:\n\n  x\n"), 0})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	assert.Contains(t, buf.String(), "  got:\n  \n    x\n\nTest Summary")
}

func TestRender_Cancelled(t *testing.T) {
	b := harness.Begin("A", "B")
	require.NoError(t, b.Record("A", harness.Pass(), 0))
	b.Truncate(harness.ReasonCancelled)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, b.Finish()))
	assert.Contains(t, buf.String(), "Run cancelled; remaining cases were not run")
}

func TestRenderJSON_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, abortedReport(t)))
	assertGolden(t, "json_aborted", buf.Bytes())
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderYAML(&buf, abortedReport(t)))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "aborted", doc["status"])
	assert.Equal(t, 1, doc["exit_status"])
	assert.Contains(t, buf.String(), "kind: aborted")
	assert.Contains(t, buf.String(), "duration: 1ms")
}

func TestRenderer_SelectsFormat(t *testing.T) {
	r := mixedReport(t)

	var text, js bytes.Buffer
	require.NoError(t, NewRenderer(FormatText, ColorAuto, &text).Render(r))
	require.NoError(t, NewRenderer(FormatJSON, ColorAuto, &js).Render(r))

	// A bytes.Buffer is not a terminal, so auto falls back to plain text.
	assert.NotContains(t, text.String(), "\x1b[")
	assert.True(t, strings.HasPrefix(js.String(), "{"))
	assert.Contains(t, js.String(), `"status": "failed"`)
}

func TestRenderer_ColorAlwaysStyles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(FormatText, ColorAlways, &buf).Render(mixedReport(t)))

	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "an_actual_test")
	assert.Contains(t, buf.String(), "expected false, got true")
}

func TestRenderer_UnknownFormat(t *testing.T) {
	err := NewRenderer(Format("xml"), ColorNever, &bytes.Buffer{}).Render(mixedReport(t))
	assert.Error(t, err)
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
