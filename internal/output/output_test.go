package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestStatusColor(t *testing.T) {
	withoutColor(t)
	for _, s := range []string{"Active", "Planning", "On Hold", "Archived"} {
		assert.Equal(t, s, StatusColor(s))
	}
	assert.Equal(t, "unknown", StatusColor("unknown"))
}

func TestHealthStatusColor(t *testing.T) {
	withoutColor(t)
	assert.Equal(t, "critical", HealthStatusColor("critical"))
	assert.Equal(t, "Stalemate", HealthStatusColor("Stalemate"))
}

func TestHealthColor(t *testing.T) {
	withoutColor(t)
	assert.Equal(t, "90", HealthColor(90))
	assert.Equal(t, "49", HealthColor(49))
	assert.Equal(t, "0", HealthColor(0))
}

func TestImpact(t *testing.T) {
	withoutColor(t)
	assert.Equal(t, "+15", Impact(15))
	assert.Equal(t, "-30", Impact(-30))
	assert.Equal(t, "0", Impact(0))
}

func TestTrendArrow(t *testing.T) {
	withoutColor(t)
	assert.Equal(t, "\u2191", TrendArrow("improving"))
	assert.Equal(t, "\u2193", TrendArrow("declining"))
	assert.Equal(t, "\u2192", TrendArrow("stable"))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Name", "Status"})
	require.NotNil(t, table)

	table.Append([]string{"apollo", "72"})
	table.Append([]string{"hermes", "18"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(strings.ToLower(result), "apollo"))
	assert.True(t, strings.Contains(strings.ToLower(result), "hermes"))
}
