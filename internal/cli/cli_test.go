package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-expect"
	"github.com/goliatone/go-expect/message"
	"github.com/goliatone/go-expect/wait"
)

const orderLog = `{"$type":"Order","Id":"o1","Side":"SELL","Qty":5}

{"$type":"Heartbeat"}
{"$type":"Order","Id":"o2","Side":"BUY","Qty":12}
{"$type":"Order","Id":"o3","Side":"BUY","Qty":15}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "goexpect", cmd.Use)

	for _, name := range []string{"wait", "count", "eval"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "eval", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.False(t, IsReported(err))
}

func TestWaitMatches(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Side":"BUY","Qty":"expr:x >= 10"}`)

	stdout, _, err := execute(t, "wait", "--filter", filterPath, "--log", logPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "matched Order{")
	assert.Contains(t, stdout, `Id="o2"`)
}

func TestWaitWritesMetricsWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Side":"BUY","Qty":"expr:x >= 10"}`)
	configPath := writeFile(t, dir, "config.yaml", "metrics:\n  enabled: true\n  namespace: itest\n")

	stdout, stderr, err := execute(t, "--config", configPath, "wait", "--filter", filterPath, "--log", logPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Id="o2"`)
	assert.Contains(t, stderr, `itest_wait_outcomes_total{operation="wait",status="matched"} 1`)
	assert.Contains(t, stderr, "itest_wait_scan_duration_seconds")
	assert.Contains(t, stderr, "itest_expressions_cache_misses_total")

	_, stderr, err = execute(t, "wait", "--filter", filterPath, "--log", logPath)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "wait_outcomes_total", "metrics are off by default")
}

func TestVerboseLogsVerificationEvents(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Side":"BUY"}`)

	_, stderr, err := execute(t, "-v", "count", "--filter", filterPath, "--log", logPath, "--expect", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "verification event")
	assert.Contains(t, stderr, "verb=count.passed")
	assert.Contains(t, stderr, "actor_id=goexpect")
}

func TestWaitResumesFromBoltCheckpoint(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Side":"BUY","Id":"re:^o[0-9]+$"}`)
	configPath := writeFile(t, dir, "config.yaml", "checkpoints:\n  driver: bolt\n  path: "+filepath.Join(dir, "cp.db")+"\n")

	stdout, _, err := execute(t, "--config", configPath, "--format", "json", "wait", "--filter", filterPath, "--log", logPath)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	result := resp.Result.(map[string]any)
	assert.Contains(t, result["message"], `Id="o2"`)
	assert.Equal(t, float64(3), result["checkpoint"], "heartbeats are stored by default")

	stdout, _, err = execute(t, "--config", configPath, "wait", "--filter", filterPath, "--log", logPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Id="o3"`)
}

func TestWaitMismatch(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Side":"HOLD"}`)

	_, stderr, err := execute(t, "wait", "--filter", filterPath, "--log", logPath)
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.True(t, wait.IsMismatch(err))
	assert.Contains(t, stderr, wait.ReasonNoMatch)
}

func TestWaitBadFilter(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Qty":"expr:x >="}`)

	_, _, err := execute(t, "wait", "--filter", filterPath, "--log", logPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `filter field "Qty"`)
}

func TestWaitBadLogLine(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", "{\"$type\":\"Order\"}\nnot json\n")
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order"}`)

	_, _, err := execute(t, "wait", "--filter", filterPath, "--log", logPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders.jsonl:2")
}

func TestCount(t *testing.T) {
	dir := t.TempDir()
	logPath := writeFile(t, dir, "orders.jsonl", orderLog)
	filterPath := writeFile(t, dir, "filter.json", `{"$type":"Order","Side":"BUY"}`)

	stdout, _, err := execute(t, "count", "--filter", filterPath, "--log", logPath, "--expect", "[1..2]")
	require.NoError(t, err)
	assert.Equal(t, "matched: 2 message(s), expected [1..2]\n", stdout)

	_, stderr, err := execute(t, "count", "--filter", filterPath, "--log", logPath, "--expect", "3")
	require.Error(t, err)
	assert.True(t, wait.IsMismatch(err))
	assert.Contains(t, stderr, "expected 3, got 2")
}

func TestEval(t *testing.T) {
	stdout, _, err := execute(t, "eval", "qty * 2", "--var", "qty=21")
	require.NoError(t, err)
	assert.Equal(t, "literal 42\n", stdout)

	stdout, _, err = execute(t, "--format", "json", "eval", "PRESENT")
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	result := resp.Result.(map[string]any)
	assert.Equal(t, "present", result["kind"])
	assert.Equal(t, "expr", result["engine"])
}

func TestCompileFilter(t *testing.T) {
	engine := expect.NewEngine()
	filter := message.New("Order").
		With("Side", "BUY").
		With("Account", "eval:MISSING").
		With("Legs", []message.Message{message.New("Leg").With("Symbol", "re:^IB")})

	compiled, err := compileFilter(engine, filter)
	require.NoError(t, err)

	side, _ := compiled.Get("Side")
	assert.Equal(t, "BUY", side)

	account, _ := compiled.Get("Account")
	assert.IsType(t, &expect.NullFilter{}, account)

	legs, ok := message.Legs(compiled, "Legs")
	require.True(t, ok)
	symbol, _ := legs[0].Get("Symbol")
	re, ok := symbol.(*expect.RegexFilter)
	require.True(t, ok)
	assert.True(t, re.Validate("IBM").Passed())

	original, _ := filter.Get("Account")
	assert.Equal(t, "eval:MISSING", original, "source filter is left untouched")
}

func TestParseBindings(t *testing.T) {
	bindings, err := parseBindings(map[string]string{"n": "3", "ok": "true", "s": "abc"})
	require.NoError(t, err)
	assert.Equal(t, 3, bindings["n"])
	assert.Equal(t, true, bindings["ok"])
	assert.Equal(t, "abc", bindings["s"])
}
