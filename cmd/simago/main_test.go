package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"data/sex.csv":            "option,value,label,conditional_index\n0,3805370719,male,0\n1,3742018211,female,0\n",
		"data/age.csv":            "option,value,label,conditional_index\n0,20,young,0\n1,80,adult,0\n0,25,young,1\n1,75,adult,1\n",
		"data/age_conditions.csv": "conditional_index,property_name,option,relation\n0,sex,0,eq\n1,sex,1,eq\n",
		"yaml/age.yml":            "property_name: age\ndata_type: ordinal\ndata_file: ../data/age.csv\nconditions: ../data/age_conditions.csv\n",
		"yaml/sex.yml":            "property_name: sex\ndata_type: categorical\ndata_file: ../data/sex.csv\nconditions: null\n",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return filepath.Join(dir, "yaml")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestGenerateWritesCSV(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SIMAGO_SINKS", "")
	t.Setenv("SIMAGO_BLOB_DRIVER", "fs")
	t.Setenv("SIMAGO_BLOB_FS_ROOT", root)
	metricsFile := filepath.Join(t.TempDir(), "simago.prom")
	traceFile := filepath.Join(t.TempDir(), "trace.jsonl")

	code, stdout, stderr := runCLI(t, "generate", "-p", "12", "--rand-seed", "100",
		"--yaml-folder", writeFixture(t), "-o", "out/pop.csv",
		"--metrics-file", metricsFile, "--trace-file", traceFile)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Generated population (12 individuals):")
	assert.Contains(t, stdout, "Population is written to")
	assert.Contains(t, stderr, "population generated")

	f, err := os.Open(filepath.Join(root, "out", "pop.csv"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 13)
	assert.Equal(t, []string{"person_id", "sex", "age"}, records[0])
	for _, r := range records[1:] {
		assert.Contains(t, []string{"male", "female"}, r[1])
		assert.Contains(t, []string{"young", "adult"}, r[2])
	}

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `simago_operations_total{operation="export",status="success"} 1`)
	trace, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(trace), "\n"))
}

func TestGenerateWritesAbsoluteOutput(t *testing.T) {
	t.Setenv("SIMAGO_SINKS", "csv")
	t.Setenv("SIMAGO_BLOB_DRIVER", "fs")
	t.Setenv("SIMAGO_BLOB_FS_ROOT", t.TempDir())
	out := filepath.Join(t.TempDir(), "exports", "pop.csv")

	code, stdout, stderr := runCLI(t, "generate", "-p", "10", "--rand-seed", "3",
		"--yaml-folder", writeFixture(t), "-o", out)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Population is written to")

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 11, strings.Count(string(body), "\n"))
	assert.FileExists(t, out+".meta")
}

func TestGenerateHelpMentionsSidecar(t *testing.T) {
	code, stdout, _ := runCLI(t, "generate", "--help")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, ".meta JSON sidecar")
	assert.Contains(t, stdout, "--tracer")
	assert.Contains(t, stdout, "--metrics")
}

func TestGenerateOTelTraceAndExpvarMetrics(t *testing.T) {
	t.Setenv("SIMAGO_BLOB_DRIVER", "fs")
	t.Setenv("SIMAGO_BLOB_FS_ROOT", t.TempDir())
	dir := t.TempDir()
	traceFile := filepath.Join(dir, "spans.json")
	metricsFile := filepath.Join(dir, "metrics.json")

	code, _, stderr := runCLI(t, "generate", "-p", "5", "--rand-seed", "1",
		"--yaml-folder", writeFixture(t), "--sinks", "csv", "-o", "pop.csv",
		"--tracer", "otel", "--trace-file", traceFile,
		"--metrics", "expvar", "--metrics-file", metricsFile)
	require.Equal(t, 0, code, stderr)

	spans, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(spans), `"population.update"`)
	assert.Contains(t, string(spans), `"population.export"`)

	raw, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	var snap struct {
		Operations map[string]struct {
			Success int64 `json:"success"`
		} `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, int64(1), snap.Operations["update"].Success)
	assert.Equal(t, int64(1), snap.Operations["export"].Success)
}

func TestGenerateIsReproducible(t *testing.T) {
	folder := writeFixture(t)
	args := []string{"generate", "-p", "30", "--rand-seed", "7", "--yaml-folder", folder, "--nowrite", "--log-level", "error"}
	code, first, _ := runCLI(t, args...)
	require.Equal(t, 0, code)
	code, second, _ := runCLI(t, args...)
	require.Equal(t, 0, code)
	assert.Equal(t, first, second)
	assert.NotContains(t, first, "written")
}

func TestGenerateMemorySinkAndNoWrite(t *testing.T) {
	folder := writeFixture(t)
	code, stdout, stderr := runCLI(t, "generate", "-p", "3", "--yaml-folder", folder, "--sinks", "memory")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "memory://out")

	code, stdout, _ = runCLI(t, "generate", "-p", "3", "--yaml-folder", folder, "--nowrite", "--sinks", "bogus")
	require.Equal(t, 0, code)
	assert.NotContains(t, stdout, "written")
}

func TestGenerateErrors(t *testing.T) {
	folder := writeFixture(t)
	cases := map[string]struct {
		args []string
		want string
	}{
		"missing popsize": {args: []string{"generate", "--yaml-folder", folder}, want: "popsize"},
		"zero popsize":    {args: []string{"generate", "-p", "0", "--yaml-folder", folder, "--nowrite"}, want: "size"},
		"missing folder":  {args: []string{"generate", "-p", "3", "--yaml-folder", filepath.Join(folder, "nope"), "--nowrite"}, want: "nope"},
		"bad log level":   {args: []string{"generate", "-p", "3", "--yaml-folder", folder, "--log-level", "loud"}, want: "log level"},
		"unknown sink":    {args: []string{"generate", "-p", "3", "--yaml-folder", folder, "--sinks", "parquet"}, want: "parquet"},
		"extra args":      {args: []string{"generate", "-p", "3", "surplus"}, want: "surplus"},
		"unknown tracer":  {args: []string{"generate", "-p", "3", "--yaml-folder", folder, "--nowrite", "--tracer", "zipkin"}, want: "zipkin"},
		"unknown metrics": {args: []string{"generate", "-p", "3", "--yaml-folder", folder, "--nowrite", "--metrics", "statsd"}, want: "statsd"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tc.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tc.want)
		})
	}
}

func TestCheckPrintsSamplingOrder(t *testing.T) {
	code, stdout, stderr := runCLI(t, "check", "--yaml-folder", writeFixture(t))
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "1. sex("))
	assert.True(t, strings.HasPrefix(lines[1], "2. age("))
}

func TestMainUsesExitFunc(t *testing.T) {
	var got int
	exitFunc = func(code int) { got = code }
	defer func() { exitFunc = os.Exit }()
	oldArgs := os.Args
	os.Args = []string{"simago", "check", "--yaml-folder", filepath.Join(t.TempDir(), "missing")}
	defer func() { os.Args = oldArgs }()
	main()
	assert.Equal(t, 1, got)
}
