package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const functionsYAML = `
metric_set:
  name: lambda
  metrics:
    - id: invocations
      namespace: AWS/Lambda
      name: Invocations
      frequency: day
      statistic: Sum
      dimensions:
        - name: FunctionName
          value: hello_world
sla_set:
  name: lambda-slas
  slas:
    - metric: invocations
      threshold: 1
      comparison_operator: LessThanThreshold
`

const accountsYAML = `
- central: "999999999999"
  streamers: ["123456789012"]
  catalogs: ["111111111111"]
`

func setupTree(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	defs := filepath.Join(dir, "definitions")
	require.NoError(t, os.MkdirAll(filepath.Join(defs, "account_123456789012"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(defs, "account_123456789012", "functions.yaml"), []byte(functionsYAML), 0o600))

	accountsFile := filepath.Join(dir, "accounts.yaml")
	require.NoError(t, os.WriteFile(accountsFile, []byte(accountsYAML), 0o600))

	return defs, accountsFile
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := buildRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	return out.String(), err
}

func TestExport_Stdout(t *testing.T) {
	defs, accountsFile := setupTree(t)

	out, err := execute(t, "export", "-d", defs, "--accounts", accountsFile, "--account", "123456789012")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"Invocations"`)
	assert.Contains(t, lines[0], `"dimensions":"{\"FunctionName\":\"hello_world\"}"`)
	assert.Contains(t, lines[1], `"comparison_operator":"LessThanThreshold"`)
	assert.Contains(t, lines[1], `"account":"123456789012"`)
}

func TestExport_OutputDir(t *testing.T) {
	defs, accountsFile := setupTree(t)
	outDir := t.TempDir()

	_, err := execute(t, "export", "-d", defs, "--accounts", accountsFile, "-a", "123456789012", "-o", outDir)
	require.NoError(t, err)

	metrics, err := os.ReadFile(filepath.Join(outDir, "metrics.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `"metric_set":"lambda"`)

	slas, err := os.ReadFile(filepath.Join(outDir, "slas.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(slas), `"metric_name":"Invocations"`)
}

func TestExport_UnknownAccount(t *testing.T) {
	defs, accountsFile := setupTree(t)

	_, err := execute(t, "export", "-d", defs, "--accounts", accountsFile, "-a", "000000000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account")
}

func TestValidate(t *testing.T) {
	defs, _ := setupTree(t)

	out, err := execute(t, "validate", "-d", defs, "-a", "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "account 123456789012: 1 metric sets, 1 metrics, 1 sla sets, 1 slas\n", out)
}

func TestAlarmNames(t *testing.T) {
	defs, _ := setupTree(t)

	out, err := execute(t, "alarm-names", "-d", defs, "-a", "123456789012", "-r", "eu-west-1")
	require.NoError(t, err)
	assert.Equal(t,
		"data-gov-awslambda-invocations-day-functionname-hello_world-SLA-Alarm-eu-west-1\t"+
			"awslambdainvocationsdayfunctionnamehello_world\tinvocations per day-hello_world\n",
		out)
}

func TestAccounts(t *testing.T) {
	_, accountsFile := setupTree(t)

	out, err := execute(t, "accounts", "--accounts", accountsFile, "-a", "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "central: 999999999999\nstreamers: 123456789012\ncatalogs: 111111111111\n", out)
}

func TestRequiredAccountFlag(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account")
}
