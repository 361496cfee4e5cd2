package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/gauge/internal/gauge"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := new(bytes.Buffer)
	cmd := rootCmd()
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyText(t *testing.T) {
	out, err := run(t, "classify", "latency", "149", "150", "300")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"149", "low"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"150", "med"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"300", "high"}, strings.Fields(lines[2]))
}

func TestClassifyJSON(t *testing.T) {
	out, err := run(t, "classify", "--json", "cpu", "NaN", "-Inf", "79")
	require.NoError(t, err)

	var results []classification
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	assert.Equal(t, gauge.LevelHigh, results[0].Level)
	assert.Equal(t, gauge.LevelLow, results[1].Level)
	assert.Equal(t, gauge.LevelMed, results[2].Level)
}

func TestClassifyNegativeAndOutOfRange(t *testing.T) {
	out, err := run(t, "classify", "latency", "-5", "-Inf", "1e400")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"-5", "low"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"-Inf", "low"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1e400", "high"}, strings.Fields(lines[2]))

	out, err = run(t, "classify", "cpu", "-Inf")
	require.NoError(t, err)
	assert.Equal(t, []string{"-Inf", "low"}, strings.Fields(out))
}

func TestClassifyErrors(t *testing.T) {
	_, err := run(t, "classify", "memory", "1")
	assert.ErrorIs(t, err, gauge.ErrUnknownMetric)

	_, err = run(t, "classify", "cpu", "abc")
	assert.Error(t, err)

	_, err = run(t, "classify", "cpu")
	assert.Error(t, err)
}

func TestThresholds(t *testing.T) {
	out, err := run(t, "thresholds")
	require.NoError(t, err)
	assert.Contains(t, out, "latency")
	assert.Equal(t, []string{"cpu", "70", "80"}, strings.Fields(strings.Split(strings.TrimSpace(out), "\n")[2]))
}
