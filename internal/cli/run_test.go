package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyround/cartridge/internal/journal"
)

func TestRunScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "scenarios", "bid.yaml")})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "scenario cli-bid")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "winner alice")
}

func TestRunScenarioJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "scenarios", "bid.yaml")})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp Response
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result RunResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "cli-bid", result.Scenario)
	assert.True(t, result.Done)
	assert.Equal(t, "alice", result.Winner)
	assert.Equal(t, int64(10), result.Pool)
	assert.Empty(t, result.Failures)
}

func TestRunFailingScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "scenarios", "bid-failing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "assertion")
	assert.Contains(t, buf.String(), "FAIL:")
}

func TestRunMissingScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"testdata/scenarios/nope.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunWithTrace(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--trace", filepath.Join("testdata", "scenarios", "bid.yaml")})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `"kind":"round.started"`)
	assert.Contains(t, output, `"kind":"game.completed"`)
}

func TestRunWithJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--journal", dbPath, filepath.Join("testdata", "scenarios", "bid.yaml")})

	err := cmd.Execute()
	require.NoError(t, err)

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	facts, err := j.ReadFacts(context.Background(), "cli-bid")
	require.NoError(t, err)
	assert.NotEmpty(t, facts)

	outcome, ok, err := j.ReadOutcome(context.Background(), "cli-bid")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, outcome, `"flag_winner":"alice"`)
}
