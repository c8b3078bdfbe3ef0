package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/boom-bust/internal/config"
	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/director"
	"github.com/iwvelando/boom-bust/internal/session"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/testutil"
)

func newScriptSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := config.Default()
	cfg.Director.AutoCloseScenes = true
	sess, err := session.New(testutil.Logger(t), cfg)
	require.NoError(t, err)
	return sess
}

func TestParseScript(t *testing.T) {
	sc, err := ParseScript([]byte(`
steps:
  - trip: row
  - wait: 2s
  - choice: {scene: bank_menu, id: borrow}
  - savings: {amount: 10, tavern: basic, shipyard: full}
  - jump: boom
`))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 5)
	assert.Equal(t, 2*time.Second, sc.Steps[1].Wait)
	assert.Equal(t, "borrow", sc.Steps[2].Choice.ID)
	assert.Equal(t, "full", sc.Steps[3].Savings.Shipyard)
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		message string
	}{
		{"empty step", "steps:\n  - {}\n", "no action"},
		{"two actions", "steps:\n  - {trip: row, skip: true}\n", "several actions"},
		{"bad boat", "steps:\n  - trip: canoe\n", "step 1"},
		{"bad savings", "steps:\n  - savings: {tavern: half}\n", "step 1"},
		{"not yaml", "steps: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.script))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRunScriptDrainsTrips(t *testing.T) {
	sess := newScriptSession(t)
	sc := &Script{Steps: []ScriptStep{{Trip: constants.BoatRow}}}

	require.NoError(t, RunScript(testutil.Logger(t), sess, sc))
	assert.Len(t, sess.Trips(), 1)
	assert.False(t, sess.Director().State().SequenceRunning)
}

func TestRunScriptLedgerSteps(t *testing.T) {
	sess := newScriptSession(t)
	sc := &Script{Steps: []ScriptStep{
		{Jump: "boom"},
		{Loan: 200},
		{Repay: true},
	}}

	require.NoError(t, RunScript(testutil.Logger(t), sess, sc))
	assert.Equal(t, content.Boom, sess.Director().State().Phase)
	assert.Equal(t, 100.0, sess.Economy().State().Cash)
	assert.False(t, sess.Economy().State().Loan.Open())
}

func TestRunScriptStopsOnError(t *testing.T) {
	sess := newScriptSession(t)
	sc := &Script{Steps: []ScriptStep{{Click: "lighthouse"}, {Jump: "boom"}}}

	err := RunScript(testutil.Logger(t), sess, sc)
	require.ErrorIs(t, err, director.ErrUnknown)
	assert.Contains(t, err.Error(), "step 1 (click)")
	assert.Equal(t, content.Tutorial, sess.Director().State().Phase)

	sess = newScriptSession(t)
	sc.ContinueOnError = true
	require.NoError(t, RunScript(testutil.Logger(t), sess, sc))
	assert.Equal(t, content.Boom, sess.Director().State().Phase)
}

func TestReport(t *testing.T) {
	sess := newScriptSession(t)
	require.NoError(t, RunScript(nil, sess, &Script{Steps: []ScriptStep{{Trip: constants.BoatRow}}}))

	var pretty bytes.Buffer
	require.NoError(t, report(&pretty, sess, constants.OutputFormatPretty))
	assert.Contains(t, pretty.String(), "Trip ledger (1 trips)")
	assert.Contains(t, pretty.String(), "Phase TUTORIAL")

	var csv bytes.Buffer
	require.NoError(t, report(&csv, sess, constants.OutputFormatCSV))
	assert.NotContains(t, csv.String(), "Phase TUTORIAL")

	assert.Error(t, report(&bytes.Buffer{}, sess, "xml"))
}

func TestPlayCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(script, []byte("steps:\n  - trip: row\n"), 0o644))

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"play", "--config", filepath.Join(dir, "missing.yaml"), "--script", script, "--output-format", "csv", "--log-level", "error"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"trip","id"`)
}

func TestValidateContent(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, validateContent(&out, ""))
	assert.Contains(t, out.String(), "content ok: 8 phases")

	out.Reset()
	require.NoError(t, validateContent(&out, filepath.Join("..", "..", "internal", "content", "data")))
	assert.Contains(t, out.String(), "content ok")

	err := validateContent(&out, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phases.yaml")
}
