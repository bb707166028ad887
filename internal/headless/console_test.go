package headless

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/adcrew/internal/provider"
	"github.com/jeanpaul/adcrew/internal/team"
	"github.com/jeanpaul/adcrew/internal/types"
)

var roles = []types.TeamRole{{Name: "planner", Description: "plans account changes"}}

func newTeam(t *testing.T, prov provider.Provider) *team.Team {
	t.Helper()
	f := team.NewFactory(prov, team.NewRegistry())
	tm, err := f.Create(context.Background(), team.CreateParams{
		Name: "team_7_1", Task: "pause the brand campaign", Roles: roles, MaxRound: 10,
	})
	require.NoError(t, err)
	return tm
}

func TestConsole_AnswersPauseUntilTerminate(t *testing.T) {
	prov := provider.NewScripted(
		provider.Text("Which campaign exactly? PAUSE"),
		provider.Text("Paused Brand-EU. TERMINATE"),
	)
	tm := newTeam(t, prov)

	var out bytes.Buffer
	c := NewConsole(strings.NewReader("Brand-EU\n"), &out, nil)
	require.NoError(t, c.Run(context.Background(), tm))

	assert.Equal(t, team.StateCompleted, tm.State())
	assert.Contains(t, out.String(), "team_7_1: Which campaign exactly?")
	assert.Contains(t, out.String(), "team_7_1: Paused Brand-EU.")

	qa := tm.QALog()
	require.Len(t, qa, 1)
	require.NotNil(t, qa[0].Answer)
	assert.Equal(t, "Brand-EU", *qa[0].Answer)
}

func TestConsole_EndOfInputLeavesTeamPaused(t *testing.T) {
	tm := newTeam(t, provider.NewScripted(provider.Text("Which campaign? PAUSE")))

	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out, nil)
	require.NoError(t, c.Run(context.Background(), tm))
	assert.Equal(t, team.StateAwaitingReply, tm.State())
}

func TestConsole_PicksUpRestoredTeam(t *testing.T) {
	dir := t.TempDir()
	params := team.CreateParams{Name: "team_7_2", Task: "pause the brand campaign", Roles: roles, MaxRound: 10, WorkDir: dir}

	first := team.NewFactory(provider.NewScripted(provider.Text("Which campaign exactly? PAUSE")), team.NewRegistry())
	tm, err := first.Create(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, NewConsole(strings.NewReader(""), &bytes.Buffer{}, nil).Run(context.Background(), tm))

	second := team.NewFactory(provider.NewScripted(provider.Text("Paused Brand-EU. TERMINATE")), team.NewRegistry())
	restored, err := second.Restore(context.Background(), params)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, NewConsole(strings.NewReader("Brand-EU\n"), &out, nil).Run(context.Background(), restored))
	assert.Equal(t, team.StateCompleted, restored.State())
	assert.Contains(t, out.String(), "team_7_2: Which campaign exactly?\n> ")
	assert.Contains(t, out.String(), "team_7_2: Paused Brand-EU.")
}

func TestConsole_Ask(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("  yes please \nsecond\n"), &out, nil)

	got, err := c.Ask(context.Background(), "Approve?")
	require.NoError(t, err)
	assert.Equal(t, "yes please", got)
	got, err = c.Ask(context.Background(), "Again?")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, "Approve?\n> Again?\n> ", out.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Ask(ctx, "late")
	assert.ErrorIs(t, err, context.Canceled)
}
