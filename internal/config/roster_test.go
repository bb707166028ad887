package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/adcrew/internal/types"
)

func TestRoster_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	r := Roster{Name: "audit", Roles: []types.TeamRole{
		{Name: "planner", Description: "plans"},
		{Name: "analyst", Description: "analyses"},
	}}
	require.NoError(t, SaveRoster(filepath.Join(dir, "audit.yaml"), r))

	got, err := LoadRoster(filepath.Join(dir, "audit.yaml"))
	require.NoError(t, err)
	assert.Equal(t, r, *got)

	_, err = LoadRoster(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, SaveRoster(filepath.Join(dir, "empty.yaml"), Roster{}))
	_, err = LoadRoster(filepath.Join(dir, "empty.yaml"))
	assert.ErrorContains(t, err, "no roles")
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("planner = plans account changes")
	require.NoError(t, err)
	assert.Equal(t, types.TeamRole{Name: "planner", Description: "plans account changes"}, r)

	_, err = ParseRole("planner")
	assert.Error(t, err)
	_, err = ParseRole("=x")
	assert.Error(t, err)
}
