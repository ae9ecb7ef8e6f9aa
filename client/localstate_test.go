package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := LoadLocalState(path)
	require.NoError(t, err)
	token, err := first.Token()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	second, err := LoadLocalState(path)
	require.NoError(t, err)
	reloaded, err := second.Token()
	require.NoError(t, err)
	assert.Equal(t, token, reloaded, "a new visit must present the same user token")
}

func TestTokenStableWithinSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	state, err := LoadLocalState(path)
	require.NoError(t, err)

	a, err := state.Token()
	require.NoError(t, err)
	b, err := state.Token()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVotesSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := LoadLocalState(path)
	require.NoError(t, err)
	require.NoError(t, first.SetVote("p1", "yes"))
	require.NoError(t, first.SetVote("p2", "no"))

	second, err := LoadLocalState(path)
	require.NoError(t, err)
	option, ok := second.Vote("p1")
	require.True(t, ok)
	assert.Equal(t, "yes", option)
	assert.Equal(t, map[string]string{"p1": "yes", "p2": "no"}, second.Votes())
}

func TestMissingFileStartsEmpty(t *testing.T) {
	state, err := LoadLocalState(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, state.Votes())
	_, ok := state.Vote("p1")
	assert.False(t, ok)
}
