package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistrationKey(t *testing.T) {
	require.Equal(t, "user-1_tour-9", RegistrationKey("user-1", "tour-9"))
}

func TestRegistration_PlayerIDs(t *testing.T) {
	var r TournamentRegistration
	require.Nil(t, r.PlayerIDList())

	require.NoError(t, r.SetPlayerIDs([]string{"p1", "p2"}))
	require.Equal(t, []string{"p1", "p2"}, r.PlayerIDList())

	r.PlayerIDs = "not json"
	require.Nil(t, r.PlayerIDList())
}
