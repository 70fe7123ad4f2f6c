package client

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
	"github.com/Anuoluwapo25/Breevs/simledger"
)

func newStorageClient(t *testing.T, dir, addr string) *BreevsClient {
	t.Helper()
	ledger := simledger.NewLedger(slog.Disabled, 1)
	c, err := NewBreevsClient(addr, &BreevsClientCfg{
		Log:     slog.Disabled,
		Gateway: ledger.Wallet(addr),
		Storage: NewFileStorage(dir),
	})
	require.NoError(t, err)
	return c
}

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := newStorageClient(t, dir, "ST1ME")

	engaged := &breevsgame.GameSnapshot{
		GameID:        math.MaxUint64,
		Creator:       "ST9HOST",
		Players:       []string{"ST9HOST", "ST1ME"},
		Stake:         math.MaxUint64,
		PrizePool:     math.MaxUint64,
		Status:        breevsgame.StatusInProgress,
		CurrentRound:  3,
		RoundEnd:      math.MaxUint64,
		RoundDuration: 60,
		TotalRounds:   5,
	}
	require.True(t, c.Store().SetCurrentPlayerGame(engaged, "ST1ME"))
	c.Store().SetActiveTab("my-games")
	require.NoError(t, c.SaveSession())

	// A fresh client restores the engagement intact, extreme values and all.
	c2 := newStorageClient(t, dir, "ST1ME")
	require.NoError(t, c2.RestoreSession())
	got := c2.Store().CurrentPlayerGame()
	require.NotNil(t, got)
	assert.Equal(t, engaged, got)
	assert.Equal(t, "my-games", c2.Store().ActiveTab())
	assert.True(t, c2.Store().HasActiveGame("ST1ME"))
}

func TestSessionRoundTripZeroValues(t *testing.T) {
	dir := t.TempDir()
	c := newStorageClient(t, dir, "ST1ME")

	engaged := &breevsgame.GameSnapshot{
		GameID:  1,
		Creator: "ST1ME",
		Players: []string{"ST1ME"},
		Status:  breevsgame.StatusActive,
	}
	c.Store().SetCurrentCreatorGame(engaged)
	require.NoError(t, c.SaveSession())

	c2 := newStorageClient(t, dir, "ST1ME")
	require.NoError(t, c2.RestoreSession())
	got := c2.Store().CurrentCreatorGame()
	require.NotNil(t, got)
	assert.Equal(t, engaged, got)
}

func TestRestoreSessionCorruptIsAbsent(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)
	require.NoError(t, fs.Store([]byte(`{"address": "ST1ME", "currentPlayerGame"`)))

	c := newStorageClient(t, dir, "ST1ME")
	require.NoError(t, c.RestoreSession())
	assert.Nil(t, c.Store().CurrentPlayerGame())
	assert.False(t, c.Store().HasActiveGame("ST1ME"))
}

func TestRestoreSessionCorruptAmountIsAbsent(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)
	// Parseable JSON but a stake that cannot be a uint64.
	rec := `{"address":"ST1ME","currentPlayerGame":{"gameId":"1","creator":"ST9H",` +
		`"players":["ST9H","ST1ME"],"stake":"banana","prizePool":"0","status":0,` +
		`"currentRound":0,"roundEnd":"0","roundDuration":"60","totalRounds":5}}`
	require.NoError(t, fs.Store([]byte(rec)))

	c := newStorageClient(t, dir, "ST1ME")
	require.NoError(t, c.RestoreSession())
	assert.Nil(t, c.Store().CurrentPlayerGame())
}

func TestRestoreSessionDifferentWallet(t *testing.T) {
	dir := t.TempDir()
	c := newStorageClient(t, dir, "ST1ME")
	c.Store().SetCurrentCreatorGame(&breevsgame.GameSnapshot{
		GameID: 1, Creator: "ST1ME", Players: []string{"ST1ME"},
	})
	require.NoError(t, c.SaveSession())

	// Another wallet on the same machine must not inherit the session.
	c2 := newStorageClient(t, dir, "ST2OTHER")
	require.NoError(t, c2.RestoreSession())
	assert.Nil(t, c2.Store().CurrentCreatorGame())
}

func TestRestoreSessionSkipsEndedEngagement(t *testing.T) {
	dir := t.TempDir()
	c := newStorageClient(t, dir, "ST1ME")
	c.Store().SetCurrentCreatorGame(&breevsgame.GameSnapshot{
		GameID: 1, Creator: "ST1ME", Players: []string{"ST1ME"},
	})
	require.NoError(t, c.SaveSession())

	// The game ended between runs; hand-edit the stored status.
	fs := NewFileStorage(dir)
	data, err := fs.Load()
	require.NoError(t, err)
	edited := strings.Replace(string(data), `"status":0`, `"status":2`, 1)
	require.NotEqual(t, string(data), edited)
	require.NoError(t, fs.Store([]byte(edited)))

	c2 := newStorageClient(t, dir, "ST1ME")
	require.NoError(t, c2.RestoreSession())
	assert.Nil(t, c2.Store().CurrentCreatorGame())
}

func TestSignOutWipesPersistedSession(t *testing.T) {
	dir := t.TempDir()
	c := newStorageClient(t, dir, "ST1ME")
	c.Store().SetCurrentCreatorGame(&breevsgame.GameSnapshot{
		GameID: 1, Creator: "ST1ME", Players: []string{"ST1ME"},
	})
	require.NoError(t, c.SaveSession())
	require.NoError(t, c.SignOut())

	// Nothing left on disk for the next run.
	fs := NewFileStorage(dir)
	data, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = os.Stat(dir) // datadir itself survives
	assert.NoError(t, err)
}
