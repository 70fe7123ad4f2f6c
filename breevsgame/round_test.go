package breevsgame

import (
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayers() []string {
	return []string{
		"ST1HOST", "ST2AAA", "ST3BBB", "ST4CCC", "ST5DDD", "ST6EEE",
	}
}

func createTestSnapshot() *GameSnapshot {
	return &GameSnapshot{
		GameID:        7,
		Creator:       "ST1HOST",
		Players:       testPlayers(),
		Stake:         1_000_000,
		PrizePool:     6_000_000,
		Status:        StatusActive,
		RoundDuration: 60,
		TotalRounds:   MaxPlayers - 1,
	}
}

func newTestEngine(t *testing.T, snap *GameSnapshot) *RoundEngine {
	t.Helper()
	return NewRoundEngine(snap, slog.Disabled)
}

func TestRoundEngine_FullGame(t *testing.T) {
	snap := createTestSnapshot()
	e := newTestEngine(t, snap)
	assert.Equal(t, PhaseLobby, e.Phase())

	require.NoError(t, e.Start("ST1HOST"))
	assert.Equal(t, PhaseAwaitingSpin, e.Phase())
	assert.Equal(t, uint32(1), e.Round())

	// First spin: six participants on the wheel.
	active := e.ActiveParticipants()
	require.Len(t, active, 6)

	res, err := e.ApplyOutcome("ST3BBB")
	require.NoError(t, err)
	assert.Equal(t, "ST3BBB", res.Eliminated)
	assert.Equal(t, 6, res.ActiveBefore)
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, 120.0, res.TargetAngle)
	assert.Equal(t, PhaseAnimating, e.Phase())

	_, ended, err := e.FinishAnimation()
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, PhaseAwaitingAdvance, e.Phase())

	// Five participants remain and the eliminated one is gone.
	active = e.ActiveParticipants()
	assert.Len(t, active, 5)
	assert.NotContains(t, active, "ST3BBB")

	// Play it down to a winner.
	order := []string{"ST6EEE", "ST2AAA", "ST1HOST", "ST5DDD"}
	for _, victim := range order {
		require.NoError(t, e.ConfirmAdvance())
		_, err := e.ApplyOutcome(victim)
		require.NoError(t, err)
		winner, gameOver, err := e.FinishAnimation()
		require.NoError(t, err)
		if victim == "ST5DDD" {
			assert.True(t, gameOver)
			assert.Equal(t, "ST4CCC", winner)
		} else {
			assert.False(t, gameOver)
		}
	}
	assert.Equal(t, PhaseEnded, e.Phase())
	assert.Equal(t, "ST4CCC", e.Winner())
	assert.Equal(t, uint32(5), e.Round())
}

func TestRoundEngine_StartGuards(t *testing.T) {
	// Not full: one short of capacity.
	snap := createTestSnapshot()
	snap.Players = snap.Players[:5]
	e := newTestEngine(t, snap)
	err := e.Start("ST1HOST")
	var lerr *LedgerError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, uint32(CodeGameFull), lerr.Code)

	// Non-host cannot start.
	e = newTestEngine(t, createTestSnapshot())
	err = e.Start("ST2AAA")
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, uint32(CodeNotHost), lerr.Code)

	// Double start.
	e = newTestEngine(t, createTestSnapshot())
	require.NoError(t, e.Start("ST1HOST"))
	assert.ErrorIs(t, e.Start("ST1HOST"), ErrWrongPhase)
}

func TestRoundEngine_OutcomeIntegrity(t *testing.T) {
	e := newTestEngine(t, createTestSnapshot())
	require.NoError(t, e.Start("ST1HOST"))

	// Outcome naming a stranger is rejected and changes nothing.
	_, err := e.ApplyOutcome("ST9STRANGER")
	assert.ErrorIs(t, err, ErrOutcomeIntegrity)
	assert.Equal(t, PhaseAwaitingSpin, e.Phase())
	assert.Len(t, e.ActiveParticipants(), 6)

	// The round stays spinnable with a valid outcome.
	_, err = e.ApplyOutcome("ST2AAA")
	require.NoError(t, err)

	// An already-eliminated participant cannot be eliminated again.
	_, _, err = e.FinishAnimation()
	require.NoError(t, err)
	require.NoError(t, e.ConfirmAdvance())
	_, err = e.ApplyOutcome("ST2AAA")
	assert.ErrorIs(t, err, ErrOutcomeIntegrity)
}

func TestRoundEngine_WrongPhase(t *testing.T) {
	e := newTestEngine(t, createTestSnapshot())

	_, err := e.ApplyOutcome("ST2AAA")
	assert.ErrorIs(t, err, ErrWrongPhase)

	_, _, err = e.FinishAnimation()
	assert.ErrorIs(t, err, ErrWrongPhase)

	assert.ErrorIs(t, e.ConfirmAdvance(), ErrWrongPhase)
}

func TestRoundEngine_AdoptOutOfBandEnd(t *testing.T) {
	e := newTestEngine(t, createTestSnapshot())
	require.NoError(t, e.Start("ST1HOST"))

	// Another client drove the game to completion; a poll delivers the
	// terminal snapshot.
	endSnap := createTestSnapshot()
	endSnap.Status = StatusEnded
	endSnap.Winner = "ST6EEE"
	endSnap.CurrentRound = 5
	e.AdoptSnapshot(endSnap)

	assert.Equal(t, PhaseEnded, e.Phase())
	assert.Equal(t, "ST6EEE", e.Winner())
}

func TestRoundEngine_AdoptOutOfBandAdvance(t *testing.T) {
	e := newTestEngine(t, createTestSnapshot())
	require.NoError(t, e.Start("ST1HOST"))
	_, err := e.ApplyOutcome("ST2AAA")
	require.NoError(t, err)
	_, _, err = e.FinishAnimation()
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingAdvance, e.Phase())

	// A poll observes the next round already opened on the ledger.
	next := createTestSnapshot()
	next.Status = StatusInProgress
	next.CurrentRound = 2
	e.AdoptSnapshot(next)

	assert.Equal(t, PhaseAwaitingSpin, e.Phase())
	assert.Equal(t, uint32(2), e.Round())
}

func TestRoundEngine_RoundExpired(t *testing.T) {
	snap := createTestSnapshot()
	snap.Status = StatusInProgress
	snap.CurrentRound = 1
	snap.RoundEnd = 100
	e := newTestEngine(t, snap)

	assert.False(t, e.RoundExpired(99))
	assert.True(t, e.RoundExpired(100))
	assert.True(t, e.RoundExpired(101))
}

func TestRoundEngine_ParticipantViews(t *testing.T) {
	e := newTestEngine(t, createTestSnapshot())
	require.NoError(t, e.Start("ST1HOST"))
	_, err := e.ApplyOutcome("ST4CCC")
	require.NoError(t, err)

	views := e.ParticipantViews()
	require.Len(t, views, 6)
	assert.Equal(t, "Player 1", views[0].DisplayName)
	for _, v := range views {
		if v.Address == "ST4CCC" {
			assert.Equal(t, Eliminated, v.Status)
			assert.Equal(t, uint32(1), v.EliminatedInRound)
		} else {
			assert.Equal(t, StillIn, v.Status)
		}
	}
}
