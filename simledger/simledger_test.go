package simledger

import (
	"context"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
)

var (
	host    = "ST1HOST"
	players = []string{"ST2AAA", "ST3BBB", "ST4CCC", "ST5DDD", "ST6EEE"}
)

func fullGame(t *testing.T, l *Ledger, stake, duration uint64) uint64 {
	t.Helper()
	ctx := context.Background()
	receipt, err := l.Wallet(host).CreateGame(ctx, stake, duration)
	require.NoError(t, err)
	for _, p := range players {
		_, err := l.Wallet(p).JoinGame(ctx, receipt.GameID, stake)
		require.NoError(t, err)
	}
	return receipt.GameID
}

func assertCode(t *testing.T, err error, code uint32) {
	t.Helper()
	var lerr *breevsgame.LedgerError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, code, lerr.Code)
}

func TestLedger_CreateGuards(t *testing.T) {
	l := NewLedger(slog.Disabled, 1)
	ctx := context.Background()

	_, err := l.Wallet(host).CreateGame(ctx, 99_999, 60) // below 0.1 STX
	assertCode(t, err, breevsgame.CodeInvalidStake)

	_, err = l.Wallet(host).CreateGame(ctx, 100_000_001, 60) // above 100 STX
	assertCode(t, err, breevsgame.CodeInvalidStake)

	_, err = l.Wallet(host).CreateGame(ctx, 1_000_000, 0)
	assertCode(t, err, breevsgame.CodeInvalidDuration)

	receipt, err := l.Wallet(host).CreateGame(ctx, 1_000_000, 60)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.GameID)

	g, err := l.Wallet(host).GameSnapshot(ctx, receipt.GameID)
	require.NoError(t, err)
	assert.Equal(t, host, g.Creator)
	assert.Equal(t, []string{host}, g.Players)
	assert.Equal(t, uint64(1_000_000), g.PrizePool)
	assert.Equal(t, breevsgame.StatusActive, g.Status)
}

func TestLedger_JoinGuards(t *testing.T) {
	l := NewLedger(slog.Disabled, 1)
	ctx := context.Background()
	receipt, err := l.Wallet(host).CreateGame(ctx, 1_000_000, 60)
	require.NoError(t, err)
	id := receipt.GameID

	_, err = l.Wallet("ST2AAA").JoinGame(ctx, 999, 1_000_000)
	assertCode(t, err, breevsgame.CodeGameNotFound)

	_, err = l.Wallet("ST2AAA").JoinGame(ctx, id, 500_000) // stake mismatch
	assertCode(t, err, breevsgame.CodeInvalidStake)

	_, err = l.Wallet("ST2AAA").JoinGame(ctx, id, 1_000_000)
	require.NoError(t, err)

	_, err = l.Wallet("ST2AAA").JoinGame(ctx, id, 1_000_000) // double join
	assertCode(t, err, breevsgame.CodeInvalidState)

	for _, p := range players[1:] {
		_, err := l.Wallet(p).JoinGame(ctx, id, 1_000_000)
		require.NoError(t, err)
	}
	_, err = l.Wallet("ST7LATE").JoinGame(ctx, id, 1_000_000)
	assertCode(t, err, breevsgame.CodeGameFull)

	g, err := l.Wallet(host).GameSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000_000), g.PrizePool)
}

func TestLedger_StartGuards(t *testing.T) {
	l := NewLedger(slog.Disabled, 1)
	ctx := context.Background()
	receipt, err := l.Wallet(host).CreateGame(ctx, 1_000_000, 60)
	require.NoError(t, err)
	id := receipt.GameID

	_, err = l.Wallet(host).StartGame(ctx, id) // not full
	assertCode(t, err, breevsgame.CodeGameFull)

	for _, p := range players {
		_, err := l.Wallet(p).JoinGame(ctx, id, 1_000_000)
		require.NoError(t, err)
	}

	_, err = l.Wallet("ST2AAA").StartGame(ctx, id) // not the host
	assertCode(t, err, breevsgame.CodeUnauthorized)

	_, err = l.Wallet(host).StartGame(ctx, id)
	require.NoError(t, err)

	g, err := l.Wallet(host).GameSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, breevsgame.StatusInProgress, g.Status)
	assert.Equal(t, uint32(1), g.CurrentRound)
	assert.Equal(t, g.RoundDuration, g.RoundEnd-l.Height())

	_, err = l.Wallet(host).StartGame(ctx, id) // double start
	assertCode(t, err, breevsgame.CodeInvalidState)
}

func TestLedger_SpinAndAdvance(t *testing.T) {
	l := NewLedger(slog.Disabled, 42)
	ctx := context.Background()
	id := fullGame(t, l, 1_000_000, 60)

	_, err := l.Wallet(host).Spin(ctx, id) // not started yet
	assertCode(t, err, breevsgame.CodeInvalidState)

	_, err = l.Wallet(host).StartGame(ctx, id)
	require.NoError(t, err)

	_, err = l.Wallet("ST2AAA").Spin(ctx, id) // only the host spins
	assertCode(t, err, breevsgame.CodeNotHost)

	_, err = l.Wallet(host).AdvanceRound(ctx, id) // round still open
	assertCode(t, err, breevsgame.CodeRoundStillActive)

	receipt, err := l.Wallet(host).Spin(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Eliminated)

	// Round window must elapse before the next round opens.
	l.Tick(60)
	_, err = l.Wallet(host).AdvanceRound(ctx, id)
	require.NoError(t, err)

	g, err := l.Wallet(host).GameSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), g.CurrentRound)

	// An expired round rejects the spin.
	l.Tick(60)
	_, err = l.Wallet(host).Spin(ctx, id)
	assertCode(t, err, breevsgame.CodeRoundExpired)
}

func TestLedger_SpinDeterministic(t *testing.T) {
	run := func() []string {
		l := NewLedger(slog.Disabled, 7)
		ctx := context.Background()
		id := fullGame(t, l, 1_000_000, 60)
		_, err := l.Wallet(host).StartGame(ctx, id)
		require.NoError(t, err)

		var order []string
		for round := 0; round < 5; round++ {
			receipt, err := l.Wallet(host).Spin(ctx, id)
			require.NoError(t, err)
			order = append(order, receipt.Eliminated)
			g, err := l.Wallet(host).GameSnapshot(ctx, id)
			require.NoError(t, err)
			if g.Status == breevsgame.StatusEnded {
				break
			}
			l.Tick(60)
			_, err = l.Wallet(host).AdvanceRound(ctx, id)
			require.NoError(t, err)
		}
		return order
	}
	assert.Equal(t, run(), run())
}

func TestLedger_FullGameAndClaim(t *testing.T) {
	l := NewLedger(slog.Disabled, 3)
	ctx := context.Background()
	id := fullGame(t, l, 1_000_000, 60)
	_, err := l.Wallet(host).StartGame(ctx, id)
	require.NoError(t, err)

	_, err = l.Wallet(host).ClaimPrize(ctx, id) // not ended
	assertCode(t, err, breevsgame.CodeInvalidState)

	var g *breevsgame.GameSnapshot
	for {
		_, err := l.Wallet(host).Spin(ctx, id)
		require.NoError(t, err)
		g, err = l.Wallet(host).GameSnapshot(ctx, id)
		require.NoError(t, err)
		if g.Status == breevsgame.StatusEnded {
			break
		}
		l.Tick(60)
		_, err = l.Wallet(host).AdvanceRound(ctx, id)
		require.NoError(t, err)
	}
	require.NotEmpty(t, g.Winner)
	assert.Equal(t, uint32(5), g.CurrentRound)

	// A loser cannot claim.
	loser := host
	if g.Winner == host {
		loser = players[0]
		if g.Winner == players[0] {
			loser = players[1]
		}
	}
	_, err = l.Wallet(loser).ClaimPrize(ctx, id)
	assertCode(t, err, breevsgame.CodeNotWinner)

	claimed, err := l.Wallet(g.Winner).IsPrizeClaimed(ctx, id, g.Winner)
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = l.Wallet(g.Winner).ClaimPrize(ctx, id)
	require.NoError(t, err)

	claimed, err = l.Wallet(g.Winner).IsPrizeClaimed(ctx, id, g.Winner)
	require.NoError(t, err)
	assert.True(t, claimed)

	_, err = l.Wallet(g.Winner).ClaimPrize(ctx, id) // double claim
	assertCode(t, err, breevsgame.CodeAlreadyClaimed)

	st, err := l.Wallet(g.Winner).UserStats(ctx, g.Winner)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), st.GamesWon)
	assert.Equal(t, uint64(6_000_000), st.TotalWinnings)
}
