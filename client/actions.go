package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
	"github.com/Anuoluwapo25/Breevs/gamewatcher"
)

// Client-side stake bounds, in micro-STX. Same bounds the contract enforces;
// checking here avoids paying a fee for a doomed transaction.
const (
	MinStake = 100_000     // 0.1 STX
	MaxStake = 100_000_000 // 100 STX
)

// CreateGame creates a new game with the caller as host. A caller already
// engaged in a non-ended game gets an ActiveGameError naming that game so the
// UI can redirect to it instead of creating a second engagement.
func (c *BreevsClient) CreateGame(ctx context.Context, stake, duration uint64) (*breevsgame.GameSnapshot, error) {
	if existing := c.store.CurrentActiveGame(c.Address); existing != nil {
		return nil, &ActiveGameError{GameID: existing.GameID}
	}
	if stake < MinStake || stake > MaxStake {
		return nil, &GameError{
			Code:    breevsgame.CodeInvalidStake,
			Message: fmt.Sprintf("Stake must be between %.1f and %.0f STX", float64(MinStake)/1e6, float64(MaxStake)/1e6),
		}
	}
	if duration == 0 {
		return nil, &GameError{Code: breevsgame.CodeInvalidDuration, Message: "Round duration must be positive"}
	}

	receipt, err := c.gw.CreateGame(ctx, stake, duration)
	if err != nil {
		return nil, MapContractError(err)
	}

	// Optimistic snapshot of the game as the contract constructed it. The
	// sequence is stamped at confirmation time so an older in-flight poll
	// cannot clobber this.
	snap := &breevsgame.GameSnapshot{
		GameID:        receipt.GameID,
		Creator:       c.Address,
		Players:       []string{c.Address},
		Stake:         stake,
		PrizePool:     stake,
		Status:        breevsgame.StatusActive,
		RoundDuration: duration,
		TotalRounds:   breevsgame.MaxPlayers - 1,
	}
	c.store.AddToMyGames(snap)
	c.store.MergeSnapshot(snap, c.store.NextSeq())
	c.store.SetCurrentCreatorGame(snap)
	c.engineFor(snap)

	c.log.Infof("created game %d (stake=%d, tx=%s)", snap.GameID, stake, receipt.TxID)
	c.ntfns.notifyGameCreated(snap)
	c.notifyUpdated()
	c.WatchGame(ctx, snap.GameID)
	return snap, nil
}

// JoinGame stakes into an open game. Guards run client-side first: the game
// must be open and not full, the stake must match, and the caller must not
// already be engaged elsewhere.
func (c *BreevsClient) JoinGame(ctx context.Context, gameID uint64) (*breevsgame.GameSnapshot, error) {
	snap := c.store.Game(gameID)
	if snap == nil {
		var err error
		snap, err = c.gw.GameSnapshot(ctx, gameID)
		if err != nil {
			return nil, MapContractError(err)
		}
	}
	if existing := c.store.CurrentActiveGame(c.Address); existing != nil && existing.GameID != gameID {
		return nil, &ActiveGameError{GameID: existing.GameID}
	}
	if snap.Status != breevsgame.StatusActive {
		return nil, &GameError{Code: breevsgame.CodeInvalidState, Message: "This game is no longer open for joining"}
	}
	if snap.IsFull() {
		return nil, &GameError{Code: breevsgame.CodeGameFull, Message: contractMessages[breevsgame.CodeGameFull]}
	}
	if snap.HasPlayer(c.Address) {
		return nil, &GameError{Code: breevsgame.CodeInvalidState, Message: "You already joined this game"}
	}

	receipt, err := c.gw.JoinGame(ctx, gameID, snap.Stake)
	if err != nil {
		return nil, MapContractError(err)
	}

	joined := snap.Clone()
	joined.Players = append(joined.Players, c.Address)
	joined.PrizePool += joined.Stake
	c.store.MergeSnapshot(joined, c.store.NextSeq())
	if !c.store.SetCurrentPlayerGame(joined, c.Address) {
		// Engagement raced in between the guard and the confirmation. The
		// join stands on the ledger; surface the conflict for the UI.
		if existing := c.store.CurrentActiveGame(c.Address); existing != nil {
			return joined, &ActiveGameError{GameID: existing.GameID}
		}
	}

	c.log.Infof("joined game %d (tx=%s)", gameID, receipt.TxID)
	c.ntfns.notifyPlayerJoined(joined, c.Address)
	c.notifyUpdated()
	c.WatchGame(ctx, gameID)
	return joined, nil
}

// StartGame moves a full lobby into play. Host-only.
func (c *BreevsClient) StartGame(ctx context.Context, gameID uint64) error {
	snap := c.store.Game(gameID)
	if snap == nil {
		return &GameError{Code: breevsgame.CodeGameNotFound, Message: contractMessages[breevsgame.CodeGameNotFound]}
	}
	if snap.Creator != c.Address {
		return &GameError{Code: breevsgame.CodeNotHost, Message: contractMessages[breevsgame.CodeNotHost]}
	}
	if len(snap.Players) != breevsgame.MaxPlayers {
		return &GameError{
			Code:    breevsgame.CodeGameFull,
			Message: fmt.Sprintf("Need %d players to start, have %d", breevsgame.MaxPlayers, len(snap.Players)),
		}
	}

	if _, err := c.gw.StartGame(ctx, gameID); err != nil {
		return MapContractError(err)
	}

	started := snap.Clone()
	started.Status = breevsgame.StatusInProgress
	started.CurrentRound = 1
	started.RoundEnd = c.clock() + started.RoundDuration
	c.store.MergeSnapshot(started, c.store.NextSeq())

	e := c.engineFor(snap)
	if err := e.Start(c.Address); err != nil && !errors.Is(err, breevsgame.ErrWrongPhase) {
		c.log.Warnf("game %d: local start disagreed with confirmed write: %v", gameID, err)
	}
	e.AdoptSnapshot(started)

	c.log.Infof("started game %d", gameID)
	c.ntfns.notifyGameStarted(started)
	c.notifyUpdated()
	c.RefreshNow(ctx, gameID)
	return nil
}

// Spin submits the host's spin for the current round and applies the
// confirmed elimination outcome. The returned resolution is the animation
// target; callers complete the timeline with FinishSpin.
func (c *BreevsClient) Spin(ctx context.Context, gameID uint64) (*breevsgame.SpinResolution, error) {
	e := c.Engine(gameID)
	if e == nil {
		return nil, &GameError{Code: breevsgame.CodeGameNotFound, Message: contractMessages[breevsgame.CodeGameNotFound]}
	}
	if e.Phase() != breevsgame.PhaseAwaitingSpin {
		return nil, &GameError{Code: breevsgame.CodeInvalidState, Message: "No spin is possible right now"}
	}
	if e.RoundExpired(c.clock()) {
		return nil, &GameError{Code: breevsgame.CodeRoundExpired, Message: contractMessages[breevsgame.CodeRoundExpired]}
	}

	receipt, err := c.gw.Spin(ctx, gameID)
	if err != nil {
		return nil, MapContractError(err)
	}

	res, err := e.ApplyOutcome(receipt.Eliminated)
	if err != nil {
		if errors.Is(err, breevsgame.ErrOutcomeIntegrity) {
			// Local view and confirmed outcome disagree; keep the round
			// spinnable and force a reconciling read.
			c.notifyError(err)
			c.RefreshNow(ctx, gameID)
			return nil, &GameError{Message: "Spin outcome did not match the known participants", Err: err}
		}
		return nil, &GameError{Message: "Spin could not be applied", Err: err}
	}

	c.log.Infof("game %d round %d: %s eliminated (tx=%s)", gameID, e.Round(), res.Eliminated, receipt.TxID)
	c.ntfns.notifyPlayerEliminated(gameID, res)
	select {
	case c.UpdatesCh <- SpinResultMsg{GameID: gameID, Resolution: res}:
	default:
	}
	return res, nil
}

// FinishSpin completes the wheel animation timeline. If one participant
// remains the game ends locally and the winner is returned; otherwise the
// round waits for an advance.
func (c *BreevsClient) FinishSpin(gameID uint64) (winner string, ended bool, err error) {
	e := c.Engine(gameID)
	if e == nil {
		return "", false, &GameError{Code: breevsgame.CodeGameNotFound, Message: contractMessages[breevsgame.CodeGameNotFound]}
	}
	winner, ended, err = e.FinishAnimation()
	if err != nil {
		return "", false, &GameError{Message: "Spin was not in progress", Err: err}
	}
	if ended {
		// Merge the terminal snapshot so the engagement pointers clear and
		// the caller is free for a new game.
		c.store.MergeSnapshot(e.Game(), c.store.NextSeq())
		c.ntfns.notifyGameEnded(gameID, winner)
		select {
		case c.UpdatesCh <- GameEndedMsg{GameID: gameID, Winner: winner}:
		default:
		}
	}
	c.notifyUpdated()
	return winner, ended, nil
}

// AdvanceRound opens the next round after the current one's window elapsed.
// Host-only; rejected while the round window is still open.
func (c *BreevsClient) AdvanceRound(ctx context.Context, gameID uint64) error {
	e := c.Engine(gameID)
	if e == nil {
		return &GameError{Code: breevsgame.CodeGameNotFound, Message: contractMessages[breevsgame.CodeGameNotFound]}
	}
	if e.Phase() != breevsgame.PhaseAwaitingAdvance {
		return &GameError{Code: breevsgame.CodeInvalidState, Message: "No round is waiting to advance"}
	}
	if !e.RoundExpired(c.clock()) {
		return &GameError{Code: breevsgame.CodeRoundStillActive, Message: contractMessages[breevsgame.CodeRoundStillActive]}
	}

	if _, err := c.gw.AdvanceRound(ctx, gameID); err != nil {
		return MapContractError(err)
	}
	if err := e.ConfirmAdvance(); err != nil {
		// An out-of-band poll may have advanced the engine already.
		c.log.Warnf("game %d: advance confirmation: %v", gameID, err)
	}

	next := e.Game()
	next.CurrentRound = e.Round()
	next.RoundEnd = c.clock() + next.RoundDuration
	c.store.MergeSnapshot(next, c.store.NextSeq())
	e.AdoptSnapshot(next)

	c.log.Infof("game %d advanced to round %d", gameID, e.Round())
	c.notifyUpdated()
	c.RefreshNow(ctx, gameID)
	return nil
}

// ClaimPrize pays out an ended game's pool to the winner.
func (c *BreevsClient) ClaimPrize(ctx context.Context, gameID uint64) error {
	snap := c.store.Game(gameID)
	if snap == nil {
		var err error
		snap, err = c.gw.GameSnapshot(ctx, gameID)
		if err != nil {
			return MapContractError(err)
		}
	}
	if snap.Status != breevsgame.StatusEnded {
		return &GameError{Code: breevsgame.CodeInvalidState, Message: "The game has not ended yet"}
	}
	if snap.Winner == "" {
		return &GameError{Code: breevsgame.CodeNoWinner, Message: contractMessages[breevsgame.CodeNoWinner]}
	}
	if snap.Winner != c.Address {
		return &GameError{Code: breevsgame.CodeNotWinner, Message: contractMessages[breevsgame.CodeNotWinner]}
	}
	claimed, err := c.gw.IsPrizeClaimed(ctx, gameID, c.Address)
	if err != nil {
		return MapContractError(err)
	}
	if claimed {
		return &GameError{Code: breevsgame.CodeAlreadyClaimed, Message: contractMessages[breevsgame.CodeAlreadyClaimed]}
	}

	receipt, err := c.gw.ClaimPrize(ctx, gameID)
	if err != nil {
		return MapContractError(err)
	}
	c.log.Infof("game %d: prize %d claimed (tx=%s)", gameID, snap.PrizePool, receipt.TxID)
	c.ntfns.notifyPrizeClaimed(gameID, c.Address, snap.PrizePool)
	c.notifyUpdated()
	return nil
}

// UserStats fetches the caller's lifetime results from the ledger.
func (c *BreevsClient) UserStats(ctx context.Context) (*breevsgame.UserStats, error) {
	st, err := c.gw.UserStats(ctx, c.Address)
	if err != nil {
		return nil, MapContractError(err)
	}
	return st, nil
}

// SignOut wipes the in-memory session and any persisted copy in the same
// operation, so a stale engagement cannot resurrect for another wallet.
func (c *BreevsClient) SignOut() error {
	c.store.ClearSession()

	c.Lock()
	unsubs := c.unsubs
	c.unsubs = make(map[gamewatcher.QueryKey]func())
	c.engines = make(map[uint64]*breevsgame.RoundEngine)
	c.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}

	if c.storage != nil {
		if err := c.storage.Delete(); err != nil {
			return fmt.Errorf("wipe persisted session: %w", err)
		}
	}
	c.log.Infof("signed out, session cleared")
	c.notifyUpdated()
	return nil
}
