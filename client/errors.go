package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
)

// GameError is a user-presentable failure. Message is safe to render as-is;
// Err keeps the underlying cause for logs and errors.Is/As chains.
type GameError struct {
	Code    uint32 // contract code when known, 0 otherwise
	Message string
	Err     error
}

func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GameError) Unwrap() error { return e.Err }

// ActiveGameError rejects a create or join while the caller is already
// engaged in a non-ended game. It carries the engaged game's id so the UI
// can redirect instead of just refusing.
type ActiveGameError struct {
	GameID uint64
}

func (e *ActiveGameError) Error() string {
	return fmt.Sprintf("already engaged in game %d", e.GameID)
}

var contractMessages = map[uint32]string{
	breevsgame.CodeGameFull:          "This game is already full",
	breevsgame.CodeUnauthorized:      "You are not authorized to perform this action",
	breevsgame.CodeInvalidState:      "The game is not in the right state for this action",
	breevsgame.CodeRoundExpired:      "This round has expired",
	breevsgame.CodeGameNotFound:      "Game not found",
	breevsgame.CodeAlreadyEliminated: "This player was already eliminated",
	breevsgame.CodeInvalidStake:      "Stake amount is outside the allowed range",
	breevsgame.CodeInvalidDuration:   "Round duration is invalid",
	breevsgame.CodeNotWinner:         "Only the winner can claim this prize",
	breevsgame.CodeAlreadyClaimed:    "This prize was already claimed",
	breevsgame.CodeNoWinner:          "This game has no winner",
	breevsgame.CodeNotHost:           "Only the game host can do that",
	breevsgame.CodeRoundStillActive:  "The current round is still active",
	breevsgame.CodeHostBalance:       "The host has insufficient balance",
}

// MapContractError converts a gateway failure into a GameError with guidance
// the user can act on. Coded rejections map by code; everything else falls
// through with a generic message so the raw cause still reaches the logs.
func MapContractError(err error) *GameError {
	if err == nil {
		return nil
	}

	var lerr *breevsgame.LedgerError
	if errors.As(err, &lerr) {
		msg, ok := contractMessages[lerr.Code]
		if !ok {
			msg = fmt.Sprintf("Contract rejected the transaction (u%d)", lerr.Code)
		}
		return &GameError{Code: lerr.Code, Message: msg, Err: err}
	}

	if errors.Is(err, breevsgame.ErrGameNotFound) {
		return &GameError{Code: breevsgame.CodeGameNotFound, Message: contractMessages[breevsgame.CodeGameNotFound], Err: err}
	}

	// Some backends only surface the code inside the failure text.
	s := err.Error()
	for code, msg := range contractMessages {
		if strings.Contains(s, fmt.Sprintf("u%d", code)) {
			return &GameError{Code: code, Message: msg, Err: err}
		}
	}

	switch {
	case strings.Contains(s, "rejected"):
		return &GameError{Message: "Transaction was rejected by the wallet", Err: err}
	case strings.Contains(s, "timeout") || strings.Contains(s, "deadline"):
		return &GameError{Message: "The network did not confirm the transaction in time", Err: err}
	}
	return &GameError{Message: "Transaction failed", Err: err}
}
