package breevsgame

import (
	"context"
	"errors"
	"fmt"
)

// ErrGameNotFound is returned by gateway reads for an id the ledger does not
// know about.
var ErrGameNotFound = errors.New("game not found")

// LedgerError is a coded rejection from the contract. Gateways surface the
// contract's error codes through this type so callers can map them to
// human-readable guidance without string matching.
type LedgerError struct {
	Code uint32
	Name string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s (u%d)", e.Name, e.Code)
}

// Contract error codes. Names follow the contract source.
const (
	CodeGameFull          = 100
	CodeUnauthorized      = 401
	CodeInvalidState      = 402
	CodeRoundExpired      = 403
	CodeGameNotFound      = 404
	CodeAlreadyEliminated = 405
	CodeInvalidStake      = 406
	CodeInvalidDuration   = 407
	CodeNotWinner         = 408
	CodeAlreadyClaimed    = 409
	CodeNoWinner          = 410
	CodeNotHost           = 411
	CodeRoundStillActive  = 412
	CodeHostBalance       = 413
)

// TxReceipt is the confirmation of a ledger write.
type TxReceipt struct {
	TxID string
}

// CreateReceipt confirms a create-game write and carries the id the ledger
// assigned to the new game.
type CreateReceipt struct {
	TxID   string
	GameID uint64
}

// SpinReceipt confirms a spin write. Eliminated is the participant the
// contract removed this round, read back from the transaction result.
type SpinReceipt struct {
	TxID       string
	Eliminated string
}

// GameGateway is the remote game contract as seen by this client. Reads are
// read-only queries against the ledger; writes are fee-bearing transactions
// signed by the caller's wallet, and every write blocks until the transaction
// is confirmed or returns a coded failure. A write that cannot be confirmed
// within the gateway's bounded polling window fails rather than pending
// forever.
type GameGateway interface {
	TotalGames(ctx context.Context) (uint64, error)
	GameSnapshot(ctx context.Context, gameID uint64) (*GameSnapshot, error)
	IsPrizeClaimed(ctx context.Context, gameID uint64, addr string) (bool, error)
	IsCreator(ctx context.Context, gameID uint64, addr string) (bool, error)
	IsParticipant(ctx context.Context, gameID uint64, addr string) (bool, error)
	UserStats(ctx context.Context, addr string) (*UserStats, error)

	CreateGame(ctx context.Context, stake, duration uint64) (*CreateReceipt, error)
	JoinGame(ctx context.Context, gameID, stake uint64) (*TxReceipt, error)
	StartGame(ctx context.Context, gameID uint64) (*TxReceipt, error)
	Spin(ctx context.Context, gameID uint64) (*SpinReceipt, error)
	AdvanceRound(ctx context.Context, gameID uint64) (*TxReceipt, error)
	ClaimPrize(ctx context.Context, gameID uint64) (*TxReceipt, error)
}
