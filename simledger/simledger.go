// Package simledger is an in-process stand-in for the Breevs contract. It
// implements the same rules and error codes as the deployed contract so the
// client stack can run end to end without a node: demo CLI sessions and
// client tests both go through it.
package simledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/decred/slog"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
)

const (
	// Contract stake bounds, in micro-STX.
	minStake = 100_000
	maxStake = 100_000_000
)

type game struct {
	snap       breevsgame.GameSnapshot
	eliminated map[string]uint32
}

// Ledger holds the authoritative simulated chain state. Ledger time is a
// plain monotonic counter advanced by Tick; writes confirm synchronously.
type Ledger struct {
	mu      sync.RWMutex
	log     slog.Logger
	games   map[uint64]*game
	counter uint64
	height  uint64
	claimed map[uint64]map[string]bool
	stats   map[string]*breevsgame.UserStats
	txSeq   uint64
	seed    uint64
}

// NewLedger creates an empty simulated ledger. The seed fixes the spin
// outcomes so a session is replayable.
func NewLedger(log slog.Logger, seed uint64) *Ledger {
	return &Ledger{
		log:     log,
		games:   make(map[uint64]*game),
		claimed: make(map[uint64]map[string]bool),
		stats:   make(map[string]*breevsgame.UserStats),
		seed:    seed,
	}
}

// Tick advances ledger time by n units.
func (l *Ledger) Tick(n uint64) {
	l.mu.Lock()
	l.height += n
	l.mu.Unlock()
}

// Height returns the current ledger time.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

// Wallet binds the ledger to a signing address, yielding a gateway whose
// writes are issued as that address. Matches the real setup where the
// wallet, not the gateway call, decides the sender.
func (l *Ledger) Wallet(addr string) breevsgame.GameGateway {
	return &wallet{ledger: l, addr: addr}
}

func ledgerErr(code uint32, name string) error {
	return &breevsgame.LedgerError{Code: code, Name: name}
}

func (l *Ledger) nextTx() string {
	l.txSeq++
	return fmt.Sprintf("0x%016x", l.txSeq)
}

func (l *Ledger) statsFor(addr string) *breevsgame.UserStats {
	st := l.stats[addr]
	if st == nil {
		st = &breevsgame.UserStats{}
		l.stats[addr] = st
	}
	return st
}

type wallet struct {
	ledger *Ledger
	addr   string
}

// ---- reads ----

func (w *wallet) TotalGames(_ context.Context) (uint64, error) {
	l := w.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counter, nil
}

func (w *wallet) GameSnapshot(_ context.Context, gameID uint64) (*breevsgame.GameSnapshot, error) {
	l := w.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.games[gameID]
	if !ok {
		return nil, breevsgame.ErrGameNotFound
	}
	return g.snap.Clone(), nil
}

func (w *wallet) IsPrizeClaimed(_ context.Context, gameID uint64, addr string) (bool, error) {
	l := w.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimed[gameID][strings.ToLower(addr)], nil
}

func (w *wallet) IsCreator(_ context.Context, gameID uint64, addr string) (bool, error) {
	l := w.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.games[gameID]
	if !ok {
		return false, breevsgame.ErrGameNotFound
	}
	return strings.EqualFold(g.snap.Creator, addr), nil
}

func (w *wallet) IsParticipant(_ context.Context, gameID uint64, addr string) (bool, error) {
	l := w.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.games[gameID]
	if !ok {
		return false, breevsgame.ErrGameNotFound
	}
	return g.snap.IsParticipant(addr), nil
}

func (w *wallet) UserStats(_ context.Context, addr string) (*breevsgame.UserStats, error) {
	l := w.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	if st, ok := l.stats[addr]; ok {
		cp := *st
		return &cp, nil
	}
	return &breevsgame.UserStats{}, nil
}

// ---- writes ----

func (w *wallet) CreateGame(_ context.Context, stake, duration uint64) (*breevsgame.CreateReceipt, error) {
	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	if stake < minStake || stake > maxStake {
		return nil, ledgerErr(breevsgame.CodeInvalidStake, "ERR-INVALID-STAKE")
	}
	if duration == 0 {
		return nil, ledgerErr(breevsgame.CodeInvalidDuration, "ERR-INVALID-DURATION")
	}
	l.counter++
	id := l.counter
	l.games[id] = &game{
		snap: breevsgame.GameSnapshot{
			GameID:        id,
			Creator:       w.addr,
			Players:       []string{w.addr},
			Stake:         stake,
			PrizePool:     stake,
			Status:        breevsgame.StatusActive,
			RoundDuration: duration,
			TotalRounds:   breevsgame.MaxPlayers - 1,
		},
		eliminated: make(map[string]uint32),
	}
	l.statsFor(w.addr).TotalStaked += stake
	l.log.Debugf("simledger: %s created game %d (stake=%d)", w.addr, id, stake)
	return &breevsgame.CreateReceipt{TxID: l.nextTx(), GameID: id}, nil
}

func (w *wallet) JoinGame(_ context.Context, gameID, stake uint64) (*breevsgame.TxReceipt, error) {
	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.games[gameID]
	if !ok {
		return nil, ledgerErr(breevsgame.CodeGameNotFound, "ERR-GAME-NOT-FOUND")
	}
	if g.snap.Status != breevsgame.StatusActive {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}
	if g.snap.IsFull() {
		return nil, ledgerErr(breevsgame.CodeGameFull, "ERR-GAME-FULL")
	}
	if stake != g.snap.Stake {
		return nil, ledgerErr(breevsgame.CodeInvalidStake, "ERR-INVALID-STAKE")
	}
	if g.snap.HasPlayer(w.addr) {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}
	g.snap.Players = append(g.snap.Players, w.addr)
	g.snap.PrizePool += stake
	l.statsFor(w.addr).TotalStaked += stake
	l.log.Debugf("simledger: %s joined game %d (%d/%d)", w.addr, gameID, len(g.snap.Players), breevsgame.MaxPlayers)
	return &breevsgame.TxReceipt{TxID: l.nextTx()}, nil
}

func (w *wallet) StartGame(_ context.Context, gameID uint64) (*breevsgame.TxReceipt, error) {
	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.games[gameID]
	if !ok {
		return nil, ledgerErr(breevsgame.CodeGameNotFound, "ERR-GAME-NOT-FOUND")
	}
	if !strings.EqualFold(g.snap.Creator, w.addr) {
		return nil, ledgerErr(breevsgame.CodeUnauthorized, "ERR-UNAUTHORIZED")
	}
	if g.snap.Status != breevsgame.StatusActive {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}
	if len(g.snap.Players) != breevsgame.MaxPlayers {
		return nil, ledgerErr(breevsgame.CodeGameFull, "ERR-GAME-FULL")
	}
	g.snap.Status = breevsgame.StatusInProgress
	g.snap.CurrentRound = 1
	g.snap.RoundEnd = l.height + g.snap.RoundDuration
	for _, p := range g.snap.Players {
		l.statsFor(p).GamesPlayed++
	}
	l.log.Infof("simledger: game %d started", gameID)
	return &breevsgame.TxReceipt{TxID: l.nextTx()}, nil
}

func (w *wallet) Spin(_ context.Context, gameID uint64) (*breevsgame.SpinReceipt, error) {
	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.games[gameID]
	if !ok {
		return nil, ledgerErr(breevsgame.CodeGameNotFound, "ERR-GAME-NOT-FOUND")
	}
	if !strings.EqualFold(g.snap.Creator, w.addr) {
		return nil, ledgerErr(breevsgame.CodeNotHost, "ERR-NOT-HOST")
	}
	if g.snap.Status != breevsgame.StatusInProgress {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}
	if l.height >= g.snap.RoundEnd {
		return nil, ledgerErr(breevsgame.CodeRoundExpired, "ERR-ROUND-EXPIRED")
	}

	active := make([]string, 0, len(g.snap.Players))
	for _, p := range g.snap.Players {
		if _, gone := g.eliminated[p]; !gone {
			active = append(active, p)
		}
	}
	if len(active) <= 1 {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}

	victim := active[l.pick(gameID, g.snap.CurrentRound, len(active))]
	g.eliminated[victim] = g.snap.CurrentRound

	if len(active) == 2 {
		// One participant remains after this elimination.
		for _, p := range active {
			if p != victim {
				g.snap.Status = breevsgame.StatusEnded
				g.snap.Winner = p
				l.statsFor(p).GamesWon++
				l.log.Infof("simledger: game %d ended, winner %s", gameID, p)
			}
		}
	}
	l.log.Debugf("simledger: game %d round %d eliminated %s", gameID, g.snap.CurrentRound, victim)
	return &breevsgame.SpinReceipt{TxID: l.nextTx(), Eliminated: victim}, nil
}

// pick derives a deterministic index from (seed, game, round), mirroring the
// contract's VRF-style selection in a replayable way.
func (l *Ledger) pick(gameID uint64, round uint32, n int) int {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%d", l.seed, gameID, round)
	return int(h.Sum64() % uint64(n))
}

func (w *wallet) AdvanceRound(_ context.Context, gameID uint64) (*breevsgame.TxReceipt, error) {
	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.games[gameID]
	if !ok {
		return nil, ledgerErr(breevsgame.CodeGameNotFound, "ERR-GAME-NOT-FOUND")
	}
	if !strings.EqualFold(g.snap.Creator, w.addr) {
		return nil, ledgerErr(breevsgame.CodeNotHost, "ERR-NOT-HOST")
	}
	if g.snap.Status != breevsgame.StatusInProgress {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}
	if l.height < g.snap.RoundEnd {
		return nil, ledgerErr(breevsgame.CodeRoundStillActive, "ERR-ROUND-NOT-ACTIVE")
	}
	g.snap.CurrentRound++
	g.snap.RoundEnd = l.height + g.snap.RoundDuration
	l.log.Debugf("simledger: game %d advanced to round %d", gameID, g.snap.CurrentRound)
	return &breevsgame.TxReceipt{TxID: l.nextTx()}, nil
}

func (w *wallet) ClaimPrize(_ context.Context, gameID uint64) (*breevsgame.TxReceipt, error) {
	l := w.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.games[gameID]
	if !ok {
		return nil, ledgerErr(breevsgame.CodeGameNotFound, "ERR-GAME-NOT-FOUND")
	}
	if g.snap.Status != breevsgame.StatusEnded {
		return nil, ledgerErr(breevsgame.CodeInvalidState, "ERR-INVALID-STATE")
	}
	if g.snap.Winner == "" {
		return nil, ledgerErr(breevsgame.CodeNoWinner, "ERR-NO-WINNER")
	}
	if !strings.EqualFold(g.snap.Winner, w.addr) {
		return nil, ledgerErr(breevsgame.CodeNotWinner, "ERR-NOT-WINNER")
	}
	key := strings.ToLower(w.addr)
	if l.claimed[gameID] == nil {
		l.claimed[gameID] = make(map[string]bool)
	}
	if l.claimed[gameID][key] {
		return nil, ledgerErr(breevsgame.CodeAlreadyClaimed, "ERR-ALREADY-CLAIMED")
	}
	l.claimed[gameID][key] = true
	l.statsFor(w.addr).TotalWinnings += g.snap.PrizePool
	l.log.Infof("simledger: game %d prize %d claimed by %s", gameID, g.snap.PrizePool, w.addr)
	return &breevsgame.TxReceipt{TxID: l.nextTx()}, nil
}
