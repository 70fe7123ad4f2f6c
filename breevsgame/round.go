package breevsgame

import (
	"errors"
	"fmt"
	"sync"

	"github.com/decred/slog"
)

// Phase of a game's local round state machine.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseAwaitingSpin
	PhaseAnimating
	PhaseAwaitingAdvance
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseAwaitingSpin:
		return "awaiting-spin"
	case PhaseAnimating:
		return "animating"
	case PhaseAwaitingAdvance:
		return "awaiting-advance"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ErrOutcomeIntegrity marks a spin outcome that names a participant outside
// the still-active set. It indicates a gateway/client disagreement rather
// than user error and is surfaced distinctly from ordinary write rejections.
var ErrOutcomeIntegrity = errors.New("spin outcome integrity failure")

// ErrWrongPhase is returned when a transition is requested from a phase that
// does not permit it.
var ErrWrongPhase = errors.New("wrong round phase")

// SpinResolution is the deterministic replay target for one elimination.
// Given the same still-active list and eliminated index, the resolution is
// byte-identical across invocations.
type SpinResolution struct {
	Eliminated    string
	Index         int // position within the still-active list at spin time
	ActiveBefore  int
	TargetAngle   float64
	FinalRotation float64
}

// RoundEngine turns one authoritative elimination outcome per round into
// consistent per-participant state and a replay target. One engine per game.
type RoundEngine struct {
	sync.RWMutex

	game       *GameSnapshot
	phase      Phase
	round      uint32
	eliminated map[string]uint32 // address -> round eliminated in
	winner     string

	log slog.Logger
}

// NewRoundEngine builds an engine from the latest snapshot. The initial
// phase follows the authoritative status.
func NewRoundEngine(snap *GameSnapshot, log slog.Logger) *RoundEngine {
	e := &RoundEngine{
		game:       snap.Clone(),
		eliminated: make(map[string]uint32),
		log:        log,
	}
	e.adoptLocked(snap)
	return e
}

func (e *RoundEngine) adoptLocked(snap *GameSnapshot) {
	e.game = snap.Clone()
	if snap.CurrentRound > e.round {
		e.round = snap.CurrentRound
	}
	switch snap.Status {
	case StatusActive:
		e.phase = PhaseLobby
	case StatusInProgress:
		// Keep a mid-flight animation; otherwise a poll observing
		// InProgress means a spin is (again) possible.
		if e.phase != PhaseAnimating && e.phase != PhaseAwaitingAdvance {
			e.phase = PhaseAwaitingSpin
		}
	case StatusEnded:
		// Out-of-band end, e.g. another client drove the final spin.
		// Adopt immediately; never keep stale in-progress controls.
		e.phase = PhaseEnded
		e.winner = snap.Winner
	}
}

// AdoptSnapshot reconciles the engine with a fresh authoritative snapshot.
func (e *RoundEngine) AdoptSnapshot(snap *GameSnapshot) {
	if snap == nil {
		return
	}
	e.Lock()
	defer e.Unlock()
	if snap.CurrentRound > e.round && e.phase == PhaseAwaitingAdvance {
		// Another client advanced the round out of band.
		e.phase = PhaseAwaitingSpin
	}
	e.adoptLocked(snap)
}

func (e *RoundEngine) Phase() Phase {
	e.RLock()
	defer e.RUnlock()
	return e.phase
}

func (e *RoundEngine) Round() uint32 {
	e.RLock()
	defer e.RUnlock()
	return e.round
}

func (e *RoundEngine) Winner() string {
	e.RLock()
	defer e.RUnlock()
	return e.winner
}

func (e *RoundEngine) Game() *GameSnapshot {
	e.RLock()
	defer e.RUnlock()
	return e.game.Clone()
}

// Start confirms the lobby-to-play transition after a start-game write.
// Guards: full capacity and matching creator, checked again here even though
// the contract enforces both.
func (e *RoundEngine) Start(callerAddr string) error {
	e.Lock()
	defer e.Unlock()
	if e.phase != PhaseLobby {
		return fmt.Errorf("%w: start from %s", ErrWrongPhase, e.phase)
	}
	if len(e.game.Players) != MaxPlayers {
		return &LedgerError{Code: CodeGameFull, Name: "ERR-GAME-FULL"}
	}
	if e.game.Creator != callerAddr {
		return &LedgerError{Code: CodeNotHost, Name: "ERR-NOT-HOST"}
	}
	e.phase = PhaseAwaitingSpin
	if e.round == 0 {
		e.round = 1
	}
	return nil
}

// ActiveParticipants returns the still-active participants in stable order:
// order of first appearance in the players list, duplicates ignored.
func (e *RoundEngine) ActiveParticipants() []string {
	e.RLock()
	defer e.RUnlock()
	return e.activeLocked()
}

func (e *RoundEngine) activeLocked() []string {
	seen := make(map[string]bool, len(e.game.Players))
	var out []string
	for _, p := range e.game.Players {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, gone := e.eliminated[p]; !gone {
			out = append(out, p)
		}
	}
	return out
}

// ApplyOutcome applies a confirmed spin result. The eliminated address must
// be a member of the still-active set; anything else is rejected with
// ErrOutcomeIntegrity, no participant state changes, and the round remains
// spinnable.
func (e *RoundEngine) ApplyOutcome(eliminatedAddr string) (*SpinResolution, error) {
	e.Lock()
	defer e.Unlock()
	if e.phase != PhaseAwaitingSpin {
		return nil, fmt.Errorf("%w: spin outcome in %s", ErrWrongPhase, e.phase)
	}

	active := e.activeLocked()
	idx := -1
	for i, p := range active {
		if p == eliminatedAddr {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.log.Errorf("game %d round %d: outcome names %s, not in active set of %d",
			e.game.GameID, e.round, eliminatedAddr, len(active))
		return nil, fmt.Errorf("%w: %s is not an active participant of game %d",
			ErrOutcomeIntegrity, eliminatedAddr, e.game.GameID)
	}

	target, err := WheelTarget(idx, len(active))
	if err != nil {
		return nil, err
	}
	final, _ := FinalRotation(idx, len(active))

	e.eliminated[eliminatedAddr] = e.round
	e.phase = PhaseAnimating
	e.log.Debugf("game %d round %d: eliminated %s (segment %d of %d)",
		e.game.GameID, e.round, eliminatedAddr, idx, len(active))

	return &SpinResolution{
		Eliminated:    eliminatedAddr,
		Index:         idx,
		ActiveBefore:  len(active),
		TargetAngle:   target,
		FinalRotation: final,
	}, nil
}

// FinishAnimation completes the spin timeline. With more than one
// participant left the round waits for an advance; with exactly one left the
// game ends locally and that participant is the winner. A confirmatory poll
// is still expected but not required for the transition.
func (e *RoundEngine) FinishAnimation() (winner string, ended bool, err error) {
	e.Lock()
	defer e.Unlock()
	if e.phase != PhaseAnimating {
		return "", false, fmt.Errorf("%w: finish animation in %s", ErrWrongPhase, e.phase)
	}
	active := e.activeLocked()
	if len(active) == 1 {
		e.winner = active[0]
		e.phase = PhaseEnded
		e.game.Status = StatusEnded
		e.game.Winner = e.winner
		e.log.Infof("game %d ended, winner %s", e.game.GameID, e.winner)
		return e.winner, true, nil
	}
	e.phase = PhaseAwaitingAdvance
	return "", false, nil
}

// RoundExpired reports whether the current round's time window has elapsed
// at the given ledger time.
func (e *RoundEngine) RoundExpired(now uint64) bool {
	e.RLock()
	defer e.RUnlock()
	return now >= e.game.RoundEnd
}

// ConfirmAdvance applies a confirmed advance-round write: increments the
// round and re-arms the spin. The round-window guard belongs to the caller
// (and the contract); by the time the write confirmed it has already held.
func (e *RoundEngine) ConfirmAdvance() error {
	e.Lock()
	defer e.Unlock()
	if e.phase != PhaseAwaitingAdvance {
		return fmt.Errorf("%w: advance in %s", ErrWrongPhase, e.phase)
	}
	e.round++
	e.phase = PhaseAwaitingSpin
	return nil
}

// ParticipantViews projects per-participant elimination state for rendering.
// Display names are positional, matching the wheel labels.
func (e *RoundEngine) ParticipantViews() []ParticipantView {
	e.RLock()
	defer e.RUnlock()
	views := make([]ParticipantView, 0, len(e.game.Players))
	for i, p := range e.game.Players {
		v := ParticipantView{
			Address:     p,
			DisplayName: fmt.Sprintf("Player %d", i+1),
			Status:      StillIn,
		}
		if round, gone := e.eliminated[p]; gone {
			v.Status = Eliminated
			v.EliminatedInRound = round
		}
		views = append(views, v)
	}
	return views
}
