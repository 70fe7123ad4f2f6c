package client

import (
	"sync"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
)

// The following is based on the notification manager pattern of bisonrelay's
// client: registration returns a handle, handlers are keyed by event type and
// invoked synchronously in registration order.

type NotificationHandler interface {
	typ() string
}

// NotificationRegistration is a handle to an active registration.
type NotificationRegistration struct {
	unreg func() bool
}

// Unregister removes the handler. Returns true if it was still registered.
func (reg NotificationRegistration) Unregister() bool {
	if reg.unreg == nil {
		return false
	}
	return reg.unreg()
}

const (
	onGameCreatedType      = "onGameCreated"
	onPlayerJoinedType     = "onPlayerJoined"
	onGameStartedType      = "onGameStarted"
	onPlayerEliminatedType = "onPlayerEliminated"
	onGameEndedType        = "onGameEnded"
	onPrizeClaimedType     = "onPrizeClaimed"
)

// OnGameCreatedNtfn fires after a create-game write confirms.
type OnGameCreatedNtfn func(game *breevsgame.GameSnapshot)

func (OnGameCreatedNtfn) typ() string { return onGameCreatedType }

// OnPlayerJoinedNtfn fires after a join confirms, local or observed via poll.
type OnPlayerJoinedNtfn func(game *breevsgame.GameSnapshot, addr string)

func (OnPlayerJoinedNtfn) typ() string { return onPlayerJoinedType }

// OnGameStartedNtfn fires when a game transitions to in-progress.
type OnGameStartedNtfn func(game *breevsgame.GameSnapshot)

func (OnGameStartedNtfn) typ() string { return onGameStartedType }

// OnPlayerEliminatedNtfn fires after a spin outcome is applied locally.
type OnPlayerEliminatedNtfn func(gameID uint64, res *breevsgame.SpinResolution)

func (OnPlayerEliminatedNtfn) typ() string { return onPlayerEliminatedType }

// OnGameEndedNtfn fires once per game when it reaches the ended state.
type OnGameEndedNtfn func(gameID uint64, winner string)

func (OnGameEndedNtfn) typ() string { return onGameEndedType }

// OnPrizeClaimedNtfn fires after a successful prize claim.
type OnPrizeClaimedNtfn func(gameID uint64, winner string, amount uint64)

func (OnPrizeClaimedNtfn) typ() string { return onPrizeClaimedType }

type handlersRegistry struct {
	mtx      sync.Mutex
	next     uint
	handlers map[uint]NotificationHandler
}

func (reg *handlersRegistry) register(h NotificationHandler) NotificationRegistration {
	reg.mtx.Lock()
	id := reg.next
	reg.next++
	if reg.handlers == nil {
		reg.handlers = make(map[uint]NotificationHandler)
	}
	reg.handlers[id] = h
	reg.mtx.Unlock()
	return NotificationRegistration{unreg: func() bool {
		reg.mtx.Lock()
		_, ok := reg.handlers[id]
		delete(reg.handlers, id)
		reg.mtx.Unlock()
		return ok
	}}
}

func (reg *handlersRegistry) visit(f func(NotificationHandler)) {
	reg.mtx.Lock()
	hs := make([]NotificationHandler, 0, len(reg.handlers))
	for _, h := range reg.handlers {
		hs = append(hs, h)
	}
	reg.mtx.Unlock()
	for _, h := range hs {
		f(h)
	}
}

// NotificationManager dispatches game lifecycle events to registered
// handlers. Dispatch is synchronous: handlers run on the calling goroutine
// and should hand off long work themselves.
type NotificationManager struct {
	mtx      sync.Mutex
	handlers map[string]*handlersRegistry
}

func NewNotificationManager() *NotificationManager {
	return &NotificationManager{handlers: make(map[string]*handlersRegistry)}
}

func (nmgr *NotificationManager) registry(typ string) *handlersRegistry {
	nmgr.mtx.Lock()
	defer nmgr.mtx.Unlock()
	r := nmgr.handlers[typ]
	if r == nil {
		r = &handlersRegistry{}
		nmgr.handlers[typ] = r
	}
	return r
}

// RegisterSync registers a handler called synchronously when its event fires.
func (nmgr *NotificationManager) RegisterSync(handler NotificationHandler) NotificationRegistration {
	return nmgr.registry(handler.typ()).register(handler)
}

func (nmgr *NotificationManager) notifyGameCreated(g *breevsgame.GameSnapshot) {
	nmgr.registry(onGameCreatedType).visit(func(h NotificationHandler) {
		h.(OnGameCreatedNtfn)(g)
	})
}

func (nmgr *NotificationManager) notifyPlayerJoined(g *breevsgame.GameSnapshot, addr string) {
	nmgr.registry(onPlayerJoinedType).visit(func(h NotificationHandler) {
		h.(OnPlayerJoinedNtfn)(g, addr)
	})
}

func (nmgr *NotificationManager) notifyGameStarted(g *breevsgame.GameSnapshot) {
	nmgr.registry(onGameStartedType).visit(func(h NotificationHandler) {
		h.(OnGameStartedNtfn)(g)
	})
}

func (nmgr *NotificationManager) notifyPlayerEliminated(gameID uint64, res *breevsgame.SpinResolution) {
	nmgr.registry(onPlayerEliminatedType).visit(func(h NotificationHandler) {
		h.(OnPlayerEliminatedNtfn)(gameID, res)
	})
}

func (nmgr *NotificationManager) notifyGameEnded(gameID uint64, winner string) {
	nmgr.registry(onGameEndedType).visit(func(h NotificationHandler) {
		h.(OnGameEndedNtfn)(gameID, winner)
	})
}

func (nmgr *NotificationManager) notifyPrizeClaimed(gameID uint64, winner string, amount uint64) {
	nmgr.registry(onPrizeClaimedType).visit(func(h NotificationHandler) {
		h.(OnPrizeClaimedNtfn)(gameID, winner, amount)
	})
}
