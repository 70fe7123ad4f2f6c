package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
	"github.com/Anuoluwapo25/Breevs/gamewatcher"
)

// UpdatedMsg signals the UI that tracked state changed and a re-render is
// worthwhile. Details are pulled from the store, not carried in the message.
type UpdatedMsg struct{}

// SpinResultMsg carries the resolution of a confirmed spin so the UI can run
// the wheel animation toward the resolved target.
type SpinResultMsg struct {
	GameID     uint64
	Resolution *breevsgame.SpinResolution
}

// GameEndedMsg signals a tracked game reached its terminal state.
type GameEndedMsg struct {
	GameID uint64
	Winner string
}

// BreevsClientCfg holds the dependencies of a BreevsClient.
type BreevsClientCfg struct {
	AppCfg  *AppConfig
	Log     slog.Logger // required
	Gateway breevsgame.GameGateway

	// Notifications tracks handlers for client events. If nil, the client
	// will initialize a new notification manager.
	Notifications *NotificationManager

	// Storage persists the session between runs. If nil, sessions are
	// in-memory only.
	Storage StorageMedium

	// Clock supplies ledger time for round-expiry checks. Defaults to unix
	// seconds.
	Clock func() uint64
}

// BreevsClient is the reconciliation layer between the authoritative game
// ledger and the UI. It owns the session store, one round engine per tracked
// game, and the watcher feeding both from polls.
type BreevsClient struct {
	sync.RWMutex

	// Address is the caller's wallet address, the identity every
	// participation check runs against.
	Address string

	appCfg  *AppConfig
	gw      breevsgame.GameGateway
	store   *breevsgame.SessionStore
	watcher *gamewatcher.Watcher
	ntfns   *NotificationManager
	storage StorageMedium
	clock   func() uint64

	log slog.Logger

	engines map[uint64]*breevsgame.RoundEngine
	unsubs  map[gamewatcher.QueryKey]func()

	UpdatesCh chan tea.Msg
	ErrorsCh  chan error
}

func NewBreevsClient(address string, cfg *BreevsClientCfg) (*BreevsClient, error) {
	if cfg.Log == nil {
		return nil, fmt.Errorf("client must have logger")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("client must have a game gateway")
	}
	if address == "" {
		return nil, fmt.Errorf("client must have a wallet address")
	}

	ntfns := cfg.Notifications
	if ntfns == nil {
		ntfns = NewNotificationManager()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().Unix()) }
	}

	store := breevsgame.NewSessionStore()
	c := &BreevsClient{
		Address:   address,
		appCfg:    cfg.AppCfg,
		gw:        cfg.Gateway,
		store:     store,
		watcher:   gamewatcher.NewWatcher(cfg.Log, cfg.Gateway, store),
		ntfns:     ntfns,
		storage:   cfg.Storage,
		clock:     clock,
		log:       cfg.Log,
		engines:   make(map[uint64]*breevsgame.RoundEngine),
		unsubs:    make(map[gamewatcher.QueryKey]func()),
		UpdatesCh: make(chan tea.Msg, 64),
		ErrorsCh:  make(chan error),
	}
	return c, nil
}

// Run drives the polling watcher until ctx is canceled.
func (c *BreevsClient) Run(ctx context.Context) error {
	c.watcher.Run(ctx)
	return ctx.Err()
}

// Store exposes the session store for read access by the UI.
func (c *BreevsClient) Store() *breevsgame.SessionStore { return c.store }

// Notifications returns the client's notification manager.
func (c *BreevsClient) Notifications() *NotificationManager { return c.ntfns }

// Engine returns the round engine for a tracked game, or nil.
func (c *BreevsClient) Engine(gameID uint64) *breevsgame.RoundEngine {
	c.RLock()
	defer c.RUnlock()
	return c.engines[gameID]
}

func (c *BreevsClient) engineFor(snap *breevsgame.GameSnapshot) *breevsgame.RoundEngine {
	c.Lock()
	defer c.Unlock()
	e, ok := c.engines[snap.GameID]
	if !ok {
		e = breevsgame.NewRoundEngine(snap, c.log)
		c.engines[snap.GameID] = e
	}
	return e
}

// WatchLists subscribes to the lobby list and the caller's games and pumps
// refreshes into UpdatesCh. Idempotent.
func (c *BreevsClient) WatchLists(ctx context.Context) {
	c.watchKey(ctx, gamewatcher.ActiveGamesKey, nil)
	c.watchKey(ctx, gamewatcher.MyGamesKey(c.Address), nil)
}

// WatchGame subscribes to a single game's snapshot stream, reconciling the
// round engine on every successful poll. Idempotent per game.
func (c *BreevsClient) WatchGame(ctx context.Context, gameID uint64) {
	c.watchKey(ctx, gamewatcher.GameKey(gameID), func(u gamewatcher.QueryUpdate) {
		if u.Game == nil {
			return
		}
		c.reconcileGame(u.Game)
	})
}

// UnwatchGame drops the subscription for a game, e.g. after leaving its view.
func (c *BreevsClient) UnwatchGame(gameID uint64) {
	key := gamewatcher.GameKey(gameID)
	c.Lock()
	unsub := c.unsubs[key]
	delete(c.unsubs, key)
	c.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *BreevsClient) watchKey(ctx context.Context, key gamewatcher.QueryKey, onUpdate func(gamewatcher.QueryUpdate)) {
	c.Lock()
	if _, ok := c.unsubs[key]; ok {
		c.Unlock()
		return
	}
	ch, unsub := c.watcher.Subscribe(key)
	c.unsubs[key] = unsub
	c.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-ch:
				if !ok {
					return
				}
				if u.Err != nil {
					c.log.Warnf("poll %s failed, keeping last data: %v", u.Key, u.Err)
					c.notifyError(fmt.Errorf("refresh %s: %w", u.Key, u.Err))
					continue
				}
				if onUpdate != nil {
					onUpdate(u)
				}
				c.notifyUpdated()
			}
		}
	}()
}

// reconcileGame folds an authoritative snapshot into the game's engine and
// fires lifecycle notifications for status edges observed via poll.
func (c *BreevsClient) reconcileGame(snap *breevsgame.GameSnapshot) {
	e := c.engineFor(snap)
	prev := e.Phase()
	prevWinner := e.Winner()
	e.AdoptSnapshot(snap)

	if prev == breevsgame.PhaseLobby && snap.Status == breevsgame.StatusInProgress {
		c.ntfns.notifyGameStarted(snap)
	}
	if snap.Status == breevsgame.StatusEnded && prevWinner == "" && snap.Winner != "" {
		c.ntfns.notifyGameEnded(snap.GameID, snap.Winner)
		select {
		case c.UpdatesCh <- GameEndedMsg{GameID: snap.GameID, Winner: snap.Winner}:
		default:
		}
	}
}

// RefreshNow forces an immediate poll of a game key, used right after a write
// confirmation so the reconciling read does not wait out the interval.
func (c *BreevsClient) RefreshNow(ctx context.Context, gameID uint64) {
	c.watcher.PollNow(ctx, gamewatcher.GameKey(gameID))
}

func (c *BreevsClient) notifyUpdated() {
	select {
	case c.UpdatesCh <- UpdatedMsg{}:
	default:
	}
}

func (c *BreevsClient) notifyError(err error) {
	select {
	case c.ErrorsCh <- err:
	default:
		c.log.Errorf("dropped error notification: %v", err)
	}
}

// LedgerTime returns the current ledger time per the configured clock.
func (c *BreevsClient) LedgerTime() uint64 { return c.clock() }
