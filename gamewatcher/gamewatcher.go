package gamewatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
)

// QueryKey identifies one tracked ledger query.
type QueryKey string

// ActiveGamesKey tracks the global lobby list.
const ActiveGamesKey QueryKey = "active"

func GameKey(gameID uint64) QueryKey {
	return QueryKey(fmt.Sprintf("game/%d", gameID))
}

func MyGamesKey(addr string) QueryKey {
	return QueryKey("mygames/" + strings.ToLower(addr))
}

// QueryUpdate is broadcast to a key's subscribers after each completed poll.
// On failure Err is set, Stale is true and the store is left untouched; the
// previously merged data stays visible.
type QueryUpdate struct {
	Key   QueryKey
	At    time.Time
	Err   error
	Stale bool

	Game  *breevsgame.GameSnapshot   // game/<id> keys
	Games []*breevsgame.GameSnapshot // list keys
}

const (
	// Fast cadence for games under active play; slow keys fire every
	// slowEvery tick. Elimination rounds are time-sensitive, idle lobby
	// and ended games are not.
	pollInterval = 5 * time.Second
	slowEvery    = 3

	fetchRetries = 2
	retryDelay   = 250 * time.Millisecond
)

// Watcher keeps the session store eventually consistent with the ledger. It
// is a minimal pusher in the same shape as a chain deposit watcher: each
// tick it fetches every query key that currently has at least one subscriber
// and is due under its cadence, merges successes into the store, and
// broadcasts a QueryUpdate. At most one fetch per key is in flight; a tick
// that finds a key busy skips it rather than stacking reads.
type Watcher struct {
	log   slog.Logger
	gw    breevsgame.GameGateway
	store *breevsgame.SessionStore

	mu       sync.RWMutex
	subs     map[QueryKey]map[chan QueryUpdate]struct{}
	inflight map[QueryKey]bool
	ticks    map[QueryKey]int
	status   map[QueryKey]breevsgame.GameStatus // last seen status per game key

	quit chan struct{}
}

func NewWatcher(log slog.Logger, gw breevsgame.GameGateway, store *breevsgame.SessionStore) *Watcher {
	return &Watcher{
		log:      log,
		gw:       gw,
		store:    store,
		subs:     make(map[QueryKey]map[chan QueryUpdate]struct{}),
		inflight: make(map[QueryKey]bool),
		ticks:    make(map[QueryKey]int),
		status:   make(map[QueryKey]breevsgame.GameStatus),
		quit:     make(chan struct{}),
	}
}

func (w *Watcher) Stop() { close(w.quit) }

func (w *Watcher) Run(ctx context.Context) {
	w.log.Infof("watcher: started")
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	defer w.log.Infof("watcher: stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case <-t.C:
			w.pollOnce(ctx)
		}
	}
}

// Subscribe adds a listener for key and returns the channel + unsubscribe.
// No initial snapshot is sent; first data arrives on the next due tick. The
// first subscriber makes the key eligible for polling, the last unsubscribe
// abandons it: a fetch still in flight for an abandoned key is discarded
// instead of merged.
func (w *Watcher) Subscribe(key QueryKey) (<-chan QueryUpdate, func()) {
	ch := make(chan QueryUpdate, 8)

	w.mu.Lock()
	if _, ok := w.subs[key]; !ok {
		w.subs[key] = make(map[chan QueryUpdate]struct{})
	}
	w.subs[key][ch] = struct{}{}
	n := len(w.subs[key])
	w.mu.Unlock()
	w.log.Debugf("watcher: subscribed %s (subs=%d)", key, n)

	unsub := func() {
		w.mu.Lock()
		if set, ok := w.subs[key]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(w.subs, key)
				delete(w.ticks, key)
				delete(w.status, key)
			}
		}
		w.mu.Unlock()
		w.log.Debugf("watcher: unsubscribed %s", key)
		// Do not close(ch): a poll may still try to send; receivers stop
		// by context.
	}
	return ch, unsub
}

// PollNow forces an immediate fetch of key regardless of cadence, e.g. right
// after a write confirmation when the caller wants the reconciling read to
// start without waiting out the interval.
func (w *Watcher) PollNow(ctx context.Context, key QueryKey) {
	w.fetch(ctx, key)
}

func (w *Watcher) pollOnce(ctx context.Context) {
	w.mu.Lock()
	due := make([]QueryKey, 0, len(w.subs))
	for k := range w.subs {
		if w.inflight[k] {
			continue
		}
		w.ticks[k]++
		if w.slowLocked(k) && w.ticks[k]%slowEvery != 0 {
			continue
		}
		w.inflight[k] = true
		due = append(due, k)
	}
	w.mu.Unlock()

	for _, k := range due {
		k := k
		go func() {
			defer func() {
				w.mu.Lock()
				w.inflight[k] = false
				w.mu.Unlock()
			}()
			w.fetch(ctx, k)
		}()
	}
}

// slowLocked reports whether key polls on the long cadence. Only a game
// observed InProgress polls fast; list queries and idle/ended games are
// slow. Callers hold w.mu.
func (w *Watcher) slowLocked(key QueryKey) bool {
	if st, ok := w.status[key]; ok {
		return st != breevsgame.StatusInProgress
	}
	if strings.HasPrefix(string(key), "game/") {
		// Unknown status yet: poll fast until the first read settles it.
		return false
	}
	return true
}

func (w *Watcher) fetch(ctx context.Context, key QueryKey) {
	// The sequence is stamped before the read starts: an optimistic merge
	// confirmed while this fetch is in flight takes a later stamp and wins.
	seq := w.store.NextSeq()

	var (
		game  *breevsgame.GameSnapshot
		games []*breevsgame.GameSnapshot
		err   error
	)
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		if attempt > 0 {
			// Space retries out instead of bursting at a down node.
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
		}
		game, games, err = w.fetchOnce(ctx, key)
		if err == nil || ctx.Err() != nil {
			break
		}
		w.log.Debugf("watcher: %s fetch attempt %d failed: %v", key, attempt+1, err)
	}

	if !w.hasSubs(key) {
		// Abandoned while in flight; discard rather than merge.
		return
	}

	if err != nil {
		w.broadcast(key, QueryUpdate{Key: key, At: time.Now(), Err: err, Stale: true})
		return
	}

	switch {
	case game != nil:
		w.store.MergeSnapshot(game, seq)
		w.mu.Lock()
		w.status[key] = game.Status
		w.mu.Unlock()
		w.broadcast(key, QueryUpdate{Key: key, At: time.Now(), Game: game})
	default:
		if key == ActiveGamesKey {
			w.store.ReplaceActiveGames(games, seq)
		} else {
			w.store.ReplaceMyGames(games, seq)
		}
		w.broadcast(key, QueryUpdate{Key: key, At: time.Now(), Games: games})
	}
}

func (w *Watcher) fetchOnce(ctx context.Context, key QueryKey) (*breevsgame.GameSnapshot, []*breevsgame.GameSnapshot, error) {
	s := string(key)
	switch {
	case strings.HasPrefix(s, "game/"):
		var id uint64
		if _, err := fmt.Sscanf(s, "game/%d", &id); err != nil {
			return nil, nil, fmt.Errorf("bad query key %q", key)
		}
		snap, err := w.gw.GameSnapshot(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return snap, nil, nil

	case key == ActiveGamesKey:
		games, err := w.listGames(ctx, func(g *breevsgame.GameSnapshot) bool {
			return g.Status == breevsgame.StatusActive || g.Status == breevsgame.StatusInProgress
		})
		return nil, games, err

	case strings.HasPrefix(s, "mygames/"):
		addr := strings.TrimPrefix(s, "mygames/")
		games, err := w.listGames(ctx, func(g *breevsgame.GameSnapshot) bool {
			return strings.EqualFold(g.Creator, addr) || containsFold(g.Players, addr)
		})
		return nil, games, err

	default:
		return nil, nil, fmt.Errorf("unknown query key %q", key)
	}
}

// listGames walks game ids 1..total and keeps snapshots passing the filter.
// Individual unreadable games are skipped, matching the ledger explorer
// behavior: one corrupt game must not blank the whole lobby.
func (w *Watcher) listGames(ctx context.Context, keep func(*breevsgame.GameSnapshot) bool) ([]*breevsgame.GameSnapshot, error) {
	total, err := w.gw.TotalGames(ctx)
	if err != nil {
		return nil, err
	}
	games := make([]*breevsgame.GameSnapshot, 0, total)
	for id := uint64(1); id <= total; id++ {
		g, err := w.gw.GameSnapshot(ctx, id)
		if err != nil {
			w.log.Debugf("watcher: skipping game %d: %v", id, err)
			continue
		}
		if keep(g) {
			games = append(games, g)
		}
	}
	return games, nil
}

func containsFold(list []string, addr string) bool {
	for _, p := range list {
		if strings.EqualFold(p, addr) {
			return true
		}
	}
	return false
}

func (w *Watcher) hasSubs(key QueryKey) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs[key]) > 0
}

// broadcast snapshots subscribers for key, then best-effort sends
// (non-blocking, drops if a receiver is slow).
func (w *Watcher) broadcast(key QueryKey, u QueryUpdate) {
	w.mu.RLock()
	set := w.subs[key]
	chs := make([]chan QueryUpdate, 0, len(set))
	for ch := range set {
		chs = append(chs, ch)
	}
	w.mu.RUnlock()

	for _, ch := range chs {
		select {
		case ch <- u:
		default:
		}
	}
}
