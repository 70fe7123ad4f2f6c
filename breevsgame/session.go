package breevsgame

import (
	"sync"
)

// SessionStore is the single source of client-visible truth for which games
// exist and whether the caller is engaged in one. It is fed from two
// independent sources, authoritative poll merges and optimistic
// write-confirmation merges, and every operation is synchronous, idempotent
// on game id, and free of error returns, so independent goroutine flows can
// call it without coordination.
type SessionStore struct {
	sync.RWMutex

	activeGames map[uint64]*GameSnapshot
	myGames     map[uint64]*GameSnapshot

	currentPlayerGame  *GameSnapshot
	currentCreatorGame *GameSnapshot

	selectedGame *GameSnapshot
	filters      Filters
	activeTab    string
	loading      bool

	// Logical merge clock. A poll stamps its sequence before fetching; an
	// optimistic merge stamps at confirmation. Per-game, a merge with a
	// lower stamp than the last applied one is stale and dropped, which is
	// what stops an in-flight poll started before a write from clobbering
	// the write's optimistic result.
	seq     uint64
	applied map[uint64]uint64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		activeGames: make(map[uint64]*GameSnapshot),
		myGames:     make(map[uint64]*GameSnapshot),
		filters:     DefaultFilters(),
		activeTab:   "active",
		applied:     make(map[uint64]uint64),
	}
}

// NextSeq reserves the next logical sequence number. Callers stamp a merge
// with a sequence taken before the data was fetched (polls) or at
// confirmation time (optimistic writes).
func (s *SessionStore) NextSeq() uint64 {
	s.Lock()
	defer s.Unlock()
	s.seq++
	return s.seq
}

// ReplaceActiveGames is the authoritative merge for the lobby list, stamped
// with the poll's logical sequence: the set is replaced wholesale and entries
// absent from the poll result are dropped, except games whose last applied
// stamp is newer than seq, which keep their stored copy. myGames is
// untouched.
func (s *SessionStore) ReplaceActiveGames(snapshots []*GameSnapshot, seq uint64) {
	s.Lock()
	defer s.Unlock()
	s.activeGames = s.replaceLocked(s.activeGames, snapshots, seq)
}

// ReplaceMyGames is the authoritative merge for the caller's games,
// deduplicated by game id with the last entry winning and subject to the
// same per-game staleness rule as ReplaceActiveGames: an optimistic merge
// confirmed after seq was stamped survives a stale poll result, including
// one that omits the game entirely. The current-game pointers are
// deliberately not derived here so a poll cannot clobber an optimistic
// pointer mid-flight.
func (s *SessionStore) ReplaceMyGames(snapshots []*GameSnapshot, seq uint64) {
	s.Lock()
	defer s.Unlock()
	s.myGames = s.replaceLocked(s.myGames, snapshots, seq)
}

func (s *SessionStore) replaceLocked(old map[uint64]*GameSnapshot, snapshots []*GameSnapshot, seq uint64) map[uint64]*GameSnapshot {
	next := make(map[uint64]*GameSnapshot, len(snapshots))
	for _, g := range snapshots {
		if g == nil {
			continue
		}
		if s.applied[g.GameID] > seq {
			if kept, ok := old[g.GameID]; ok {
				next[g.GameID] = kept
			}
			continue
		}
		s.applied[g.GameID] = seq
		next[g.GameID] = g.Clone()
	}
	// Games the stale result omits but a later merge already wrote.
	for id, g := range old {
		if _, ok := next[id]; !ok && s.applied[id] > seq {
			next[id] = g
		}
	}
	return next
}

// MergeSnapshot applies a single-game snapshot carrying a logical sequence
// stamp. Stale merges (stamp older than the last applied for that game) are
// dropped. An Ended snapshot clears any current-game pointer referencing it.
func (s *SessionStore) MergeSnapshot(snap *GameSnapshot, seq uint64) {
	if snap == nil {
		return
	}
	s.Lock()
	defer s.Unlock()
	if seq < s.applied[snap.GameID] {
		return
	}
	s.applied[snap.GameID] = seq

	cp := snap.Clone()
	if _, ok := s.activeGames[cp.GameID]; ok {
		s.activeGames[cp.GameID] = cp
	}
	if _, ok := s.myGames[cp.GameID]; ok {
		s.myGames[cp.GameID] = cp
	}
	if s.currentPlayerGame != nil && s.currentPlayerGame.GameID == cp.GameID {
		s.currentPlayerGame = cp
	}
	if s.currentCreatorGame != nil && s.currentCreatorGame.GameID == cp.GameID {
		s.currentCreatorGame = cp
	}
	if cp.Status == StatusEnded {
		s.clearEndedPointersLocked(cp.GameID)
	}
}

// UpdateGameStatus patches the status of every tracked copy of the game.
// When the new status is Ended, the current-game pointers referencing the
// game are cleared, which is the sole path that frees a participant for a
// new engagement after a game concludes.
func (s *SessionStore) UpdateGameStatus(gameID uint64, status GameStatus) {
	s.Lock()
	defer s.Unlock()
	patch := func(g *GameSnapshot) *GameSnapshot {
		cp := g.Clone()
		cp.Status = status
		return cp
	}
	if g, ok := s.activeGames[gameID]; ok {
		s.activeGames[gameID] = patch(g)
	}
	if g, ok := s.myGames[gameID]; ok {
		s.myGames[gameID] = patch(g)
	}
	if s.currentPlayerGame != nil && s.currentPlayerGame.GameID == gameID {
		s.currentPlayerGame = patch(s.currentPlayerGame)
	}
	if s.currentCreatorGame != nil && s.currentCreatorGame.GameID == gameID {
		s.currentCreatorGame = patch(s.currentCreatorGame)
	}
	if status == StatusEnded {
		s.clearEndedPointersLocked(gameID)
	}
}

func (s *SessionStore) clearEndedPointersLocked(gameID uint64) {
	if s.currentPlayerGame != nil && s.currentPlayerGame.GameID == gameID {
		s.currentPlayerGame = nil
	}
	if s.currentCreatorGame != nil && s.currentCreatorGame.GameID == gameID {
		s.currentCreatorGame = nil
	}
}

// AddToMyGames inserts an optimistic entry, overwriting any existing entry
// with the same id.
func (s *SessionStore) AddToMyGames(snap *GameSnapshot) {
	if snap == nil {
		return
	}
	s.Lock()
	defer s.Unlock()
	s.myGames[snap.GameID] = snap.Clone()
}

func (s *SessionStore) RemoveFromMyGames(gameID uint64) {
	s.Lock()
	defer s.Unlock()
	delete(s.myGames, gameID)
}

// SetCurrentPlayerGame sets the caller's engaged-as-player pointer. The
// setter is guarded: if the caller already has a different non-ended
// engagement, the call is a no-op and returns false so the caller can
// redirect to the existing game. Passing nil clears the pointer.
func (s *SessionStore) SetCurrentPlayerGame(snap *GameSnapshot, callerAddr string) bool {
	s.Lock()
	defer s.Unlock()
	if snap == nil {
		s.currentPlayerGame = nil
		return true
	}
	if existing := s.currentActiveGameLocked(callerAddr); existing != nil && existing.GameID != snap.GameID {
		return false
	}
	cp := snap.Clone()
	s.currentPlayerGame = cp
	if _, ok := s.myGames[cp.GameID]; !ok {
		s.myGames[cp.GameID] = cp.Clone()
	}
	return true
}

// SetCurrentCreatorGame sets the engaged-as-creator pointer. Creation is
// rate-limited upstream by the hasActiveGame check, so no cross-engagement
// guard is applied here.
func (s *SessionStore) SetCurrentCreatorGame(snap *GameSnapshot) {
	s.Lock()
	defer s.Unlock()
	if snap == nil {
		s.currentCreatorGame = nil
		return
	}
	cp := snap.Clone()
	s.currentCreatorGame = cp
	if _, ok := s.myGames[cp.GameID]; !ok {
		s.myGames[cp.GameID] = cp.Clone()
	}
}

// HasActiveGame reports whether addr has any non-ended engagement. myGames
// is the ground truth here, not the pointer fields: polls keep it
// authoritative even when the pointers lag.
func (s *SessionStore) HasActiveGame(addr string) bool {
	s.RLock()
	defer s.RUnlock()
	return s.currentActiveGameLocked(addr) != nil
}

// CurrentActiveGame returns addr's non-ended engagement, or nil.
func (s *SessionStore) CurrentActiveGame(addr string) *GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	if g := s.currentActiveGameLocked(addr); g != nil {
		return g.Clone()
	}
	return nil
}

func (s *SessionStore) currentActiveGameLocked(addr string) *GameSnapshot {
	if addr == "" {
		return nil
	}
	for _, g := range s.myGames {
		if g.Status != StatusEnded && g.IsParticipant(addr) {
			return g
		}
	}
	return nil
}

// ActiveGames returns the lobby set. No ordering is guaranteed; callers
// apply their own sort/filter.
func (s *SessionStore) ActiveGames() []*GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	out := make([]*GameSnapshot, 0, len(s.activeGames))
	for _, g := range s.activeGames {
		out = append(out, g.Clone())
	}
	return out
}

func (s *SessionStore) MyGames() []*GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	out := make([]*GameSnapshot, 0, len(s.myGames))
	for _, g := range s.myGames {
		out = append(out, g.Clone())
	}
	return out
}

// Game returns the tracked snapshot for an id from any container, preferring
// myGames, or nil when untracked.
func (s *SessionStore) Game(gameID uint64) *GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	if g, ok := s.myGames[gameID]; ok {
		return g.Clone()
	}
	if g, ok := s.activeGames[gameID]; ok {
		return g.Clone()
	}
	return nil
}

func (s *SessionStore) CurrentPlayerGame() *GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	return s.currentPlayerGame.Clone()
}

func (s *SessionStore) CurrentCreatorGame() *GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	return s.currentCreatorGame.Clone()
}

func (s *SessionStore) SetSelectedGame(snap *GameSnapshot) {
	s.Lock()
	defer s.Unlock()
	s.selectedGame = snap.Clone()
}

func (s *SessionStore) SelectedGame() *GameSnapshot {
	s.RLock()
	defer s.RUnlock()
	return s.selectedGame.Clone()
}

func (s *SessionStore) SetFilters(f Filters) {
	s.Lock()
	defer s.Unlock()
	s.filters = f
}

func (s *SessionStore) Filters() Filters {
	s.RLock()
	defer s.RUnlock()
	return s.filters
}

func (s *SessionStore) SetActiveTab(tab string) {
	s.Lock()
	defer s.Unlock()
	s.activeTab = tab
}

func (s *SessionStore) ActiveTab() string {
	s.RLock()
	defer s.RUnlock()
	return s.activeTab
}

func (s *SessionStore) SetLoading(v bool) {
	s.Lock()
	defer s.Unlock()
	s.loading = v
}

func (s *SessionStore) Loading() bool {
	s.RLock()
	defer s.RUnlock()
	return s.loading
}

// ClearSession wipes all game state and both current-game pointers. Called
// on sign-out; the caller is responsible for wiping persisted state in the
// same operation so a stale engagement cannot resurrect for another wallet.
func (s *SessionStore) ClearSession() {
	s.Lock()
	defer s.Unlock()
	s.activeGames = make(map[uint64]*GameSnapshot)
	s.myGames = make(map[uint64]*GameSnapshot)
	s.currentPlayerGame = nil
	s.currentCreatorGame = nil
	s.selectedGame = nil
	s.applied = make(map[uint64]uint64)
}
