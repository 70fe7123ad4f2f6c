package breevsgame

// GameStatus mirrors the contract's status uint.
type GameStatus int

const (
	StatusActive     GameStatus = 0
	StatusInProgress GameStatus = 1
	StatusEnded      GameStatus = 2
)

func (s GameStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInProgress:
		return "in-progress"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MaxPlayers is the fixed game capacity (host plus five challengers).
const MaxPlayers = 6

// GameSnapshot is a single point-in-time read of one game's ledger state.
// Snapshots are immutable once fetched; merge operations replace whole
// snapshots rather than patching fields in place.
type GameSnapshot struct {
	GameID        uint64
	Creator       string
	Players       []string // ordered, includes creator
	Stake         uint64   // micro-STX
	PrizePool     uint64
	Status        GameStatus
	CurrentRound  uint32
	RoundEnd      uint64 // ledger-time marker for the current round's expiry
	RoundDuration uint64
	TotalRounds   uint32
	Winner        string // empty unless Status == StatusEnded
}

// HasPlayer reports whether addr appears in the players list.
func (g *GameSnapshot) HasPlayer(addr string) bool {
	for _, p := range g.Players {
		if p == addr {
			return true
		}
	}
	return false
}

// IsParticipant reports whether addr is materially engaged in the game,
// either as a listed player or as the creator.
func (g *GameSnapshot) IsParticipant(addr string) bool {
	return addr != "" && (g.Creator == addr || g.HasPlayer(addr))
}

func (g *GameSnapshot) IsFull() bool {
	return len(g.Players) >= MaxPlayers
}

// Clone returns a deep copy. Store mutations always operate on copies so
// callers can hold returned snapshots without racing merges.
func (g *GameSnapshot) Clone() *GameSnapshot {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Players = append([]string(nil), g.Players...)
	return &cp
}

// EliminationStatus of a participant within a running game.
type EliminationStatus int

const (
	StillIn EliminationStatus = iota
	Eliminated
)

func (s EliminationStatus) String() string {
	if s == Eliminated {
		return "Eliminated"
	}
	return "Still in"
}

// ParticipantView is a per-render projection of a player within a game.
// It is derived from a snapshot by the round engine and never persisted.
type ParticipantView struct {
	Address           string
	DisplayName       string
	Status            EliminationStatus
	EliminatedInRound uint32 // 0 when still in
}

// UserStats aggregates a wallet's lifetime results as tracked by the ledger.
type UserStats struct {
	GamesPlayed   uint32
	GamesWon      uint32
	TotalWinnings uint64
	TotalStaked   uint64
}

// Filters holds the lobby list's sort/filter criteria. UI-only state; the
// store carries it so it survives navigation, but no invariant depends on it.
type Filters struct {
	SortBy    string
	SortOrder string
	MinStake  uint64
	Status    GameStatus
}

// DefaultFilters matches the lobby's initial view.
func DefaultFilters() Filters {
	return Filters{SortBy: "newest", SortOrder: "desc", MinStake: 0, Status: StatusActive}
}
