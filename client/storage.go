package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
)

// StorageMedium persists the session record between runs. Load returns
// (nil, nil) when no record exists.
type StorageMedium interface {
	Load() ([]byte, error)
	Store(data []byte) error
	Delete() error
}

// FileStorage keeps the session record as a single JSON file under the app
// data dir.
type FileStorage struct {
	path string
}

func NewFileStorage(dataDir string) *FileStorage {
	return &FileStorage{path: filepath.Join(dataDir, "session.json")}
}

func (fs *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (fs *FileStorage) Store(data []byte) error {
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

func (fs *FileStorage) Delete() error {
	err := os.Remove(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// storedSnapshot is the persisted form of a GameSnapshot. The unsigned
// 64-bit fields travel as decimal strings: JSON numbers round-trip through
// float64 in too many tools and would silently corrupt micro-STX amounts
// near the top of the range.
type storedSnapshot struct {
	GameID        string   `json:"gameId"`
	Creator       string   `json:"creator"`
	Players       []string `json:"players"`
	Stake         string   `json:"stake"`
	PrizePool     string   `json:"prizePool"`
	Status        int      `json:"status"`
	CurrentRound  uint32   `json:"currentRound"`
	RoundEnd      string   `json:"roundEnd"`
	RoundDuration string   `json:"roundDuration"`
	TotalRounds   uint32   `json:"totalRounds"`
	Winner        string   `json:"winner,omitempty"`
}

type sessionRecord struct {
	Address            string          `json:"address"`
	CurrentPlayerGame  *storedSnapshot `json:"currentPlayerGame,omitempty"`
	CurrentCreatorGame *storedSnapshot `json:"currentCreatorGame,omitempty"`
	ActiveTab          string          `json:"activeTab,omitempty"`
}

func encodeSnapshot(g *breevsgame.GameSnapshot) *storedSnapshot {
	if g == nil {
		return nil
	}
	return &storedSnapshot{
		GameID:        strconv.FormatUint(g.GameID, 10),
		Creator:       g.Creator,
		Players:       append([]string(nil), g.Players...),
		Stake:         strconv.FormatUint(g.Stake, 10),
		PrizePool:     strconv.FormatUint(g.PrizePool, 10),
		Status:        int(g.Status),
		CurrentRound:  g.CurrentRound,
		RoundEnd:      strconv.FormatUint(g.RoundEnd, 10),
		RoundDuration: strconv.FormatUint(g.RoundDuration, 10),
		TotalRounds:   g.TotalRounds,
		Winner:        g.Winner,
	}
}

func decodeSnapshot(s *storedSnapshot) (*breevsgame.GameSnapshot, error) {
	if s == nil {
		return nil, nil
	}
	parse := func(field, v string) (uint64, error) {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("stored %s %q: %w", field, v, err)
		}
		return n, nil
	}
	id, err := parse("gameId", s.GameID)
	if err != nil {
		return nil, err
	}
	stake, err := parse("stake", s.Stake)
	if err != nil {
		return nil, err
	}
	pool, err := parse("prizePool", s.PrizePool)
	if err != nil {
		return nil, err
	}
	roundEnd, err := parse("roundEnd", s.RoundEnd)
	if err != nil {
		return nil, err
	}
	duration, err := parse("roundDuration", s.RoundDuration)
	if err != nil {
		return nil, err
	}
	if s.Status < 0 || s.Status > int(breevsgame.StatusEnded) {
		return nil, fmt.Errorf("stored status %d out of range", s.Status)
	}
	return &breevsgame.GameSnapshot{
		GameID:        id,
		Creator:       s.Creator,
		Players:       append([]string(nil), s.Players...),
		Stake:         stake,
		PrizePool:     pool,
		Status:        breevsgame.GameStatus(s.Status),
		CurrentRound:  s.CurrentRound,
		RoundEnd:      roundEnd,
		RoundDuration: duration,
		TotalRounds:   s.TotalRounds,
		Winner:        s.Winner,
	}, nil
}

// SaveSession persists the recoverable parts of the session: both engagement
// pointers and the selected tab. List caches are not persisted; they are
// rebuilt from polls.
func (c *BreevsClient) SaveSession() error {
	if c.storage == nil {
		return nil
	}
	rec := sessionRecord{
		Address:            c.Address,
		CurrentPlayerGame:  encodeSnapshot(c.store.CurrentPlayerGame()),
		CurrentCreatorGame: encodeSnapshot(c.store.CurrentCreatorGame()),
		ActiveTab:          c.store.ActiveTab(),
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return c.storage.Store(data)
}

// RestoreSession loads a persisted session into the store. Corrupt or
// unparseable records are treated as absent: the session starts clean and
// the next polls rebuild it, rather than trusting damaged engagement state.
// A record saved by a different wallet is also discarded.
func (c *BreevsClient) RestoreSession() error {
	if c.storage == nil {
		return nil
	}
	data, err := c.storage.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.log.Warnf("discarding corrupt session record: %v", err)
		return nil
	}
	if rec.Address != c.Address {
		c.log.Warnf("discarding session record for different wallet %s", rec.Address)
		return nil
	}

	if rec.ActiveTab != "" {
		c.store.SetActiveTab(rec.ActiveTab)
	}
	if pg, err := decodeSnapshot(rec.CurrentPlayerGame); err != nil {
		c.log.Warnf("discarding corrupt player engagement: %v", err)
	} else if pg != nil && pg.Status != breevsgame.StatusEnded {
		c.store.SetCurrentPlayerGame(pg, c.Address)
	}
	if cg, err := decodeSnapshot(rec.CurrentCreatorGame); err != nil {
		c.log.Warnf("discarding corrupt creator engagement: %v", err)
	} else if cg != nil && cg.Status != breevsgame.StatusEnded {
		c.store.SetCurrentCreatorGame(cg)
	}
	return nil
}
