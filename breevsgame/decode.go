package breevsgame

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeGameSnapshot parses the game tuple as returned by a ledger node's
// JSON representation into a typed snapshot. The decode fails closed: any
// missing or malformed field is a typed error and no partially-populated
// snapshot is ever returned, so loosely-shaped ledger data never reaches the
// session store.
//
// Node serializers are not consistent about scalar shapes, so each field
// accepts a bare JSON number, a decimal string (with or without the clarity
// "u" prefix), or a {"type": ..., "value": ...} wrapper.
func DecodeGameSnapshot(gameID uint64, raw json.RawMessage) (*GameSnapshot, error) {
	var tuple map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil {
		return nil, fmt.Errorf("game %d: not a tuple: %w", gameID, err)
	}

	creator, err := decodePrincipal(tuple, "creator")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	players, err := decodePrincipalList(tuple, "players")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	stake, err := decodeUint(tuple, "stake")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	prizePool, err := decodeUint(tuple, "prize-pool")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	status, err := decodeUint(tuple, "status")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	currentRound, err := decodeUint(tuple, "current-round")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	roundEnd, err := decodeUint(tuple, "round-end")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	roundDuration, err := decodeUint(tuple, "round-duration")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	totalRounds, err := decodeUint(tuple, "total-rounds")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}
	winner, err := decodeOptionalPrincipal(tuple, "winner")
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", gameID, err)
	}

	if status > uint64(StatusEnded) {
		return nil, fmt.Errorf("game %d: invalid status %d", gameID, status)
	}
	if len(players) > MaxPlayers {
		return nil, fmt.Errorf("game %d: %d players exceeds capacity %d", gameID, len(players), MaxPlayers)
	}
	if GameStatus(status) == StatusEnded && winner == "" {
		return nil, fmt.Errorf("game %d: ended without a winner", gameID)
	}
	if GameStatus(status) != StatusEnded && winner != "" {
		return nil, fmt.Errorf("game %d: winner %s set on non-ended game", gameID, winner)
	}

	return &GameSnapshot{
		GameID:        gameID,
		Creator:       creator,
		Players:       players,
		Stake:         stake,
		PrizePool:     prizePool,
		Status:        GameStatus(status),
		CurrentRound:  uint32(currentRound),
		RoundEnd:      roundEnd,
		RoundDuration: roundDuration,
		TotalRounds:   uint32(totalRounds),
		Winner:        winner,
	}, nil
}

// unwrapValue peels {"type": ..., "value": ...} wrappers, which node
// serializers nest one level per clarity wrapper type.
func unwrapValue(raw json.RawMessage) json.RawMessage {
	for {
		var wrapper struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Value == nil {
			return raw
		}
		raw = wrapper.Value
	}
}

func decodeUint(tuple map[string]json.RawMessage, field string) (uint64, error) {
	raw, ok := tuple[field]
	if !ok {
		return 0, fmt.Errorf("missing %s", field)
	}
	raw = unwrapValue(raw)

	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid %s: %s", field, string(raw))
	}
	s = strings.TrimPrefix(s, "u")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", field, s)
	}
	return n, nil
}

func decodePrincipal(tuple map[string]json.RawMessage, field string) (string, error) {
	raw, ok := tuple[field]
	if !ok {
		return "", fmt.Errorf("missing %s", field)
	}
	s, err := principalString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", field, err)
	}
	if s == "" {
		return "", fmt.Errorf("empty %s", field)
	}
	return s, nil
}

func decodeOptionalPrincipal(tuple map[string]json.RawMessage, field string) (string, error) {
	raw, ok := tuple[field]
	if !ok {
		return "", nil
	}
	if string(unwrapValue(raw)) == "null" {
		return "", nil
	}
	// An optional none may also arrive as {"type": "none"} with no value.
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && strings.Contains(strings.ToLower(probe.Type), "none") {
		return "", nil
	}
	s, err := principalString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", field, err)
	}
	return s, nil
}

func decodePrincipalList(tuple map[string]json.RawMessage, field string) ([]string, error) {
	raw, ok := tuple[field]
	if !ok {
		return nil, fmt.Errorf("missing %s", field)
	}
	raw = unwrapValue(raw)

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("invalid %s: not a list", field)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := principalString(item)
		if err != nil || s == "" {
			return nil, fmt.Errorf("invalid %s[%d]", field, i)
		}
		out = append(out, s)
	}
	return out, nil
}

func principalString(raw json.RawMessage) (string, error) {
	raw = unwrapValue(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("not a principal: %s", string(raw))
	}
	return s, nil
}
